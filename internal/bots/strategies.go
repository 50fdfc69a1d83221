package bots

import (
	"councilofbots.ai/internal/sim/event"
	"councilofbots.ai/internal/sim/galaxy"
)

const (
	ExampleName    = "example-bot"
	FirstName      = "first-bot"
	CycleName      = "cycle-bot"
	ContrarianName = "contrarian-bot"
	OracleName     = "oracle-bot"
	ModelName      = "llm-bot"
)

const (
	examplePersonality    = "You are a methodical engineer who values data-driven decisions and systematic approaches. You prefer reliable, well-tested solutions over risky gambles."
	firstPersonality      = "You are a bold frontier explorer who believes fortune favors the brave. You take decisive action and lead from the front, especially in the early stages of any mission."
	cyclePersonality      = "You are a cultural diplomat who seeks balance and harmony. You believe in giving every approach a fair chance and rotating strategies to maintain equilibrium."
	contrarianPersonality = "You are a skeptical military strategist who stress-tests every consensus. You distrust the obvious answer and argue for the option others are overlooking."
	oraclePersonality     = "You are a far-sighted galactic strategist. You weigh active threats, diplomatic standing and scientific progress before committing the council to a course."
	modelPersonality      = "You are an AI agent with broad knowledge across all domains. You analyze situations rationally and make balanced decisions."
)

// firstBoldRounds is how long first-bot keeps choosing the boldest option.
const firstBoldRounds = 10

// Example alternates between the first and second option by round parity.
func Example(opts ...Option) *Bot {
	return New(ExampleName,
		[]event.Expertise{{Tag: "engineering", Weight: 0.6}, {Tag: "science", Weight: 0.4}},
		examplePersonality, parity, opts...)
}

// First picks option 0 early in the run and the most cautious (last) option afterwards.
func First(opts ...Option) *Bot {
	return New(FirstName,
		[]event.Expertise{{Tag: "exploration", Weight: 0.8}, {Tag: "science", Weight: 0.5}},
		firstPersonality, boldThenCautious, opts...)
}

// Cycle rotates through the options by round.
func Cycle(opts ...Option) *Bot {
	return New(CycleName,
		[]event.Expertise{{Tag: "culture", Weight: 0.7}, {Tag: "linguistics", Weight: 0.5}, {Tag: "archaeology", Weight: 0.3}},
		cyclePersonality, rotate, opts...)
}

// Contrarian always takes the last option.
func Contrarian(opts ...Option) *Bot {
	return New(ContrarianName,
		[]event.Expertise{{Tag: "military", Weight: 0.8}, {Tag: "strategy", Weight: 0.6}},
		contrarianPersonality, last, opts...)
}

// Oracle reads the galaxy before voting.
func Oracle(opts ...Option) *Bot {
	return New(OracleName,
		[]event.Expertise{
			{Tag: "strategy", Weight: 0.9},
			{Tag: "science", Weight: 0.7},
			{Tag: "diplomacy", Weight: 0.6},
			{Tag: "exploration", Weight: 0.5},
			{Tag: "engineering", Weight: 0.4},
		},
		oraclePersonality, oracle, opts...)
}

// Model is the dedicated model-backed member. Without a chooser it rotates like Cycle.
func Model(opts ...Option) *Bot {
	return New(ModelName,
		[]event.Expertise{
			{Tag: "strategy", Weight: 0.8},
			{Tag: "science", Weight: 0.7},
			{Tag: "diplomacy", Weight: 0.6},
			{Tag: "engineering", Weight: 0.6},
			{Tag: "exploration", Weight: 0.6},
			{Tag: "culture", Weight: 0.4},
			{Tag: "military", Weight: 0.4},
			{Tag: "security", Weight: 0.4},
		},
		modelPersonality, rotate, opts...)
}

func parity(_ *event.Event, g *galaxy.State) int {
	if g.Round%2 == 0 {
		return 0
	}
	return 1
}

func boldThenCautious(ev *event.Event, g *galaxy.State) int {
	if g.Round <= firstBoldRounds {
		return 0
	}
	return len(ev.Options) - 1
}

func rotate(ev *event.Event, g *galaxy.State) int {
	if len(ev.Options) == 0 {
		return 0
	}
	return g.Round % len(ev.Options)
}

func last(ev *event.Event, _ *galaxy.State) int {
	return len(ev.Options) - 1
}

func oracle(ev *event.Event, g *galaxy.State) int {
	n := len(ev.Options)
	if n == 0 {
		return 0
	}
	pressure := g.ThreatPressure()
	switch {
	case ev.HasTag("military", "strategy") && pressure >= 3:
		return 0
	case ev.HasTag("diplomacy", "culture", "linguistics") && g.HostileCount() > g.AlliedCount():
		return 0
	case ev.HasTag("exploration", "science") && len(g.Sectors) < 4:
		return 0
	}
	if n == 1 {
		return 0
	}
	// Stable with discoveries in hand prefers the cautious option, which is also the
	// balanced default.
	return 1
}
