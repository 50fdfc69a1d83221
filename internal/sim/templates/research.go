package templates

import (
	"fmt"

	"councilofbots.ai/internal/sim/catalogs"
	"councilofbots.ai/internal/sim/event"
	"councilofbots.ai/internal/sim/galaxy"
	"councilofbots.ai/internal/sim/rng"
)

const breakthroughMinDiscoveries = 3

type techBreakthrough struct{ names *catalogs.Names }

func (*techBreakthrough) Name() string   { return TechBreakthroughName }
func (*techBreakthrough) Weight() uint32 { return 7 }

func (*techBreakthrough) Applicable(g *galaxy.State) bool {
	return len(g.Discoveries) >= breakthroughMinDiscoveries
}

// Generate draws once, for the research name.
func (t *techBreakthrough) Generate(_ *galaxy.State, src rng.Source) event.Event {
	name := pick(src, t.names.Research)
	found := galaxy.AddDiscovery{Discovery: galaxy.Discovery{Name: name, Category: "research"}}

	return event.Event{
		Description: fmt.Sprintf("Our scientists report that recent discoveries have opened a path to a major breakthrough: %s. Significant resources would be required to pursue it.", name),
		Expertise: []event.Expertise{
			{Tag: "science", Weight: 0.5},
			{Tag: "engineering", Weight: 0.3},
			{Tag: "exploration", Weight: 0.2},
		},
		Options: []event.ResponseOption{
			option("Full investment: redirect all research capacity",
				fmt.Sprintf("Massive investment pays off! %s is achieved, revolutionizing our capabilities.", name),
				18, found),
			option("Methodical research: steady progress over time",
				fmt.Sprintf("Patient research yields results. %s is added to our knowledge base.", name),
				8, found),
			option("Archive the findings for later",
				"The research notes are filed away. Perhaps we'll revisit them.", 2),
		},
	}
}
