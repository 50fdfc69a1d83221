// Package bots provides the built-in council members.
package bots

import (
	"context"
	"fmt"
	"io"
	"log"

	"councilofbots.ai/internal/sim/council"
	"councilofbots.ai/internal/sim/event"
	"councilofbots.ai/internal/sim/galaxy"
	"councilofbots.ai/internal/sim/voting"
)

// Chooser is the model-backed decision source. *llm.Client implements it.
type Chooser interface {
	Choose(ctx context.Context, personality string, ev *event.Event, g *galaxy.State) (int, error)
	Deliberate(ctx context.Context, personality string, ev *event.Event, g *galaxy.State) (int, string, error)
}

// Strategy is a deterministic vote. It must not block.
type Strategy func(ev *event.Event, g *galaxy.State) int

// Bot is a council member with a fixed strategy and an optional model. When the model
// fails the bot votes by its strategy instead, so a run never waits on a broken endpoint
// longer than the driver's vote timeout.
type Bot struct {
	name        string
	expertise   []event.Expertise
	personality string
	strategy    Strategy

	chooser Chooser
	logger  *log.Logger
}

type Option func(*Bot)

// WithChooser gives the bot a model to consult before its strategy.
func WithChooser(c Chooser) Option {
	return func(b *Bot) { b.chooser = c }
}

func WithLogger(l *log.Logger) Option {
	return func(b *Bot) {
		if l != nil {
			b.logger = l
		}
	}
}

func New(name string, expertise []event.Expertise, personality string, strategy Strategy, opts ...Option) *Bot {
	b := &Bot{
		name:        name,
		expertise:   expertise,
		personality: personality,
		strategy:    strategy,
		logger:      log.New(io.Discard, "", 0),
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

func (b *Bot) Name() string                 { return b.name }
func (b *Bot) Expertise() []event.Expertise { return b.expertise }
func (b *Bot) Personality() string          { return b.personality }
func (b *Bot) UsesModel() bool              { return b.chooser != nil }

func (b *Bot) Vote(ctx context.Context, ev *event.Event, g *galaxy.State) (int, error) {
	n := len(ev.Options)
	if b.chooser != nil {
		choice, err := b.chooser.Choose(ctx, b.personality, ev, g)
		if err == nil {
			return voting.ClampChoice(choice, n), nil
		}
		b.logger.Printf("%s: model failed (%v), using fallback", b.name, err)
	}
	return voting.ClampChoice(b.strategy(ev, g), n), nil
}

// Comment speaks during deliberation. Bots without a model stay silent.
func (b *Bot) Comment(ctx context.Context, ev *event.Event, g *galaxy.State) (string, bool) {
	if b.chooser == nil {
		return "", false
	}
	choice, text, err := b.chooser.Deliberate(ctx, b.personality, ev, g)
	if err != nil {
		b.logger.Printf("%s: deliberation failed: %v", b.name, err)
		return "", false
	}
	return fmt.Sprintf("prefers [%d]: %s", choice, text), true
}

var (
	_ council.Member    = (*Bot)(nil)
	_ council.Commenter = (*Bot)(nil)
)

// RosterConfig selects the council for a run.
type RosterConfig struct {
	// Chooser, if set, is handed to the five standard bots when Personalities is true and
	// to the model bot when ModelBot is true.
	Chooser       Chooser
	Personalities bool
	ModelBot      bool
	Logger        *log.Logger
}

// Roster returns the five standard members in seat order, followed by llm-bot when
// requested.
func Roster(cfg RosterConfig) []council.Member {
	var std []Option
	if cfg.Logger != nil {
		std = append(std, WithLogger(cfg.Logger))
	}
	if cfg.Personalities && cfg.Chooser != nil {
		std = append(std, WithChooser(cfg.Chooser))
	}
	out := []council.Member{
		Example(std...),
		First(std...),
		Cycle(std...),
		Contrarian(std...),
		Oracle(std...),
	}
	if cfg.ModelBot {
		opts := []Option{WithLogger(cfg.Logger)}
		if cfg.Chooser != nil {
			opts = append(opts, WithChooser(cfg.Chooser))
		}
		out = append(out, Model(opts...))
	}
	return out
}
