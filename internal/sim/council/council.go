// Package council drives a run: one event per round, one vote per member, one outcome.
package council

import (
	"context"

	"councilofbots.ai/internal/sim/event"
	"councilofbots.ai/internal/sim/galaxy"
	"councilofbots.ai/internal/sim/voting"
)

// Member is a voting seat on the council. Vote must respect ctx; an error excludes the
// member from that round's tally. The returned index is clamped by the caller.
type Member interface {
	Name() string
	Expertise() []event.Expertise
	Vote(ctx context.Context, ev *event.Event, g *galaxy.State) (int, error)
}

// Commenter is implemented by members that can speak during deliberation. Comments never
// affect scoring directly.
type Commenter interface {
	Comment(ctx context.Context, ev *event.Event, g *galaxy.State) (string, bool)
}

// Sink receives every completed round, in order.
type Sink interface {
	RecordRound(rec *RoundRecord) error
}

type RoundRecord struct {
	Round        int            `json:"round"`
	Template     string         `json:"template,omitempty"`
	Event        string         `json:"event"`
	Options      []string       `json:"options"`
	Deliberation []string       `json:"deliberation,omitempty"`
	Votes        []voting.Vote  `json:"votes"`
	Excluded     []string       `json:"excluded,omitempty"`
	Tally        []float64      `json:"tally"`
	Winner       int            `json:"winner"`
	Forced       bool           `json:"forced,omitempty"`
	Outcome      string         `json:"outcome"`
	Delta        int            `json:"delta"`
	Penalty      int            `json:"penalty"`
	Total        int            `json:"total"`
	Sectors      int            `json:"sectors"`
	Species      int            `json:"species"`
	Threats      int            `json:"threats"`
	Discoveries  int            `json:"discoveries"`
	GalNet       string         `json:"galnet,omitempty"`
	Digest       string         `json:"digest"`
	Changes      []ChangeRecord `json:"changes,omitempty"`
}

// ChangeRecord is the printable form of one applied state change.
type ChangeRecord struct {
	Kind   galaxy.ChangeKind `json:"kind"`
	Detail string            `json:"detail"`
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(rec *RoundRecord) error

func (f SinkFunc) RecordRound(rec *RoundRecord) error { return f(rec) }
