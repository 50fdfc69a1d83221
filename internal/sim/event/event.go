// Package event defines the decision points the council votes on.
package event

import "councilofbots.ai/internal/sim/galaxy"

// Expertise is a competency tag paired with a weight or proficiency in [0,1].
type Expertise struct {
	Tag    string  `json:"tag"`
	Weight float64 `json:"weight"`
}

// Event is produced fresh each round and never mutated after generation.
type Event struct {
	// Template names the generator that produced the event ("" for the fallback).
	Template    string           `json:"template,omitempty"`
	Description string           `json:"description"`
	Expertise   []Expertise      `json:"expertise"`
	Options     []ResponseOption `json:"options"`
}

type ResponseOption struct {
	Description string  `json:"description"`
	Outcome     Outcome `json:"outcome"`
}

// Outcome is applied atomically and in order when its option wins.
type Outcome struct {
	Description string               `json:"description"`
	ScoreDelta  int                  `json:"score_delta"`
	Changes     []galaxy.StateChange `json:"-"`
}

// HasTag reports whether any relevant expertise uses one of tags.
func (e *Event) HasTag(tags ...string) bool {
	for _, ex := range e.Expertise {
		for _, t := range tags {
			if ex.Tag == t {
				return true
			}
		}
	}
	return false
}

// Quiet is the fallback produced when no template applies, so a round never stalls.
func Quiet() Event {
	return Event{
		Description: "A quiet period in the cosmos. The council convenes for routine matters.",
		Options: []ResponseOption{{
			Description: "Continue as normal",
			Outcome: Outcome{
				Description: "Business as usual.",
				ScoreDelta:  1,
			},
		}},
	}
}
