// Package voting turns members' option choices into a single council decision.
package voting

import "councilofbots.ai/internal/sim/event"

// BaseWeight is the influence of a member with no relevant expertise.
const BaseWeight = 0.1

type Vote struct {
	Member string  `json:"member"`
	Choice int     `json:"choice"`
	Weight float64 `json:"weight"`
}

// Weight is BaseWeight plus, for every tag the event and the member share, the event's
// weight times the member's proficiency. Only the member's first entry for a tag counts.
func Weight(expertise []event.Expertise, ev *event.Event) float64 {
	w := BaseWeight
	for _, need := range ev.Expertise {
		for _, have := range expertise {
			if have.Tag == need.Tag {
				w += need.Weight * have.Weight
				break
			}
		}
	}
	return w
}

// Tally sums vote weights per option. Votes outside [0, numOptions) are dropped.
func Tally(votes []Vote, numOptions int) []float64 {
	if numOptions <= 0 {
		return nil
	}
	totals := make([]float64, numOptions)
	for _, v := range votes {
		if v.Choice < 0 || v.Choice >= numOptions {
			continue
		}
		totals[v.Choice] += v.Weight
	}
	return totals
}

// Resolve returns the option with the highest summed weight. Ties go to the lowest index,
// and zero options resolve to 0.
func Resolve(votes []Vote, numOptions int) int {
	totals := Tally(votes, numOptions)
	best := 0
	for i := 1; i < len(totals); i++ {
		if totals[i] > totals[best] {
			best = i
		}
	}
	return best
}

// ClampChoice maps an arbitrary index into [0, n).
func ClampChoice(choice, n int) int {
	if n <= 0 || choice < 0 {
		return 0
	}
	if choice >= n {
		return n - 1
	}
	return choice
}
