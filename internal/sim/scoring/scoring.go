// Package scoring keeps the council's score ledger and end-of-run report.
package scoring

import "councilofbots.ai/internal/sim/galaxy"

type Entry struct {
	Round  int    `json:"round"`
	Delta  int    `json:"delta"`
	Reason string `json:"reason"`
}

// Ledger is an append-only history of score changes with a running total.
type Ledger struct {
	total   int
	entries []Entry
}

func (l *Ledger) Add(round, delta int, reason string) {
	l.total += delta
	l.entries = append(l.entries, Entry{Round: round, Delta: delta, Reason: reason})
}

func (l *Ledger) Total() int { return l.total }

func (l *Ledger) Entries() []Entry { return append([]Entry(nil), l.entries...) }

// BestMoment returns the entry with the largest delta, the earliest one on ties.
func (l *Ledger) BestMoment() (Entry, bool) {
	return l.extreme(func(a, b int) bool { return a > b })
}

// WorstMoment returns the entry with the smallest delta, the earliest one on ties.
func (l *Ledger) WorstMoment() (Entry, bool) {
	return l.extreme(func(a, b int) bool { return a < b })
}

func (l *Ledger) extreme(better func(a, b int) bool) (Entry, bool) {
	if len(l.entries) == 0 {
		return Entry{}, false
	}
	best := l.entries[0]
	for _, e := range l.entries[1:] {
		if better(e.Delta, best.Delta) {
			best = e
		}
	}
	return best, true
}

// Tier names every score at or above Min, down to the next tier.
type Tier struct {
	Min  int    `yaml:"min" json:"min"`
	Name string `yaml:"name" json:"name"`
}

// DefaultTiers are ordered from best to worst. Scores below the last Min fall through
// to BottomTier.
var DefaultTiers = []Tier{
	{Min: 200, Name: "Legendary Council"},
	{Min: 150, Name: "Distinguished"},
	{Min: 100, Name: "Competent"},
	{Min: 50, Name: "Struggling"},
}

const BottomTier = "Dysfunctional"

func Rating(total int) string { return RatingWith(DefaultTiers, total) }

// RatingWith classifies total against tiers, which must be ordered by descending Min.
func RatingWith(tiers []Tier, total int) string {
	for _, t := range tiers {
		if total >= t.Min {
			return t.Name
		}
	}
	return BottomTier
}

// Bonuses are the end-of-run adjustments applied per relation and discovery.
type Bonuses struct {
	PerAllied    int `yaml:"per_allied" json:"per_allied"`
	PerHostile   int `yaml:"per_hostile" json:"per_hostile"`
	PerDiscovery int `yaml:"per_discovery" json:"per_discovery"`
}

var DefaultBonuses = Bonuses{PerAllied: 10, PerHostile: -5, PerDiscovery: 5}

type Report struct {
	Base           int    `json:"base"`
	AlliedBonus    int    `json:"allied_bonus"`
	HostilePenalty int    `json:"hostile_penalty"`
	DiscoveryBonus int    `json:"discovery_bonus"`
	Final          int    `json:"final"`
	Rating         string `json:"rating"`

	Allied      int `json:"allied"`
	Hostile     int `json:"hostile"`
	Sectors     int `json:"sectors"`
	Species     int `json:"species"`
	Discoveries int `json:"discoveries"`
	Threats     int `json:"threats"`

	Best  *Entry `json:"best,omitempty"`
	Worst *Entry `json:"worst,omitempty"`
}

// Final applies the end-of-run bonuses to the ledger total and rates the adjusted score.
// A nil tiers slice uses DefaultTiers.
func Final(g *galaxy.State, l *Ledger, b Bonuses, tiers []Tier) Report {
	if tiers == nil {
		tiers = DefaultTiers
	}
	r := Report{
		Base:        l.Total(),
		Allied:      g.AlliedCount(),
		Hostile:     g.HostileCount(),
		Sectors:     len(g.Sectors),
		Species:     len(g.Species),
		Discoveries: len(g.Discoveries),
		Threats:     len(g.Threats),
	}
	r.AlliedBonus = r.Allied * b.PerAllied
	r.HostilePenalty = r.Hostile * b.PerHostile
	r.DiscoveryBonus = r.Discoveries * b.PerDiscovery
	r.Final = r.Base + r.AlliedBonus + r.HostilePenalty + r.DiscoveryBonus
	r.Rating = RatingWith(tiers, r.Final)
	if e, ok := l.BestMoment(); ok {
		r.Best = &e
	}
	if e, ok := l.WorstMoment(); ok {
		r.Worst = &e
	}
	return r
}
