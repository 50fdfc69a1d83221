package galaxy

import "fmt"

// Relation is the diplomatic standing with a known species. Unknown is the unranked
// starting point; the ranked scale runs Hostile < Wary < Neutral < Friendly < Allied.
type Relation uint8

const (
	Unknown Relation = iota
	Hostile
	Wary
	Neutral
	Friendly
	Allied
)

var relationNames = [...]string{
	Unknown:  "Unknown",
	Hostile:  "Hostile",
	Wary:     "Wary",
	Neutral:  "Neutral",
	Friendly: "Friendly",
	Allied:   "Allied",
}

func (r Relation) String() string {
	if int(r) < len(relationNames) {
		return relationNames[r]
	}
	return fmt.Sprintf("Relation(%d)", uint8(r))
}

func (r Relation) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

func (r *Relation) UnmarshalText(b []byte) error {
	for i, name := range relationNames {
		if name == string(b) {
			*r = Relation(i)
			return nil
		}
	}
	return fmt.Errorf("unknown relation %q", string(b))
}

// StepUp improves a relation by one step. Hostile recovers to Wary, Unknown jumps to
// Neutral, Allied saturates.
func StepUp(r Relation) Relation {
	switch r {
	case Hostile:
		return Wary
	case Unknown, Wary:
		return Neutral
	case Neutral:
		return Friendly
	default:
		return Allied
	}
}

// StepDown degrades a relation by one step. Unknown and Wary both fall to Hostile,
// Hostile saturates.
func StepDown(r Relation) Relation {
	switch r {
	case Allied:
		return Friendly
	case Friendly:
		return Neutral
	case Neutral:
		return Wary
	default:
		return Hostile
	}
}

// GreatlyImprove is two consecutive StepUp calls.
func GreatlyImprove(r Relation) Relation {
	return StepUp(StepUp(r))
}
