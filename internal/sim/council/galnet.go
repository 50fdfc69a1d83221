package council

import "fmt"

var galNetBlurbs = [...]string{
	"Markets rally; analysts pretend this was always the plan.",
	"Eyewitnesses report the Council looked confident. This may be a hallucination.",
	"Diplomats applaud politely while checking the nearest exit.",
	"A spokesperson clarifies: 'No, this is not a coup. It's a feature update.'",
	"Galactic weather: 0% chance of peace, 100% chance of paperwork.",
	"Citizen morale rises sharply, then remembers the tax code.",
	"Historians mark this as 'a decision'. The bar is low.",
	"A rogue AI claims credit. The Council denies everything, repeatedly.",
	"Breaking: nobody understands the plan, but everyone is nodding.",
}

// GalNetBlurb is the flavour headline for a finished round. It is a pure function of the
// round's results and never touches the random source.
func GalNetBlurb(round, winner, delta, total, threats, discoveries int) string {
	idx := uint(round*31+winner*7+threats*13+discoveries*5) % uint(len(galNetBlurbs))
	mood := "MEH"
	switch {
	case delta > 0:
		mood = "WIN"
	case delta < 0:
		mood = "OUCH"
	}
	return fmt.Sprintf("Round %d [%s] (%+d pts, total %d): %s Threats=%d, Discoveries=%d",
		round, mood, delta, total, galNetBlurbs[idx], threats, discoveries)
}
