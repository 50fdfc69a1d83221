package llm

import (
	"fmt"
	"sort"
	"strings"

	"councilofbots.ai/internal/sim/event"
	"councilofbots.ai/internal/sim/galaxy"
)

// BuildPrompt asks for a single option index as {"choice", "reason"}.
func BuildPrompt(personality string, ev *event.Event, g *galaxy.State) string {
	var b strings.Builder
	b.WriteString(personality)
	b.WriteString("\n\n")
	b.WriteString("You are participating as a council member in a galactic exploration simulation.\n")
	b.WriteString("Your task: pick the best option index for the council, given the event and galaxy state.\n")
	b.WriteString("Return ONLY a JSON object: {\"choice\": <integer>, \"reason\": <short string>}\n")
	b.WriteString("Do not include any other text.\n\n")
	writeSituation(&b, ev, g)
	return b.String()
}

// BuildDeliberationPrompt asks for a preferred option plus a one-sentence comment for the
// other members.
func BuildDeliberationPrompt(personality string, ev *event.Event, g *galaxy.State) string {
	var b strings.Builder
	b.WriteString(personality)
	b.WriteString("\n\n")
	b.WriteString("You are speaking during the council's deliberation, before the vote.\n")
	b.WriteString("Say which option you prefer and give the other members one short sentence of reasoning.\n")
	b.WriteString("Return ONLY a JSON object: {\"choice\": <integer>, \"comment\": <one sentence>}\n")
	b.WriteString("Do not include any other text.\n\n")
	writeSituation(&b, ev, g)
	return b.String()
}

func writeSituation(b *strings.Builder, ev *event.Event, g *galaxy.State) {
	fmt.Fprintf(b, "ROUND: %d\n", g.Round)
	fmt.Fprintf(b, "SECTORS: %d\n", len(g.Sectors))
	fmt.Fprintf(b, "SPECIES: %d\n", len(g.Species))
	fmt.Fprintf(b, "RELATIONS: %s\n", orNone(relationList(g)))
	fmt.Fprintf(b, "THREATS: %s\n\n", orNone(threatList(g)))

	b.WriteString("EVENT:\n")
	b.WriteString(ev.Description)
	b.WriteString("\n\nOPTIONS:\n")
	for i, o := range ev.Options {
		fmt.Fprintf(b, "%d: %s\n", i, o.Description)
	}
}

func relationList(g *galaxy.State) string {
	names := make([]string, 0, len(g.Relations))
	for n := range g.Relations {
		names = append(names, n)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = n + "=" + g.Relations[n].String()
	}
	return strings.Join(parts, ", ")
}

func threatList(g *galaxy.State) string {
	parts := make([]string, len(g.Threats))
	for i, t := range g.Threats {
		parts[i] = fmt.Sprintf("%s(sev=%d, rounds=%d)", t.Name, t.Severity, t.RoundsActive)
	}
	return strings.Join(parts, ", ")
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
