package main

import (
	"fmt"
	"io"
	"strings"

	"councilofbots.ai/internal/sim/council"
	"councilofbots.ai/internal/sim/event"
	"councilofbots.ai/internal/sim/scoring"
)

const rule = "══════════════════════════════════════════════════════════════"

// consolePrinter renders each round for a terminal.
type consolePrinter struct {
	w      io.Writer
	rounds int
}

func (p *consolePrinter) banner(members int) {
	fmt.Fprintln(p.w)
	fmt.Fprintln(p.w, "  === GALACTIC COUNCIL EXPLORATION SIMULATION ===")
	fmt.Fprintf(p.w, "  %d rounds | %d council members | Infinite possibilities\n", p.rounds, members)
	fmt.Fprintln(p.w)
}

func (p *consolePrinter) RecordRound(rec *council.RoundRecord) error {
	w := p.w
	fmt.Fprintln(w)
	fmt.Fprintln(w, "╔"+rule+"╗")
	fmt.Fprintf(w, "║  ROUND %2d / %-50d║\n", rec.Round, p.rounds)
	fmt.Fprintln(w, "╚"+rule+"╝")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  [EVENT] %s\n\n", rec.Event)
	for i, o := range rec.Options {
		fmt.Fprintf(w, "    [%d] %s\n", i, o)
	}
	fmt.Fprintln(w)

	if len(rec.Deliberation) > 0 {
		fmt.Fprintln(w, "  [DELIBERATION]")
		for _, line := range rec.Deliberation {
			fmt.Fprintf(w, "    %s\n", line)
		}
		fmt.Fprintln(w)
	}

	if rec.Forced {
		fmt.Fprintf(w, "    (replayed decision)\n")
	}
	for _, v := range rec.Votes {
		fmt.Fprintf(w, "    %s votes [%d] (weight: %.2f)\n", v.Member, v.Choice, v.Weight)
	}
	for _, name := range rec.Excluded {
		fmt.Fprintf(w, "    %s abstains (no answer)\n", name)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "  >> COUNCIL CHOOSES: [%d]\n", rec.Winner)
	fmt.Fprintf(w, "  >> %s\n", rec.Outcome)
	switch {
	case rec.Delta > 0:
		fmt.Fprintf(w, "     +%d points\n", rec.Delta)
	case rec.Delta < 0:
		fmt.Fprintf(w, "     %d points\n", rec.Delta)
	}
	if rec.Penalty != 0 {
		fmt.Fprintf(w, "  !! Active threats inflict %d point penalty\n", rec.Penalty)
	}
	if rec.GalNet != "" {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "  [GALNET] %s\n", rec.GalNet)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "  Score: %d | Sectors: %d | Species: %d | Threats: %d | Discoveries: %d\n",
		rec.Total, rec.Sectors, rec.Species, rec.Threats, rec.Discoveries)
	return nil
}

type memberSummary struct {
	Name      string
	Expertise []event.Expertise
}

func (p *consolePrinter) report(rep scoring.Report, members []memberSummary) {
	w := p.w
	line := func(format string, args ...any) {
		fmt.Fprintf(w, "║  "+format+"\n", args...)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "╔"+rule+"╗")
	fmt.Fprintln(w, "║                    FINAL COUNCIL REPORT")
	fmt.Fprintln(w, "╠"+rule+"╣")
	line("Sectors explored: %3d", rep.Sectors)
	line("Species known:    %3d", rep.Species)
	line("Discoveries:      %3d", rep.Discoveries)
	line("Active threats:   %3d", rep.Threats)
	line("Allied species:   %3d", rep.Allied)
	line("Hostile species:  %3d", rep.Hostile)
	fmt.Fprintln(w, "╠"+rule+"╣")
	line("Base score:        %+4d", rep.Base)
	if rep.AlliedBonus != 0 {
		line("Allied bonus:      %+4d", rep.AlliedBonus)
	}
	if rep.HostilePenalty != 0 {
		line("Hostile penalty:   %+4d", rep.HostilePenalty)
	}
	if rep.DiscoveryBonus != 0 {
		line("Discovery bonus:   %+4d", rep.DiscoveryBonus)
	}
	line("                   ────")
	line("FINAL SCORE:       %+4d", rep.Final)
	line("")
	line("Rating: %s", rep.Rating)
	fmt.Fprintln(w, "╠"+rule+"╣")
	fmt.Fprintln(w, "║  COUNCIL MEMBERS")
	fmt.Fprintln(w, "╠"+rule+"╣")
	for _, m := range members {
		tags := make([]string, len(m.Expertise))
		for i, e := range m.Expertise {
			tags[i] = fmt.Sprintf("%s(%.1f)", e.Tag, e.Weight)
		}
		line("%-16s %s", m.Name, strings.Join(tags, ", "))
	}
	if rep.Best != nil {
		line("Best moment (round %d): %+d: %s", rep.Best.Round, rep.Best.Delta, truncate(rep.Best.Reason, 30))
	}
	if rep.Worst != nil {
		line("Worst moment (round %d): %+d: %s", rep.Worst.Round, rep.Worst.Delta, truncate(rep.Worst.Reason, 30))
	}
	fmt.Fprintln(w, "╚"+rule+"╝")
	fmt.Fprintln(w)
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
