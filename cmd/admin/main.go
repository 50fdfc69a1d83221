package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"councilofbots.ai/internal/persistence/journal"
	"councilofbots.ai/internal/persistence/snapshot"
	"councilofbots.ai/internal/sim/galaxy"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "db":
			dbCmd(os.Args[2:])
			return
		case "state":
			stateCmd(os.Args[2:])
			return
		case "snapshot":
			snapshotCmd(os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

func listCmd(args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	_ = fs.Parse(args)

	names, err := journal.ListFiles(*dataDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	for _, n := range names {
		fmt.Println(n)
	}
}

func snapshotCmd(args []string) {
	fs := flag.NewFlagSet("snapshot", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	runID := fs.String("run", "", "run id (required unless -path)")
	path := fs.String("path", "", "snapshot path (optional)")
	full := fs.Bool("full", false, "print the whole galaxy and ledger instead of a summary")
	_ = fs.Parse(args)

	p := strings.TrimSpace(*path)
	if p == "" {
		if strings.TrimSpace(*runID) == "" {
			fmt.Fprintln(os.Stderr, "missing -run or -path")
			os.Exit(2)
		}
		p = snapshot.Path(*dataDir, strings.TrimSpace(*runID))
	}
	snap, err := snapshot.ReadSnapshot(p)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read snapshot:", err)
		os.Exit(1)
	}
	if *full {
		printJSON(os.Stdout, snap)
		return
	}
	printJSON(os.Stdout, summarize(snap))
}

type snapshotSummary struct {
	RunID       string            `json:"run_id"`
	Seed        uint64            `json:"seed"`
	Round       int               `json:"round"`
	Digest      string            `json:"digest"`
	Total       int               `json:"total"`
	Sectors     int               `json:"sectors"`
	Species     int               `json:"species"`
	Discoveries int               `json:"discoveries"`
	Threats     []galaxy.Threat   `json:"threats"`
	Relations   map[string]string `json:"relations"`
	Allied      []string          `json:"allied,omitempty"`
	Hostile     []string          `json:"hostile,omitempty"`
}

func summarize(s snapshot.SnapshotV1) snapshotSummary {
	g := s.Galaxy
	out := snapshotSummary{
		RunID:       s.Header.RunID,
		Seed:        s.Seed,
		Round:       s.Header.Round,
		Digest:      s.Header.Digest,
		Total:       s.Total,
		Sectors:     len(g.Sectors),
		Species:     len(g.Species),
		Discoveries: len(g.Discoveries),
		Threats:     append([]galaxy.Threat{}, g.Threats...),
		Relations:   make(map[string]string, len(g.Relations)),
	}
	for name, r := range g.Relations {
		out.Relations[name] = r.String()
		switch r {
		case galaxy.Allied:
			out.Allied = append(out.Allied, name)
		case galaxy.Hostile:
			out.Hostile = append(out.Hostile, name)
		}
	}
	sort.Strings(out.Allied)
	sort.Strings(out.Hostile)
	return out
}

func printJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
