package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"councilofbots.ai/internal/persistence/indexdb"
)

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dbPath := fs.String("db", "./data/council.sqlite", "sqlite index path")
	runID := fs.String("run", "", "run id (rounds and wins; defaults to the latest run)")
	limit := fs.Int("limit", 20, "result limit")
	_ = fs.Parse(args)

	q := "runs"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}
	if _, err := os.Stat(*dbPath); err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	idx, err := indexdb.OpenSQLite(*dbPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer idx.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := queryIndex(ctx, os.Stdout, idx, q, strings.TrimSpace(*runID), *limit); err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr, "usage: admin db [-db PATH] [-run ID] [-limit N] runs|rounds|wins")
		os.Exit(2)
	}
}

type runLine struct {
	RunID      string   `json:"run_id"`
	Seed       uint64   `json:"seed"`
	Rounds     int      `json:"rounds"`
	Members    []string `json:"members"`
	StartedAt  string   `json:"started_at"`
	FinishedAt string   `json:"finished_at,omitempty"`
	FinalScore int      `json:"final_score"`
	Rating     string   `json:"rating,omitempty"`
}

type roundLine struct {
	Round    int    `json:"round"`
	Template string `json:"template"`
	Event    string `json:"event"`
	Winner   int    `json:"winner"`
	Forced   bool   `json:"forced,omitempty"`
	Delta    int    `json:"delta"`
	Penalty  int    `json:"penalty,omitempty"`
	Total    int    `json:"total"`
}

type winLine struct {
	Member string `json:"member"`
	Wins   int    `json:"wins"`
}

func queryIndex(ctx context.Context, w io.Writer, idx *indexdb.SQLiteIndex, q, runID string, limit int) error {
	if limit <= 0 {
		limit = 20
	}
	runs, err := idx.Runs(ctx)
	if err != nil {
		return fmt.Errorf("query runs: %w", err)
	}

	switch q {
	case "runs":
		if len(runs) > limit {
			runs = runs[:limit]
		}
		for _, r := range runs {
			l := runLine{
				RunID:      r.RunID,
				Seed:       r.Seed,
				Rounds:     r.Rounds,
				Members:    r.Members,
				StartedAt:  r.StartedAt.Format(time.RFC3339),
				FinalScore: r.FinalScore,
				Rating:     r.Rating,
			}
			if !r.FinishedAt.IsZero() {
				l.FinishedAt = r.FinishedAt.Format(time.RFC3339)
			}
			printJSON(w, l)
		}
		return nil

	case "rounds", "wins":
		if runID == "" {
			if len(runs) == 0 {
				return fmt.Errorf("no runs indexed")
			}
			runID = runs[0].RunID
		}
		if q == "wins" {
			wins, err := idx.MemberWins(ctx, runID)
			if err != nil {
				return fmt.Errorf("query wins: %w", err)
			}
			lines := make([]winLine, 0, len(wins))
			for m, n := range wins {
				lines = append(lines, winLine{Member: m, Wins: n})
			}
			sort.Slice(lines, func(i, j int) bool {
				if lines[i].Wins != lines[j].Wins {
					return lines[i].Wins > lines[j].Wins
				}
				return lines[i].Member < lines[j].Member
			})
			for _, l := range lines {
				printJSON(w, l)
			}
			return nil
		}
		rounds, err := idx.Rounds(ctx, runID)
		if err != nil {
			return fmt.Errorf("query rounds: %w", err)
		}
		for i, r := range rounds {
			if i >= limit {
				break
			}
			printJSON(w, roundLine{
				Round:    r.Round,
				Template: r.Template,
				Event:    r.Event,
				Winner:   r.Winner,
				Forced:   r.Forced,
				Delta:    r.Delta,
				Penalty:  r.Penalty,
				Total:    r.Total,
			})
		}
		return nil

	default:
		return fmt.Errorf("unknown query: %s", q)
	}
}
