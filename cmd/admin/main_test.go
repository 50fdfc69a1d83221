package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"councilofbots.ai/internal/persistence/indexdb"
	"councilofbots.ai/internal/persistence/snapshot"
	"councilofbots.ai/internal/sim/council"
	"councilofbots.ai/internal/sim/galaxy"
	"councilofbots.ai/internal/sim/scoring"
	"councilofbots.ai/internal/sim/voting"
)

func seededIndex(t *testing.T) *indexdb.SQLiteIndex {
	t.Helper()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "council.sqlite")
	idx, err := indexdb.OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	for i, id := range []string{"old", "new"} {
		started := time.Date(2026, 5, 1, 12+i, 0, 0, 0, time.UTC)
		if err := idx.StartRun(ctx, indexdb.RunRow{RunID: id, Seed: uint64(i + 1), Rounds: 1, Members: []string{"a", "b"}, StartedAt: started}); err != nil {
			t.Fatalf("StartRun: %v", err)
		}
		_ = idx.Sink(id).RecordRound(&council.RoundRecord{
			Round:  1,
			Event:  "Signal from " + id,
			Winner: i,
			Total:  5,
			Votes:  []voting.Vote{{Member: "a", Choice: 0, Weight: 0.3}, {Member: "b", Choice: 1, Weight: 0.7}},
		})
		idx.FinishRun(id, scoring.Report{Final: 5, Rating: "Dysfunctional"})
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	idx, err = indexdb.OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestQueryIndex(t *testing.T) {
	idx := seededIndex(t)
	ctx := context.Background()

	var buf bytes.Buffer
	if err := queryIndex(ctx, &buf, idx, "runs", "", 1); err != nil {
		t.Fatalf("runs: %v", err)
	}
	if out := buf.String(); !strings.Contains(out, `"run_id":"new"`) || strings.Contains(out, `"run_id":"old"`) {
		t.Fatalf("runs output:\n%s", out)
	}

	buf.Reset()
	if err := queryIndex(ctx, &buf, idx, "rounds", "old", 0); err != nil {
		t.Fatalf("rounds: %v", err)
	}
	if !strings.Contains(buf.String(), `"event":"Signal from old"`) {
		t.Fatalf("rounds output:\n%s", buf.String())
	}

	buf.Reset()
	if err := queryIndex(ctx, &buf, idx, "wins", "", 0); err != nil {
		t.Fatalf("wins: %v", err)
	}
	if got := strings.TrimSpace(buf.String()); got != `{"member":"b","wins":1}` {
		t.Fatalf("wins output: %q", got)
	}

	if err := queryIndex(ctx, &buf, idx, "agents", "", 0); err == nil {
		t.Fatalf("expected unknown query error")
	}
}

func TestSummarize(t *testing.T) {
	g := galaxy.New()
	g.Round = 9
	g.Apply(
		galaxy.AddSpecies{Species: galaxy.Species{Name: "Zorblax"}},
		galaxy.SetRelation{Species: "Zorblax", Relation: galaxy.Allied},
		galaxy.AddSpecies{Species: galaxy.Species{Name: "Krell"}},
		galaxy.SetRelation{Species: "Krell", Relation: galaxy.Hostile},
	)
	var l scoring.Ledger
	l.Add(1, 15, "contact")
	s := summarize(snapshot.New("run-x", 3, g, &l))
	if s.Round != 9 || s.Total != 15 || s.Species != 2 || s.Sectors != 1 {
		t.Fatalf("summary=%#v", s)
	}
	if len(s.Allied) != 1 || s.Allied[0] != "Zorblax" || len(s.Hostile) != 1 || s.Relations["Krell"] != "Hostile" {
		t.Fatalf("relations=%#v allied=%v hostile=%v", s.Relations, s.Allied, s.Hostile)
	}
}
