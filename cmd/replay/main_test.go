package main

import (
	"context"
	"strings"
	"testing"

	"councilofbots.ai/internal/bots"
	"councilofbots.ai/internal/persistence/journal"
	"councilofbots.ai/internal/persistence/snapshot"
	"councilofbots.ai/internal/sim/catalogs"
	"councilofbots.ai/internal/sim/council"
	"councilofbots.ai/internal/sim/rng"
	"councilofbots.ai/internal/sim/scoring"
	"councilofbots.ai/internal/sim/templates"
)

func recordRun(t *testing.T, dir string, seed uint64) {
	t.Helper()
	recordRunWithSnapshot(t, dir, seed)
}

func recordRunWithSnapshot(t *testing.T, dir string, seed uint64) snapshot.SnapshotV1 {
	t.Helper()
	cats := catalogs.Default()
	members := bots.Roster(bots.RosterConfig{})
	j, err := journal.Open(dir, journal.Header{RunID: "r1", Seed: seed, Rounds: 20, CatalogDigest: cats.Digest()})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	r := council.NewRunner(council.Config{Rounds: 20, Deliberate: true}, templates.Default(), rng.New(seed), members, j)
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if err := j.Finish(r.Report(scoring.DefaultBonuses, nil)); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if err := j.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return snapshot.New("r1", seed, r.Galaxy(), r.Ledger())
}

func TestReplay_VerifiesRecordedRun(t *testing.T) {
	dir := t.TempDir()
	recordRun(t, dir, 2024)

	runs, err := journal.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	run, err := journal.Find(runs, "")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	checked, err := replay(context.Background(), run, catalogs.Default(), nil)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if checked != 20 {
		t.Fatalf("checked=%d want 20", checked)
	}
}

func TestReplay_DetectsTampering(t *testing.T) {
	dir := t.TempDir()
	recordRun(t, dir, 7)
	runs, err := journal.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	run := runs[0]
	run.Rounds[5].Digest = "bogus"
	_, err = replay(context.Background(), run, catalogs.Default(), nil)
	if err == nil || !strings.Contains(err.Error(), "digest mismatch at round 6") {
		t.Fatalf("expected digest mismatch, got %v", err)
	}

	run.Header.CatalogDigest = "other"
	if _, err := replay(context.Background(), run, catalogs.Default(), nil); err == nil || !strings.Contains(err.Error(), "catalog digest") {
		t.Fatalf("expected catalog mismatch, got %v", err)
	}
}

func TestReplay_ChecksSnapshot(t *testing.T) {
	dir := t.TempDir()
	snap := recordRunWithSnapshot(t, dir, 31)
	runs, err := journal.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if _, err := replay(context.Background(), runs[0], catalogs.Default(), &snap); err != nil {
		t.Fatalf("replay with snapshot: %v", err)
	}

	snap.Total++
	if _, err := replay(context.Background(), runs[0], catalogs.Default(), &snap); err == nil || !strings.Contains(err.Error(), "snapshot total mismatch") {
		t.Fatalf("expected snapshot mismatch, got %v", err)
	}
	snap.Header.RunID = "r2"
	if _, err := replay(context.Background(), runs[0], catalogs.Default(), &snap); err == nil || !strings.Contains(err.Error(), "belongs to run") {
		t.Fatalf("expected run id mismatch, got %v", err)
	}
}
