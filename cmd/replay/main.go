package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"councilofbots.ai/internal/persistence/journal"
	"councilofbots.ai/internal/persistence/snapshot"
	"councilofbots.ai/internal/sim/catalogs"
	"councilofbots.ai/internal/sim/council"
	"councilofbots.ai/internal/sim/rng"
	"councilofbots.ai/internal/sim/templates"
)

func main() {
	var (
		dataDir   = flag.String("data", "./data", "journal directory containing rounds-*.jsonl.zst")
		runID     = flag.String("run", "", "run id to verify (default: the most recent run)")
		configDir = flag.String("configs", "./configs", "config directory the run was played with")
		list      = flag.Bool("list", false, "list journaled runs and exit")
	)
	flag.Parse()

	runs, err := journal.ReadDir(*dataDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read journal:", err)
		os.Exit(1)
	}
	if *list {
		printRuns(runs)
		return
	}

	run, err := journal.Find(runs, *runID)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cats, err := catalogs.Load(*configDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load catalogs:", err)
		os.Exit(1)
	}

	h := run.Header
	fmt.Printf("run %s v%d seed=%d rounds=%d/%d members=%d\n", h.RunID, h.Version, h.Seed, len(run.Rounds), h.Rounds, len(h.Members))

	var snap *snapshot.SnapshotV1
	if s, err := snapshot.ReadSnapshot(snapshot.Path(*dataDir, h.RunID)); err == nil {
		snap = &s
	} else if !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "read snapshot:", err)
		os.Exit(1)
	}

	checked, err := replay(context.Background(), run, cats, snap)
	if err != nil {
		fmt.Fprintln(os.Stderr, "replay:", err)
		os.Exit(1)
	}
	if snap != nil {
		fmt.Printf("snapshot ok: round=%d digest=%s\n", snap.Header.Round, snap.Header.Digest)
	}
	fmt.Printf("replay ok: checked=%d rounds\n", checked)
}

// replay rebuilds the engine from the header and re-applies every recorded winner,
// checking the event text, running total and state digest of each round. A non-nil snap
// is checked against the final galaxy.
func replay(ctx context.Context, run *journal.Run, cats *catalogs.Catalogs, snap *snapshot.SnapshotV1) (int, error) {
	h := run.Header
	if h.CatalogDigest != "" && h.CatalogDigest != cats.Digest() {
		return 0, fmt.Errorf("catalog digest mismatch: run=%s configs=%s", h.CatalogDigest, cats.Digest())
	}
	catalog, err := templates.FromCatalogs(cats)
	if err != nil {
		return 0, err
	}
	r := council.NewRunner(council.Config{Rounds: h.Rounds, GalNet: h.GalNet}, catalog, rng.New(h.Seed), nil)

	checked := 0
	for i, want := range run.Rounds {
		if want.Round != i+1 {
			return checked, fmt.Errorf("round sequence broken: want=%d got=%d", i+1, want.Round)
		}
		got, err := r.StepForced(ctx, want.Round, want.Winner)
		if err != nil {
			return checked, err
		}
		switch {
		case got.Event != want.Event:
			return checked, fmt.Errorf("event mismatch at round %d: got=%q want=%q", want.Round, got.Event, want.Event)
		case got.Winner != want.Winner:
			return checked, fmt.Errorf("winner out of range at round %d: %d", want.Round, want.Winner)
		case got.Total != want.Total:
			return checked, fmt.Errorf("score mismatch at round %d: got=%d want=%d", want.Round, got.Total, want.Total)
		case got.Digest != want.Digest:
			return checked, fmt.Errorf("digest mismatch at round %d: got=%s want=%s", want.Round, got.Digest, want.Digest)
		}
		checked++
	}
	if run.Report != nil && run.Report.Base != r.Ledger().Total() {
		return checked, fmt.Errorf("report mismatch: base=%d ledger=%d", run.Report.Base, r.Ledger().Total())
	}
	if snap != nil {
		if snap.Header.RunID != h.RunID {
			return checked, fmt.Errorf("snapshot belongs to run %s", snap.Header.RunID)
		}
		if err := snap.Verify(r.Galaxy(), r.Ledger()); err != nil {
			return checked, err
		}
	}
	return checked, nil
}

func printRuns(runs []*journal.Run) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTARTED\tSEED\tROUNDS\tFINAL\tRATING")
	for _, r := range runs {
		final, rating := "-", "-"
		if r.Report != nil {
			final, rating = fmt.Sprint(r.Report.Final), r.Report.Rating
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d/%d\t%s\t%s\n", r.Header.RunID, r.Header.StartedAt.Format("2006-01-02 15:04:05"),
			r.Header.Seed, len(r.Rounds), r.Header.Rounds, final, rating)
	}
	_ = tw.Flush()
}
