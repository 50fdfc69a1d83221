package snapshot

import (
	"context"
	"strings"
	"testing"

	"councilofbots.ai/internal/sim/council"
	"councilofbots.ai/internal/sim/rng"
	"councilofbots.ai/internal/sim/templates"
)

func playedRunner(t *testing.T, seed uint64, rounds int) *council.Runner {
	t.Helper()
	r := council.NewRunner(council.Config{Rounds: rounds}, templates.Default(), rng.New(seed), nil)
	for i := 1; i <= rounds; i++ {
		if _, err := r.StepForced(context.Background(), i, 0); err != nil {
			t.Fatalf("StepForced(%d): %v", i, err)
		}
	}
	return r
}

func TestSnapshot_RoundTrip(t *testing.T) {
	r := playedRunner(t, 99, 12)
	path := Path(t.TempDir(), "run-a")

	snap := New("run-a", 99, r.Galaxy(), r.Ledger())
	if err := WriteSnapshot(path, snap); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	got, err := ReadSnapshot(path)
	if err != nil {
		t.Fatalf("ReadSnapshot: %v", err)
	}
	if got.Header != snap.Header || got.Seed != 99 || got.Total != r.Ledger().Total() {
		t.Fatalf("header=%#v seed=%d total=%d", got.Header, got.Seed, got.Total)
	}
	if got.Galaxy.Digest() != r.Galaxy().Digest() {
		t.Fatalf("decoded galaxy digest differs")
	}
	if err := got.Verify(r.Galaxy(), r.Ledger()); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}

func TestSnapshot_VerifyDetectsDivergence(t *testing.T) {
	r := playedRunner(t, 5, 8)
	snap := New("run-b", 5, r.Galaxy(), r.Ledger())

	other := playedRunner(t, 5, 9)
	err := snap.Verify(other.Galaxy(), other.Ledger())
	if err == nil || !strings.Contains(err.Error(), "snapshot") {
		t.Fatalf("expected mismatch, got %v", err)
	}
}

func TestSnapshot_CloneIsIndependent(t *testing.T) {
	r := playedRunner(t, 11, 3)
	snap := New("run-c", 11, r.Galaxy(), r.Ledger())
	if _, err := r.StepForced(context.Background(), 4, 0); err != nil {
		t.Fatalf("StepForced: %v", err)
	}
	if snap.Header.Round != 3 || snap.Galaxy.Round != 3 {
		t.Fatalf("snapshot followed the live galaxy: %d/%d", snap.Header.Round, snap.Galaxy.Round)
	}
}

func TestReadSnapshot_Missing(t *testing.T) {
	if _, err := ReadSnapshot(Path(t.TempDir(), "nope")); err == nil {
		t.Fatalf("expected error")
	}
}
