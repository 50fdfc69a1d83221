package council

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"councilofbots.ai/internal/sim/catalogs"
	"councilofbots.ai/internal/sim/event"
	"councilofbots.ai/internal/sim/galaxy"
	"councilofbots.ai/internal/sim/rng"
	"councilofbots.ai/internal/sim/templates"
)

type stubMember struct {
	name      string
	expertise []event.Expertise
	choose    func(ev *event.Event, g *galaxy.State) int
	err       error
	block     bool
	comment   string
	seen      []string
}

func (m *stubMember) Name() string                 { return m.name }
func (m *stubMember) Expertise() []event.Expertise { return m.expertise }

func (m *stubMember) Vote(ctx context.Context, ev *event.Event, g *galaxy.State) (int, error) {
	m.seen = append(m.seen, ev.Description)
	if m.block {
		<-ctx.Done()
		return 0, ctx.Err()
	}
	if m.err != nil {
		return 0, m.err
	}
	return m.choose(ev, g), nil
}

type commentingMember struct{ *stubMember }

func (m commentingMember) Comment(context.Context, *event.Event, *galaxy.State) (string, bool) {
	return m.comment, m.comment != ""
}

func fixed(name string, choice int) *stubMember {
	return &stubMember{name: name, choose: func(*event.Event, *galaxy.State) int { return choice }}
}

func onlyTemplate(t *testing.T, keep string) *templates.Catalog {
	t.Helper()
	off := map[string]uint32{}
	for _, n := range templates.DefaultOrder {
		if n != keep {
			off[n] = 0
		}
	}
	c, err := templates.NewCatalog(catalogs.Default().Names, off)
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	return c
}

func TestScenario_Seed42ForcedExpedition(t *testing.T) {
	r := NewRunner(Config{Rounds: 1}, onlyTemplate(t, templates.UnknownSignalName), rng.New(42), nil)
	rec, err := r.StepForced(context.Background(), 1, 0)
	if err != nil {
		t.Fatalf("StepForced: %v", err)
	}
	if rec.Delta != 15 {
		t.Fatalf("delta=%d want 15", rec.Delta)
	}
	if n := len(r.Galaxy().Sectors); n != 2 {
		t.Fatalf("sectors=%d want 2", n)
	}
	if r.Ledger().Total() != 15 || rec.Total != 15 {
		t.Fatalf("total=%d want 15", r.Ledger().Total())
	}
}

func TestRun_DeterministicForSeed(t *testing.T) {
	play := func() []*RoundRecord {
		var recs []*RoundRecord
		members := []Member{
			fixed("zero", 0),
			&stubMember{name: "parity", expertise: []event.Expertise{{Tag: "science", Weight: 0.6}},
				choose: func(ev *event.Event, g *galaxy.State) int { return g.Round % 2 }},
			&stubMember{name: "last", expertise: []event.Expertise{{Tag: "military", Weight: 0.8}},
				choose: func(ev *event.Event, g *galaxy.State) int { return len(ev.Options) - 1 }},
		}
		sink := SinkFunc(func(rec *RoundRecord) error {
			recs = append(recs, rec)
			return nil
		})
		r := NewRunner(Config{Rounds: 25, VoteTimeout: time.Second}, templates.Default(), rng.New(1234), members, sink)
		if err := r.Run(context.Background()); err != nil {
			t.Fatalf("Run: %v", err)
		}
		return recs
	}
	a, b := play(), play()
	if len(a) != 25 || len(b) != 25 {
		t.Fatalf("rounds=%d/%d want 25", len(a), len(b))
	}
	for i := range a {
		if a[i].Event != b[i].Event || a[i].Winner != b[i].Winner || a[i].Total != b[i].Total || a[i].Digest != b[i].Digest {
			t.Fatalf("round %d diverged", i+1)
		}
		if len(a[i].Votes) != 3 {
			t.Fatalf("round %d votes=%d want 3", i+1, len(a[i].Votes))
		}
	}
}

func TestStep_ExcludesFailingAndSlowMembers(t *testing.T) {
	members := []Member{
		fixed("ok", 2),
		&stubMember{name: "broken", err: errors.New("llm unreachable")},
		&stubMember{name: "slow", block: true},
	}
	r := NewRunner(Config{Rounds: 1, VoteTimeout: 20 * time.Millisecond}, templates.Default(), rng.New(1), members)
	rec, err := r.Step(context.Background(), 1)
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if len(rec.Votes) != 1 || rec.Votes[0].Member != "ok" {
		t.Fatalf("votes=%#v", rec.Votes)
	}
	if len(rec.Excluded) != 2 || rec.Excluded[0] != "broken" || rec.Excluded[1] != "slow" {
		t.Fatalf("excluded=%v", rec.Excluded)
	}
	if rec.Winner != 2 {
		t.Fatalf("winner=%d want 2", rec.Winner)
	}
}

// deafMember ignores its context entirely.
type deafMember struct {
	name  string
	sleep time.Duration
}

func (m deafMember) Name() string                 { return m.name }
func (m deafMember) Expertise() []event.Expertise { return nil }
func (m deafMember) Vote(context.Context, *event.Event, *galaxy.State) (int, error) {
	time.Sleep(m.sleep)
	return 1, nil
}

// lateMember answers with its fallback once the deadline has passed.
type lateMember struct{ name string }

func (m lateMember) Name() string                 { return m.name }
func (m lateMember) Expertise() []event.Expertise { return nil }
func (m lateMember) Vote(ctx context.Context, ev *event.Event, _ *galaxy.State) (int, error) {
	<-ctx.Done()
	return len(ev.Options) - 1, nil
}

func TestStep_DeadlineHoldsForMembersIgnoringContext(t *testing.T) {
	members := []Member{fixed("ok", 0), deafMember{name: "deaf", sleep: 2 * time.Second}}
	r := NewRunner(Config{Rounds: 1, VoteTimeout: 20 * time.Millisecond, VoteGrace: 20 * time.Millisecond}, templates.Default(), rng.New(1), members)
	start := time.Now()
	rec, err := r.Step(context.Background(), 1)
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if took := time.Since(start); took > time.Second {
		t.Fatalf("Step took %v, vote deadline not enforced", took)
	}
	if len(rec.Excluded) != 1 || rec.Excluded[0] != "deaf" || len(rec.Votes) != 1 {
		t.Fatalf("votes=%#v excluded=%v", rec.Votes, rec.Excluded)
	}
}

func TestStep_CountsFallbackReturnedAtDeadline(t *testing.T) {
	members := []Member{lateMember{name: "late"}}
	r := NewRunner(Config{Rounds: 1, VoteTimeout: 20 * time.Millisecond}, templates.Default(), rng.New(3), members)
	rec, err := r.Step(context.Background(), 1)
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if len(rec.Excluded) != 0 || len(rec.Votes) != 1 {
		t.Fatalf("votes=%#v excluded=%v", rec.Votes, rec.Excluded)
	}
	if want := len(rec.Options) - 1; rec.Winner != want {
		t.Fatalf("winner=%d want %d", rec.Winner, want)
	}
}

func TestStep_ClampsOutOfRangeChoices(t *testing.T) {
	r := NewRunner(Config{Rounds: 1}, templates.Default(), rng.New(9), []Member{fixed("wild", 42)})
	rec, err := r.Step(context.Background(), 1)
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if rec.Votes[0].Choice != len(rec.Options)-1 || rec.Winner != len(rec.Options)-1 {
		t.Fatalf("choice=%d winner=%d options=%d", rec.Votes[0].Choice, rec.Winner, len(rec.Options))
	}
}

func TestStep_DeliberationReachesBallotOnly(t *testing.T) {
	speaker := commentingMember{&stubMember{name: "speaker", comment: "prefers [0]", choose: func(*event.Event, *galaxy.State) int { return 0 }}}
	quiet := fixed("quiet", 1)
	r := NewRunner(Config{Rounds: 1, Deliberate: true}, templates.Default(), rng.New(5), []Member{speaker, quiet})
	rec, err := r.Step(context.Background(), 1)
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if len(rec.Deliberation) != 1 || rec.Deliberation[0] != "speaker: prefers [0]" {
		t.Fatalf("deliberation=%v", rec.Deliberation)
	}
	if strings.Contains(rec.Event, "COUNCIL DELIBERATION") {
		t.Fatalf("transcript leaked into the event")
	}
	if len(quiet.seen) != 1 || !strings.HasSuffix(quiet.seen[0], "\n\nCOUNCIL DELIBERATION:\nspeaker: prefers [0]") {
		t.Fatalf("ballot=%q", quiet.seen)
	}
}

func TestStep_RecordsThreatPenalty(t *testing.T) {
	r := NewRunner(Config{Rounds: 2}, onlyTemplate(t, templates.ThreatEmergenceName), &rng.Sequence{Values: []uint32{0}}, nil)
	rec, err := r.StepForced(context.Background(), 1, 1)
	if err != nil {
		t.Fatalf("StepForced: %v", err)
	}
	if rec.Delta != 3 || rec.Penalty != -3 || rec.Total != 0 {
		t.Fatalf("delta=%d penalty=%d total=%d", rec.Delta, rec.Penalty, rec.Total)
	}
	entries := r.Ledger().Entries()
	if len(entries) != 2 || entries[1].Reason != ThreatPenaltyReason || entries[1].Round != 1 {
		t.Fatalf("entries=%#v", entries)
	}
	if r.Galaxy().Threats[0].RoundsActive != 1 {
		t.Fatalf("threat not aged")
	}
}

func TestRun_StopsOnSinkError(t *testing.T) {
	calls := 0
	sink := SinkFunc(func(*RoundRecord) error {
		calls++
		if calls == 3 {
			return errors.New("disk full")
		}
		return nil
	})
	r := NewRunner(Config{Rounds: 10}, templates.Default(), rng.New(3), []Member{fixed("a", 0)}, sink)
	if err := r.Run(context.Background()); err == nil {
		t.Fatalf("expected sink error")
	}
	if calls != 3 {
		t.Fatalf("rounds after failure: calls=%d", calls)
	}
}

func TestStepForced_ReplaysRecordedRun(t *testing.T) {
	var recs []*RoundRecord
	members := []Member{fixed("a", 0), fixed("b", 2), fixed("c", 2)}
	r := NewRunner(Config{Rounds: 15}, templates.Default(), rng.New(77), members, SinkFunc(func(rec *RoundRecord) error {
		recs = append(recs, rec)
		return nil
	}))
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	replay := NewRunner(Config{Rounds: 15}, templates.Default(), rng.New(77), nil)
	for _, want := range recs {
		got, err := replay.StepForced(context.Background(), want.Round, want.Winner)
		if err != nil {
			t.Fatalf("StepForced: %v", err)
		}
		if got.Event != want.Event || got.Digest != want.Digest || got.Total != want.Total {
			t.Fatalf("round %d: replay diverged", want.Round)
		}
	}
}

func TestGalNetBlurb(t *testing.T) {
	got := GalNetBlurb(1, 0, 15, 15, 0, 0)
	want := "Round 1 [WIN] (+15 pts, total 15): Galactic weather: 0% chance of peace, 100% chance of paperwork. Threats=0, Discoveries=0"
	if got != want {
		t.Fatalf("blurb=%q", got)
	}
	if s := GalNetBlurb(2, 1, -5, 10, 1, 0); !strings.Contains(s, "[OUCH] (-5 pts") {
		t.Fatalf("blurb=%q", s)
	}
	if s := GalNetBlurb(2, 1, 0, 10, 1, 0); !strings.Contains(s, "[MEH] (+0 pts") {
		t.Fatalf("blurb=%q", s)
	}
}
