package scoring

import (
	"testing"

	"councilofbots.ai/internal/sim/galaxy"
)

func TestLedger_Accumulates(t *testing.T) {
	var l Ledger
	if l.Total() != 0 || len(l.Entries()) != 0 {
		t.Fatalf("new ledger not empty")
	}
	l.Add(1, 10, "Good choice")
	l.Add(2, -5, "Bad choice")
	if l.Total() != 5 || len(l.Entries()) != 2 {
		t.Fatalf("total=%d entries=%d", l.Total(), len(l.Entries()))
	}
	e := l.Entries()
	e[0].Delta = 99
	if l.Entries()[0].Delta != 10 {
		t.Fatalf("Entries exposes internal storage")
	}
}

func TestMoments_FirstOnTies(t *testing.T) {
	var l Ledger
	if _, ok := l.BestMoment(); ok {
		t.Fatalf("empty ledger has no best moment")
	}
	if _, ok := l.WorstMoment(); ok {
		t.Fatalf("empty ledger has no worst moment")
	}
	l.Add(1, 15, "first high")
	l.Add(2, -6, "first low")
	l.Add(3, 15, "second high")
	l.Add(4, -6, "second low")
	best, _ := l.BestMoment()
	worst, _ := l.WorstMoment()
	if best.Reason != "first high" || best.Round != 1 {
		t.Fatalf("best=%#v", best)
	}
	if worst.Reason != "first low" || worst.Round != 2 {
		t.Fatalf("worst=%#v", worst)
	}
}

func TestRating_Thresholds(t *testing.T) {
	cases := []struct {
		total int
		want  string
	}{
		{250, "Legendary Council"},
		{200, "Legendary Council"},
		{199, "Distinguished"},
		{150, "Distinguished"},
		{149, "Competent"},
		{100, "Competent"},
		{99, "Struggling"},
		{50, "Struggling"},
		{49, "Dysfunctional"},
		{-30, "Dysfunctional"},
	}
	for _, tc := range cases {
		if got := Rating(tc.total); got != tc.want {
			t.Fatalf("Rating(%d)=%q want %q", tc.total, got, tc.want)
		}
	}
}

func TestFinal_AppliesBonuses(t *testing.T) {
	g := galaxy.New()
	g.Relations["Zorians"] = galaxy.Allied
	g.Relations["Krelax"] = galaxy.Allied
	g.Relations["Draix"] = galaxy.Hostile
	g.Apply(
		galaxy.AddDiscovery{Discovery: galaxy.Discovery{Name: "Power Crystal", Category: "salvage"}},
		galaxy.AddDiscovery{Discovery: galaxy.Discovery{Name: "Navigation Chart", Category: "artifact"}},
	)
	var l Ledger
	l.Add(1, 20, "win")
	l.Add(2, -3, "threats")
	l.Add(3, 21, "win again")

	r := Final(g, &l, DefaultBonuses, nil)
	if r.Base != 38 || r.AlliedBonus != 20 || r.HostilePenalty != -5 || r.DiscoveryBonus != 10 {
		t.Fatalf("unexpected report: %#v", r)
	}
	if r.Final != 63 || r.Rating != "Struggling" {
		t.Fatalf("final=%d rating=%q", r.Final, r.Rating)
	}
	if r.Best == nil || r.Best.Reason != "win again" || r.Worst == nil || r.Worst.Delta != -3 {
		t.Fatalf("moments: %#v %#v", r.Best, r.Worst)
	}
}

func TestFinal_EmptyLedger(t *testing.T) {
	var l Ledger
	r := Final(galaxy.New(), &l, DefaultBonuses, []Tier{{Min: 0, Name: "Present"}})
	if r.Final != 0 || r.Rating != "Present" || r.Best != nil || r.Worst != nil {
		t.Fatalf("unexpected report: %#v", r)
	}
}
