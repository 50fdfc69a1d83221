package galaxy

import (
	"encoding/json"
	"testing"
)

func TestNew_HasHomeSector(t *testing.T) {
	g := New()
	if len(g.Sectors) != 1 || g.Sectors[0].Name != HomeSectorName {
		t.Fatalf("unexpected sectors: %#v", g.Sectors)
	}
	if g.Round != 0 || len(g.Species) != 0 || len(g.Threats) != 0 || len(g.Discoveries) != 0 {
		t.Fatalf("fresh galaxy should be empty besides home: %#v", g)
	}
}

func TestApply_AddSectorIsIdempotent(t *testing.T) {
	g := New()
	add := AddSector{Sector: Sector{Name: "Alpha Quadrant", Kind: Nebula}}
	g.Apply(add, add)
	if len(g.Sectors) != 2 {
		t.Fatalf("sectors=%d want 2", len(g.Sectors))
	}
	g.Apply(AddSector{Sector: Sector{Name: HomeSectorName, Kind: Void}})
	if len(g.Sectors) != 2 || g.Sectors[0].Kind != Habitable {
		t.Fatalf("home sector must not be replaced: %#v", g.Sectors)
	}
}

func TestApply_AddSpeciesSetsUnknownOnce(t *testing.T) {
	g := New()
	sp := Species{Name: "Zorblax", Traits: []string{"curious"}}
	g.Apply(AddSpecies{Species: sp})
	if len(g.Species) != 1 || g.RelationOf("Zorblax") != Unknown {
		t.Fatalf("species not added with Unknown relation: %#v", g)
	}
	g.Apply(SetRelation{Species: "Zorblax", Relation: Friendly}, AddSpecies{Species: sp})
	if len(g.Species) != 1 {
		t.Fatalf("duplicate species added")
	}
	if g.RelationOf("Zorblax") != Friendly {
		t.Fatalf("re-adding species reset relation to %s", g.RelationOf("Zorblax"))
	}
}

func TestApply_AddSpeciesCopiesTraits(t *testing.T) {
	g := New()
	traits := []string{"curious"}
	g.Apply(AddSpecies{Species: Species{Name: "Veloni", Traits: traits}})
	traits[0] = "mutated"
	if g.Species[0].Traits[0] != "curious" {
		t.Fatalf("state aliases caller traits")
	}
}

func TestApply_Discoveries_AllowDuplicates(t *testing.T) {
	g := New()
	d := AddDiscovery{Discovery: Discovery{Name: "Power Crystal", Category: "salvage"}}
	g.Apply(d, d)
	if len(g.Discoveries) != 2 {
		t.Fatalf("discoveries=%d want 2", len(g.Discoveries))
	}
}

func TestApply_ThreatLifecycle(t *testing.T) {
	g := New()
	g.Apply(
		AddThreat{Threat: Threat{Name: "Void Swarm", Severity: 2}},
		AddThreat{Threat: Threat{Name: "Void Swarm", Severity: 5}},
	)
	if len(g.Threats) != 1 || g.Threats[0].Severity != 2 {
		t.Fatalf("duplicate threat add must be a no-op: %#v", g.Threats)
	}

	g.Apply(ModifyThreatSeverity{Name: "Void Swarm", Delta: 3})
	if g.Threats[0].Severity != 5 {
		t.Fatalf("severity=%d want 5", g.Threats[0].Severity)
	}

	g.Apply(ModifyThreatSeverity{Name: "Void Swarm", Delta: -9})
	if len(g.Threats) != 0 {
		t.Fatalf("threat driven below zero must be removed: %#v", g.Threats)
	}

	g.Apply(ModifyThreatSeverity{Name: "Missing", Delta: -1}, RemoveThreat{Name: "Missing"})
	if len(g.Threats) != 0 {
		t.Fatalf("changes on missing threats must be no-ops")
	}
}

func TestApply_ModifySeverityToExactlyZeroRemoves(t *testing.T) {
	g := New()
	g.Threats = append(g.Threats, Threat{Name: "Minor Issue", Severity: 1})
	g.Apply(ModifyThreatSeverity{Name: "Minor Issue", Delta: -1})
	if len(g.Threats) != 0 {
		t.Fatalf("expected threat removal, got %#v", g.Threats)
	}
}

func TestApply_RemoveThreatKeepsOrder(t *testing.T) {
	g := New()
	g.Apply(
		AddThreat{Threat: Threat{Name: "A", Severity: 1}},
		AddThreat{Threat: Threat{Name: "B", Severity: 1}},
		AddThreat{Threat: Threat{Name: "C", Severity: 1}},
		RemoveThreat{Name: "B"},
	)
	if len(g.Threats) != 2 || g.Threats[0].Name != "A" || g.Threats[1].Name != "C" {
		t.Fatalf("unexpected threats: %#v", g.Threats)
	}
}

func TestProcessThreats_Penalty(t *testing.T) {
	g := New()
	g.Threats = append(g.Threats, Threat{Name: "Space Pirates", Severity: 2})
	if p := g.ProcessThreats(); p != -6 {
		t.Fatalf("penalty=%d want -6", p)
	}
	if g.Threats[0].RoundsActive != 1 {
		t.Fatalf("rounds_active=%d want 1", g.Threats[0].RoundsActive)
	}

	g.Threats = append(g.Threats, Threat{Name: "Cosmic Storm", Severity: 3})
	if p := g.ProcessThreats(); p != -15 {
		t.Fatalf("penalty=%d want -15", p)
	}
	if len(g.Threats) != 2 || g.Threats[0].RoundsActive != 2 || g.Threats[1].RoundsActive != 1 {
		t.Fatalf("unexpected threats after processing: %#v", g.Threats)
	}

	if p := New().ProcessThreats(); p != 0 {
		t.Fatalf("no threats should give zero penalty, got %d", p)
	}
}

func TestRelationSteps(t *testing.T) {
	up := map[Relation]Relation{
		Hostile: Wary, Unknown: Neutral, Wary: Neutral, Neutral: Friendly, Friendly: Allied, Allied: Allied,
	}
	for in, want := range up {
		if got := StepUp(in); got != want {
			t.Fatalf("StepUp(%s)=%s want %s", in, got, want)
		}
	}
	down := map[Relation]Relation{
		Allied: Friendly, Friendly: Neutral, Neutral: Wary, Wary: Hostile, Unknown: Hostile, Hostile: Hostile,
	}
	for in, want := range down {
		if got := StepDown(in); got != want {
			t.Fatalf("StepDown(%s)=%s want %s", in, got, want)
		}
	}
	great := map[Relation]Relation{
		Hostile: Neutral, Unknown: Friendly, Neutral: Allied, Friendly: Allied,
	}
	for in, want := range great {
		if got := GreatlyImprove(in); got != want {
			t.Fatalf("GreatlyImprove(%s)=%s want %s", in, got, want)
		}
	}
}

func TestRelationCounts(t *testing.T) {
	g := New()
	g.Relations["A"] = Allied
	g.Relations["B"] = Allied
	g.Relations["C"] = Hostile
	g.Relations["D"] = Neutral
	if g.AlliedCount() != 2 || g.HostileCount() != 1 {
		t.Fatalf("allied=%d hostile=%d", g.AlliedCount(), g.HostileCount())
	}
}

func TestClone_IsDeep(t *testing.T) {
	g := New()
	g.Apply(
		AddSpecies{Species: Species{Name: "Xanuri", Traits: []string{"peaceful"}}},
		AddThreat{Threat: Threat{Name: "Void Swarm", Severity: 1}},
	)
	c := g.Clone()
	c.Species[0].Traits[0] = "x"
	c.Relations["Xanuri"] = Allied
	c.Threats[0].Severity = 9
	if g.Species[0].Traits[0] != "peaceful" || g.RelationOf("Xanuri") != Unknown || g.Threats[0].Severity != 1 {
		t.Fatalf("clone shares memory with original")
	}
	if New().Digest() != New().Digest() {
		t.Fatalf("digest not stable")
	}
}

func TestDigest_ChangesWithState(t *testing.T) {
	a := New()
	b := New()
	if a.Digest() != b.Digest() {
		t.Fatalf("equal states must have equal digests")
	}
	b.Apply(AddDiscovery{Discovery: Discovery{Name: "Navigation Chart", Category: "salvage"}})
	if a.Digest() == b.Digest() {
		t.Fatalf("digest ignored a discovery")
	}
	a.Relations["Qoreki"] = Wary
	a.Relations["Draix"] = Hostile
	c := a.Clone()
	if a.Digest() != c.Digest() {
		t.Fatalf("relation map order must not affect digest")
	}
}

func TestRelation_JSONText(t *testing.T) {
	b, err := json.Marshal(map[string]Relation{"Zorblax": Friendly})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"Zorblax":"Friendly"}` {
		t.Fatalf("unexpected json: %s", b)
	}
	var back map[string]Relation
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back["Zorblax"] != Friendly {
		t.Fatalf("round trip lost relation: %#v", back)
	}
}
