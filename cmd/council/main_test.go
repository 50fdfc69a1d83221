package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"councilofbots.ai/internal/sim/council"
	"councilofbots.ai/internal/sim/event"
	"councilofbots.ai/internal/sim/scoring"
	"councilofbots.ai/internal/sim/tuning"
	"councilofbots.ai/internal/sim/voting"
)

func TestConsolePrinter_Round(t *testing.T) {
	var buf bytes.Buffer
	p := &consolePrinter{w: &buf, rounds: 25}
	_ = p.RecordRound(&council.RoundRecord{
		Round:        3,
		Event:        "A derelict drifts past.",
		Options:      []string{"Board it", "Ignore it"},
		Deliberation: []string{"first-bot: prefers [0]: fortune favors the brave"},
		Votes:        []voting.Vote{{Member: "first-bot", Choice: 0, Weight: 0.5}},
		Excluded:     []string{"llm-bot"},
		Outcome:      "Salvage recovered.",
		Delta:        10,
		Penalty:      -3,
		Total:        42,
		GalNet:       "Round 3 [WIN]",
	})
	out := buf.String()
	for _, want := range []string{
		"ROUND  3 / 25",
		"[EVENT] A derelict drifts past.",
		"    [1] Ignore it",
		"[DELIBERATION]",
		"first-bot votes [0] (weight: 0.50)",
		"llm-bot abstains",
		">> COUNCIL CHOOSES: [0]",
		"+10 points",
		"Active threats inflict -3 point penalty",
		"[GALNET] Round 3 [WIN]",
		"Score: 42 | Sectors: 0",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestConsolePrinter_Report(t *testing.T) {
	var buf bytes.Buffer
	p := &consolePrinter{w: &buf, rounds: 25}
	p.report(scoring.Report{
		Base:        90,
		AlliedBonus: 20,
		Final:       110,
		Rating:      "Competent",
		Best:        &scoring.Entry{Round: 4, Delta: 25, Reason: "An alliance that will be remembered for generations"},
	}, []memberSummary{{Name: "oracle-bot", Expertise: []event.Expertise{{Tag: "strategy", Weight: 0.9}}}})
	out := buf.String()
	for _, want := range []string{"FINAL SCORE:       +110", "Allied bonus:       +20", "Rating: Competent", "oracle-bot       strategy(0.9)", "Best moment (round 4): +25: An alliance that will be remem"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Hostile penalty") || strings.Contains(out, "Worst moment") {
		t.Fatalf("zero lines must be omitted:\n%s", out)
	}
}

func TestLoadTuning(t *testing.T) {
	dir := t.TempDir()
	got, err := loadTuning(dir, "")
	if err != nil || got.Rounds != tuning.Defaults().Rounds {
		t.Fatalf("missing default file should fall back: %v %#v", err, got)
	}
	if _, err := loadTuning(dir, filepath.Join(dir, "nope.yaml")); err == nil {
		t.Fatalf("explicit missing path must fail")
	}
	if err := os.WriteFile(filepath.Join(dir, "tuning.yaml"), []byte("rounds: 7\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err = loadTuning(dir, "")
	if err != nil || got.Rounds != 7 {
		t.Fatalf("rounds=%d err=%v", got.Rounds, err)
	}
}

func TestOverrideLLM(t *testing.T) {
	l := tuning.Defaults().LLM
	overrideLLM(&l, llmOverrides{Provider: "lmstudio", Model: " qwen ", OllamaHost: ""})
	if l.Provider != "lmstudio" || l.Model != "qwen" || l.OllamaHost != "127.0.0.1:11434" {
		t.Fatalf("llm=%#v", l)
	}
}
