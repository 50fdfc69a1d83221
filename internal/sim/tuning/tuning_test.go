package tuning

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_RepoConfigMatchesDefaults(t *testing.T) {
	got, err := Load(filepath.Join("..", "..", "..", "configs", "tuning.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := Defaults()
	if got.Rounds != want.Rounds || got.VoteTimeout() != 30*time.Second {
		t.Fatalf("rounds=%d timeout=%s", got.Rounds, got.VoteTimeout())
	}
	if got.Bonuses != want.Bonuses {
		t.Fatalf("bonuses=%#v want %#v", got.Bonuses, want.Bonuses)
	}
	if len(got.RatingTiers) != len(want.RatingTiers) || got.RatingTiers[0] != want.RatingTiers[0] {
		t.Fatalf("tiers=%#v", got.RatingTiers)
	}
	if got.LLM != want.LLM {
		t.Fatalf("llm=%#v want %#v", got.LLM, want.LLM)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	p := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(p, []byte("rounds: 7\nllm:\n  provider: lmstudio\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Rounds != 7 || got.LLM.Provider != "lmstudio" {
		t.Fatalf("overrides lost: %#v", got)
	}
	if got.LLM.OllamaModel != "llama3" || got.Bonuses.PerAllied != 10 {
		t.Fatalf("defaults lost: %#v", got)
	}
}

func TestLoad_Rejects(t *testing.T) {
	cases := map[string]string{
		"zero rounds":     "rounds: 0\n",
		"unordered tiers": "rating_tiers:\n  - {min: 10, name: a}\n  - {min: 20, name: b}\n",
		"bad yaml":        "rounds: [\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			p := filepath.Join(t.TempDir(), "tuning.yaml")
			if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
				t.Fatalf("write: %v", err)
			}
			if _, err := Load(p); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
