package tuning

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"councilofbots.ai/internal/sim/scoring"
)

type Tuning struct {
	Rounds        int  `yaml:"rounds"`
	VoteTimeoutMs int  `yaml:"vote_timeout_ms"`
	Deliberate    bool `yaml:"deliberate"`
	GalNet        bool `yaml:"galnet"`

	Bonuses     scoring.Bonuses `yaml:"bonuses"`
	RatingTiers []scoring.Tier  `yaml:"rating_tiers"`

	LLM LLM `yaml:"llm"`
}

type LLM struct {
	Provider    string `yaml:"provider"`
	BaseURL     string `yaml:"base_url"`
	Model       string `yaml:"model"`
	APIKey      string `yaml:"api_key"`
	OllamaHost  string `yaml:"ollama_host"`
	OllamaModel string `yaml:"ollama_model"`

	TimeoutMs       int `yaml:"timeout_ms"`
	MaxAttempts     int `yaml:"max_attempts"`
	BreakerFailures int `yaml:"breaker_failures"`
}

func Defaults() Tuning {
	return Tuning{
		Rounds:        25,
		VoteTimeoutMs: 30_000,
		Bonuses:       scoring.DefaultBonuses,
		RatingTiers:   append([]scoring.Tier(nil), scoring.DefaultTiers...),
		LLM: LLM{
			Provider:        "ollama",
			BaseURL:         "http://127.0.0.1:1234/v1",
			OllamaHost:      "127.0.0.1:11434",
			OllamaModel:     "llama3",
			TimeoutMs:       60_000,
			MaxAttempts:     3,
			BreakerFailures: 3,
		},
	}
}

// Load overlays the yaml file at path onto Defaults.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	if t.Rounds <= 0 {
		return errors.New("rounds must be > 0")
	}
	if t.VoteTimeoutMs <= 0 {
		return errors.New("vote_timeout_ms must be > 0")
	}
	for i := 1; i < len(t.RatingTiers); i++ {
		if t.RatingTiers[i].Min >= t.RatingTiers[i-1].Min {
			return fmt.Errorf("rating_tiers must be ordered by descending min (%q after %q)", t.RatingTiers[i].Name, t.RatingTiers[i-1].Name)
		}
	}
	if t.LLM.MaxAttempts < 1 {
		return errors.New("llm.max_attempts must be >= 1")
	}
	return nil
}

func (t Tuning) VoteTimeout() time.Duration {
	return time.Duration(t.VoteTimeoutMs) * time.Millisecond
}

func (l LLM) Timeout() time.Duration {
	return time.Duration(l.TimeoutMs) * time.Millisecond
}
