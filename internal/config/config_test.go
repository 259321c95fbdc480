package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadBytesEmpty(t *testing.T) {
	_, err := LoadBytes(nil)
	if !errors.Is(err, ErrConfigEmpty) {
		t.Fatalf("expected ErrConfigEmpty, got %v", err)
	}
}

func TestLoadBytesOverridesDefaults(t *testing.T) {
	cfg, err := LoadBytes([]byte(`{
		"normalization": "global",
		"inputs_caching": true,
		"case_weighter": {"type": "reinforce", "correct_weight": 1, "incorrect_weight": -0.5},
		"test_exploration_policy": {"type": "beam-search", "beam_size": 4}
	}`))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Normalization != "global" {
		t.Errorf("expected global, got %s", cfg.Normalization)
	}
	if !cfg.InputsCaching {
		t.Error("expected inputs_caching=true")
	}
	if cfg.CaseWeighter.Type != "reinforce" || cfg.CaseWeighter.IncorrectWeight != -0.5 {
		t.Errorf("unexpected case weighter %+v", cfg.CaseWeighter)
	}
	if cfg.TestExplorationPolicy.BeamSize != 4 {
		t.Errorf("expected beam size 4, got %d", cfg.TestExplorationPolicy.BeamSize)
	}
	// untouched fields keep defaults
	if cfg.MaxStackSize != Default().MaxStackSize {
		t.Errorf("expected default max_stack_size, got %d", cfg.MaxStackSize)
	}
}

func TestLoadBytesInvalidJSON(t *testing.T) {
	if _, err := LoadBytes([]byte(`{`)); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadBytesValidation(t *testing.T) {
	if _, err := LoadBytes([]byte(`{"max_stack_size": 0}`)); err == nil {
		t.Fatal("expected validation error")
	}
	if _, err := LoadBytes([]byte(`{"train_exploration_policy": {"beam_size": 2, "epsilon": 1.5}}`)); err == nil {
		t.Fatal("expected epsilon validation error")
	}
}

func TestValidateReportsTrainPolicyFirst(t *testing.T) {
	cfg := Default()
	cfg.TrainExplorationPolicy.BeamSize = 0
	cfg.TestExplorationPolicy.BeamSize = 0
	for i := 0; i < 20; i++ {
		err := cfg.Validate()
		if err == nil || !strings.HasPrefix(err.Error(), "train_exploration_policy.beam_size") {
			t.Fatalf("run %d: expected train policy error, got %v", i, err)
		}
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("DECODER_BEAM_SIZE", "7")
	t.Setenv("DECODER_INPUTS_CACHING", "1")
	t.Setenv("MODEL_ADDR", "model:9000")

	cfg, err := LoadBytes([]byte(`{}`))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.TrainExplorationPolicy.BeamSize != 7 || cfg.TestExplorationPolicy.BeamSize != 7 {
		t.Errorf("expected beam size 7, got %d/%d", cfg.TrainExplorationPolicy.BeamSize, cfg.TestExplorationPolicy.BeamSize)
	}
	if !cfg.InputsCaching {
		t.Error("expected inputs caching from env")
	}
	if cfg.ModelAddr != "model:9000" {
		t.Errorf("expected model addr override, got %s", cfg.ModelAddr)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "decoder.json")
	if err := os.WriteFile(path, []byte(`{"utter_len": 12}`), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.UtterLen != 12 {
		t.Errorf("expected utter_len 12, got %d", cfg.UtterLen)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected wrapped not-exist error, got %v", err)
	}
}
