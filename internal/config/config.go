package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
)

// #region types
// ValueFunctionConfig selects and tunes the value function.
type ValueFunctionConfig struct {
	Type          string  `json:"type"` // "constant" | "logistic"
	ConstantValue float64 `json:"constant_value"`
	LearningRate  float64 `json:"learning_rate"`
}

// CaseWeighterConfig selects and tunes the case weighter.
type CaseWeighterConfig struct {
	Type            string  `json:"type"` // "mml" | "reinforce"
	Alpha           float64 `json:"alpha"`
	Beta            float64 `json:"beta"`
	CorrectWeight   float64 `json:"correct_weight"`
	IncorrectWeight float64 `json:"incorrect_weight"`
}

// ExplorationConfig selects and tunes one exploration policy.
type ExplorationConfig struct {
	Type     string  `json:"type"` // "beam-search" | "randomized-beam-search"
	BeamSize int     `json:"beam_size"`
	Epsilon  float64 `json:"epsilon"`
	Seed     int64   `json:"seed"`
}

// DecomposableConfig tunes the auxiliary CSV batch trainer.
type DecomposableConfig struct {
	BatchSize  int `json:"batch_size"`
	Iterations int `json:"iterations"`
}

// Config is the decoder section of a run configuration.
type Config struct {
	Normalization          string              `json:"normalization"` // "local" | "global"
	InputsCaching          bool                `json:"inputs_caching"`
	MaxStackSize           int                 `json:"max_stack_size"`
	UtterLen               int                 `json:"utter_len"`
	PredicateEmbedder      string              `json:"predicate_embedder"` // "one_hot" | "stack_embedder"
	ValueFunction          ValueFunctionConfig `json:"value_function"`
	CaseWeighter           CaseWeighterConfig  `json:"case_weighter"`
	TrainExplorationPolicy ExplorationConfig   `json:"train_exploration_policy"`
	TestExplorationPolicy  ExplorationConfig   `json:"test_exploration_policy"`
	Decomposable           DecomposableConfig  `json:"decomposable"`
	ModelAddr              string              `json:"model_addr"`
	DBPath                 string              `json:"db_path"`
}

// #endregion types

// #region defaults
// ErrConfigEmpty is returned for empty configuration input.
var ErrConfigEmpty = errors.New("config is empty")

// Default returns a local-normalization config with MML weighting and
// beam search at test time.
func Default() Config {
	return Config{
		Normalization:     "local",
		InputsCaching:     false,
		MaxStackSize:      10,
		UtterLen:          40,
		PredicateEmbedder: "one_hot",
		ValueFunction: ValueFunctionConfig{
			Type:          "constant",
			ConstantValue: 0,
			LearningRate:  0.1,
		},
		CaseWeighter: CaseWeighterConfig{
			Type:            "mml",
			Alpha:           0,
			Beta:            1,
			CorrectWeight:   1,
			IncorrectWeight: 0,
		},
		TrainExplorationPolicy: ExplorationConfig{
			Type:     "randomized-beam-search",
			BeamSize: 32,
			Epsilon:  0.15,
		},
		TestExplorationPolicy: ExplorationConfig{
			Type:     "beam-search",
			BeamSize: 32,
		},
		Decomposable: DecomposableConfig{
			BatchSize:  30,
			Iterations: 10000,
		},
		ModelAddr: "localhost:50051",
		DBPath:    "decoder.db",
	}
}

// #endregion defaults

// #region load
// Load reads a JSON config file on top of Default, then applies env overrides.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := LoadBytes(data)
	if err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadBytes parses JSON on top of Default, applies env overrides and validates.
func LoadBytes(data []byte) (Config, error) {
	if len(data) == 0 {
		return Config{}, ErrConfigEmpty
	}
	cfg := Default()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse json: %w", err)
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// #endregion load

// #region env
// ApplyEnv overrides fields from DECODER_NORMALIZATION, DECODER_INPUTS_CACHING,
// DECODER_BEAM_SIZE, DECODER_MAX_STACK_SIZE, MODEL_ADDR and DECODER_DB.
func (c *Config) ApplyEnv() {
	c.Normalization = envOr("DECODER_NORMALIZATION", c.Normalization)
	c.ModelAddr = envOr("MODEL_ADDR", c.ModelAddr)
	c.DBPath = envOr("DECODER_DB", c.DBPath)
	if v := os.Getenv("DECODER_INPUTS_CACHING"); v != "" {
		c.InputsCaching = v == "true" || v == "1"
	}
	if v := os.Getenv("DECODER_BEAM_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.TrainExplorationPolicy.BeamSize = n
			c.TestExplorationPolicy.BeamSize = n
		}
	}
	if v := os.Getenv("DECODER_MAX_STACK_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.MaxStackSize = n
		}
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion env

// #region validate
// Validate checks field ranges. Normalization modes are checked by the
// decoder, which owns the unsupported-mode error.
func (c *Config) Validate() error {
	if c.MaxStackSize <= 0 {
		return fmt.Errorf("max_stack_size must be positive, got %d", c.MaxStackSize)
	}
	if c.UtterLen < 0 {
		return fmt.Errorf("utter_len must be non-negative, got %d", c.UtterLen)
	}
	policies := []struct {
		name string
		cfg  ExplorationConfig
	}{
		{"train_exploration_policy", c.TrainExplorationPolicy},
		{"test_exploration_policy", c.TestExplorationPolicy},
	}
	for _, pol := range policies {
		name, p := pol.name, pol.cfg
		if p.BeamSize <= 0 {
			return fmt.Errorf("%s.beam_size must be positive, got %d", name, p.BeamSize)
		}
		if p.Epsilon < 0 || p.Epsilon > 1 {
			return fmt.Errorf("%s.epsilon must be in [0,1], got %f", name, p.Epsilon)
		}
	}
	if c.CaseWeighter.Alpha < 0 || c.CaseWeighter.Alpha > 1 {
		return fmt.Errorf("case_weighter.alpha must be in [0,1], got %f", c.CaseWeighter.Alpha)
	}
	if c.Decomposable.BatchSize <= 0 {
		return fmt.Errorf("decomposable.batch_size must be positive, got %d", c.Decomposable.BatchSize)
	}
	return nil
}

// #endregion validate
