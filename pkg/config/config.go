// Package config provides configuration loading and management.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/user/stickerpress/pkg/orchestrator"
	"github.com/user/stickerpress/pkg/search"
)

// Config represents the full configuration for stickerpress.
type Config struct {
	// Input/Output
	InputPath  string `yaml:"input"`
	OutputPath string `yaml:"output"`

	// Budget
	MaxBytes      int `yaml:"max_bytes"`
	MaxDurationMs int `yaml:"max_duration_ms"`

	// Geometry
	TargetLongestSide int `yaml:"target_longest_side"`

	// Encoding
	FPS float64 `yaml:"fps"`

	// Search
	Axes               search.Axes `yaml:"axes"`
	JumpThreshold      float64     `yaml:"jump_threshold"`
	MaxJump            int         `yaml:"max_jump"`
	Workers            int         `yaml:"workers"`
	CandidateTimeoutMs int         `yaml:"candidate_timeout_ms"`

	// Debug
	Debug    bool   `yaml:"debug"`
	DebugDir string `yaml:"debug_dir"`
}

// Defaults returns a Config with Telegram sticker default values.
func Defaults() Config {
	base := orchestrator.DefaultConfig()
	return Config{
		MaxBytes:          base.MaxBytes,
		MaxDurationMs:     base.MaxDurationMs,
		TargetLongestSide: base.TargetLongestSide,
		FPS:               base.FPS,

		Axes:               base.Axes,
		JumpThreshold:      base.JumpThreshold,
		MaxJump:            base.MaxJump,
		Workers:            base.Workers,
		CandidateTimeoutMs: int(base.CandidateTimeout / time.Millisecond),

		DebugDir: "./debug",
	}
}

// LoadFromFile loads configuration from a YAML file on top of defaults.
func LoadFromFile(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Validate checks the budget and search settings for obvious mistakes.
func (c Config) Validate() error {
	if c.MaxBytes <= 0 {
		return fmt.Errorf("max_bytes must be positive, got %d", c.MaxBytes)
	}
	if c.MaxDurationMs <= 0 {
		return fmt.Errorf("max_duration_ms must be positive, got %d", c.MaxDurationMs)
	}
	if c.TargetLongestSide < 2 {
		return fmt.Errorf("target_longest_side must be >= 2, got %d", c.TargetLongestSide)
	}
	if c.FPS <= 0 {
		return fmt.Errorf("fps must be positive, got %v", c.FPS)
	}
	if c.Axes.Empty() {
		return fmt.Errorf("search axes must not be empty")
	}
	for _, scale := range c.Axes.Scales {
		if scale <= 0 || scale > 1 {
			return fmt.Errorf("scale must be in (0, 1], got %v", scale)
		}
	}
	for _, q := range c.Axes.Qualities {
		if q < 0 || q > 63 {
			return fmt.Errorf("quality must be 0-63, got %d", q)
		}
	}
	for _, d := range c.Axes.FrameRateDivisors {
		if d < 1 {
			return fmt.Errorf("frame rate divisor must be >= 1, got %d", d)
		}
	}
	return nil
}

// ToOrchestratorConfig converts Config to orchestrator.Config.
func (c Config) ToOrchestratorConfig() orchestrator.Config {
	return orchestrator.Config{
		MaxBytes:          c.MaxBytes,
		MaxDurationMs:     c.MaxDurationMs,
		TargetLongestSide: c.TargetLongestSide,
		FPS:               c.FPS,

		Axes:             c.Axes,
		JumpThreshold:    c.JumpThreshold,
		MaxJump:          c.MaxJump,
		Workers:          c.Workers,
		CandidateTimeout: time.Duration(c.CandidateTimeoutMs) * time.Millisecond,
	}
}
