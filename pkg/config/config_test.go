package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.MaxBytes != 256*1024 {
		t.Errorf("MaxBytes = %d, want 262144", cfg.MaxBytes)
	}
	if cfg.MaxDurationMs != 2840 {
		t.Errorf("MaxDurationMs = %d, want 2840", cfg.MaxDurationMs)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stickerpress.yaml")
	content := []byte(`
max_bytes: 65536
target_longest_side: 100
workers: 4
axes:
  scales: [1.0, 0.5]
  qualities: [30, 40]
  frame_rate_divisors: [1]
`)
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.MaxBytes != 65536 {
		t.Errorf("MaxBytes = %d, want 65536", cfg.MaxBytes)
	}
	if cfg.TargetLongestSide != 100 {
		t.Errorf("TargetLongestSide = %d, want 100", cfg.TargetLongestSide)
	}
	if cfg.Workers != 4 {
		t.Errorf("Workers = %d, want 4", cfg.Workers)
	}
	if len(cfg.Axes.Scales) != 2 || len(cfg.Axes.Qualities) != 2 {
		t.Errorf("axes not loaded: %+v", cfg.Axes)
	}
	// Unset fields keep their defaults.
	if cfg.MaxDurationMs != 2840 {
		t.Errorf("MaxDurationMs = %d, want default 2840", cfg.MaxDurationMs)
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	if _, err := LoadFromFile("/nonexistent/stickerpress.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero max bytes", func(c *Config) { c.MaxBytes = 0 }},
		{"zero duration", func(c *Config) { c.MaxDurationMs = 0 }},
		{"tiny longest side", func(c *Config) { c.TargetLongestSide = 1 }},
		{"zero fps", func(c *Config) { c.FPS = 0 }},
		{"empty axes", func(c *Config) { c.Axes.Scales = nil }},
		{"scale above one", func(c *Config) { c.Axes.Scales = []float64{1.5} }},
		{"quality out of range", func(c *Config) { c.Axes.Qualities = []int{70} }},
		{"zero divisor", func(c *Config) { c.Axes.FrameRateDivisors = []int{0} }},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cfg := Defaults()
			c.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestToOrchestratorConfig(t *testing.T) {
	cfg := Defaults()
	cfg.MaxBytes = 12345
	cfg.Workers = 3

	oc := cfg.ToOrchestratorConfig()
	if oc.MaxBytes != 12345 || oc.Workers != 3 {
		t.Errorf("conversion lost fields: %+v", oc)
	}
}
