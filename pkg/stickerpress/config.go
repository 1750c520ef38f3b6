// Package stickerpress provides a high-level API for converting timed
// frame sequences into transparency-capable WebM stickers.
package stickerpress

import (
	"time"

	"github.com/user/stickerpress/pkg/orchestrator"
	"github.com/user/stickerpress/pkg/search"
)

// TargetPreset represents a delivery target preset name.
type TargetPreset string

const (
	// PresetSticker targets Telegram video stickers: 512px, 256 KiB.
	PresetSticker TargetPreset = "sticker"
	// PresetEmoji targets Telegram custom emoji: 100px, 64 KiB.
	PresetEmoji TargetPreset = "emoji"
)

// Config represents the configuration for sticker conversion.
type Config struct {
	// Budget
	MaxBytes      int // Hard output size limit in bytes
	MaxDurationMs int // Maximum playback span in milliseconds

	// Geometry
	TargetLongestSide int // Longest output side at full scale

	// Encoding
	FPS float64 // Nominal frame rate written into the container

	// Search
	Axes          search.Axes
	JumpThreshold float64
	MaxJump       int
	Workers       int
	TimeoutSec    int // Per-candidate evaluation timeout in seconds
}

// ConfigBuilder provides a fluent interface for building Config.
type ConfigBuilder struct {
	config Config
}

// NewConfigBuilder creates a new ConfigBuilder with sticker preset defaults.
func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{
		config: stickerDefaults(),
	}
}

// NewEmojiConfigBuilder creates a new ConfigBuilder with emoji preset defaults.
func NewEmojiConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{
		config: emojiDefaults(),
	}
}

// NewPresetConfigBuilder creates a ConfigBuilder for a named preset.
// Unknown names fall back to the sticker preset.
func NewPresetConfigBuilder(preset TargetPreset) *ConfigBuilder {
	if preset == PresetEmoji {
		return NewEmojiConfigBuilder()
	}
	return NewConfigBuilder()
}

// stickerDefaults returns the Telegram video sticker preset.
func stickerDefaults() Config {
	opts := search.DefaultOptions()
	return Config{
		MaxBytes:          256 * 1024,
		MaxDurationMs:     2840,
		TargetLongestSide: 512,
		FPS:               30.0,

		Axes:          search.DefaultAxes(),
		JumpThreshold: opts.JumpThreshold,
		MaxJump:       opts.MaxJump,
		Workers:       opts.Workers,
		TimeoutSec:    int(opts.CandidateTimeout / time.Second),
	}
}

// emojiDefaults returns the Telegram custom emoji preset.
func emojiDefaults() Config {
	cfg := stickerDefaults()
	cfg.MaxBytes = 64 * 1024
	cfg.TargetLongestSide = 100
	return cfg
}

// Build returns the final Config, applying validation and constraints.
func (b *ConfigBuilder) Build() Config {
	cfg := b.config

	if cfg.TargetLongestSide < 2 {
		cfg.TargetLongestSide = 2
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.Axes.Empty() {
		cfg.Axes = search.DefaultAxes()
	}

	return cfg
}

// WithMaxBytes sets the hard output size limit.
func (b *ConfigBuilder) WithMaxBytes(maxBytes int) *ConfigBuilder {
	b.config.MaxBytes = maxBytes
	return b
}

// WithMaxDurationMs sets the maximum playback span.
func (b *ConfigBuilder) WithMaxDurationMs(maxDurationMs int) *ConfigBuilder {
	b.config.MaxDurationMs = maxDurationMs
	return b
}

// WithTargetLongestSide sets the longest output side at full scale.
// Values below 2 will be forced to 2.
func (b *ConfigBuilder) WithTargetLongestSide(side int) *ConfigBuilder {
	b.config.TargetLongestSide = side
	return b
}

// WithFPS sets the nominal frame rate.
func (b *ConfigBuilder) WithFPS(fps float64) *ConfigBuilder {
	b.config.FPS = fps
	return b
}

// WithAxes sets the candidate lattice bounds.
func (b *ConfigBuilder) WithAxes(axes search.Axes) *ConfigBuilder {
	b.config.Axes = axes
	return b
}

// WithWorkers sets the number of concurrent candidate evaluations.
// Values below 1 will be forced to 1.
func (b *ConfigBuilder) WithWorkers(workers int) *ConfigBuilder {
	b.config.Workers = workers
	return b
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
		CandidateTimeout: time.Duration(c.TimeoutSec) * time.Second,
	}
}
