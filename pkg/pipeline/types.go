package pipeline

import (
	"fmt"
	"image"

	"github.com/user/stickerpress/pkg/ports"
)

// =============================================================================
// Frame Source Types
// =============================================================================

// Frame is one decoded RGBA raster with its presentation time.
// Frames are read-only once handed to the encoder.
type Frame struct {
	Image       *image.RGBA
	TimestampMs int // Presentation timestamp in milliseconds
	DurationMs  int // Display duration in milliseconds (must be > 0)
}

// SpanMs returns the total playback span of a frame sequence in milliseconds.
func SpanMs(frames []Frame) int {
	if len(frames) == 0 {
		return 0
	}
	last := frames[len(frames)-1]
	return last.TimestampMs + last.DurationMs
}

// =============================================================================
// Encode Types
// =============================================================================

// EncodeConfig fully determines one deterministic encoding attempt.
// Two configs with identical fields must produce byte-identical output
// for the same input frames.
type EncodeConfig struct {
	Scale            float64 // Resolution scale in (0, 1] applied to the target longest side
	Quality          int     // CRF value: 0-63 (lower is higher quality, larger file)
	FrameRateDivisor int     // Keep every Nth frame (1 = keep all)
}

// String returns a compact label like "s0.80-q35-d2" used in logs and
// debug file names.
func (c EncodeConfig) String() string {
	return fmt.Sprintf("s%.2f-q%02d-d%d", c.Scale, c.Quality, c.FrameRateDivisor)
}

// DualEncodeInput contains parameters for the dual-stream encode stage.
type DualEncodeInput struct {
	Frames            []Frame
	Config            EncodeConfig
	TargetLongestSide int     // Longest side at Scale=1.0 (e.g. 512 for stickers)
	FPS               float64 // Nominal frame rate written into the container
}

// DualEncodeResult contains the two synchronized compressed tracks.
// Invariant: len(Color) == len(Alpha) and per-index timestamps match.
type DualEncodeResult struct {
	Color  []ports.EncodedSample
	Alpha  []ports.EncodedSample
	Width  int // Encoded pixel width (even)
	Height int // Encoded pixel height (even)
}
