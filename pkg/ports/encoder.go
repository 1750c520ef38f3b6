package ports

import (
	"image"
)

// EncodedSample is one compressed frame produced by a VideoEncoder.
type EncodedSample struct {
	Data        []byte // Compressed bitstream payload
	TimestampMs int    // Presentation timestamp in milliseconds
	Keyframe    bool   // True if the sample can be decoded independently
}

// VideoEncoder abstracts single-stream video encoding operations.
// Implementations must be deterministic: encoding the same frames with
// the same options twice must yield byte-identical samples.
type VideoEncoder interface {
	// Begin initializes the encoder with the specified dimensions and
	// frame rate. Calling Begin again resets the encoder for a new stream.
	Begin(width, height int, fps float64, opts EncoderOptions) error

	// EncodeFrame encodes a single frame at the specified timestamp.
	EncodeFrame(img image.Image, timestampMs int) error

	// End flushes the encoder and returns the compressed samples in
	// presentation order.
	End() ([]EncodedSample, error)
}

// VideoEncoderFactory creates independent encoder instances so that
// multiple candidate evaluations can run concurrently.
type VideoEncoderFactory interface {
	NewEncoder() VideoEncoder
}

// EncoderOptions configures video encoding parameters.
type EncoderOptions struct {
	Quality int // CRF value: 0-63 (lower is higher quality)
}
