// Package dualencode implements the dual-stream encoding stage: one
// VP9 stream for color, one for the alpha channel rendered as luma.
// Both streams come out with identical length and timestamps so the
// muxer can pair them block by block.
package dualencode

import (
	"context"
	"fmt"
	"image"
	"math"

	"golang.org/x/image/draw"

	"github.com/user/stickerpress/pkg/pipeline"
	"github.com/user/stickerpress/pkg/ports"
)

// EncodeFailure wraps a codec-level error for one candidate config.
// The search treats it as a skippable candidate, not a fatal error.
type EncodeFailure struct {
	Config pipeline.EncodeConfig
	Stream string // "color" or "alpha"
	Err    error
}

func (e *EncodeFailure) Error() string {
	return fmt.Sprintf("encode %s stream (%s): %v", e.Stream, e.Config, e.Err)
}

func (e *EncodeFailure) Unwrap() error {
	return e.Err
}

// Stage encodes a frame sequence into two synchronized compressed
// streams. A fresh encoder is taken from the factory for each stream so
// no codec state leaks between candidates.
type Stage struct {
	factory ports.VideoEncoderFactory
	logger  ports.Logger
}

// NewStage creates a new dual-stream encode stage.
func NewStage(factory ports.VideoEncoderFactory, logger ports.Logger) *Stage {
	return &Stage{
		factory: factory,
		logger:  logger.WithComponent("dualencode"),
	}
}

// Execute decimates, scales and splits the input frames, then encodes
// the color and alpha planes with identical settings and timestamps.
func (s *Stage) Execute(ctx context.Context, input pipeline.DualEncodeInput) (pipeline.DualEncodeResult, error) {
	result := pipeline.DualEncodeResult{}

	if len(input.Frames) == 0 {
		return result, fmt.Errorf("no frames to encode")
	}
	if input.Config.FrameRateDivisor < 1 {
		return result, fmt.Errorf("frame rate divisor must be >= 1, got %d", input.Config.FrameRateDivisor)
	}

	frames := Decimate(input.Frames, input.Config.FrameRateDivisor)

	srcBounds := frames[0].Image.Bounds()
	width, height := TargetDimensions(srcBounds.Dx(), srcBounds.Dy(), input.TargetLongestSide, input.Config.Scale)
	s.logger.Debug("Encoding %d frames at %dx%d (%s)", len(frames), width, height, input.Config)

	colorFrames := make([]image.Image, len(frames))
	alphaFrames := make([]image.Image, len(frames))
	timestamps := make([]int, len(frames))
	for i, frame := range frames {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		scaled := resize(frame.Image, width, height)
		colorFrames[i], alphaFrames[i] = SplitPlanes(scaled)
		timestamps[i] = frame.TimestampMs
	}

	fps := input.FPS / float64(input.Config.FrameRateDivisor)
	opts := ports.EncoderOptions{Quality: input.Config.Quality}

	color, err := s.encodeStream(ctx, colorFrames, timestamps, width, height, fps, opts)
	if err != nil {
		return result, &EncodeFailure{Config: input.Config, Stream: "color", Err: err}
	}
	alpha, err := s.encodeStream(ctx, alphaFrames, timestamps, width, height, fps, opts)
	if err != nil {
		return result, &EncodeFailure{Config: input.Config, Stream: "alpha", Err: err}
	}

	if err := checkSynchronized(color, alpha); err != nil {
		return result, &EncodeFailure{Config: input.Config, Stream: "alpha", Err: err}
	}

	result.Color = color
	result.Alpha = alpha
	result.Width = width
	result.Height = height
	return result, nil
}

func (s *Stage) encodeStream(ctx context.Context, frames []image.Image, timestamps []int, width, height int, fps float64, opts ports.EncoderOptions) ([]ports.EncodedSample, error) {
	encoder := s.factory.NewEncoder()

	if err := encoder.Begin(width, height, fps, opts); err != nil {
		return nil, fmt.Errorf("begin encoding: %w", err)
	}

	for i, img := range frames {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if err := encoder.EncodeFrame(img, timestamps[i]); err != nil {
			return nil, fmt.Errorf("encode frame at %dms: %w", timestamps[i], err)
		}
	}

	samples, err := encoder.End()
	if err != nil {
		return nil, fmt.Errorf("end encoding: %w", err)
	}
	if len(samples) != len(frames) {
		return nil, fmt.Errorf("encoder returned %d samples for %d frames", len(samples), len(frames))
	}
	return samples, nil
}

// checkSynchronized verifies the two streams can be paired one-to-one.
// The encoder config makes this hold; a mismatch means a codec bug.
func checkSynchronized(color, alpha []ports.EncodedSample) error {
	if len(color) != len(alpha) {
		return fmt.Errorf("stream length mismatch: %d color, %d alpha", len(color), len(alpha))
	}
	for i := range color {
		if color[i].TimestampMs != alpha[i].TimestampMs {
			return fmt.Errorf("timestamp mismatch at sample %d: color %dms, alpha %dms",
				i, color[i].TimestampMs, alpha[i].TimestampMs)
		}
	}
	return nil
}

// Decimate keeps every divisor-th frame starting from the first. Kept
// frames retain their original timestamps, so motion timing is
// preserved and playback just gets choppier.
func Decimate(frames []pipeline.Frame, divisor int) []pipeline.Frame {
	if divisor <= 1 {
		return frames
	}
	kept := make([]pipeline.Frame, 0, (len(frames)+divisor-1)/divisor)
	for i := 0; i < len(frames); i += divisor {
		kept = append(kept, frames[i])
	}
	return kept
}

// TargetDimensions computes the encoded frame size: the longest side
// becomes round(targetLongestSide * scale), the other side keeps the
// aspect ratio, and both are forced even (VP9 4:2:0 requirement) with a
// floor of 2.
func TargetDimensions(srcWidth, srcHeight, targetLongestSide int, scale float64) (int, int) {
	longest := srcWidth
	if srcHeight > longest {
		longest = srcHeight
	}
	target := int(math.Round(float64(targetLongestSide) * scale))

	width := int(math.Round(float64(srcWidth) * float64(target) / float64(longest)))
	height := int(math.Round(float64(srcHeight) * float64(target) / float64(longest)))
	return evenDimension(width), evenDimension(height)
}

func evenDimension(v int) int {
	if v < 2 {
		return 2
	}
	return v &^ 1
}

// resize scales with Catmull-Rom resampling, which holds up well for
// the downscales this stage performs.
func resize(src *image.RGBA, width, height int) *image.RGBA {
	if b := src.Bounds(); b.Dx() == width && b.Dy() == height {
		return src
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

// SplitPlanes separates an RGBA frame into an opaque color image and a
// grayscale image carrying the alpha channel as luma.
func SplitPlanes(src *image.RGBA) (*image.RGBA, *image.Gray) {
	bounds := src.Bounds()
	color := image.NewRGBA(bounds)
	alpha := image.NewGray(bounds)

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		srcRow := src.Pix[src.PixOffset(bounds.Min.X, y) : src.PixOffset(bounds.Max.X, y) : src.PixOffset(bounds.Max.X, y)]
		colorRow := color.Pix[color.PixOffset(bounds.Min.X, y):]
		alphaRow := alpha.Pix[alpha.PixOffset(bounds.Min.X, y):]
		for x := 0; x < bounds.Dx(); x++ {
			colorRow[x*4+0] = srcRow[x*4+0]
			colorRow[x*4+1] = srcRow[x*4+1]
			colorRow[x*4+2] = srcRow[x*4+2]
			colorRow[x*4+3] = 0xFF
			alphaRow[x] = srcRow[x*4+3]
		}
	}
	return color, alpha
}
