// Package mediasource decodes animated and still images into timed
// RGBA frame sequences. GIF animations are coalesced so each emitted
// frame is a complete raster; still PNG and WebP images become a
// single-frame sequence.
package mediasource

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/gif"
	"image/png"

	"golang.org/x/image/webp"

	"github.com/user/stickerpress/pkg/pipeline"
)

// Format identifies a supported input media format.
type Format string

const (
	FormatGIF     Format = "gif"
	FormatPNG     Format = "png"
	FormatWebP    Format = "webp"
	FormatUnknown Format = "unknown"
)

// The duration a still image is displayed when it becomes a one-frame
// animation. Matches a single tick at the default 30 fps, rounded up.
const stillFrameDurationMs = 34

// Minimum per-frame display time. GIF encoders commonly write a delay
// of 0 meaning "as fast as possible"; browsers clamp to 100ms, we
// clamp to one 30fps tick.
const minFrameDurationMs = 34

// DetectFormat sniffs the media format from magic bytes.
func DetectFormat(data []byte) Format {
	switch {
	case len(data) >= 6 && (bytes.HasPrefix(data, []byte("GIF87a")) || bytes.HasPrefix(data, []byte("GIF89a"))):
		return FormatGIF
	case len(data) >= 8 && bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")):
		return FormatPNG
	case len(data) >= 12 && bytes.HasPrefix(data, []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")):
		return FormatWebP
	default:
		return FormatUnknown
	}
}

// Options controls decoding.
type Options struct {
	// MaxDurationMs trims the sequence so its span fits. 0 = no limit.
	MaxDurationMs int
}

// Decode turns an encoded media buffer into a timed frame sequence.
func Decode(data []byte, opts Options) ([]pipeline.Frame, error) {
	var frames []pipeline.Frame
	var err error

	switch format := DetectFormat(data); format {
	case FormatGIF:
		frames, err = decodeGIF(data)
	case FormatPNG:
		frames, err = decodeStill(data, format)
	case FormatWebP:
		frames, err = decodeStill(data, format)
	default:
		return nil, fmt.Errorf("unsupported media format")
	}
	if err != nil {
		return nil, err
	}

	if opts.MaxDurationMs > 0 {
		frames = TrimToDuration(frames, opts.MaxDurationMs)
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("no frames within duration limit")
	}
	return frames, nil
}

// decodeGIF decodes all frames, coalescing each against the previous
// canvas per its disposal method so partial-update GIFs come out whole.
func decodeGIF(data []byte) ([]pipeline.Frame, error) {
	g, err := gif.DecodeAll(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode gif: %w", err)
	}
	if len(g.Image) == 0 {
		return nil, fmt.Errorf("gif has no frames")
	}

	bounds := image.Rect(0, 0, g.Config.Width, g.Config.Height)
	if bounds.Empty() {
		bounds = g.Image[0].Bounds()
	}

	canvas := image.NewRGBA(bounds)
	frames := make([]pipeline.Frame, 0, len(g.Image))
	timestampMs := 0

	for i, src := range g.Image {
		var restore *image.RGBA
		if i < len(g.Disposal) && g.Disposal[i] == gif.DisposalPrevious {
			restore = cloneRGBA(canvas)
		}

		draw.Draw(canvas, src.Bounds(), src, src.Bounds().Min, draw.Over)

		durationMs := minFrameDurationMs
		if i < len(g.Delay) && g.Delay[i]*10 > durationMs {
			durationMs = g.Delay[i] * 10 // GIF delay is in 10ms units
		}
		frames = append(frames, pipeline.Frame{
			Image:       cloneRGBA(canvas),
			TimestampMs: timestampMs,
			DurationMs:  durationMs,
		})
		timestampMs += durationMs

		if i < len(g.Disposal) {
			switch g.Disposal[i] {
			case gif.DisposalBackground:
				clearRect(canvas, src.Bounds())
			case gif.DisposalPrevious:
				canvas = restore
			}
		}
	}
	return frames, nil
}

func decodeStill(data []byte, format Format) ([]pipeline.Frame, error) {
	var img image.Image
	var err error
	switch format {
	case FormatPNG:
		img, err = png.Decode(bytes.NewReader(data))
	case FormatWebP:
		img, err = webp.Decode(bytes.NewReader(data))
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", format, err)
	}

	rgba, ok := img.(*image.RGBA)
	if !ok {
		rgba = image.NewRGBA(img.Bounds())
		draw.Draw(rgba, rgba.Bounds(), img, img.Bounds().Min, draw.Src)
	}
	return []pipeline.Frame{{Image: rgba, TimestampMs: 0, DurationMs: stillFrameDurationMs}}, nil
}

// TrimToDuration drops trailing frames until the sequence span fits,
// shortening the last kept frame if it straddles the limit.
func TrimToDuration(frames []pipeline.Frame, maxDurationMs int) []pipeline.Frame {
	kept := make([]pipeline.Frame, 0, len(frames))
	for _, frame := range frames {
		if frame.TimestampMs >= maxDurationMs {
			break
		}
		if frame.TimestampMs+frame.DurationMs > maxDurationMs {
			frame.DurationMs = maxDurationMs - frame.TimestampMs
		}
		kept = append(kept, frame)
	}
	return kept
}

func cloneRGBA(src *image.RGBA) *image.RGBA {
	dst := image.NewRGBA(src.Bounds())
	copy(dst.Pix, src.Pix)
	return dst
}

func clearRect(img *image.RGBA, r image.Rectangle) {
	draw.Draw(img, r, image.Transparent, image.Point{}, draw.Src)
}
