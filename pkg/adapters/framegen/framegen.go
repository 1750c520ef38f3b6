// Package framegen generates synthetic transparent test animations
// using the gg library. Useful for exercising the converter without
// real artwork: the clips have hard alpha edges, soft gradients and
// motion, which is what makes sticker encoding hard.
package framegen

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/fogleman/gg"

	"github.com/user/stickerpress/pkg/pipeline"
)

// Options describes the generated clip.
type Options struct {
	Width      int
	Height     int
	FrameCount int
	FPS        float64
}

// DefaultOptions returns a sticker-sized two-second clip.
func DefaultOptions() Options {
	return Options{
		Width:      512,
		Height:     512,
		FrameCount: 60,
		FPS:        30,
	}
}

// BouncingBall renders an orbiting ball with a fading trail over a
// fully transparent background.
func BouncingBall(opts Options) ([]pipeline.Frame, error) {
	if opts.Width < 2 || opts.Height < 2 {
		return nil, fmt.Errorf("canvas too small: %dx%d", opts.Width, opts.Height)
	}
	if opts.FrameCount < 1 {
		return nil, fmt.Errorf("frame count must be >= 1, got %d", opts.FrameCount)
	}
	if opts.FPS <= 0 {
		return nil, fmt.Errorf("fps must be positive, got %v", opts.FPS)
	}

	frameDurationMs := int(math.Round(1000 / opts.FPS))
	cx := float64(opts.Width) / 2
	cy := float64(opts.Height) / 2
	orbit := math.Min(cx, cy) * 0.6
	radius := math.Min(cx, cy) * 0.25

	frames := make([]pipeline.Frame, opts.FrameCount)
	for i := 0; i < opts.FrameCount; i++ {
		// gg contexts start fully transparent; only the shapes get paint.
		dc := gg.NewContext(opts.Width, opts.Height)

		phase := 2 * math.Pi * float64(i) / float64(opts.FrameCount)

		// Fading trail behind the ball.
		for t := 5; t >= 1; t-- {
			trailPhase := phase - float64(t)*0.15
			x := cx + orbit*math.Cos(trailPhase)
			y := cy + orbit*math.Sin(trailPhase)
			dc.SetRGBA(0.2, 0.6, 1.0, 0.12*float64(6-t))
			dc.DrawCircle(x, y, radius*0.8)
			dc.Fill()
		}

		// The ball itself, with a radial highlight.
		x := cx + orbit*math.Cos(phase)
		y := cy + orbit*math.Sin(phase)
		grad := gg.NewRadialGradient(x-radius/3, y-radius/3, radius/8, x, y, radius)
		grad.AddColorStop(0, color.RGBA{R: 255, G: 242, B: 204, A: 255})
		grad.AddColorStop(1, color.RGBA{R: 230, G: 76, B: 51, A: 255})
		dc.SetFillStyle(grad)
		dc.DrawCircle(x, y, radius)
		dc.Fill()

		img, err := toRGBA(dc.Image())
		if err != nil {
			return nil, err
		}
		frames[i] = pipeline.Frame{
			Image:       img,
			TimestampMs: i * frameDurationMs,
			DurationMs:  frameDurationMs,
		}
	}
	return frames, nil
}

func toRGBA(img image.Image) (*image.RGBA, error) {
	rgba, ok := img.(*image.RGBA)
	if !ok {
		return nil, fmt.Errorf("unexpected canvas image type %T", img)
	}
	return rgba, nil
}

