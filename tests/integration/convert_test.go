// Package integration contains end-to-end tests of the conversion
// pipeline using a deterministic fake codec, so they run without
// libvpx.
package integration

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"testing"

	"github.com/user/stickerpress/pkg/adapters/logger"
	"github.com/user/stickerpress/pkg/mocks"
	"github.com/user/stickerpress/pkg/orchestrator"
	"github.com/user/stickerpress/pkg/pipeline"
	"github.com/user/stickerpress/pkg/ports"
	"github.com/user/stickerpress/pkg/stages/dualencode"
	"github.com/user/stickerpress/pkg/webm"
)

// fakeCodecFactory produces encoders that emit one deterministic
// sample per frame. The per-sample size shrinks as CRF rises and the
// frame shrinks, so the search has a real gradient to walk.
type fakeCodecFactory struct{}

func (f *fakeCodecFactory) NewEncoder() ports.VideoEncoder {
	return &fakeCodec{}
}

type fakeCodec struct {
	width   int
	height  int
	quality int
	calls   []int
}

func (c *fakeCodec) Begin(width, height int, fps float64, opts ports.EncoderOptions) error {
	c.width = width
	c.height = height
	c.quality = opts.Quality
	return nil
}

func (c *fakeCodec) EncodeFrame(img image.Image, timestampMs int) error {
	c.calls = append(c.calls, timestampMs)
	return nil
}

func (c *fakeCodec) End() ([]ports.EncodedSample, error) {
	// Roughly bits-per-pixel scaled down by CRF.
	size := c.width * c.height * (64 - c.quality) / 2000
	if size < 8 {
		size = 8
	}
	samples := make([]ports.EncodedSample, len(c.calls))
	for i, ts := range c.calls {
		data := make([]byte, size)
		copy(data, fmt.Sprintf("f%d-q%d", i, c.quality))
		samples[i] = ports.EncodedSample{Data: data, TimestampMs: ts, Keyframe: i == 0}
	}
	return samples, nil
}

func makeFrames(count, side, frameDurationMs int) []pipeline.Frame {
	frames := make([]pipeline.Frame, count)
	for i := range frames {
		img := image.NewRGBA(image.Rect(0, 0, side, side))
		for y := 0; y < side; y++ {
			for x := 0; x < side; x++ {
				img.SetRGBA(x, y, color.RGBA{R: uint8(i * 16), G: uint8(x), B: uint8(y), A: uint8(x * 2)})
			}
		}
		frames[i] = pipeline.Frame{Image: img, TimestampMs: i * frameDurationMs, DurationMs: frameDurationMs}
	}
	return frames
}

func newOrchestrator() *orchestrator.Orchestrator {
	log := logger.NewNoop()
	stage := dualencode.NewStage(&fakeCodecFactory{}, log)
	return orchestrator.New(stage, mocks.NewDebugSink(false), log)
}

// Twelve 40ms frames against a 64 KiB budget must produce a fitting,
// independently parseable container with the alpha attachment on every
// block.
func TestConvertWithinBudget(t *testing.T) {
	o := newOrchestrator()

	config := orchestrator.DefaultConfig()
	config.MaxBytes = 64 * 1024
	config.TargetLongestSide = 512

	result, err := o.Run(context.Background(), makeFrames(12, 128, 40), config)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if !result.BudgetMet {
		t.Fatal("expected the budget to be met")
	}
	if result.SizeBytes > config.MaxBytes {
		t.Fatalf("size %d exceeds budget %d", result.SizeBytes, config.MaxBytes)
	}

	doc, err := webm.Parse(result.WebM)
	if err != nil {
		t.Fatalf("result does not parse: %v", err)
	}
	if doc.DocType != "webm" {
		t.Errorf("doctype = %q, want webm", doc.DocType)
	}
	if len(doc.Tracks) != 1 {
		t.Fatalf("expected 1 track, got %d", len(doc.Tracks))
	}
	track := doc.Tracks[0]
	if track.CodecID != "V_VP9" || track.AlphaMode != 1 || track.MaxBlockAdditionID != 1 {
		t.Errorf("track not alpha-capable VP9: %+v", track)
	}

	if len(doc.Blocks) == 0 {
		t.Fatal("no blocks in result")
	}
	for i, blk := range doc.Blocks {
		if len(blk.Additional) == 0 {
			t.Errorf("block %d missing alpha attachment", i)
		}
		if blk.AddID != webm.AlphaAddID {
			t.Errorf("block %d add id = %d", i, blk.AddID)
		}
	}
	if !doc.Blocks[0].Keyframe {
		t.Error("first block should be a keyframe")
	}
}

// An impossible 1-byte budget ends in best-effort: no error, BudgetMet
// false, and the smallest observed candidate as the payload.
func TestConvertImpossibleBudget(t *testing.T) {
	o := newOrchestrator()

	config := orchestrator.DefaultConfig()
	config.MaxBytes = 1

	result, err := o.Run(context.Background(), makeFrames(12, 128, 40), config)
	if err != nil {
		t.Fatalf("best-effort case must not error: %v", err)
	}

	if result.BudgetMet {
		t.Error("BudgetMet should be false")
	}
	if len(result.WebM) == 0 {
		t.Fatal("expected the smallest candidate container")
	}
	if _, err := webm.Parse(result.WebM); err != nil {
		t.Errorf("smallest candidate does not parse: %v", err)
	}
}

// Misaligned tracks must be rejected by the muxer, never written.
func TestMisalignedTracksRejected(t *testing.T) {
	factory := &fakeCodecFactory{}

	colorEnc := factory.NewEncoder()
	alphaEnc := factory.NewEncoder()
	if err := colorEnc.Begin(64, 64, 25, ports.EncoderOptions{Quality: 40}); err != nil {
		t.Fatal(err)
	}
	if err := alphaEnc.Begin(64, 64, 25, ports.EncoderOptions{Quality: 40}); err != nil {
		t.Fatal(err)
	}

	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for i := 0; i < 10; i++ {
		if err := colorEnc.EncodeFrame(img, i*40); err != nil {
			t.Fatal(err)
		}
	}
	for i := 0; i < 9; i++ {
		if err := alphaEnc.EncodeFrame(img, i*40); err != nil {
			t.Fatal(err)
		}
	}

	colorTrack, _ := colorEnc.End()
	alphaTrack, _ := alphaEnc.End()

	data, err := webm.Mux(colorTrack, alphaTrack, webm.Metadata{PixelWidth: 64, PixelHeight: 64, DurationMs: 400})
	if data != nil {
		t.Error("no buffer may be emitted for misaligned tracks")
	}
	var violation *webm.MuxInvariantViolation
	if !errors.As(err, &violation) {
		t.Fatalf("expected MuxInvariantViolation, got %v", err)
	}
}

// The whole pipeline is deterministic with the fake codec: same frames
// and config, same bytes.
func TestConvertDeterministic(t *testing.T) {
	config := orchestrator.DefaultConfig()
	config.MaxBytes = 64 * 1024

	run := func() []byte {
		result, err := newOrchestrator().Run(context.Background(), makeFrames(8, 96, 40), config)
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		return result.WebM
	}

	if !bytes.Equal(run(), run()) {
		t.Error("two identical runs produced different containers")
	}
}

// Frame-rate decimation must survive end to end: with divisor candidates
// available the accepted container never holds more blocks than input
// frames, and timestamps stay strictly increasing.
func TestConvertBlockTimestampsMonotone(t *testing.T) {
	o := newOrchestrator()

	config := orchestrator.DefaultConfig()
	config.MaxBytes = 16 * 1024

	result, err := o.Run(context.Background(), makeFrames(20, 128, 40), config)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	doc, err := webm.Parse(result.WebM)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(doc.Blocks) > 20 {
		t.Errorf("%d blocks for 20 input frames", len(doc.Blocks))
	}
	for i := 1; i < len(doc.Blocks); i++ {
		if doc.Blocks[i].TimestampMs <= doc.Blocks[i-1].TimestampMs {
			t.Fatalf("timestamps not increasing at block %d", i)
		}
	}
}
