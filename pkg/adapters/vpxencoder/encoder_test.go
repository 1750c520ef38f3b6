package vpxencoder

import (
	"image"
	"image/color"
	"testing"

	"github.com/user/stickerpress/pkg/ports"
)

func createTestImage(width, height int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func createTestGray(width, height int, v uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, width, height))
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

func TestNew(t *testing.T) {
	encoder := New()
	if encoder == nil {
		t.Fatal("expected encoder to be created")
	}
}

func TestEncoder_Begin(t *testing.T) {
	encoder := New()

	err := encoder.Begin(128, 128, 30.0, ports.EncoderOptions{Quality: 30})
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}

	encoder.cleanup()
}

func TestEncoder_BeginRejectsOddDimensions(t *testing.T) {
	encoder := New()

	if err := encoder.Begin(65, 64, 30.0, ports.EncoderOptions{Quality: 30}); err == nil {
		encoder.cleanup()
		t.Fatal("expected error for odd width")
	}
}

func TestEncoder_BeginRejectsBadQuality(t *testing.T) {
	encoder := New()

	if err := encoder.Begin(64, 64, 30.0, ports.EncoderOptions{Quality: 64}); err == nil {
		encoder.cleanup()
		t.Fatal("expected error for quality out of range")
	}
}

func TestEncoder_OneSamplePerFrame(t *testing.T) {
	encoder := New()

	err := encoder.Begin(64, 64, 30.0, ports.EncoderOptions{Quality: 40})
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}

	colors := []color.RGBA{
		{R: 255, G: 0, B: 0, A: 255},
		{R: 0, G: 255, B: 0, A: 255},
		{R: 0, G: 0, B: 255, A: 255},
		{R: 255, G: 255, B: 0, A: 255},
	}
	for i, c := range colors {
		img := createTestImage(64, 64, c)
		if err := encoder.EncodeFrame(img, i*33); err != nil {
			t.Fatalf("EncodeFrame %d failed: %v", i, err)
		}
	}

	samples, err := encoder.End()
	if err != nil {
		t.Fatalf("End failed: %v", err)
	}

	if len(samples) != len(colors) {
		t.Fatalf("expected %d samples, got %d", len(colors), len(samples))
	}
	for i, s := range samples {
		if len(s.Data) == 0 {
			t.Errorf("sample %d is empty", i)
		}
		if s.TimestampMs != i*33 {
			t.Errorf("sample %d timestamp = %d, want %d", i, s.TimestampMs, i*33)
		}
	}
	if !samples[0].Keyframe {
		t.Error("first sample should be a keyframe")
	}
	for i := 1; i < len(samples); i++ {
		if samples[i].Keyframe {
			t.Errorf("sample %d is an unexpected keyframe (auto keyframes are disabled)", i)
		}
	}
}

func TestEncoder_GrayInput(t *testing.T) {
	encoder := New()

	err := encoder.Begin(64, 64, 30.0, ports.EncoderOptions{Quality: 40})
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		img := createTestGray(64, 64, uint8(i*80))
		if err := encoder.EncodeFrame(img, i*40); err != nil {
			t.Fatalf("EncodeFrame %d failed: %v", i, err)
		}
	}

	samples, err := encoder.End()
	if err != nil {
		t.Fatalf("End failed: %v", err)
	}
	if len(samples) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(samples))
	}
}

func TestEncoder_Deterministic(t *testing.T) {
	encode := func() []ports.EncodedSample {
		encoder := New()
		if err := encoder.Begin(64, 64, 30.0, ports.EncoderOptions{Quality: 35}); err != nil {
			t.Fatalf("Begin failed: %v", err)
		}
		for i := 0; i < 5; i++ {
			img := createTestImage(64, 64, color.RGBA{R: uint8(i * 50), G: 100, B: 200, A: 255})
			if err := encoder.EncodeFrame(img, i*40); err != nil {
				t.Fatalf("EncodeFrame failed: %v", err)
			}
		}
		samples, err := encoder.End()
		if err != nil {
			t.Fatalf("End failed: %v", err)
		}
		return samples
	}

	first := encode()
	second := encode()
	if len(first) != len(second) {
		t.Fatalf("sample counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if len(first[i].Data) != len(second[i].Data) {
			t.Errorf("sample %d sizes differ: %d vs %d", i, len(first[i].Data), len(second[i].Data))
		}
	}
}

func TestEncoder_EncodeBeforeBegin(t *testing.T) {
	encoder := New()

	img := createTestImage(64, 64, color.RGBA{A: 255})
	if err := encoder.EncodeFrame(img, 0); err == nil {
		t.Fatal("expected error when encoding before Begin")
	}
	if _, err := encoder.End(); err == nil {
		t.Fatal("expected error when ending before Begin")
	}
}

func TestFactory(t *testing.T) {
	factory := NewFactory()
	a := factory.NewEncoder()
	b := factory.NewEncoder()
	if a == b {
		t.Error("factory should hand out distinct encoders")
	}
}
