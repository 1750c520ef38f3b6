package mediasource

import (
	"bytes"
	"image"
	"image/color"
	"image/color/palette"
	"image/gif"
	"image/png"
	"testing"

	"github.com/user/stickerpress/pkg/pipeline"
)

func encodeTestGIF(t *testing.T, delays []int) []byte {
	t.Helper()

	g := &gif.GIF{Config: image.Config{Width: 16, Height: 16}}
	for i, delay := range delays {
		img := image.NewPaletted(image.Rect(0, 0, 16, 16), palette.Plan9)
		for p := range img.Pix {
			img.Pix[p] = uint8(i + 1)
		}
		g.Image = append(g.Image, img)
		g.Delay = append(g.Delay, delay)
		g.Disposal = append(g.Disposal, gif.DisposalNone)
	}

	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, g); err != nil {
		t.Fatalf("encode gif: %v", err)
	}
	return buf.Bytes()
}

func encodeTestPNG(t *testing.T) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	img.SetRGBA(3, 3, color.RGBA{R: 200, A: 128})

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestDetectFormat(t *testing.T) {
	cases := []struct {
		name string
		data []byte
		want Format
	}{
		{"gif89", []byte("GIF89a\x00\x00"), FormatGIF},
		{"gif87", []byte("GIF87a\x00\x00"), FormatGIF},
		{"png", []byte("\x89PNG\r\n\x1a\n\x00\x00"), FormatPNG},
		{"webp", []byte("RIFF\x00\x00\x00\x00WEBPVP8 "), FormatWebP},
		{"riff but not webp", []byte("RIFF\x00\x00\x00\x00WAVEfmt "), FormatUnknown},
		{"empty", nil, FormatUnknown},
		{"garbage", []byte("hello world"), FormatUnknown},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := DetectFormat(c.data); got != c.want {
				t.Errorf("DetectFormat = %s, want %s", got, c.want)
			}
		})
	}
}

func TestDecodeGIFTimestamps(t *testing.T) {
	// Delays are 10ms units: 4 -> 40ms, 10 -> 100ms.
	data := encodeTestGIF(t, []int{4, 10, 4})

	frames, err := Decode(data, Options{})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if len(frames) != 3 {
		t.Fatalf("got %d frames, want 3", len(frames))
	}
	wantTs := []int{0, 40, 140}
	wantDur := []int{40, 100, 40}
	for i, frame := range frames {
		if frame.TimestampMs != wantTs[i] {
			t.Errorf("frame %d timestamp = %d, want %d", i, frame.TimestampMs, wantTs[i])
		}
		if frame.DurationMs != wantDur[i] {
			t.Errorf("frame %d duration = %d, want %d", i, frame.DurationMs, wantDur[i])
		}
		if frame.Image == nil {
			t.Fatalf("frame %d has nil image", i)
		}
	}
}

func TestDecodeGIFZeroDelayClamped(t *testing.T) {
	data := encodeTestGIF(t, []int{0, 0})

	frames, err := Decode(data, Options{})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	for i, frame := range frames {
		if frame.DurationMs < minFrameDurationMs {
			t.Errorf("frame %d duration = %d, want >= %d", i, frame.DurationMs, minFrameDurationMs)
		}
	}
}

func TestDecodePNGStill(t *testing.T) {
	frames, err := Decode(encodeTestPNG(t), Options{})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if len(frames) != 1 {
		t.Fatalf("got %d frames, want 1", len(frames))
	}
	if frames[0].TimestampMs != 0 || frames[0].DurationMs <= 0 {
		t.Errorf("still frame timing = %d+%d", frames[0].TimestampMs, frames[0].DurationMs)
	}
	got := frames[0].Image.RGBAAt(3, 3)
	if got.A != 128 {
		t.Errorf("alpha not preserved: %+v", got)
	}
}

func TestDecodeUnsupported(t *testing.T) {
	if _, err := Decode([]byte("not an image"), Options{}); err == nil {
		t.Fatal("expected error for unsupported data")
	}
}

func TestDecodeTrimsToMaxDuration(t *testing.T) {
	// 5 frames x 100ms = 500ms total.
	data := encodeTestGIF(t, []int{10, 10, 10, 10, 10})

	frames, err := Decode(data, Options{MaxDurationMs: 250})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if len(frames) != 3 {
		t.Fatalf("got %d frames, want 3", len(frames))
	}
	if span := pipeline.SpanMs(frames); span != 250 {
		t.Errorf("span = %d, want 250", span)
	}
	// The straddling frame is shortened, not dropped.
	if frames[2].DurationMs != 50 {
		t.Errorf("last frame duration = %d, want 50", frames[2].DurationMs)
	}
}

func TestTrimToDuration(t *testing.T) {
	frames := []pipeline.Frame{
		{TimestampMs: 0, DurationMs: 100},
		{TimestampMs: 100, DurationMs: 100},
		{TimestampMs: 200, DurationMs: 100},
	}

	if got := TrimToDuration(frames, 1000); len(got) != 3 {
		t.Errorf("generous limit kept %d frames, want 3", len(got))
	}
	if got := TrimToDuration(frames, 200); len(got) != 2 {
		t.Errorf("limit 200 kept %d frames, want 2", len(got))
	}
	if got := TrimToDuration(frames, 150); len(got) != 2 || got[1].DurationMs != 50 {
		t.Errorf("limit 150 should shorten the second frame to 50ms")
	}
}
