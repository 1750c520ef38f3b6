package webm

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/user/stickerpress/pkg/ports"
)

func makeTracks(n int) (color, alpha []ports.EncodedSample) {
	for i := 0; i < n; i++ {
		color = append(color, ports.EncodedSample{
			Data:        []byte(fmt.Sprintf("color-%03d", i)),
			TimestampMs: i * 40,
			Keyframe:    i == 0,
		})
		alpha = append(alpha, ports.EncodedSample{
			Data:        []byte(fmt.Sprintf("alpha-%03d", i)),
			TimestampMs: i * 40,
			Keyframe:    i == 0,
		})
	}
	return color, alpha
}

func testMetadata() Metadata {
	return Metadata{PixelWidth: 512, PixelHeight: 384, DurationMs: 480}
}

func TestMuxRoundTrip(t *testing.T) {
	color, alpha := makeTracks(12)

	data, err := Mux(color, alpha, testMetadata())
	if err != nil {
		t.Fatalf("mux: %v", err)
	}

	doc, err := Parse(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if doc.DocType != "webm" {
		t.Errorf("doc type = %q, want webm", doc.DocType)
	}
	if len(doc.Tracks) != 1 {
		t.Fatalf("expected 1 track, got %d", len(doc.Tracks))
	}
	track := doc.Tracks[0]
	if track.CodecID != "V_VP9" {
		t.Errorf("codec = %q, want V_VP9", track.CodecID)
	}
	if track.AlphaMode != 1 {
		t.Errorf("alpha mode = %d, want 1", track.AlphaMode)
	}
	if track.MaxBlockAdditionID != 1 {
		t.Errorf("max block addition id = %d, want 1", track.MaxBlockAdditionID)
	}
	if track.PixelWidth != 512 || track.PixelHeight != 384 {
		t.Errorf("dimensions = %dx%d, want 512x384", track.PixelWidth, track.PixelHeight)
	}

	if len(doc.Blocks) != len(color) {
		t.Fatalf("expected %d blocks, got %d", len(color), len(doc.Blocks))
	}
	for i, blk := range doc.Blocks {
		if blk.TimestampMs != color[i].TimestampMs {
			t.Errorf("block %d timestamp = %d, want %d", i, blk.TimestampMs, color[i].TimestampMs)
		}
		if !bytes.Equal(blk.Payload, color[i].Data) {
			t.Errorf("block %d primary payload mismatch", i)
		}
		if blk.AddID != AlphaAddID {
			t.Errorf("block %d add id = %d, want %d", i, blk.AddID, AlphaAddID)
		}
		if !bytes.Equal(blk.Additional, alpha[i].Data) {
			t.Errorf("block %d alpha payload mismatch", i)
		}
		if blk.Keyframe != color[i].Keyframe {
			t.Errorf("block %d keyframe = %v, want %v", i, blk.Keyframe, color[i].Keyframe)
		}
	}
}

func TestMuxKeyframeOpensCluster(t *testing.T) {
	color, alpha := makeTracks(10)
	color[5].Keyframe = true

	data, err := Mux(color, alpha, testMetadata())
	if err != nil {
		t.Fatalf("mux: %v", err)
	}

	elements, err := parseElements(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	clusters := 0
	for _, el := range elements {
		if el.ID != IDSegment {
			continue
		}
		for _, c := range el.Children {
			if c.ID == IDCluster {
				clusters++
			}
		}
	}
	if clusters != 2 {
		t.Errorf("expected 2 clusters (keyframe at 0 and 5), got %d", clusters)
	}
}

func TestMuxLengthMismatch(t *testing.T) {
	color, alpha := makeTracks(10)
	alpha = alpha[:9]

	data, err := Mux(color, alpha, testMetadata())
	if data != nil {
		t.Error("expected no output buffer on invariant violation")
	}
	var violation *MuxInvariantViolation
	if !errors.As(err, &violation) {
		t.Fatalf("expected MuxInvariantViolation, got %v", err)
	}
}

func TestMuxTimestampMismatch(t *testing.T) {
	color, alpha := makeTracks(5)
	alpha[3].TimestampMs += 1

	_, err := Mux(color, alpha, testMetadata())
	var violation *MuxInvariantViolation
	if !errors.As(err, &violation) {
		t.Fatalf("expected MuxInvariantViolation, got %v", err)
	}
}

func TestMuxEmptyTracks(t *testing.T) {
	_, err := Mux(nil, nil, testMetadata())
	var violation *MuxInvariantViolation
	if !errors.As(err, &violation) {
		t.Fatalf("expected MuxInvariantViolation, got %v", err)
	}
}

func TestMuxMissingLeadingKeyframe(t *testing.T) {
	color, alpha := makeTracks(5)
	color[0].Keyframe = false

	_, err := Mux(color, alpha, testMetadata())
	var violation *MuxInvariantViolation
	if !errors.As(err, &violation) {
		t.Fatalf("expected MuxInvariantViolation, got %v", err)
	}
}

func TestMuxDeterministic(t *testing.T) {
	color, alpha := makeTracks(7)

	first, err := Mux(color, alpha, testMetadata())
	if err != nil {
		t.Fatalf("first mux: %v", err)
	}
	second, err := Mux(color, alpha, testMetadata())
	if err != nil {
		t.Fatalf("second mux: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Error("muxing the same tracks twice produced different bytes")
	}
}

func TestMuxDurationWritten(t *testing.T) {
	color, alpha := makeTracks(3)

	data, err := Mux(color, alpha, Metadata{PixelWidth: 100, PixelHeight: 100, DurationMs: 2840})
	if err != nil {
		t.Fatalf("mux: %v", err)
	}
	doc, err := Parse(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if doc.DurationMs != 2840 {
		t.Errorf("duration = %v, want 2840", doc.DurationMs)
	}
}
