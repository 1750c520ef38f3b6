package webm

import (
	"bytes"
	"fmt"

	"github.com/user/stickerpress/pkg/ports"
)

const (
	// DefaultCodecID is the codec identifier written for both the primary
	// and the alpha payload.
	DefaultCodecID = "V_VP9"

	// AlphaAddID is the reserved BlockAddID tag identifying an alpha frame
	// attachment.
	AlphaAddID = 1

	// timecodeScaleNs makes block timecodes millisecond ticks.
	timecodeScaleNs = 1_000_000

	trackNumber = 1
	trackUID    = 1 // fixed so identical inputs produce identical bytes

	// Relative block timecodes are signed 16-bit. A new cluster is opened
	// well before the offset could overflow.
	maxClusterSpanMs = 30_000
)

// Metadata carries the global container parameters.
type Metadata struct {
	PixelWidth  int
	PixelHeight int
	DurationMs  int
	CodecID     string // defaults to DefaultCodecID
	WritingApp  string // defaults to "stickerpress"
}

// MuxInvariantViolation reports frame-aligned-track preconditions that do
// not hold at mux time. It is always fatal for the candidate being muxed;
// a corrupted container is worse than no output.
type MuxInvariantViolation struct {
	Reason string
}

func (e *MuxInvariantViolation) Error() string {
	return fmt.Sprintf("mux invariant violated: %s", e.Reason)
}

// Mux serializes a color track and its alpha track into one WebM buffer.
//
// The tracks must already be frame-aligned: equal length and identical
// per-index timestamps. This is the dual-stream encoder's contract, but it
// is re-checked here because writing a misaligned container would corrupt
// every downstream consumer.
func Mux(color, alpha []ports.EncodedSample, meta Metadata) ([]byte, error) {
	if err := checkAlignment(color, alpha); err != nil {
		return nil, err
	}
	if meta.CodecID == "" {
		meta.CodecID = DefaultCodecID
	}
	if meta.WritingApp == "" {
		meta.WritingApp = "stickerpress"
	}

	segment := NewContainer(IDSegment,
		infoElement(meta),
		tracksElement(meta),
	)
	segment.Children = append(segment.Children, clusterElements(color, alpha)...)

	var buf bytes.Buffer
	if err := headerElement().Encode(&buf); err != nil {
		return nil, fmt.Errorf("encode ebml header: %w", err)
	}
	if err := segment.Encode(&buf); err != nil {
		return nil, fmt.Errorf("encode segment: %w", err)
	}
	return buf.Bytes(), nil
}

func checkAlignment(color, alpha []ports.EncodedSample) error {
	if len(color) == 0 {
		return &MuxInvariantViolation{Reason: "color track is empty"}
	}
	if len(color) != len(alpha) {
		return &MuxInvariantViolation{
			Reason: fmt.Sprintf("track length mismatch: color=%d alpha=%d", len(color), len(alpha)),
		}
	}
	for i := range color {
		if color[i].TimestampMs != alpha[i].TimestampMs {
			return &MuxInvariantViolation{
				Reason: fmt.Sprintf("timestamp mismatch at index %d: color=%dms alpha=%dms",
					i, color[i].TimestampMs, alpha[i].TimestampMs),
			}
		}
	}
	if !color[0].Keyframe {
		return &MuxInvariantViolation{Reason: "color track does not start with a keyframe"}
	}
	return nil
}

func headerElement() *Element {
	return NewContainer(IDEBML,
		NewUint(IDEBMLVersion, 1),
		NewUint(IDEBMLReadVersion, 1),
		NewUint(IDEBMLMaxIDLength, 4),
		NewUint(IDEBMLMaxSizeLength, 8),
		NewString(IDDocType, "webm"),
		NewUint(IDDocTypeVersion, 4),
		NewUint(IDDocTypeReadVersion, 2),
	)
}

func infoElement(meta Metadata) *Element {
	return NewContainer(IDInfo,
		NewUint(IDTimecodeScale, timecodeScaleNs),
		NewFloat(IDDuration, float64(meta.DurationMs)),
		NewString(IDMuxingApp, meta.WritingApp),
		NewString(IDWritingApp, meta.WritingApp),
	)
}

func tracksElement(meta Metadata) *Element {
	video := NewContainer(IDVideo,
		NewUint(IDPixelWidth, uint64(meta.PixelWidth)),
		NewUint(IDPixelHeight, uint64(meta.PixelHeight)),
		NewUint(IDAlphaMode, 1),
	)
	entry := NewContainer(IDTrackEntry,
		NewUint(IDTrackNumber, trackNumber),
		NewUint(IDTrackUID, trackUID),
		NewUint(IDTrackType, 1), // video
		NewUint(IDFlagLacing, 0),
		NewString(IDLanguage, "und"),
		NewString(IDCodecID, meta.CodecID),
		NewUint(IDMaxBlockAdditionID, AlphaAddID),
		video,
	)
	return NewContainer(IDTracks, entry)
}

// clusterElements emits one BlockGroup per frame pair, opening a new
// cluster at every color keyframe and before the relative timecode could
// overflow its signed 16-bit range.
func clusterElements(color, alpha []ports.EncodedSample) []*Element {
	var clusters []*Element
	var cluster *Element
	clusterBase := 0
	prevTimestamp := 0

	for i := range color {
		ts := color[i].TimestampMs
		if cluster == nil || color[i].Keyframe || ts-clusterBase > maxClusterSpanMs {
			cluster = NewContainer(IDCluster, NewUint(IDTimecode, uint64(ts)))
			clusterBase = ts
			clusters = append(clusters, cluster)
		}

		group := blockGroup(color[i], alpha[i].Data, clusterBase, prevTimestamp)
		cluster.Children = append(cluster.Children, group)
		prevTimestamp = ts
	}
	return clusters
}

func blockGroup(sample ports.EncodedSample, alphaData []byte, clusterBase, prevTimestamp int) *Element {
	rel := sample.TimestampMs - clusterBase

	payload := make([]byte, 0, 4+len(sample.Data))
	payload = append(payload, 0x80|trackNumber) // track number VINT
	payload = append(payload, byte(uint16(rel)>>8), byte(uint16(rel)))
	payload = append(payload, 0x00) // flags: no lacing
	payload = append(payload, sample.Data...)

	additions := NewContainer(IDBlockAdditions,
		NewContainer(IDBlockMore,
			NewUint(IDBlockAddID, AlphaAddID),
			NewLeaf(IDBlockAdditional, alphaData),
		),
	)

	children := []*Element{NewLeaf(IDBlock, payload), additions}
	if !sample.Keyframe {
		// Inside a BlockGroup the keyframe property is implied by the
		// absence of a ReferenceBlock, so non-keyframes must carry one.
		children = append(children, NewSint(IDReferenceBlock, int64(prevTimestamp-sample.TimestampMs)))
	}
	return NewContainer(IDBlockGroup, children...)
}
