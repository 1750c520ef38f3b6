package webm

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Track describes one TrackEntry of a parsed container.
type Track struct {
	Number             uint64
	Type               uint64
	CodecID            string
	PixelWidth         uint64
	PixelHeight        uint64
	AlphaMode          uint64
	MaxBlockAdditionID uint64
}

// Block is one decoded block with its optional tagged attachment.
type Block struct {
	TrackNumber uint64
	TimestampMs int
	Keyframe    bool
	Payload     []byte
	AddID       uint64 // 0 when no attachment is present
	Additional  []byte
}

// Document is the parsed view of a container, restricted to the subset
// this package writes. It exists for verification and tests; it is not a
// general-purpose WebM reader.
type Document struct {
	DocType    string
	DurationMs float64
	Tracks     []Track
	Blocks     []Block
}

// Parse decodes a WebM buffer produced by Mux back into its track list
// and block sequence.
func Parse(data []byte) (*Document, error) {
	elements, err := parseElements(data)
	if err != nil {
		return nil, err
	}

	doc := &Document{}
	for _, el := range elements {
		switch el.ID {
		case IDEBML:
			for _, c := range el.Children {
				if c.ID == IDDocType {
					doc.DocType = string(c.Payload)
				}
			}
		case IDSegment:
			if err := doc.readSegment(el); err != nil {
				return nil, err
			}
		}
	}
	return doc, nil
}

func (d *Document) readSegment(segment *Element) error {
	for _, el := range segment.Children {
		switch el.ID {
		case IDInfo:
			for _, c := range el.Children {
				if c.ID == IDDuration && len(c.Payload) == 8 {
					d.DurationMs = float64FromBytes(c.Payload)
				}
			}
		case IDTracks:
			for _, entry := range el.Children {
				if entry.ID == IDTrackEntry {
					d.Tracks = append(d.Tracks, readTrackEntry(entry))
				}
			}
		case IDCluster:
			if err := d.readCluster(el); err != nil {
				return err
			}
		}
	}
	return nil
}

func readTrackEntry(entry *Element) Track {
	var t Track
	for _, c := range entry.Children {
		switch c.ID {
		case IDTrackNumber:
			t.Number = uintFromBytes(c.Payload)
		case IDTrackType:
			t.Type = uintFromBytes(c.Payload)
		case IDCodecID:
			t.CodecID = string(c.Payload)
		case IDMaxBlockAdditionID:
			t.MaxBlockAdditionID = uintFromBytes(c.Payload)
		case IDVideo:
			for _, v := range c.Children {
				switch v.ID {
				case IDPixelWidth:
					t.PixelWidth = uintFromBytes(v.Payload)
				case IDPixelHeight:
					t.PixelHeight = uintFromBytes(v.Payload)
				case IDAlphaMode:
					t.AlphaMode = uintFromBytes(v.Payload)
				}
			}
		}
	}
	return t
}

func (d *Document) readCluster(cluster *Element) error {
	clusterTimecode := 0
	for _, c := range cluster.Children {
		if c.ID == IDTimecode {
			clusterTimecode = int(uintFromBytes(c.Payload))
			break
		}
	}

	for _, c := range cluster.Children {
		switch c.ID {
		case IDSimpleBlock:
			blk, err := readBlockPayload(c.Payload, clusterTimecode)
			if err != nil {
				return err
			}
			blk.Keyframe = len(c.Payload) > 0 && simpleBlockKeyframe(c.Payload)
			d.Blocks = append(d.Blocks, blk)
		case IDBlockGroup:
			blk, err := readBlockGroup(c, clusterTimecode)
			if err != nil {
				return err
			}
			d.Blocks = append(d.Blocks, blk)
		}
	}
	return nil
}

func readBlockGroup(group *Element, clusterTimecode int) (Block, error) {
	var blk Block
	hasReference := false
	for _, c := range group.Children {
		switch c.ID {
		case IDBlock:
			b, err := readBlockPayload(c.Payload, clusterTimecode)
			if err != nil {
				return Block{}, err
			}
			blk.TrackNumber = b.TrackNumber
			blk.TimestampMs = b.TimestampMs
			blk.Payload = b.Payload
		case IDReferenceBlock:
			hasReference = true
		case IDBlockAdditions:
			for _, more := range c.Children {
				if more.ID != IDBlockMore {
					continue
				}
				for _, m := range more.Children {
					switch m.ID {
					case IDBlockAddID:
						blk.AddID = uintFromBytes(m.Payload)
					case IDBlockAdditional:
						blk.Additional = m.Payload
					}
				}
			}
		}
	}
	blk.Keyframe = !hasReference
	return blk, nil
}

func readBlockPayload(payload []byte, clusterTimecode int) (Block, error) {
	trackNum, n, err := readVINT(payload)
	if err != nil {
		return Block{}, fmt.Errorf("block track number: %w", err)
	}
	if len(payload) < n+3 {
		return Block{}, fmt.Errorf("block payload truncated (%d bytes)", len(payload))
	}
	rel := int16(binary.BigEndian.Uint16(payload[n : n+2]))
	return Block{
		TrackNumber: trackNum,
		TimestampMs: clusterTimecode + int(rel),
		Payload:     payload[n+3:],
	}, nil
}

func simpleBlockKeyframe(payload []byte) bool {
	_, n, err := readVINT(payload)
	if err != nil || len(payload) < n+3 {
		return false
	}
	return payload[n+2]&0x80 != 0
}

// parseElements decodes a flat byte range into a sequence of elements,
// descending into the known container IDs.
func parseElements(data []byte) ([]*Element, error) {
	var elements []*Element
	offset := 0
	for offset < len(data) {
		id, n, err := readID(data[offset:])
		if err != nil {
			return nil, fmt.Errorf("at offset %d: %w", offset, err)
		}
		offset += n

		size, n, err := readVINT(data[offset:])
		if err != nil {
			return nil, fmt.Errorf("size of %#x at offset %d: %w", id, offset, err)
		}
		offset += n

		if uint64(len(data)-offset) < size {
			return nil, fmt.Errorf("element %#x declares %d bytes, %d remain", id, size, len(data)-offset)
		}
		content := data[offset : offset+int(size)]
		offset += int(size)

		if containerIDs[id] {
			children, err := parseElements(content)
			if err != nil {
				return nil, err
			}
			elements = append(elements, &Element{ID: id, Children: children})
		} else {
			elements = append(elements, &Element{ID: id, Payload: content})
		}
	}
	return elements, nil
}

// readID decodes an element ID, returning the ID and consumed byte count.
func readID(data []byte) (uint32, int, error) {
	if len(data) == 0 {
		return 0, 0, fmt.Errorf("unexpected end of data reading element id")
	}
	first := data[0]
	var length int
	switch {
	case first&0x80 != 0:
		length = 1
	case first&0x40 != 0:
		length = 2
	case first&0x20 != 0:
		length = 3
	case first&0x10 != 0:
		length = 4
	default:
		return 0, 0, fmt.Errorf("invalid element id leading byte %#x", first)
	}
	if len(data) < length {
		return 0, 0, fmt.Errorf("truncated element id")
	}
	id := uint32(0)
	for i := 0; i < length; i++ {
		id = id<<8 | uint32(data[i])
	}
	return id, length, nil
}

// readVINT decodes a size VINT, returning the value and consumed byte count.
func readVINT(data []byte) (uint64, int, error) {
	if len(data) == 0 {
		return 0, 0, fmt.Errorf("unexpected end of data reading vint")
	}
	first := data[0]
	length := 1
	mask := byte(0x80)
	for mask != 0 && first&mask == 0 {
		mask >>= 1
		length++
	}
	if mask == 0 || len(data) < length {
		return 0, 0, fmt.Errorf("invalid or truncated vint")
	}
	value := uint64(first & (mask - 1))
	for i := 1; i < length; i++ {
		value = value<<8 | uint64(data[i])
	}
	return value, length, nil
}

func uintFromBytes(b []byte) uint64 {
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}

func float64FromBytes(b []byte) float64 {
	return math.Float64frombits(binary.BigEndian.Uint64(b))
}
