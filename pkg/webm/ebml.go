// Package webm serializes two frame-aligned VP9 tracks into a single
// transparency-enabled WebM container.
//
// The container is an EBML tree: typed elements with an explicit length
// prefix, nested arbitrarily. Alpha is carried per frame as a BlockAdditions
// attachment (BlockAddID 1) inside the same BlockGroup as the color frame,
// so players unaware of the mechanism still render the opaque color stream.
//
// Serialization is bottom-up: leaf payloads are built first and parents are
// composed from already-serialized children, so every size field is exact
// and nothing is backpatched.
package webm

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Element is one node of the EBML tree. A leaf carries Payload; a
// container carries Children. A node never carries both.
type Element struct {
	ID       uint32
	Payload  []byte
	Children []*Element
}

// NewLeaf creates a leaf element with a raw payload.
func NewLeaf(id uint32, payload []byte) *Element {
	return &Element{ID: id, Payload: payload}
}

// NewContainer creates a container element with the given children.
func NewContainer(id uint32, children ...*Element) *Element {
	return &Element{ID: id, Children: children}
}

// NewUint creates a leaf holding an unsigned integer in the minimal
// big-endian encoding (at least one byte).
func NewUint(id uint32, v uint64) *Element {
	return &Element{ID: id, Payload: encodeUint(v)}
}

// NewSint creates a leaf holding a signed integer in the minimal
// big-endian two's-complement encoding.
func NewSint(id uint32, v int64) *Element {
	return &Element{ID: id, Payload: encodeSint(v)}
}

// NewString creates a leaf holding a UTF-8 string.
func NewString(id uint32, s string) *Element {
	return &Element{ID: id, Payload: []byte(s)}
}

// NewFloat creates a leaf holding an 8-byte IEEE 754 float.
func NewFloat(id uint32, f float64) *Element {
	payload := make([]byte, 8)
	binary.BigEndian.PutUint64(payload, math.Float64bits(f))
	return &Element{ID: id, Payload: payload}
}

// ContentSize returns the byte length of the element's content.
func (e *Element) ContentSize() int {
	if len(e.Children) > 0 {
		total := 0
		for _, c := range e.Children {
			total += c.TotalSize()
		}
		return total
	}
	return len(e.Payload)
}

// TotalSize returns the full on-wire length: ID + size field + content.
func (e *Element) TotalSize() int {
	content := e.ContentSize()
	return len(idBytes(e.ID)) + vintLen(uint64(content)) + content
}

// Encode writes the element and its subtree to w.
func (e *Element) Encode(w io.Writer) error {
	if _, err := w.Write(idBytes(e.ID)); err != nil {
		return err
	}
	size, err := EncodeVINT(uint64(e.ContentSize()))
	if err != nil {
		return fmt.Errorf("element %#x: %w", e.ID, err)
	}
	if _, err := w.Write(size); err != nil {
		return err
	}
	if len(e.Children) > 0 {
		for _, c := range e.Children {
			if err := c.Encode(w); err != nil {
				return err
			}
		}
		return nil
	}
	_, err = w.Write(e.Payload)
	return err
}

// idBytes returns the on-wire bytes of an element ID. IDs carry their own
// length marker, so the byte count follows from the magnitude.
func idBytes(id uint32) []byte {
	switch {
	case id > 0xFFFFFF:
		return []byte{byte(id >> 24), byte(id >> 16), byte(id >> 8), byte(id)}
	case id > 0xFFFF:
		return []byte{byte(id >> 16), byte(id >> 8), byte(id)}
	case id > 0xFF:
		return []byte{byte(id >> 8), byte(id)}
	default:
		return []byte{byte(id)}
	}
}

// EncodeVINT encodes a size value as an EBML variable-length integer.
// The all-ones pattern of each width is reserved for "unknown size", so a
// value that would hit it is promoted to the next width.
func EncodeVINT(v uint64) ([]byte, error) {
	length := 1
	for length <= 8 {
		limit := uint64(1)<<(7*length) - 1
		if v < limit {
			break
		}
		length++
	}
	if length > 8 {
		return nil, fmt.Errorf("vint: value %d out of range", v)
	}
	buf := make([]byte, length)
	for i := length - 1; i >= 0; i-- {
		buf[i] = byte(v)
		v >>= 8
	}
	buf[0] |= 0x80 >> (length - 1)
	return buf, nil
}

// vintLen returns the encoded length of a size VINT.
func vintLen(v uint64) int {
	length := 1
	for length < 8 {
		limit := uint64(1)<<(7*length) - 1
		if v < limit {
			break
		}
		length++
	}
	return length
}

// encodeUint returns the minimal big-endian encoding of v, at least one byte.
func encodeUint(v uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	i := 0
	for i < 7 && buf[i] == 0 {
		i++
	}
	return buf[i:]
}

// encodeSint returns the minimal big-endian two's-complement encoding of v.
func encodeSint(v int64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(v))
	i := 0
	for i < 7 {
		if (buf[i] == 0x00 && buf[i+1]&0x80 == 0) || (buf[i] == 0xFF && buf[i+1]&0x80 != 0) {
			i++
			continue
		}
		break
	}
	return buf[i:]
}
