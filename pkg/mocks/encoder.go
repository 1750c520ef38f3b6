package mocks

import (
	"image"

	"github.com/user/stickerpress/pkg/ports"
)

// VideoEncoder is a mock implementation of ports.VideoEncoder.
// By default it emits one small sample per encoded frame, keyframe at
// the first, which satisfies the muxer's alignment checks.
type VideoEncoder struct {
	BeginFunc       func(width, height int, fps float64, opts ports.EncoderOptions) error
	EncodeFrameFunc func(img image.Image, timestampMs int) error
	EndFunc         func() ([]ports.EncodedSample, error)

	// Recorded calls for verification
	BeginCalled      bool
	BeginWidth       int
	BeginHeight      int
	BeginFPS         float64
	BeginOpts        ports.EncoderOptions
	EncodeFrameCalls []EncodeFrameCall
	EndCalled        bool
}

// EncodeFrameCall records a call to EncodeFrame.
type EncodeFrameCall struct {
	Image       image.Image
	TimestampMs int
}

func (m *VideoEncoder) Begin(width, height int, fps float64, opts ports.EncoderOptions) error {
	m.BeginCalled = true
	m.BeginWidth = width
	m.BeginHeight = height
	m.BeginFPS = fps
	m.BeginOpts = opts
	if m.BeginFunc != nil {
		return m.BeginFunc(width, height, fps, opts)
	}
	return nil
}

func (m *VideoEncoder) EncodeFrame(img image.Image, timestampMs int) error {
	m.EncodeFrameCalls = append(m.EncodeFrameCalls, EncodeFrameCall{Image: img, TimestampMs: timestampMs})
	if m.EncodeFrameFunc != nil {
		return m.EncodeFrameFunc(img, timestampMs)
	}
	return nil
}

func (m *VideoEncoder) End() ([]ports.EncodedSample, error) {
	m.EndCalled = true
	if m.EndFunc != nil {
		return m.EndFunc()
	}
	samples := make([]ports.EncodedSample, len(m.EncodeFrameCalls))
	for i, call := range m.EncodeFrameCalls {
		samples[i] = ports.EncodedSample{
			Data:        []byte{0x00},
			TimestampMs: call.TimestampMs,
			Keyframe:    i == 0,
		}
	}
	return samples, nil
}

var _ ports.VideoEncoder = (*VideoEncoder)(nil)

// VideoEncoderFactory is a mock implementation of ports.VideoEncoderFactory.
// Each NewEncoder call hands out a fresh mock and records it.
type VideoEncoderFactory struct {
	NewEncoderFunc func() ports.VideoEncoder

	// Created holds every encoder handed out, in order.
	Created []*VideoEncoder
}

func (m *VideoEncoderFactory) NewEncoder() ports.VideoEncoder {
	if m.NewEncoderFunc != nil {
		return m.NewEncoderFunc()
	}
	enc := &VideoEncoder{}
	m.Created = append(m.Created, enc)
	return enc
}

var _ ports.VideoEncoderFactory = (*VideoEncoderFactory)(nil)
