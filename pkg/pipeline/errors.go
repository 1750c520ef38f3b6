package pipeline

import "fmt"

// FrameSequenceError reports an input frame sequence that violates the
// frame source contract. It aborts the whole conversion before any
// candidate is tried.
type FrameSequenceError struct {
	Reason string
}

func (e *FrameSequenceError) Error() string {
	return fmt.Sprintf("frame sequence: %s", e.Reason)
}

// ValidateFrames checks the frame source contract: a non-empty sequence,
// strictly increasing timestamps, positive durations, and a total span
// within maxDurationMs (0 = no limit).
func ValidateFrames(frames []Frame, maxDurationMs int) error {
	if len(frames) == 0 {
		return &FrameSequenceError{Reason: "empty sequence"}
	}
	for i, f := range frames {
		if f.Image == nil {
			return &FrameSequenceError{Reason: fmt.Sprintf("frame %d has no image", i)}
		}
		if f.DurationMs <= 0 {
			return &FrameSequenceError{Reason: fmt.Sprintf("frame %d has non-positive duration %d ms", i, f.DurationMs)}
		}
		if i > 0 && f.TimestampMs <= frames[i-1].TimestampMs {
			return &FrameSequenceError{
				Reason: fmt.Sprintf("timestamps not strictly increasing at frame %d (%d ms after %d ms)",
					i, f.TimestampMs, frames[i-1].TimestampMs),
			}
		}
	}
	if maxDurationMs > 0 {
		if span := SpanMs(frames); span > maxDurationMs {
			return &FrameSequenceError{
				Reason: fmt.Sprintf("total span %d ms exceeds maximum %d ms", span, maxDurationMs),
			}
		}
	}
	return nil
}
