package ports

// DebugSink abstracts debug output for intermediate results.
// It allows saving every evaluated candidate container and the final
// search report for offline inspection.
type DebugSink interface {
	// Enabled returns true if debug output is enabled.
	Enabled() bool

	// SaveCandidate saves the muxed container of one evaluated candidate.
	// The label is a compact config description (e.g. "s0.80-q35-d2").
	SaveCandidate(index int, label string, data []byte) error

	// SaveSearchJSON saves the final search report as JSON.
	SaveSearchJSON(data []byte) error
}
