package qdl

import "time"

// Phase names a stage of a flashing run.
type Phase string

const (
	PhaseLoading     Phase = "loading"
	PhaseConnecting  Phase = "connecting"
	PhaseBootstrap   Phase = "bootstrap"
	PhaseConfiguring Phase = "configuring"
	PhaseFlashing    Phase = "flashing"
	PhaseFinalizing  Phase = "finalizing"
	PhaseComplete    Phase = "complete"
)

// Progress contains information about an ongoing flashing run.
// Passed to ProgressCallback as the run advances.
type Progress struct {
	// Phase is the current stage of the run
	Phase Phase

	// Step describes the record or action being processed, e.g. "program xbl"
	Step string

	// Current is the 1-based index of the action being executed
	Current int

	// Total is the number of queued actions
	Total int

	// BytesWritten is the number of payload bytes sent in the current step
	BytesWritten int64

	// BytesTotal is the expected payload size of the current step, if known
	BytesTotal int64

	// ElapsedTime is the time since the current phase started
	ElapsedTime time.Duration
}

// Percentage returns the completion of the current step's payload in the
// range 0 to 100. Steps without a payload report 0. Sahara devices may
// re-read parts of the image, so the result is capped.
func (p Progress) Percentage() float64 {
	if p.BytesTotal <= 0 {
		return 0
	}
	pct := float64(p.BytesWritten) * 100 / float64(p.BytesTotal)
	if pct > 100 {
		pct = 100
	}
	return pct
}

// ProgressCallback is called synchronously from the protocol loop.
// Implementations should return quickly.
type ProgressCallback func(Progress)
