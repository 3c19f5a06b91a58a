// Package progress is the one-way side channel long-running tasks report
// through. Emission is fire-and-forget: nothing awaits an ack, and a
// dropped or reordered notification never affects task correctness.
package progress

// Reporter receives progress ticks and advisory messages from a task.
type Reporter interface {
	// Progress reports (current, total) completion, optionally tagged
	// with a phase name.
	Progress(current, total int, name string)
	// Update reports a human-readable status change.
	Update(message string)
	// Warning reports a non-fatal problem.
	Warning(message string)
}

// Nop discards all reports. Used where no caller is listening.
type Nop struct{}

func (Nop) Progress(current, total int, name string) {}
func (Nop) Update(message string)                    {}
func (Nop) Warning(message string)                   {}
