// Package trace is a block/segment-scoped execution trace: an
// append-only, capped list of structured events (recording stops at the
// cap) describing per-bit predictions,
// optionally dumped to text or JSON. Nothing in internal/predict or
// internal/orchestrate requires it; the caller opts in by attaching a
// Trace to a Predictor.
package trace

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// Entry is one traced prediction: the bit position within the current
// segment, the component index that produced it (or -1 for the final
// combined prediction), the stretched prediction value, and, once the
// bit is known, the observed bit.
type Entry struct {
	Sequence  uint64        `json:"sequence"`
	Component int           `json:"component"` // -1 for the combined/arithmetic-coder probability
	Stretched int32         `json:"stretched"`
	Bit       int8          `json:"bit"` // -1 until Update is recorded
	Duration  time.Duration `json:"duration,omitempty"`
}

// Trace accumulates Entry values up to MaxEntries, so tracing a long
// compression cannot grow without bound.
type Trace struct {
	Enabled       bool
	MaxEntries    int
	IncludeTiming bool

	entries   []Entry
	startTime time.Time
	seq       uint64
}

// New returns a disabled trace with the default entry cap.
func New() *Trace {
	return &Trace{
		MaxEntries:    100000,
		IncludeTiming: true,
		entries:       make([]Entry, 0, 1024),
	}
}

// Start resets the trace and begins timing.
func (t *Trace) Start() {
	t.startTime = time.Now()
	t.entries = t.entries[:0]
	t.seq = 0
}

// RecordPrediction appends one component prediction. No-op when
// disabled or when MaxEntries has been reached; the cap is silent, not
// an error.
func (t *Trace) RecordPrediction(component int, stretched int32) {
	if !t.Enabled || (t.MaxEntries > 0 && len(t.entries) >= t.MaxEntries) {
		return
	}
	e := Entry{Sequence: t.seq, Component: component, Stretched: stretched, Bit: -1}
	if t.IncludeTiming {
		e.Duration = time.Since(t.startTime)
	}
	t.entries = append(t.entries, e)
	t.seq++
}

// RecordBit fills in the observed bit on the most recently recorded
// entries for the current bit position: every component predicts, then
// the bit is learned, then every component updates.
func (t *Trace) RecordBit(y int32) {
	if !t.Enabled {
		return
	}
	for i := len(t.entries) - 1; i >= 0 && t.entries[i].Bit < 0; i-- {
		t.entries[i].Bit = int8(y)
	}
}

// Entries returns all recorded entries.
func (t *Trace) Entries() []Entry {
	return t.entries
}

// Clear drops all recorded entries without resetting the timer.
func (t *Trace) Clear() {
	t.entries = t.entries[:0]
}

// WriteText writes one line per entry in a fixed-width
// "[seq] field | field" layout.
func (t *Trace) WriteText(w io.Writer) error {
	for _, e := range t.entries {
		line := fmt.Sprintf("[%06d] component=%-4d stretched=%-6d bit=%d", e.Sequence, e.Component, e.Stretched, e.Bit)
		if t.IncludeTiming {
			line += fmt.Sprintf(" | %v", e.Duration)
		}
		line += "\n"
		if _, err := w.Write([]byte(line)); err != nil {
			return err
		}
	}
	return nil
}

// WriteJSON writes the full entry slice as a JSON array.
func (t *Trace) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(t.entries)
}
