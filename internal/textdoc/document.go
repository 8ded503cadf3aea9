// Package textdoc implements the line buffer the merge output is edited in.
package textdoc

import (
	"errors"
	"fmt"

	"github.com/chojs23/threeway/internal/undo"
)

var (
	ErrReadOnly   = errors.New("document is read-only")
	ErrOutOfRange = errors.New("line span out of range")
)

// Edit describes one mutation: the old lines [Start, End) are replaced by
// Count new lines.
type Edit struct {
	Start int
	End   int
	Count int
}

// Delta is the net change in line count.
func (e Edit) Delta() int {
	return e.Count - (e.End - e.Start)
}

// NewEnd is the exclusive end of the inserted lines after the edit.
func (e Edit) NewEnd() int {
	return e.Start + e.Count
}

// Listener is called synchronously around every mutation, including the ones
// replayed by undo and redo.
type Listener interface {
	BeforeEdit(e Edit)
	AfterEdit(e Edit)
}

// Document is a mutable list of lines. It is not safe for concurrent use.
type Document struct {
	lines     []string
	readOnly  bool
	listeners []Listener
	log       *undo.Log
	stamp     int64
}

// New creates a document holding a copy of lines. Edits are recorded in log
// when it is non-nil.
func New(lines []string, log *undo.Log) *Document {
	return &Document{
		lines: append([]string(nil), lines...),
		log:   log,
	}
}

func (d *Document) LineCount() int {
	return len(d.lines)
}

// Lines returns a copy of [start, end), clamped to the document.
func (d *Document) Lines(start, end int) []string {
	start = clamp(start, 0, len(d.lines))
	end = clamp(end, start, len(d.lines))
	return append([]string(nil), d.lines[start:end]...)
}

// All returns a copy of every line.
func (d *Document) All() []string {
	return d.Lines(0, len(d.lines))
}

// SetLines replaces [start, end) with lines and records the inverse edit.
func (d *Document) SetLines(start, end int, lines []string) error {
	if d.readOnly {
		return ErrReadOnly
	}
	if start < 0 || end < start || end > len(d.lines) {
		return fmt.Errorf("%w: [%d, %d) of %d lines", ErrOutOfRange, start, end, len(d.lines))
	}

	newLines := append([]string(nil), lines...)
	oldLines := d.Lines(start, end)

	if d.log != nil {
		d.log.Begin("edit")
		defer d.log.End()
	}

	d.apply(start, end, newLines)

	if d.log != nil {
		newEnd := start + len(newLines)
		d.log.Record(
			func() { d.apply(start, newEnd, oldLines) },
			func() { d.apply(start, end, newLines) },
		)
	}
	return nil
}

// Reset replaces the whole content without recording undo or notifying
// listeners. Owners reseed whatever they derive from the content.
func (d *Document) Reset(lines []string) error {
	if d.readOnly {
		return ErrReadOnly
	}
	d.lines = append([]string(nil), lines...)
	d.stamp++
	return nil
}

func (d *Document) SetReadOnly(readOnly bool) {
	d.readOnly = readOnly
}

func (d *Document) ReadOnly() bool {
	return d.readOnly
}

// ModificationStamp increases on every content change.
func (d *Document) ModificationStamp() int64 {
	return d.stamp
}

func (d *Document) AddListener(l Listener) {
	d.listeners = append(d.listeners, l)
}

func (d *Document) RemoveListener(l Listener) {
	for i, candidate := range d.listeners {
		if candidate == l {
			d.listeners = append(d.listeners[:i], d.listeners[i+1:]...)
			return
		}
	}
}

func (d *Document) apply(start, end int, lines []string) {
	e := Edit{Start: start, End: end, Count: len(lines)}
	for _, l := range d.listeners {
		l.BeforeEdit(e)
	}

	tail := append([]string(nil), d.lines[end:]...)
	d.lines = append(append(d.lines[:start], lines...), tail...)
	d.stamp++

	for _, l := range d.listeners {
		l.AfterEdit(e)
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
