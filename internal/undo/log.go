package undo

import (
	"errors"
	"fmt"
)

var (
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
	ErrGroupOpen     = errors.New("undo group still open")
)

// Record is one reversible unit. Either direction may be nil.
type Record struct {
	Undo func()
	Redo func()
}

// Entry is the handle returned by Log.Record. It can be dropped until the
// enclosing group is closed.
type Entry struct {
	rec     Record
	dropped bool
}

type group struct {
	label   string
	entries []*Entry
}

func (g *group) live() int {
	n := 0
	for _, e := range g.entries {
		if !e.dropped {
			n++
		}
	}
	return n
}

// Log is a bounded undo/redo history of grouped records.
//
// Records registered while a group is open belong to that group and are
// replayed together: undo walks the group backwards, redo walks it forwards.
// The registration order inside one group is therefore the replay contract
// between independent registrants such as a document and a range tracker.
type Log struct {
	undoStack []*group
	redoStack []*group
	limit     int

	open      *group
	depth     int
	replaying bool
}

// NewLog creates a Log that retains at most limit groups (must be >= 1).
func NewLog(limit int) (*Log, error) {
	if limit < 1 {
		return nil, fmt.Errorf("undo limit must be >= 1, got %d", limit)
	}
	return &Log{
		undoStack: make([]*group, 0, limit),
		redoStack: make([]*group, 0, limit),
		limit:     limit,
	}, nil
}

// Begin opens a group. Calls nest; only the outermost label is kept.
func (l *Log) Begin(label string) {
	if l.depth == 0 {
		l.open = &group{label: label}
	}
	l.depth++
}

// End closes the innermost group. When the outermost group closes and it
// holds at least one record, it becomes one undo step and redo history is
// invalidated.
func (l *Log) End() {
	if l.depth == 0 {
		return
	}
	l.depth--
	if l.depth > 0 {
		return
	}
	g := l.open
	l.open = nil
	if g.live() == 0 {
		return
	}
	l.pushWithLimit(&l.undoStack, g)
	l.redoStack = l.redoStack[:0]
}

// Record registers a reversible unit. Outside a group it forms its own step.
// While the log is replaying, nothing is recorded and nil is returned.
func (l *Log) Record(undo, redo func()) *Entry {
	if l.replaying {
		return nil
	}
	e := &Entry{rec: Record{Undo: undo, Redo: redo}}
	if l.depth == 0 {
		l.pushWithLimit(&l.undoStack, &group{entries: []*Entry{e}})
		l.redoStack = l.redoStack[:0]
		return e
	}
	l.open.entries = append(l.open.entries, e)
	return e
}

// Drop withdraws an entry of the group that is still open.
func (l *Log) Drop(e *Entry) {
	if e == nil || l.open == nil {
		return
	}
	for _, candidate := range l.open.entries {
		if candidate == e {
			e.dropped = true
			return
		}
	}
}

// Undo reverts the most recent group.
func (l *Log) Undo() error {
	if l.depth > 0 {
		return ErrGroupOpen
	}
	if len(l.undoStack) == 0 {
		return ErrNothingToUndo
	}
	last := len(l.undoStack) - 1
	g := l.undoStack[last]
	l.undoStack = l.undoStack[:last]

	l.replay(func() {
		for i := len(g.entries) - 1; i >= 0; i-- {
			if e := g.entries[i]; !e.dropped && e.rec.Undo != nil {
				e.rec.Undo()
			}
		}
	})

	l.pushWithLimit(&l.redoStack, g)
	return nil
}

// Redo reapplies the most recently undone group.
func (l *Log) Redo() error {
	if l.depth > 0 {
		return ErrGroupOpen
	}
	if len(l.redoStack) == 0 {
		return ErrNothingToRedo
	}
	last := len(l.redoStack) - 1
	g := l.redoStack[last]
	l.redoStack = l.redoStack[:last]

	l.replay(func() {
		for _, e := range g.entries {
			if !e.dropped && e.rec.Redo != nil {
				e.rec.Redo()
			}
		}
	})

	l.pushWithLimit(&l.undoStack, g)
	return nil
}

// Replaying reports whether an undo or redo is currently running.
func (l *Log) Replaying() bool {
	return l.replaying
}

// InGroup reports whether a group is open.
func (l *Log) InGroup() bool {
	return l.depth > 0
}

// Clear drops all history. An open group is kept open but emptied.
func (l *Log) Clear() {
	l.undoStack = l.undoStack[:0]
	l.redoStack = l.redoStack[:0]
	if l.open != nil {
		l.open.entries = nil
	}
}

// UndoDepth returns the number of undo steps available.
func (l *Log) UndoDepth() int {
	return len(l.undoStack)
}

// RedoDepth returns the number of redo steps available.
func (l *Log) RedoDepth() int {
	return len(l.redoStack)
}

// UndoLabel returns the label of the next undo step.
func (l *Log) UndoLabel() (string, bool) {
	if len(l.undoStack) == 0 {
		return "", false
	}
	return l.undoStack[len(l.undoStack)-1].label, true
}

func (l *Log) replay(fn func()) {
	l.replaying = true
	defer func() { l.replaying = false }()
	fn()
}

// pushWithLimit appends a group and enforces the retention limit.
func (l *Log) pushWithLimit(stack *[]*group, g *group) {
	*stack = append(*stack, g)
	if len(*stack) > l.limit {
		*stack = (*stack)[1:]
	}
}
