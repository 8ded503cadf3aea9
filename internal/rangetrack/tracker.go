// Package rangetrack keeps an ordered set of line ranges attached to an
// editable buffer and moves them as the buffer changes.
package rangetrack

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/davecgh/go-spew/spew"
	"github.com/golang/glog"
	"github.com/google/uuid"

	"github.com/chojs23/threeway/internal/undo"
)

var (
	ErrIndexOutOfRange    = errors.New("range index out of range")
	ErrInvariantViolation = errors.New("range invariant violated")
)

// LineRange is a half-open interval of buffer lines. Zero width is valid and
// marks an insertion point.
type LineRange struct {
	Start int
	End   int
}

func (r LineRange) Len() int {
	return r.End - r.Start
}

func (r LineRange) Empty() bool {
	return r.Start == r.End
}

func (r LineRange) String() string {
	return fmt.Sprintf("[%d, %d)", r.Start, r.End)
}

// Buffer is the text the ranges point into.
type Buffer interface {
	LineCount() int
	SetLines(start, end int, lines []string) error
	ReadOnly() bool
}

// Owner attaches state to tracked ranges.
//
// SnapshotState and RestoreState carry whatever the owner needs to put an
// index back exactly as it was; the tracker stores the value opaquely next to
// the range geometry. OnRangeChanged is the batched change notification.
// OnRangeEdited reports ranges hit by an edit made outside a transaction,
// after the range has been moved. OnInvariantViolation reports ranges left
// out of order by an edit or an undo replay, where no caller receives an
// error.
type Owner interface {
	SnapshotState(index int) any
	RestoreState(index int, state any)
	OnRangeChanged(index int)
	OnRangeEdited(index int)
	OnInvariantViolation(err error)
}

type snapshot struct {
	index int
	r     LineRange
	state any
}

// Tracker is not safe for concurrent use; every call must come from the
// goroutine that owns the buffer.
type Tracker struct {
	id    uuid.UUID
	buf   Buffer
	log   *undo.Log
	reg   *Registry
	owner Owner

	ranges     []LineRange
	generation int

	batchDepth int
	pending    map[int]struct{}
	editDepth  int
	txDepth    int

	// editPost receives the post-edit states of the manual edit in progress.
	editPost    *[]snapshot
	editHit     []int
	redoPending []snapshot
}

// New creates a tracker and registers it in reg. The caller attaches the
// tracker to the buffer's edit hooks. A nil reg gets a private registry.
func New(buf Buffer, log *undo.Log, reg *Registry, owner Owner) *Tracker {
	if reg == nil {
		reg = NewRegistry()
	}
	t := &Tracker{
		id:      uuid.New(),
		buf:     buf,
		log:     log,
		reg:     reg,
		owner:   owner,
		pending: make(map[int]struct{}),
	}
	reg.register(t)
	return t
}

// ID identifies the tracker in its registry.
func (t *Tracker) ID() uuid.UUID {
	return t.id
}

// Dispose unregisters the tracker; undo records that refer to it become
// no-ops.
func (t *Tracker) Dispose() {
	t.reg.unregister(t.id)
}

// SetRanges replaces every range. Nothing is recorded for undo and records
// made for the previous set stop applying.
func (t *Tracker) SetRanges(ranges []LineRange) error {
	next := append([]LineRange(nil), ranges...)
	lines := t.buf.LineCount()
	for i, r := range next {
		if r.Start < 0 || r.End < r.Start || r.End > lines || (i > 0 && next[i-1].End > r.Start) {
			return fmt.Errorf("set ranges: %w: %v at index %d", ErrInvariantViolation, r, i)
		}
	}
	t.generation++
	t.ranges = next
	t.redoPending = nil
	clear(t.pending)
	return nil
}

func (t *Tracker) Len() int {
	return len(t.ranges)
}

func (t *Tracker) Get(index int) (LineRange, error) {
	if index < 0 || index >= len(t.ranges) {
		return LineRange{}, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, index, len(t.ranges))
	}
	return t.ranges[index], nil
}

// Ranges returns a copy of all ranges.
func (t *Tracker) Ranges() []LineRange {
	return append([]LineRange(nil), t.ranges...)
}

// BeginBatch defers change notifications until the matching EndBatch.
func (t *Tracker) BeginBatch() {
	t.batchDepth++
}

// EndBatch fires every pending notification once, in index order, when the
// outermost batch closes.
func (t *Tracker) EndBatch() {
	if t.batchDepth == 0 {
		return
	}
	t.batchDepth--
	if t.batchDepth > 0 || len(t.pending) == 0 {
		return
	}
	indexes := slices.Sorted(maps.Keys(t.pending))
	clear(t.pending)
	for _, i := range indexes {
		t.owner.OnRangeChanged(i)
	}
}

// Invalidate reports a change of index, batched when a batch is open.
func (t *Tracker) Invalidate(index int) {
	if t.batchDepth > 0 {
		t.pending[index] = struct{}{}
		return
	}
	t.owner.OnRangeChanged(index)
}

func (t *Tracker) capture(indexes []int) []snapshot {
	out := make([]snapshot, 0, len(indexes))
	for _, i := range indexes {
		out = append(out, t.snapshotOf(i))
	}
	return out
}

func (t *Tracker) snapshotOf(index int) snapshot {
	return snapshot{index: index, r: t.ranges[index], state: t.owner.SnapshotState(index)}
}

// restorer builds an undo callback that finds the tracker by id. Records that
// outlive the tracker, or the range set they were taken from, do nothing.
func (t *Tracker) restorer(states []snapshot) func() {
	reg, id, generation := t.reg, t.id, t.generation
	return func() {
		live, ok := reg.Lookup(id)
		if !ok || live.generation != generation {
			return
		}
		live.restore(states)
		live.check("restore")
	}
}

func (t *Tracker) restore(states []snapshot) {
	t.BeginBatch()
	defer t.EndBatch()
	for _, s := range states {
		if s.index >= len(t.ranges) {
			continue
		}
		t.ranges[s.index] = s.r
		t.owner.RestoreState(s.index, s.state)
		t.Invalidate(s.index)
	}
}

// check verifies the ranges and hands a violation to the owner.
func (t *Tracker) check(op string) {
	if err := t.verify(op); err != nil {
		t.owner.OnInvariantViolation(err)
	}
}

// verify checks ordering and bounds. Violations are logged with a dump of
// the ranges.
func (t *Tracker) verify(op string) error {
	lines := t.buf.LineCount()
	for i, r := range t.ranges {
		if r.Start < 0 || r.Start > r.End || r.End > lines || (i > 0 && t.ranges[i-1].End > r.Start) {
			glog.Errorf("rangetrack: %s left range %d at %v (buffer has %d lines)\n%s",
				op, i, r, lines, spew.Sdump(t.ranges))
			return fmt.Errorf("%s: %w at index %d", op, ErrInvariantViolation, i)
		}
	}
	return nil
}
