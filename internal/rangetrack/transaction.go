package rangetrack

import (
	"slices"

	"github.com/chojs23/threeway/internal/textdoc"
	"github.com/chojs23/threeway/internal/undo"
)

// RunTransaction runs body as one undoable step.
//
// The state of the affected indexes (every index when affected is nil) is
// captured before and after body. The pre-state record is registered before
// body runs so that undo replays it after the buffer's own entries; the
// post-state record is registered last so that redo replays it after the
// buffer has been redone. If body fails, or leaves the ranges out of order,
// nothing is registered and the error is returned.
//
// A read-only buffer fails with textdoc.ErrReadOnly before body runs.
// Transactions nest: an inner call just runs body.
func (t *Tracker) RunTransaction(label string, affected []int, body func() error) error {
	if t.buf.ReadOnly() {
		return textdoc.ErrReadOnly
	}
	if t.txDepth > 0 {
		return body()
	}
	for _, i := range affected {
		if _, err := t.Get(i); err != nil {
			return err
		}
	}

	if t.log != nil {
		t.log.Begin(label)
		defer t.log.End()
	}
	t.BeginBatch()
	defer t.EndBatch()

	indexes := t.transactionIndexes(affected)
	record := t.log != nil && !t.log.Replaying()

	var undoEntry *undo.Entry
	if record {
		undoEntry = t.log.Record(t.restorer(t.capture(indexes)), nil)
	}

	t.txDepth++
	err := body()
	t.txDepth--
	if err == nil {
		err = t.verify(label)
	}
	if err != nil {
		if record {
			t.log.Drop(undoEntry)
		}
		return err
	}

	if record {
		t.log.Record(nil, t.restorer(t.capture(indexes)))
	}
	return nil
}

// InTransaction reports whether a transaction body is running.
func (t *Tracker) InTransaction() bool {
	return t.txDepth > 0
}

func (t *Tracker) transactionIndexes(affected []int) []int {
	if affected == nil {
		all := make([]int, len(t.ranges))
		for i := range all {
			all[i] = i
		}
		return all
	}
	direct := slices.Clone(affected)
	slices.Sort(direct)
	direct = slices.Compact(direct)
	return t.collectAffected(direct)
}

// collectAffected widens the sorted direct indexes with every range that
// overlaps or touches one of them. Ranges are sorted, so one forward sweep
// over both lists is enough.
func (t *Tracker) collectAffected(direct []int) []int {
	out := make([]int, 0, len(direct))
	j := 0
	for _, d := range direct {
		r := t.ranges[d]
		for j < len(t.ranges) && t.ranges[j].End < r.Start {
			j++
		}
		k := j
		if n := len(out); n > 0 && out[n-1] >= k {
			k = out[n-1] + 1
		}
		for ; k < len(t.ranges) && t.ranges[k].Start <= r.End; k++ {
			if k == d || t.ranges[k].End >= r.Start {
				out = append(out, k)
			}
		}
	}
	return out
}

// Replace overwrites the lines of range index. Within a transaction the
// resulting geometry is part of the recorded post-state.
func (t *Tracker) Replace(index int, lines []string) error {
	r, err := t.Get(index)
	if err != nil {
		return err
	}

	t.BeginBatch()
	defer t.EndBatch()

	if err := t.buf.SetLines(r.Start, r.End, lines); err != nil {
		return err
	}
	newEnd := r.Start + len(lines)
	t.ranges[index] = LineRange{Start: r.Start, End: newEnd}
	t.Invalidate(index)
	t.moveChangesAfterInsertion(index, r.Start, newEnd)
	return nil
}

// Append inserts lines at the end of range index and grows the range over
// them.
func (t *Tracker) Append(index int, lines []string) error {
	r, err := t.Get(index)
	if err != nil {
		return err
	}
	if len(lines) == 0 {
		return nil
	}

	t.BeginBatch()
	defer t.EndBatch()

	if err := t.buf.SetLines(r.End, r.End, lines); err != nil {
		return err
	}
	newEnd := r.End + len(lines)
	t.ranges[index] = LineRange{Start: r.Start, End: newEnd}
	t.Invalidate(index)
	t.moveChangesAfterInsertion(index, r.Start, newEnd)
	return nil
}

// moveChangesAfterInsertion settles neighbours of a range that now spans
// [newStart, newEnd). Text inserted at a line shared with a zero-width
// neighbour belongs to index: earlier ranges end at newStart at the latest,
// later ranges start at newEnd at the earliest.
func (t *Tracker) moveChangesAfterInsertion(index, newStart, newEnd int) {
	for i := index - 1; i >= 0; i-- {
		r := t.ranges[i]
		if r.End <= newStart {
			break
		}
		r.End = newStart
		r.Start = min(r.Start, r.End)
		t.ranges[i] = r
		t.Invalidate(i)
	}
	for i := index + 1; i < len(t.ranges); i++ {
		r := t.ranges[i]
		if r.Start >= newEnd {
			break
		}
		r.Start = newEnd
		r.End = max(r.End, r.Start)
		t.ranges[i] = r
		t.Invalidate(i)
	}
}
