package rangetrack

import "github.com/chojs23/threeway/internal/textdoc"

// BeforeEdit moves every range for the upcoming edit. Outside a transaction
// (and outside undo replay) the state of each range the edit overlaps or
// touches is recorded first, so undoing the edit puts those ranges back.
// Their state after the owner has handled the edit is captured by AfterEdit
// and put back when the edit is redone.
func (t *Tracker) BeforeEdit(e textdoc.Edit) {
	if t.editDepth == 0 {
		t.BeginBatch()
	}
	t.editDepth++

	manual := t.txDepth == 0 && (t.log == nil || !t.log.Replaying())

	var damaged []snapshot
	var hit []int
	for i, r := range t.ranges {
		touches := e.Start <= r.End && e.End >= r.Start
		if touches && manual {
			damaged = append(damaged, t.snapshotOf(i))
			hit = append(hit, i)
		}
		moved := shiftRange(r, e)
		if moved != r || touches {
			t.ranges[i] = moved
			t.Invalidate(i)
		}
	}

	if len(damaged) > 0 && t.log != nil {
		post := new([]snapshot)
		t.log.Record(t.restorer(damaged), t.armRedo(post))
		t.editPost, t.editHit = post, hit
	}
	for _, i := range hit {
		t.owner.OnRangeEdited(i)
	}
}

// AfterEdit closes the batch opened by the outermost BeforeEdit.
func (t *Tracker) AfterEdit(textdoc.Edit) {
	if t.editDepth == 0 {
		return
	}
	t.editDepth--
	if t.editDepth > 0 {
		return
	}
	if t.editPost != nil {
		*t.editPost = t.capture(t.editHit)
		t.editPost, t.editHit = nil, nil
	}
	if states := t.redoPending; states != nil {
		t.redoPending = nil
		t.restore(states)
	}
	t.check("edit")
	t.EndBatch()
}

// armRedo builds the redo callback of a manual edit record. It runs before
// the buffer redoes the edit, so it only hands the post-edit states to the
// AfterEdit of that replayed edit.
func (t *Tracker) armRedo(post *[]snapshot) func() {
	reg, id, generation := t.reg, t.id, t.generation
	return func() {
		live, ok := reg.Lookup(id)
		if !ok || live.generation != generation || len(*post) == 0 {
			return
		}
		live.redoPending = *post
	}
}

// shiftRange maps r across e. Ranges ending at or before the edit stay,
// ranges starting at or after it move by the delta, a range containing the
// edit grows by the delta. A damaged range is clamped to the new extent of
// the edit: its tail is cut at the end of the inserted text, its head moves
// to that point, and a range swallowed whole collapses there.
func shiftRange(r LineRange, e textdoc.Edit) LineRange {
	delta := e.Delta()
	newEnd := e.NewEnd()

	switch {
	case r.End <= e.Start:
		return r
	case r.Start >= e.End:
		return LineRange{Start: r.Start + delta, End: r.End + delta}
	case r.Start <= e.Start && r.End >= e.End:
		return LineRange{Start: r.Start, End: r.End + delta}
	case r.Start >= e.Start && r.End <= e.End:
		return LineRange{Start: newEnd, End: newEnd}
	case r.Start < e.Start:
		return LineRange{Start: r.Start, End: newEnd}
	default:
		return LineRange{Start: newEnd, End: r.End + delta}
	}
}
