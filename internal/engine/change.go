package engine

import (
	"github.com/chojs23/threeway/internal/linediff"
	"github.com/chojs23/threeway/internal/rangetrack"
	"github.com/chojs23/threeway/internal/worddiff"
)

// Change is one hunk of a merge session. Its fragment points into the
// session inputs and never changes; its output range is tracked live.
type Change struct {
	index    int
	fragment linediff.Fragment
	conflict ConflictType
	merged   []string

	resolved       [2]bool
	onesideApplied bool
	byAutomation   bool

	inner   *worddiff.Result
	tracker *rangetrack.Tracker
}

// changeState is what undo restores for a change.
type changeState struct {
	resolved       [2]bool
	onesideApplied bool
	byAutomation   bool
}

func (c *Change) Index() int {
	return c.index
}

func (c *Change) Fragment() linediff.Fragment {
	return c.fragment
}

func (c *Change) Type() ConflictType {
	return c.conflict
}

func (c *Change) IsConflict() bool {
	return c.conflict.IsConflict()
}

func (c *Change) IsChange(side Side) bool {
	return c.conflict.IsChange(side)
}

// Span returns the input span of side.
func (c *Change) Span(side Side) linediff.Span {
	switch side {
	case Left:
		return c.fragment.Left
	case Right:
		return c.fragment.Right
	}
	return c.fragment.Base
}

// Range returns the current output range.
func (c *Change) Range() rangetrack.LineRange {
	r, err := c.tracker.Get(c.index)
	if err != nil {
		return rangetrack.LineRange{}
	}
	return r
}

func (c *Change) IsResolved() bool {
	return c.resolved[0] && c.resolved[1]
}

// IsResolvedSide reports the flag of side; Base means fully resolved.
func (c *Change) IsResolvedSide(side Side) bool {
	if side == Base {
		return c.IsResolved()
	}
	return c.resolved[side.slot()]
}

// OnesideApplied reports that one side of a conflict has been written and
// the next accepted side is appended after it.
func (c *Change) OnesideApplied() bool {
	return c.onesideApplied
}

func (c *Change) ResolvedByAutomation() bool {
	return c.byAutomation
}

// InnerDifferences returns the latest word-level result, or nil.
func (c *Change) InnerDifferences() *worddiff.Result {
	return c.inner
}

// AutoMerged returns the lines an automatic resolution of a conflict would
// write, or nil.
func (c *Change) AutoMerged() []string {
	return append([]string(nil), c.merged...)
}

func (c *Change) state() changeState {
	return changeState{
		resolved:       c.resolved,
		onesideApplied: c.onesideApplied,
		byAutomation:   c.byAutomation,
	}
}

func (c *Change) restore(st changeState) {
	c.resolved = st.resolved
	c.onesideApplied = st.onesideApplied
	c.byAutomation = st.byAutomation
}

func (c *Change) markResolved() {
	c.resolved = [2]bool{true, true}
}

func (c *Change) markResolvedSide(side Side) {
	c.resolved[side.slot()] = true
}
