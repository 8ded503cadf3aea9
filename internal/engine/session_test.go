package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chojs23/threeway/internal/linediff"
	"github.com/chojs23/threeway/internal/markers"
	"github.com/chojs23/threeway/internal/rangetrack"
	"github.com/chojs23/threeway/internal/textdoc"
	"github.com/chojs23/threeway/internal/undo"
)

type recorder struct {
	resets  int
	updated []int
	notices []string
}

func (r *recorder) ChangesReset()           { r.resets++ }
func (r *recorder) ChangeUpdated(index int) { r.updated = append(r.updated, index) }
func (r *recorder) Notice(msg string)       { r.notices = append(r.notices, msg) }

type fixture struct {
	s   *Session
	doc *textdoc.Document
	log *undo.Log
	rec *recorder
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	log, err := undo.NewLog(100)
	require.NoError(t, err)
	doc := textdoc.New(nil, log)
	rec := &recorder{}
	opts.Observer = rec
	s := NewSession(doc, log, opts)
	t.Cleanup(s.Close)
	return &fixture{s: s, doc: doc, log: log, rec: rec}
}

func lines(l ...string) []string {
	return l
}

func simpleAccept() Input {
	return Input{
		Left:  lines("a", "B", "c"),
		Base:  lines("a", "b", "c"),
		Right: lines("a", "b", "c"),
	}
}

func trueConflict() Input {
	return Input{Left: lines("L"), Base: lines("x"), Right: lines("R")}
}

func wordConflict() Input {
	return Input{
		Left:  lines("call(alpha, beta)"),
		Base:  lines("call(a, beta)"),
		Right: lines("call(a, gamma)"),
	}
}

func TestSimpleAccept(t *testing.T) {
	f := newFixture(t, Options{})
	require.NoError(t, f.s.Rediff(context.Background(), simpleAccept()))

	require.Equal(t, 1, f.s.ChangeCount())
	ch, err := f.s.Change(0)
	require.NoError(t, err)
	assert.Equal(t, Modified, ch.Type().Kind())
	assert.True(t, ch.Type().CanAutoResolve())
	assert.Equal(t, 1, ch.Range().Start)
	assert.Equal(t, 2, ch.Range().End)
	assert.True(t, f.s.CanResolveAutomatically(0, Base))
	assert.True(t, f.s.CanResolveAutomatically(0, Left))
	assert.False(t, f.s.CanResolveAutomatically(0, Right))

	n, err := f.s.ApplyNonConflicting(Base)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, lines("a", "B", "c"), f.s.Output())
	assert.True(t, ch.IsResolved())
	assert.True(t, ch.ResolvedByAutomation())
	assert.Equal(t, 0, f.s.UnresolvedCount())
}

func TestTrueConflict(t *testing.T) {
	f := newFixture(t, Options{})
	require.NoError(t, f.s.Rediff(context.Background(), trueConflict()))

	ch, err := f.s.Change(0)
	require.NoError(t, err)
	assert.Equal(t, Conflicting, ch.Type().Kind())
	assert.False(t, ch.Type().CanAutoResolve())
	assert.Equal(t, 1, f.s.ConflictCount())

	ok, err := f.s.ResolveAutomatically(0)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, lines("x"), f.s.Output())
	assert.Equal(t, 0, f.log.UndoDepth())

	require.NoError(t, f.s.AcceptSide(0, Left, false))
	assert.True(t, ch.OnesideApplied())
	assert.True(t, ch.IsResolvedSide(Left))
	assert.False(t, ch.IsResolved())
	assert.Equal(t, lines("L"), f.s.Output())

	require.NoError(t, f.s.AcceptSide(0, Right, true))
	assert.True(t, ch.IsResolved())
	assert.Equal(t, lines("L", "R"), f.s.Output())
	assert.Equal(t, 0, f.s.ConflictCount())

	require.NoError(t, f.s.Undo())
	assert.Equal(t, lines("L"), f.s.Output())
	assert.True(t, ch.OnesideApplied())
	assert.False(t, ch.IsResolved())

	require.NoError(t, f.s.Undo())
	assert.Equal(t, lines("x"), f.s.Output())
	assert.False(t, ch.OnesideApplied())
	assert.False(t, ch.IsResolvedSide(Left))

	require.NoError(t, f.s.Redo())
	require.NoError(t, f.s.Redo())
	assert.Equal(t, lines("L", "R"), f.s.Output())
	assert.True(t, ch.IsResolved())
}

func TestAcceptOtherSideFirst(t *testing.T) {
	f := newFixture(t, Options{})
	require.NoError(t, f.s.Rediff(context.Background(), trueConflict()))

	require.NoError(t, f.s.AcceptSide(0, Right, false))
	require.NoError(t, f.s.AcceptSide(0, Left, false))
	assert.Equal(t, lines("R", "L"), f.s.Output())

	ch, err := f.s.Change(0)
	require.NoError(t, err)
	assert.True(t, ch.IsResolved())
}

func TestAcceptConflictAgainstEmptySideResolves(t *testing.T) {
	f := newFixture(t, Options{})
	in := Input{
		Left:  lines("a", "c"),
		Base:  lines("a", "b", "c"),
		Right: lines("a", "B", "c"),
	}
	require.NoError(t, f.s.Rediff(context.Background(), in))

	ch, err := f.s.Change(0)
	require.NoError(t, err)
	require.Equal(t, Conflicting, ch.Type().Kind())

	require.NoError(t, f.s.AcceptSide(0, Right, false))
	assert.True(t, ch.IsResolved())
	assert.Equal(t, lines("a", "B", "c"), f.s.Output())
}

func TestAcceptUnchangedSideWritesNothing(t *testing.T) {
	f := newFixture(t, Options{})
	require.NoError(t, f.s.Rediff(context.Background(), simpleAccept()))

	require.NoError(t, f.s.AcceptSide(0, Right, false))
	ch, err := f.s.Change(0)
	require.NoError(t, err)
	assert.True(t, ch.IsResolved())
	assert.Equal(t, lines("a", "b", "c"), f.s.Output())
}

func TestAcceptNotifiesOnce(t *testing.T) {
	f := newFixture(t, Options{})
	require.NoError(t, f.s.Rediff(context.Background(), simpleAccept()))
	assert.Equal(t, 1, f.rec.resets)

	require.NoError(t, f.s.AcceptSide(0, Left, false))
	assert.Equal(t, []int{0}, f.rec.updated)
}

func TestInvalidArguments(t *testing.T) {
	f := newFixture(t, Options{})
	require.NoError(t, f.s.Rediff(context.Background(), simpleAccept()))

	assert.ErrorIs(t, f.s.AcceptSide(3, Left, false), ErrUnknownChange)
	assert.ErrorIs(t, f.s.AcceptSide(0, Base, false), ErrInvalidSide)
	assert.ErrorIs(t, f.s.IgnoreSide(0, Base, false), ErrInvalidSide)
	_, err := f.s.ApplyNonConflicting(Side(7))
	assert.ErrorIs(t, err, ErrInvalidSide)
	assert.False(t, f.s.CanResolveAutomatically(-1, Base))
}

func TestIgnoreSide(t *testing.T) {
	f := newFixture(t, Options{})
	require.NoError(t, f.s.Rediff(context.Background(), trueConflict()))
	ch, err := f.s.Change(0)
	require.NoError(t, err)

	require.NoError(t, f.s.IgnoreSide(0, Left, false))
	assert.True(t, ch.IsResolvedSide(Left))
	assert.False(t, ch.IsResolved())

	require.NoError(t, f.s.IgnoreSide(0, Right, false))
	assert.True(t, ch.IsResolved())
	assert.Equal(t, lines("x"), f.s.Output())

	require.NoError(t, f.s.Undo())
	assert.False(t, ch.IsResolvedSide(Right))
	assert.True(t, ch.IsResolvedSide(Left))
}

func TestIgnoreForcedResolvesConflict(t *testing.T) {
	f := newFixture(t, Options{})
	require.NoError(t, f.s.Rediff(context.Background(), trueConflict()))

	require.NoError(t, f.s.IgnoreSide(0, Right, true))
	ch, err := f.s.Change(0)
	require.NoError(t, err)
	assert.True(t, ch.IsResolved())
}

func TestResolveAutomaticallyMergesWords(t *testing.T) {
	f := newFixture(t, Options{})
	require.NoError(t, f.s.Rediff(context.Background(), wordConflict()))

	ch, err := f.s.Change(0)
	require.NoError(t, err)
	require.True(t, ch.Type().CanAutoResolve())
	assert.Equal(t, lines("call(alpha, gamma)"), ch.AutoMerged())

	ok, err := f.s.ResolveAutomatically(0)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, lines("call(alpha, gamma)"), f.s.Output())
	assert.True(t, ch.ResolvedByAutomation())

	require.NoError(t, f.s.Reset(0))
	assert.Equal(t, lines("call(a, beta)"), f.s.Output())
	assert.False(t, ch.IsResolved())
	assert.False(t, ch.ResolvedByAutomation())

	assert.ErrorIs(t, f.s.Reset(0), ErrNotResettable)
}

func TestAutoResolveSkipsModifiedHunk(t *testing.T) {
	f := newFixture(t, Options{})
	require.NoError(t, f.s.Rediff(context.Background(), simpleAccept()))

	require.NoError(t, f.s.EditOutput(1, 2, lines("manual")))
	assert.True(t, f.s.IsModified(0))
	depth := f.log.UndoDepth()

	ok, err := f.s.ResolveAutomatically(0)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, lines("a", "manual", "c"), f.s.Output())
	assert.Equal(t, depth, f.log.UndoDepth())

	n, err := f.s.ApplyNonConflicting(Base)
	require.NoError(t, err)
	assert.Zero(t, n)

	ch, err := f.s.Change(0)
	require.NoError(t, err)
	assert.False(t, ch.IsResolved())
}

func TestApplyResolvableConflicts(t *testing.T) {
	f := newFixture(t, Options{})
	in := Input{
		Left:  lines("a", "B", "c", "L"),
		Base:  lines("a", "b", "c", "x"),
		Right: lines("a", "B", "c", "R"),
	}
	require.NoError(t, f.s.Rediff(context.Background(), in))
	require.Equal(t, 2, f.s.ConflictCount())

	n, err := f.s.ApplyResolvableConflicts()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, lines("a", "B", "c", "x"), f.s.Output())
	assert.Equal(t, 1, f.s.ConflictCount())
}

func TestApplyNonConflictingBySide(t *testing.T) {
	f := newFixture(t, Options{})
	in := Input{
		Left:  lines("a", "X", "b", "c", "d", "e", "F"),
		Base:  lines("a", "b", "c", "d", "e", "f"),
		Right: lines("a", "b", "c", "e", "f"),
	}
	require.NoError(t, f.s.Rediff(context.Background(), in))

	require.Equal(t, 3, f.s.ChangeCount())
	kinds := make([]ConflictKind, 0, 3)
	for _, ch := range f.s.Changes() {
		kinds = append(kinds, ch.Type().Kind())
	}
	assert.Equal(t, []ConflictKind{Inserted, Deleted, Modified}, kinds)

	n, err := f.s.ApplyNonConflicting(Left)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, lines("a", "X", "b", "c", "d", "e", "F"), f.s.Output())
	assert.Equal(t, 1, f.log.UndoDepth())

	n, err = f.s.ApplyNonConflicting(Right)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, lines("a", "X", "b", "c", "e", "F"), f.s.Output())
	assert.Equal(t, 0, f.s.UnresolvedCount())

	require.NoError(t, f.s.Undo())
	require.NoError(t, f.s.Undo())
	assert.Equal(t, in.Base, f.s.Output())
	assert.Equal(t, 3, f.s.UnresolvedCount())
}

func TestDeletedHunkResolvedByManualEdit(t *testing.T) {
	f := newFixture(t, Options{})
	in := Input{
		Left:  lines("a", "c"),
		Base:  lines("a", "b", "c"),
		Right: lines("a", "b", "c"),
	}
	require.NoError(t, f.s.Rediff(context.Background(), in))
	ch, err := f.s.Change(0)
	require.NoError(t, err)
	require.Equal(t, Deleted, ch.Type().Kind())

	require.NoError(t, f.s.EditOutput(1, 2, nil))
	assert.True(t, ch.IsResolved())

	require.NoError(t, f.s.Undo())
	assert.False(t, ch.IsResolved())
	assert.Equal(t, in.Base, f.s.Output())

	require.NoError(t, f.s.Redo())
	assert.Equal(t, lines("a", "c"), f.s.Output())
	assert.True(t, ch.IsResolved())
	assert.Equal(t, 0, f.s.UnresolvedCount())
}

func TestManualEditClearsAutomation(t *testing.T) {
	f := newFixture(t, Options{})
	require.NoError(t, f.s.Rediff(context.Background(), simpleAccept()))
	_, err := f.s.ApplyNonConflicting(Base)
	require.NoError(t, err)

	require.NoError(t, f.s.EditOutput(1, 2, lines("other")))
	ch, err := f.s.Change(0)
	require.NoError(t, err)
	assert.False(t, ch.ResolvedByAutomation())
	assert.ErrorIs(t, f.s.Reset(0), ErrNotResettable)

	require.NoError(t, f.s.Undo())
	assert.True(t, ch.ResolvedByAutomation())
	require.NoError(t, f.s.Redo())
	assert.Equal(t, lines("a", "other", "c"), f.s.Output())
	assert.False(t, ch.ResolvedByAutomation())
	assert.ErrorIs(t, f.s.Reset(0), ErrNotResettable)
}

func TestInvariantViolationRaisesNotice(t *testing.T) {
	f := newFixture(t, Options{})
	require.NoError(t, f.s.Rediff(context.Background(), simpleAccept()))

	trackerOwner{f.s}.OnInvariantViolation(rangetrack.ErrInvariantViolation)
	require.Len(t, f.rec.notices, 1)
	assert.Contains(t, f.rec.notices[0], "rediff to recover")
}

func TestReadOnlyOutput(t *testing.T) {
	f := newFixture(t, Options{})
	require.NoError(t, f.s.Rediff(context.Background(), simpleAccept()))
	f.doc.SetReadOnly(true)

	assert.ErrorIs(t, f.s.AcceptSide(0, Left, false), textdoc.ErrReadOnly)
	assert.ErrorIs(t, f.s.IgnoreSide(0, Left, false), textdoc.ErrReadOnly)
	assert.Len(t, f.s.Notices(), 1)
	assert.Equal(t, f.s.Notices(), f.rec.notices)

	ch, err := f.s.Change(0)
	require.NoError(t, err)
	assert.False(t, ch.IsResolved())

	err = f.s.Rediff(context.Background(), simpleAccept())
	assert.ErrorIs(t, err, textdoc.ErrReadOnly)
	assert.Zero(t, f.s.ChangeCount())
	assert.Len(t, f.s.Notices(), 2)
}

func TestInputTooLarge(t *testing.T) {
	f := newFixture(t, Options{MaxLines: 2})
	err := f.s.Rediff(context.Background(), simpleAccept())
	assert.ErrorIs(t, err, linediff.ErrInputTooLarge)
	assert.Zero(t, f.s.ChangeCount())
	assert.Equal(t, simpleAccept().Base, f.s.Output())
	require.Len(t, f.s.Notices(), 1)
	assert.Contains(t, f.s.Notices()[0], "cannot compute merge")
}

func TestRediffClearsUndo(t *testing.T) {
	f := newFixture(t, Options{})
	require.NoError(t, f.s.Rediff(context.Background(), simpleAccept()))
	require.NoError(t, f.s.AcceptSide(0, Left, false))
	require.Equal(t, 1, f.log.UndoDepth())
	gen := f.s.Generation()

	require.NoError(t, f.s.Rediff(context.Background(), simpleAccept()))
	assert.Zero(t, f.log.UndoDepth())
	assert.Equal(t, gen+1, f.s.Generation())
	assert.Equal(t, simpleAccept().Base, f.s.Output())
	assert.ErrorIs(t, f.s.Undo(), undo.ErrNothingToUndo)
}

func TestIgnorePolicyHidesWhitespace(t *testing.T) {
	in := Input{
		Left:  lines("a  b", "c"),
		Base:  lines("a b", "c"),
		Right: lines("a b", "C"),
	}
	f := newFixture(t, Options{})
	require.NoError(t, f.s.Rediff(context.Background(), in))
	assert.Equal(t, 1, f.s.ConflictCount())

	f.s.SetPolicy(linediff.IgnoreWhitespace)
	require.NoError(t, f.s.Rediff(context.Background(), in))
	assert.Zero(t, f.s.ConflictCount())
	require.Equal(t, 1, f.s.ChangeCount())
	ch, err := f.s.Change(0)
	require.NoError(t, err)
	assert.False(t, ch.IsChange(Left))
	assert.True(t, ch.IsChange(Right))
}

func runQueue(t *testing.T, q *Queue) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, q.RunOne(ctx))
}

func TestRediffAsync(t *testing.T) {
	q := NewQueue()
	f := newFixture(t, Options{Executor: q})

	f.s.RediffAsync(context.Background(), simpleAccept())
	assert.True(t, f.s.Loading())
	assert.Zero(t, f.s.ChangeCount())

	runQueue(t, q)
	assert.False(t, f.s.Loading())
	assert.Equal(t, 1, f.s.ChangeCount())
}

func TestRediffAsyncLatestWins(t *testing.T) {
	q := NewQueue()
	f := newFixture(t, Options{Executor: q})

	f.s.RediffAsync(context.Background(), simpleAccept())
	f.s.RediffAsync(context.Background(), trueConflict())
	runQueue(t, q)
	runQueue(t, q)

	assert.False(t, f.s.Loading())
	assert.Equal(t, trueConflict().Base, f.s.Output())
	assert.Equal(t, 1, f.s.ConflictCount())
	assert.Equal(t, 1, f.rec.resets)
}

func TestCancelledRediffKeepsHunks(t *testing.T) {
	q := NewQueue()
	f := newFixture(t, Options{Executor: q})
	require.NoError(t, f.s.Rediff(context.Background(), simpleAccept()))
	require.NoError(t, f.s.AcceptSide(0, Left, false))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f.s.RediffAsync(ctx, trueConflict())
	runQueue(t, q)

	assert.False(t, f.s.Loading())
	require.Equal(t, 1, f.s.ChangeCount())
	ch, err := f.s.Change(0)
	require.NoError(t, err)
	assert.True(t, ch.IsResolved())
	assert.Equal(t, lines("a", "B", "c"), f.s.Output())
}

func TestInnerDiff(t *testing.T) {
	q := NewQueue()
	f := newFixture(t, Options{Executor: q, InnerDiff: true, InnerDiffDelay: time.Millisecond})
	require.NoError(t, f.s.Rediff(context.Background(), wordConflict()))

	runQueue(t, q)
	runQueue(t, q)

	ch, err := f.s.Change(0)
	require.NoError(t, err)
	inner := ch.InnerDifferences()
	require.NotNil(t, inner)
	assert.Equal(t, 5, inner.Left[0].Start)
	assert.Equal(t, 10, inner.Left[0].End)

	f.s.SetInnerDiff(false)
	assert.Nil(t, ch.InnerDifferences())
	assert.False(t, f.s.InnerDiffEnabled())
}

func TestInnerDiffDroppedAfterDisable(t *testing.T) {
	q := NewQueue()
	f := newFixture(t, Options{Executor: q, InnerDiff: true, InnerDiffDelay: time.Millisecond})
	require.NoError(t, f.s.Rediff(context.Background(), wordConflict()))

	runQueue(t, q)
	f.s.SetInnerDiff(false)
	runQueue(t, q)

	ch, err := f.s.Change(0)
	require.NoError(t, err)
	assert.Nil(t, ch.InnerDifferences())
}

func TestInnerDiffSkipsResolvedHunks(t *testing.T) {
	q := NewQueue()
	f := newFixture(t, Options{Executor: q, InnerDiff: true, InnerDiffDelay: time.Millisecond})
	require.NoError(t, f.s.Rediff(context.Background(), wordConflict()))

	runQueue(t, q)
	ok, err := f.s.ResolveAutomatically(0)
	require.NoError(t, err)
	require.True(t, ok)
	runQueue(t, q)

	ch, err := f.s.Change(0)
	require.NoError(t, err)
	assert.Nil(t, ch.InnerDifferences())
}

func TestResultMarksUnresolvedHunks(t *testing.T) {
	f := newFixture(t, Options{})
	in := Input{
		Left:  lines("a", "B", "c", "L"),
		Base:  lines("a", "b", "c", "x"),
		Right: lines("a", "b", "c", "R"),
	}
	require.NoError(t, f.s.Rediff(context.Background(), in))
	_, err := f.s.ApplyNonConflicting(Base)
	require.NoError(t, err)

	out, blocks := f.s.Result(markers.Labels{Ours: "HEAD", Base: "base", Theirs: "main"})
	assert.Equal(t, 1, blocks)
	assert.Equal(t, lines(
		"a", "B", "c",
		"<<<<<<< HEAD", "L", "||||||| base", "x", "=======", "R", ">>>>>>> main",
	), out)

	require.NoError(t, f.s.EditOutput(3, 4, lines("hand")))
	out, blocks = f.s.Result(markers.DefaultLabels)
	assert.Zero(t, blocks)
	assert.Equal(t, lines("a", "B", "c", "hand"), out)
}

func TestReplaceOutputEditsInPlace(t *testing.T) {
	f := newFixture(t, Options{})
	in := Input{
		Left:  lines("a", "L", "c", "d", "e"),
		Base:  lines("a", "b", "c", "d", "e"),
		Right: lines("a", "b", "c", "d", "R"),
	}
	require.NoError(t, f.s.Rediff(context.Background(), in))
	require.Equal(t, 2, f.s.ChangeCount())

	require.NoError(t, f.s.ReplaceOutput(context.Background(), lines("a", "b", "c", "x", "d", "e")))
	assert.Equal(t, lines("a", "b", "c", "x", "d", "e"), f.s.Output())
	assert.Equal(t, 1, f.log.UndoDepth())

	second, err := f.s.Change(1)
	require.NoError(t, err)
	assert.Equal(t, 5, second.Range().Start)
	assert.Equal(t, 6, second.Range().End)
	assert.False(t, f.s.IsModified(1))

	require.NoError(t, f.s.Undo())
	assert.Equal(t, lines("a", "b", "c", "d", "e"), f.s.Output())
	assert.Equal(t, 4, second.Range().Start)
}

func TestReplaceOutputUnchanged(t *testing.T) {
	f := newFixture(t, Options{})
	require.NoError(t, f.s.Rediff(context.Background(), simpleAccept()))

	require.NoError(t, f.s.ReplaceOutput(context.Background(), lines("a", "b", "c")))
	assert.Equal(t, 0, f.log.UndoDepth())
}

func TestPlanSummary(t *testing.T) {
	in := Input{
		Left:  lines("call(alpha, beta)", "same", "L", "same", "tail"),
		Base:  lines("call(a, beta)", "same", "x", "same", "tail"),
		Right: lines("call(a, gamma)", "same", "R", "same", "TAIL"),
	}
	p, err := Compute(context.Background(), in, linediff.Differ{})
	require.NoError(t, err)

	hunks, conflicts, resolvable := p.Summary()
	assert.Equal(t, 3, hunks)
	assert.Equal(t, 2, conflicts)
	assert.Equal(t, 1, resolvable)
}
