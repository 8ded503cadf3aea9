// Package engine holds the three-way merge session: the hunk list, per-side
// resolution state and the operations that write resolutions into the output
// buffer.
package engine

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/golang/glog"

	"github.com/chojs23/threeway/internal/linediff"
	"github.com/chojs23/threeway/internal/rangetrack"
	"github.com/chojs23/threeway/internal/textdoc"
	"github.com/chojs23/threeway/internal/undo"
)

var (
	ErrUnknownChange = errors.New("unknown change")
	ErrInvalidSide   = errors.New("invalid side")
	ErrNotResettable = errors.New("change was not resolved automatically")
)

// DefaultInnerDiffDelay is the debounce of word-level recomputation.
const DefaultInnerDiffDelay = 300 * time.Millisecond

// Input is the three texts of one merge, as lines.
type Input struct {
	Left  []string
	Base  []string
	Right []string
}

func (in Input) clone() Input {
	return Input{
		Left:  slices.Clone(in.Left),
		Base:  slices.Clone(in.Base),
		Right: slices.Clone(in.Right),
	}
}

func (in Input) lines(side Side) []string {
	switch side {
	case Left:
		return in.Left
	case Right:
		return in.Right
	}
	return in.Base
}

func (in Input) span(side Side, f linediff.Fragment) []string {
	var s linediff.Span
	switch side {
	case Left:
		s = f.Left
	case Right:
		s = f.Right
	default:
		s = f.Base
	}
	return in.lines(side)[s.Start:s.End]
}

// Observer receives session notifications on the owner goroutine.
type Observer interface {
	// ChangesReset follows every rediff that replaced the hunk list.
	ChangesReset()
	ChangeUpdated(index int)
	Notice(message string)
}

type nopObserver struct{}

func (nopObserver) ChangesReset()     {}
func (nopObserver) ChangeUpdated(int) {}
func (nopObserver) Notice(string)     {}

type Options struct {
	Policy   linediff.IgnorePolicy
	MaxLines int
	// Registry resolves undo records to trackers; nil uses a private one.
	Registry *rangetrack.Registry
	// Executor is required for RediffAsync and inner differences.
	Executor Executor
	Observer Observer
	// InnerDiff enables word-level differences for unresolved hunks.
	InnerDiff      bool
	InnerDiffDelay time.Duration
}

// Plan is a computed hunk list that has not been applied yet.
type Plan struct {
	Input     Input
	Fragments []linediff.Fragment
	types     []ConflictType
	merged    [][]string
}

// Compute diffs and classifies in. It only reads its arguments and may run on
// any goroutine.
func Compute(ctx context.Context, in Input, d linediff.Differ) (*Plan, error) {
	frags, err := d.Compare(ctx, in.Left, in.Base, in.Right)
	if err != nil {
		return nil, err
	}
	p := &Plan{
		Input:     in,
		Fragments: frags,
		types:     make([]ConflictType, len(frags)),
		merged:    make([][]string, len(frags)),
	}
	for i, f := range frags {
		if i%64 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		p.types[i], p.merged[i] = classify(f, in, d.Policy)
	}
	return p, nil
}

// Summary counts the hunks of p, the conflicts among them and the conflicts
// that merge cleanly.
func (p *Plan) Summary() (hunks, conflicts, resolvable int) {
	for _, t := range p.types {
		if t.IsConflict() {
			conflicts++
			if t.CanAutoResolve() {
				resolvable++
			}
		}
	}
	return len(p.types), conflicts, resolvable
}

// Session is a three-way merge over one output document. Except for the
// background work it starts itself, every method must be called from the
// goroutine that owns the document.
type Session struct {
	opts     Options
	doc      *textdoc.Document
	log      *undo.Log
	tracker  *rangetrack.Tracker
	observer Observer
	inner    *innerDiffWorker

	input      Input
	changes    []*Change
	generation uint64
	loading    bool
	closed     bool

	readOnlyNotified bool
	notices          []string
}

// NewSession attaches a session to doc. Edits made to doc from now on move
// the hunks; edits and session operations are undone through log.
func NewSession(doc *textdoc.Document, log *undo.Log, opts Options) *Session {
	s := &Session{
		opts:     opts,
		doc:      doc,
		log:      log,
		observer: opts.Observer,
	}
	if s.observer == nil {
		s.observer = nopObserver{}
	}
	s.tracker = rangetrack.New(doc, log, opts.Registry, trackerOwner{s})
	doc.AddListener(s.tracker)

	delay := opts.InnerDiffDelay
	if delay <= 0 {
		delay = DefaultInnerDiffDelay
	}
	s.inner = newInnerDiffWorker(s, opts.Executor, delay)
	s.inner.enabled = opts.InnerDiff && opts.Executor != nil
	return s
}

func (s *Session) differ() linediff.Differ {
	return linediff.Differ{Policy: s.opts.Policy, MaxLines: s.opts.MaxLines}
}

func (s *Session) startGeneration() uint64 {
	s.generation++
	s.inner.cancelPending()
	return s.generation
}

// Rediff recomputes the hunks for in and resets the output to its base.
// Undo history is cleared.
func (s *Session) Rediff(ctx context.Context, in Input) error {
	in = in.clone()
	gen := s.startGeneration()
	p, err := Compute(ctx, in, s.differ())
	return s.finish(gen, in, p, err)
}

// RediffAsync computes on a new goroutine and applies the result through the
// executor. Loading reports true until then. A later rediff supersedes this
// one. Without an executor it behaves like Rediff.
func (s *Session) RediffAsync(ctx context.Context, in Input) {
	if s.opts.Executor == nil {
		if err := s.Rediff(ctx, in); err != nil {
			glog.Warningf("rediff: %v", err)
		}
		return
	}
	in = in.clone()
	gen := s.startGeneration()
	s.loading = true
	d, exec := s.differ(), s.opts.Executor
	glog.V(1).Infof("rediff: generation %d started", gen)
	go func() {
		p, err := Compute(ctx, in, d)
		exec.Post(func() {
			if err := s.finish(gen, in, p, err); err != nil && !isCancellation(err) {
				glog.Warningf("rediff: %v", err)
			}
		})
	}()
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func (s *Session) finish(gen uint64, in Input, p *Plan, err error) error {
	if gen != s.generation || s.closed {
		glog.V(2).Infof("rediff: generation %d superseded", gen)
		return nil
	}
	s.loading = false

	switch {
	case err == nil:
		return s.install(p)
	case isCancellation(err):
		glog.V(2).Infof("rediff: generation %d cancelled: %v", gen, err)
		s.inner.scheduleAll()
		return err
	case errors.Is(err, linediff.ErrInputTooLarge):
		if ierr := s.install(&Plan{Input: in}); ierr != nil {
			return ierr
		}
		s.notify(fmt.Sprintf("cannot compute merge: %v", err))
		return fmt.Errorf("cannot compute merge: %w", err)
	default:
		return err
	}
}

func (s *Session) install(p *Plan) error {
	s.inner.cancelPending()
	s.readOnlyNotified = false

	changes := make([]*Change, len(p.Fragments))
	ranges := make([]rangetrack.LineRange, len(p.Fragments))
	for i, f := range p.Fragments {
		changes[i] = &Change{
			index:    i,
			fragment: f,
			conflict: p.types[i],
			merged:   p.merged[i],
			tracker:  s.tracker,
		}
		ranges[i] = rangetrack.LineRange{Start: f.Base.Start, End: f.Base.End}
	}

	s.input = p.Input
	if err := s.doc.Reset(p.Input.Base); err != nil {
		s.changes = nil
		_ = s.tracker.SetRanges(nil)
		s.noticeReadOnly()
		s.observer.ChangesReset()
		return fmt.Errorf("rediff: %w", err)
	}
	if err := s.tracker.SetRanges(ranges); err != nil {
		s.changes = nil
		_ = s.tracker.SetRanges(nil)
		s.observer.ChangesReset()
		return err
	}
	s.changes = changes
	if s.log != nil {
		s.log.Clear()
	}

	glog.Infof("rediff: generation %d: %d hunks, %d conflicts", s.generation, len(changes), s.ConflictCount())
	s.observer.ChangesReset()
	s.inner.scheduleAll()
	return nil
}

// Close stops background work and detaches from the document.
func (s *Session) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.inner.disable()
	s.doc.RemoveListener(s.tracker)
	s.tracker.Dispose()
}

func (s *Session) Change(index int) (*Change, error) {
	if index < 0 || index >= len(s.changes) {
		return nil, fmt.Errorf("%w: %d of %d", ErrUnknownChange, index, len(s.changes))
	}
	return s.changes[index], nil
}

// Changes returns the current hunks in output order.
func (s *Session) Changes() []*Change {
	return slices.Clone(s.changes)
}

func (s *Session) ChangeCount() int {
	return len(s.changes)
}

func (s *Session) UnresolvedCount() int {
	n := 0
	for _, ch := range s.changes {
		if !ch.IsResolved() {
			n++
		}
	}
	return n
}

// ConflictCount counts unresolved conflicting hunks.
func (s *Session) ConflictCount() int {
	n := 0
	for _, ch := range s.changes {
		if ch.IsConflict() && !ch.IsResolved() {
			n++
		}
	}
	return n
}

// Output returns a copy of the output document.
func (s *Session) Output() []string {
	return s.doc.All()
}

// OutputLines returns the current output lines of change index.
func (s *Session) OutputLines(index int) []string {
	ch, err := s.Change(index)
	if err != nil {
		return nil
	}
	r := ch.Range()
	return s.doc.Lines(r.Start, r.End)
}

// SideLines returns the input lines of side for change index.
func (s *Session) SideLines(index int, side Side) []string {
	ch, err := s.Change(index)
	if err != nil {
		return nil
	}
	return slices.Clone(s.input.span(side, ch.fragment))
}

// Input returns a copy of the inputs of the current generation.
func (s *Session) Input() Input {
	return s.input.clone()
}

func (s *Session) Generation() uint64 {
	return s.generation
}

func (s *Session) Loading() bool {
	return s.loading
}

func (s *Session) Policy() linediff.IgnorePolicy {
	return s.opts.Policy
}

// SetPolicy changes the policy used by the next rediff.
func (s *Session) SetPolicy(p linediff.IgnorePolicy) {
	s.opts.Policy = p
}

// Notices returns every notice raised so far.
func (s *Session) Notices() []string {
	return slices.Clone(s.notices)
}

func (s *Session) notify(msg string) {
	glog.Warningf("session: %s", msg)
	s.notices = append(s.notices, msg)
	s.observer.Notice(msg)
}

func (s *Session) noticeReadOnly() {
	if s.readOnlyNotified {
		return
	}
	s.readOnlyNotified = true
	s.notify("output is read-only; changes were not applied")
}

// Undo reverts the last edit or session operation.
func (s *Session) Undo() error {
	if s.log == nil {
		return undo.ErrNothingToUndo
	}
	if s.doc.ReadOnly() {
		s.noticeReadOnly()
		return textdoc.ErrReadOnly
	}
	return s.log.Undo()
}

// Redo reapplies the last undone edit or session operation.
func (s *Session) Redo() error {
	if s.log == nil {
		return undo.ErrNothingToRedo
	}
	if s.doc.ReadOnly() {
		s.noticeReadOnly()
		return textdoc.ErrReadOnly
	}
	return s.log.Redo()
}

// EditOutput replaces output lines [start, end) as a manual edit.
func (s *Session) EditOutput(start, end int, lines []string) error {
	err := s.doc.SetLines(start, end, lines)
	if errors.Is(err, textdoc.ErrReadOnly) {
		s.noticeReadOnly()
	}
	return err
}

// ReplaceOutput turns the output into lines through the smallest set of
// line edits, recorded as manual edits in one undo step.
func (s *Session) ReplaceOutput(ctx context.Context, lines []string) error {
	old := s.doc.All()
	frags, err := linediff.Differ{MaxLines: s.opts.MaxLines}.Compare(ctx, old, old, lines)
	if err != nil {
		return err
	}
	if len(frags) == 0 {
		return nil
	}
	if s.doc.ReadOnly() {
		s.noticeReadOnly()
		return textdoc.ErrReadOnly
	}

	if s.log != nil {
		s.log.Begin("edit output")
		defer s.log.End()
	}
	for i := len(frags) - 1; i >= 0; i-- {
		f := frags[i]
		if err := s.doc.SetLines(f.Base.Start, f.Base.End, lines[f.Right.Start:f.Right.End]); err != nil {
			return err
		}
	}
	glog.V(1).Infof("session: output replaced through %d edits", len(frags))
	return nil
}

// trackerOwner keeps the rangetrack.Owner callbacks off the Session API.
type trackerOwner struct {
	s *Session
}

func (o trackerOwner) SnapshotState(index int) any {
	return o.s.changes[index].state()
}

func (o trackerOwner) RestoreState(index int, state any) {
	st, ok := state.(changeState)
	if !ok || index >= len(o.s.changes) {
		return
	}
	o.s.changes[index].restore(st)
}

func (o trackerOwner) OnRangeChanged(index int) {
	if index >= len(o.s.changes) {
		return
	}
	ch := o.s.changes[index]
	if ch.IsResolved() {
		ch.inner = nil
	} else {
		o.s.inner.schedule(index)
	}
	o.s.observer.ChangeUpdated(index)
}

func (o trackerOwner) OnInvariantViolation(err error) {
	o.s.notify(fmt.Sprintf("hunk tracking is inconsistent, rediff to recover: %v", err))
}

// OnRangeEdited handles a manual edit that hit change index.
func (o trackerOwner) OnRangeEdited(index int) {
	if index >= len(o.s.changes) {
		return
	}
	ch := o.s.changes[index]
	ch.byAutomation = false
	if !ch.IsResolved() && ch.conflict.Kind() == Deleted && ch.Range().Empty() {
		glog.V(1).Infof("session: deleted hunk %d emptied by edit, marking resolved", index)
		ch.markResolved()
	}
	o.s.tracker.Invalidate(index)
}
