package engine

import (
	"errors"
	"fmt"
	"slices"

	"github.com/golang/glog"

	"github.com/chojs23/threeway/internal/textdoc"
)

// transaction runs body as one undo step. Every operation goes through here.
func (s *Session) transaction(label string, affected []int, body func() error) error {
	err := s.tracker.RunTransaction(label, affected, body)
	if errors.Is(err, textdoc.ErrReadOnly) {
		s.noticeReadOnly()
	}
	if err != nil {
		glog.V(1).Infof("session: %s failed: %v", label, err)
		return err
	}
	glog.V(1).Infof("session: %s", label)
	return nil
}

func (s *Session) changed(ch *Change) {
	if ch.IsResolved() {
		ch.inner = nil
	}
	s.tracker.Invalidate(ch.index)
}

// AcceptSide writes the lines of side into the output of change index.
//
// Accepting a side that does not differ from base resolves the change
// without writing. On a conflict the first accepted side replaces the base
// text and the other side, accepted later, is appended after it; the
// conflict is fully resolved after the second side, or at once when force is
// set or the other side has no lines.
func (s *Session) AcceptSide(index int, side Side, force bool) error {
	ch, err := s.Change(index)
	if err != nil {
		return err
	}
	if side != Left && side != Right {
		return fmt.Errorf("accept %v: %w", side, ErrInvalidSide)
	}
	if ch.IsResolvedSide(side) {
		return nil
	}
	return s.transaction(fmt.Sprintf("accept %v in change %d", side, index), []int{index}, func() error {
		return s.replaceChange(ch, side, force)
	})
}

func (s *Session) replaceChange(ch *Change, side Side, force bool) error {
	if ch.IsResolvedSide(side) {
		return nil
	}
	if !ch.IsChange(side) {
		ch.markResolved()
		s.changed(ch)
		return nil
	}

	lines := s.input.span(side, ch.fragment)
	if !ch.IsConflict() {
		if err := s.tracker.Replace(ch.index, lines); err != nil {
			return err
		}
		ch.markResolved()
		s.changed(ch)
		return nil
	}

	var err error
	if ch.onesideApplied {
		err = s.tracker.Append(ch.index, lines)
	} else {
		err = s.tracker.Replace(ch.index, lines)
	}
	if err != nil {
		return err
	}
	if force || ch.Span(side.Other()).Empty() {
		ch.markResolved()
	} else {
		ch.onesideApplied = true
		ch.markResolvedSide(side)
	}
	s.changed(ch)
	return nil
}

// IgnoreSide resolves side without writing anything. A non-conflicting
// change, or any change when force is set, becomes fully resolved.
func (s *Session) IgnoreSide(index int, side Side, force bool) error {
	ch, err := s.Change(index)
	if err != nil {
		return err
	}
	if side != Left && side != Right {
		return fmt.Errorf("ignore %v: %w", side, ErrInvalidSide)
	}
	if ch.IsResolved() {
		return nil
	}
	return s.transaction(fmt.Sprintf("ignore %v in change %d", side, index), []int{index}, func() error {
		if !ch.IsConflict() || force {
			ch.markResolved()
		} else {
			ch.markResolvedSide(side)
		}
		s.changed(ch)
		return nil
	})
}

// CanResolveAutomatically reports whether change index can be resolved from
// side without user judgement. Conflicts only resolve from Base, and only
// when the sides merge cleanly; other changes resolve from any side that
// changed. A resolved or manually modified change never qualifies.
func (s *Session) CanResolveAutomatically(index int, side Side) bool {
	ch, err := s.Change(index)
	if err != nil || !side.valid() {
		return false
	}
	return s.canResolve(ch, side)
}

func (s *Session) canResolve(ch *Change, side Side) bool {
	if ch.IsConflict() {
		return side == Base &&
			ch.conflict.CanAutoResolve() &&
			!ch.resolved[0] && !ch.resolved[1] &&
			!s.isModified(ch)
	}
	return !ch.IsResolved() && ch.IsChange(side) && !s.isModified(ch)
}

// IsModified reports whether the output of change index differs from its
// base lines.
func (s *Session) IsModified(index int) bool {
	ch, err := s.Change(index)
	if err != nil {
		return false
	}
	return s.isModified(ch)
}

func (s *Session) isModified(ch *Change) bool {
	r := ch.Range()
	return !slices.Equal(s.doc.Lines(r.Start, r.End), s.input.span(Base, ch.fragment))
}

// masterSide picks the side whose text resolves a non-conflicting change.
func masterSide(ch *Change, side Side) Side {
	if side != Base {
		return side
	}
	if ch.IsChange(Left) {
		return Left
	}
	return Right
}

// ResolveAutomatically resolves change index when CanResolveAutomatically
// allows it from Base. It reports false, without error, when it does not.
func (s *Session) ResolveAutomatically(index int) (bool, error) {
	ch, err := s.Change(index)
	if err != nil {
		return false, err
	}
	if !s.canResolve(ch, Base) {
		if ch.IsConflict() && !ch.IsResolved() {
			glog.Warningf("session: change %d cannot be merged automatically", index)
		}
		return false, nil
	}
	err = s.transaction(fmt.Sprintf("resolve change %d automatically", index), []int{index}, func() error {
		return s.resolveAutomatically(ch)
	})
	return err == nil, err
}

func (s *Session) resolveAutomatically(ch *Change) error {
	if ch.IsConflict() {
		if err := s.tracker.Replace(ch.index, ch.merged); err != nil {
			return err
		}
		ch.markResolved()
	} else if err := s.replaceChange(ch, masterSide(ch, Base), false); err != nil {
		return err
	}
	ch.byAutomation = true
	s.changed(ch)
	return nil
}

// ApplyNonConflicting resolves every non-conflicting change that can be
// resolved from side, in one undo step, and returns how many it resolved.
func (s *Session) ApplyNonConflicting(side Side) (int, error) {
	if !side.valid() {
		return 0, fmt.Errorf("apply %v: %w", side, ErrInvalidSide)
	}
	var targets []*Change
	for _, ch := range s.changes {
		if !ch.IsConflict() && s.canResolve(ch, side) {
			targets = append(targets, ch)
		}
	}
	if len(targets) == 0 {
		return 0, nil
	}
	err := s.transaction(fmt.Sprintf("apply non-conflicting changes from %v", side), nil, func() error {
		for _, ch := range targets {
			if err := s.replaceChange(ch, masterSide(ch, side), false); err != nil {
				return err
			}
			ch.byAutomation = true
			s.changed(ch)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(targets), nil
}

// ApplyResolvableConflicts merges every conflict that merges cleanly, in one
// undo step, and returns how many it resolved.
func (s *Session) ApplyResolvableConflicts() (int, error) {
	var targets []*Change
	for _, ch := range s.changes {
		if ch.IsConflict() && s.canResolve(ch, Base) {
			targets = append(targets, ch)
		}
	}
	if len(targets) == 0 {
		return 0, nil
	}
	err := s.transaction("apply resolvable conflicts", nil, func() error {
		for _, ch := range targets {
			if err := s.resolveAutomatically(ch); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(targets), nil
}

// Reset puts the base lines of change index back and clears its state. Only
// changes resolved by automation can be reset.
func (s *Session) Reset(index int) error {
	ch, err := s.Change(index)
	if err != nil {
		return err
	}
	if !ch.IsResolved() || !ch.byAutomation {
		return fmt.Errorf("reset change %d: %w", index, ErrNotResettable)
	}
	return s.transaction(fmt.Sprintf("reset change %d", index), []int{index}, func() error {
		if err := s.tracker.Replace(ch.index, s.input.span(Base, ch.fragment)); err != nil {
			return err
		}
		ch.restore(changeState{})
		s.changed(ch)
		return nil
	})
}
