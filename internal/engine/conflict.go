package engine

import (
	"slices"

	"github.com/chojs23/threeway/internal/linediff"
	"github.com/chojs23/threeway/internal/worddiff"
)

// ConflictKind classifies a hunk.
type ConflictKind int

const (
	Inserted ConflictKind = iota
	Deleted
	Modified
	Conflicting
)

func (k ConflictKind) String() string {
	switch k {
	case Inserted:
		return "inserted"
	case Deleted:
		return "deleted"
	case Modified:
		return "modified"
	case Conflicting:
		return "conflict"
	}
	return "unknown"
}

// ConflictType is fixed when a hunk is created.
type ConflictType struct {
	kind           ConflictKind
	leftChanged    bool
	rightChanged   bool
	canAutoResolve bool
}

func (c ConflictType) Kind() ConflictKind {
	return c.kind
}

func (c ConflictType) IsConflict() bool {
	return c.kind == Conflicting
}

// IsChange reports whether side differs from base. Base always counts as
// changed.
func (c ConflictType) IsChange(side Side) bool {
	switch side {
	case Left:
		return c.leftChanged
	case Right:
		return c.rightChanged
	}
	return true
}

func (c ConflictType) CanAutoResolve() bool {
	return c.canAutoResolve
}

func (c ConflictType) String() string {
	if c.kind == Conflicting && c.canAutoResolve {
		return "conflict (resolvable)"
	}
	return c.kind.String()
}

// classify decides the type of one fragment. For conflicting fragments that
// can be merged automatically it also returns the merged lines.
func classify(f linediff.Fragment, in Input, policy linediff.IgnorePolicy) (ConflictType, []string) {
	left := in.span(Left, f)
	base := in.span(Base, f)
	right := in.span(Right, f)

	leftChanged := !linediff.Equal(left, base, policy)
	rightChanged := !linediff.Equal(right, base, policy)
	if !leftChanged && !rightChanged {
		// Only possible when the policy hides every difference of a
		// fragment; fall back to exact comparison.
		leftChanged = !slices.Equal(left, base)
		rightChanged = !slices.Equal(right, base)
	}

	ct := ConflictType{leftChanged: leftChanged, rightChanged: rightChanged}
	if leftChanged && rightChanged {
		ct.kind = Conflicting
		if linediff.Equal(left, right, policy) {
			ct.canAutoResolve = true
			return ct, slices.Clone(left)
		}
		text, ok := worddiff.TryResolve(worddiff.JoinLines(left), worddiff.JoinLines(base), worddiff.JoinLines(right))
		if ok {
			ct.canAutoResolve = true
			return ct, worddiff.SplitLines(text)
		}
		return ct, nil
	}

	changed := f.Left
	if rightChanged {
		changed = f.Right
	}
	switch {
	case f.Base.Empty():
		ct.kind = Inserted
	case changed.Empty():
		ct.kind = Deleted
	default:
		ct.kind = Modified
	}
	ct.canAutoResolve = true
	return ct, nil
}
