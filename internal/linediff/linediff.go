// Package linediff computes line-level three-way differences.
package linediff

import (
	"context"
	"fmt"
)

// DefaultMaxLines bounds each input when Differ.MaxLines is zero.
const DefaultMaxLines = 200000

// Differ compares three line sequences. The zero value compares exactly
// with DefaultMaxLines.
type Differ struct {
	Policy   IgnorePolicy
	MaxLines int
}

// Compare returns the ordered fragments where left or right differ from base
// under d.Policy. It is deterministic and has no side effects, so it may run
// on any goroutine. Inputs above the line limit fail with ErrInputTooLarge.
func (d Differ) Compare(ctx context.Context, left, base, right []string) ([]Fragment, error) {
	limit := d.MaxLines
	if limit <= 0 {
		limit = DefaultMaxLines
	}
	for _, seq := range [][]string{left, base, right} {
		if len(seq) > limit {
			return nil, fmt.Errorf("%w: %d lines exceeds limit of %d", ErrInputTooLarge, len(seq), limit)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	in := NewInterner()
	normalize := d.Policy.Normalize
	b, err := in.Runes(base, normalize)
	if err != nil {
		return nil, err
	}
	l, err := in.Runes(left, normalize)
	if err != nil {
		return nil, err
	}
	r, err := in.Runes(right, normalize)
	if err != nil {
		return nil, err
	}

	lb := diffBlocks(b, l)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rb := diffBlocks(b, r)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return walk(lb, rb), nil
}
