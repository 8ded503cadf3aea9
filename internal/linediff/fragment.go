package linediff

import (
	"errors"
	"fmt"
	"unicode"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"
)

var ErrInputTooLarge = errors.New("input too large to compare")

// Span is a half-open interval of token (line or word) positions.
type Span struct {
	Start int
	End   int
}

func (s Span) Len() int {
	return s.End - s.Start
}

func (s Span) Empty() bool {
	return s.Start == s.End
}

// Fragment names the corresponding spans of one difference in the three
// sequences. Outside fragments the three sequences are equal.
type Fragment struct {
	Left  Span
	Base  Span
	Right Span
}

func (f Fragment) String() string {
	return fmt.Sprintf("left[%d,%d) base[%d,%d) right[%d,%d)",
		f.Left.Start, f.Left.End, f.Base.Start, f.Base.End, f.Right.Start, f.Right.End)
}

// Interner assigns one rune per distinct token so that token sequences can
// be compared with diffmatchpatch's rune diff.
type Interner struct {
	ids map[string]rune
}

func NewInterner() *Interner {
	return &Interner{ids: make(map[string]rune)}
}

// Runes interns tokens after mapping each through normalize (may be nil).
func (in *Interner) Runes(tokens []string, normalize func(string) string) ([]rune, error) {
	out := make([]rune, len(tokens))
	for i, tok := range tokens {
		if normalize != nil {
			tok = normalize(tok)
		}
		id, ok := in.ids[tok]
		if !ok {
			var err error
			id, err = tokenRune(len(in.ids))
			if err != nil {
				return nil, err
			}
			in.ids[tok] = id
		}
		out[i] = id
	}
	return out, nil
}

// tokenRune skips the surrogate block so every id survives the string
// conversions inside diffmatchpatch.
func tokenRune(n int) (rune, error) {
	r := rune(n)
	if r >= 0xD800 {
		r += 0x800
	}
	if r > unicode.MaxRune {
		return 0, fmt.Errorf("%w: more than %d distinct tokens", ErrInputTooLarge, n)
	}
	return r, nil
}

// block is one edit of a two-way diff: base[Base] became side[Side].
type block struct {
	base Span
	side Span
}

func diffBlocks(base, side []rune) []block {
	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0
	diffs := dmp.DiffMainRunes(base, side, false)

	var out []block
	var cur *block
	bi, si := 0, 0
	flush := func() {
		if cur != nil {
			out = append(out, *cur)
			cur = nil
		}
	}
	open := func() {
		if cur == nil {
			cur = &block{base: Span{bi, bi}, side: Span{si, si}}
		}
	}

	for _, d := range diffs {
		n := utf8.RuneCountInString(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			flush()
			bi += n
			si += n
		case diffmatchpatch.DiffDelete:
			open()
			bi += n
			cur.base.End = bi
		case diffmatchpatch.DiffInsert:
			open()
			si += n
			cur.side.End = si
		}
	}
	flush()
	return out
}

// Compare3 returns the fragments where left or right differ from base.
//
// Edits of the two sides that overlap or touch in base are merged into one
// fragment; fragments never touch each other.
func Compare3(left, base, right []rune) []Fragment {
	return walk(diffBlocks(base, left), diffBlocks(base, right))
}

func walk(lb, rb []block) []Fragment {
	var out []Fragment
	dl, dr := 0, 0
	i, j := 0, 0

	for i < len(lb) || j < len(rb) {
		var start int
		if j >= len(rb) || (i < len(lb) && lb[i].base.Start <= rb[j].base.Start) {
			start = lb[i].base.Start
		} else {
			start = rb[j].base.Start
		}

		end := start
		fi, fj := i, j
		for grew := true; grew; {
			grew = false
			for i < len(lb) && lb[i].base.Start <= end {
				end = max(end, lb[i].base.End)
				i++
				grew = true
			}
			for j < len(rb) && rb[j].base.Start <= end {
				end = max(end, rb[j].base.End)
				j++
				grew = true
			}
		}

		f := Fragment{
			Base:  Span{start, end},
			Left:  Span{Start: start + dl},
			Right: Span{Start: start + dr},
		}
		for _, b := range lb[fi:i] {
			dl += b.side.Len() - b.base.Len()
		}
		for _, b := range rb[fj:j] {
			dr += b.side.Len() - b.base.Len()
		}
		f.Left.End = end + dl
		f.Right.End = end + dr
		out = append(out, f)
	}
	return out
}
