// Package worddiff compares and merges short texts at the granularity of
// Unicode word segments.
package worddiff

import (
	"strings"

	"github.com/clipperhouse/uax29/v2/words"

	"github.com/chojs23/threeway/internal/linediff"
)

// Range is a half-open byte range in a text.
type Range struct {
	Start int
	End   int
}

// Result holds the changed byte ranges of each text of a three-way
// comparison. Base ranges cover every fragment; Left and Right only the
// fragments where that side differs from base.
type Result struct {
	Left  []Range
	Base  []Range
	Right []Range
}

// Tokenize splits text into UAX #29 word segments. Joining the tokens gives
// text back.
func Tokenize(text string) []string {
	var out []string
	seg := words.FromString(text)
	for seg.Next() {
		out = append(out, seg.Value())
	}
	return out
}

// JoinLines renders lines as text, terminating every line with "\n".
func JoinLines(lines []string) string {
	var b strings.Builder
	for _, line := range lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

// SplitLines is the inverse of JoinLines. A missing final terminator is
// tolerated.
func SplitLines(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}

type tokens struct {
	toks    []string
	offsets []int
}

func newTokens(text string) tokens {
	toks := Tokenize(text)
	offsets := make([]int, len(toks)+1)
	for i, tok := range toks {
		offsets[i+1] = offsets[i] + len(tok)
	}
	return tokens{toks: toks, offsets: offsets}
}

func (t tokens) byteRange(s linediff.Span) Range {
	return Range{Start: t.offsets[s.Start], End: t.offsets[s.End]}
}

func (t tokens) slice(s linediff.Span) []string {
	return t.toks[s.Start:s.End]
}

func fragments(left, base, right tokens) ([]linediff.Fragment, error) {
	in := linediff.NewInterner()
	b, err := in.Runes(base.toks, nil)
	if err != nil {
		return nil, err
	}
	l, err := in.Runes(left.toks, nil)
	if err != nil {
		return nil, err
	}
	r, err := in.Runes(right.toks, nil)
	if err != nil {
		return nil, err
	}
	return linediff.Compare3(l, b, r), nil
}

// Compare finds the word-level differences between the three texts.
func Compare(left, base, right string) (Result, error) {
	lt, bt, rt := newTokens(left), newTokens(base), newTokens(right)
	frags, err := fragments(lt, bt, rt)
	if err != nil {
		return Result{}, err
	}

	var res Result
	for _, f := range frags {
		if br := bt.byteRange(f.Base); br.End > br.Start {
			res.Base = append(res.Base, br)
		}
		if !linediff.Equal(lt.slice(f.Left), bt.slice(f.Base), linediff.Default) {
			if lr := lt.byteRange(f.Left); lr.End > lr.Start {
				res.Left = append(res.Left, lr)
			}
		}
		if !linediff.Equal(rt.slice(f.Right), bt.slice(f.Base), linediff.Default) {
			if rr := rt.byteRange(f.Right); rr.End > rr.Start {
				res.Right = append(res.Right, rr)
			}
		}
	}
	return res, nil
}

// TryResolve merges the changes of left and right into base word by word.
// It fails when both sides change the same words differently.
func TryResolve(left, base, right string) (string, bool) {
	switch {
	case left == right:
		return left, true
	case base == left:
		return right, true
	case base == right:
		return left, true
	}

	lt, bt, rt := newTokens(left), newTokens(base), newTokens(right)
	frags, err := fragments(lt, bt, rt)
	if err != nil {
		return "", false
	}

	var b strings.Builder
	pos := 0
	for _, f := range frags {
		for _, tok := range bt.toks[pos:f.Base.Start] {
			b.WriteString(tok)
		}
		baseToks := bt.slice(f.Base)
		leftToks, rightToks := lt.slice(f.Left), rt.slice(f.Right)
		leftChanged := !linediff.Equal(leftToks, baseToks, linediff.Default)
		rightChanged := !linediff.Equal(rightToks, baseToks, linediff.Default)

		chosen := leftToks
		switch {
		case leftChanged && rightChanged:
			if !linediff.Equal(leftToks, rightToks, linediff.Default) {
				return "", false
			}
		case rightChanged:
			chosen = rightToks
		}
		for _, tok := range chosen {
			b.WriteString(tok)
		}
		pos = f.Base.End
	}
	for _, tok := range bt.toks[pos:] {
		b.WriteString(tok)
	}
	return b.String(), true
}
