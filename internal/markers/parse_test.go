package markers

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func split(s string) []string {
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}

func TestParse2Way(t *testing.T) {
	lines := split("before text\n<<<<<<< HEAD\nours content\n=======\ntheirs content\n>>>>>>> feature\nafter text\n")

	doc, err := Parse(lines)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if len(doc.Conflicts) != 1 {
		t.Fatalf("expected 1 conflict, got %d", len(doc.Conflicts))
	}

	if len(doc.Segments) != 3 {
		t.Fatalf("expected 3 segments (text, conflict, text), got %d", len(doc.Segments))
	}

	conflict, ok := doc.Segments[1].(ConflictSegment)
	if !ok {
		t.Fatalf("segment 1 is not ConflictSegment")
	}

	if !reflect.DeepEqual(conflict.Ours, []string{"ours content"}) {
		t.Errorf("ours mismatch: %q", conflict.Ours)
	}
	if !reflect.DeepEqual(conflict.Theirs, []string{"theirs content"}) {
		t.Errorf("theirs mismatch: %q", conflict.Theirs)
	}
	if conflict.HasBase || len(conflict.Base) != 0 {
		t.Errorf("base should be absent, got %q", conflict.Base)
	}
	if conflict.OursLabel != "HEAD" || conflict.TheirsLabel != "feature" {
		t.Errorf("labels = %q, %q", conflict.OursLabel, conflict.TheirsLabel)
	}
}

func TestParseDiff3(t *testing.T) {
	lines := split("<<<<<<< ours\nours version\n||||||| merged common ancestors\nbase version\n=======\ntheirs version\n>>>>>>> theirs\n")

	doc, err := Parse(lines)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if len(doc.Conflicts) != 1 {
		t.Fatalf("expected 1 conflict, got %d", len(doc.Conflicts))
	}

	conflict, ok := doc.Segments[0].(ConflictSegment)
	if !ok {
		t.Fatalf("segment 0 is not ConflictSegment")
	}
	if !conflict.HasBase {
		t.Fatalf("expected base section")
	}
	if !reflect.DeepEqual(conflict.Base, []string{"base version"}) {
		t.Errorf("base mismatch: %q", conflict.Base)
	}
	if conflict.BaseLabel != "merged common ancestors" {
		t.Errorf("base label = %q", conflict.BaseLabel)
	}
}

func TestParseMultiple(t *testing.T) {
	lines := split(strings.Join([]string{
		"head",
		"<<<<<<< a", "conflict 1 ours", "=======", "conflict 1 theirs", ">>>>>>> b",
		"middle",
		"<<<<<<< a", "conflict 2 ours", "=======", "conflict 2 theirs", ">>>>>>> b",
		"tail",
	}, "\n"))

	doc, err := Parse(lines)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if len(doc.Conflicts) != 2 {
		t.Fatalf("expected 2 conflicts, got %d", len(doc.Conflicts))
	}
	if doc.Conflicts[0].SegmentIndex != 1 || doc.Conflicts[1].SegmentIndex != 3 {
		t.Fatalf("conflict refs = %+v", doc.Conflicts)
	}

	conflict2 := doc.Segments[3].(ConflictSegment)
	if !reflect.DeepEqual(conflict2.Ours, []string{"conflict 2 ours"}) {
		t.Errorf("conflict2 ours mismatch: %q", conflict2.Ours)
	}
}

func TestParseFalsePositive(t *testing.T) {
	lines := split("comment <<<<<<< not a conflict\n<<<<<<<<< too long\n=======x\n")

	doc, err := Parse(lines)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if len(doc.Conflicts) != 0 {
		t.Errorf("expected 0 conflicts (false positive), got %d", len(doc.Conflicts))
	}
	if len(doc.Segments) != 1 {
		t.Fatalf("expected 1 text segment, got %d", len(doc.Segments))
	}
	text := doc.Segments[0].(TextSegment)
	if !reflect.DeepEqual(text.Lines, lines) {
		t.Errorf("text mismatch")
	}
}

func TestParseMalformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"no_mid", "<<<<<<< HEAD\nours\n>>>>>>> branch\n"},
		{"no_end", "<<<<<<< HEAD\nours\n=======\ntheirs\n"},
		{"base_without_mid", "<<<<<<< HEAD\nours\n||||||| base\nbase\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(split(tt.input))
			if !errors.Is(err, ErrMalformedConflict) {
				t.Errorf("expected ErrMalformedConflict, got %v", err)
			}
		})
	}
}

func TestParseBytesCRLF(t *testing.T) {
	doc, err := ParseBytes([]byte("keep\r\n<<<<<<< HEAD\r\nours\r\n=======\r\ntheirs\r\n>>>>>>> b\r\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if len(doc.Conflicts) != 1 {
		t.Fatalf("expected 1 conflict, got %d", len(doc.Conflicts))
	}
	text := doc.Segments[0].(TextSegment)
	if !reflect.DeepEqual(text.Lines, []string{"keep"}) {
		t.Errorf("text = %q", text.Lines)
	}
}

func TestIsResolved(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		resolved bool
	}{
		{"no_conflict", "hello\nworld\n", true},
		{"has_conflict", "<<<<<<< HEAD\nours\n=======\ntheirs\n>>>>>>> branch\n", false},
		{"false_positive", "comment <<<<<<< not a conflict\n", true},
		{"malformed", "<<<<<<< HEAD\nno end marker\n", false},
		{"no_trailing_newline", "<<<<<<< HEAD\nours\n=======\ntheirs\n>>>>>>> branch", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsResolved([]byte(tt.input))
			if result != tt.resolved {
				t.Errorf("IsResolved(%q) = %v, want %v", tt.name, result, tt.resolved)
			}
		})
	}
}
