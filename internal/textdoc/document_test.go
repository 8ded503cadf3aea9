package textdoc

import (
	"errors"
	"testing"

	"github.com/chojs23/threeway/internal/undo"
)

type recordingListener struct {
	before []Edit
	after  []Edit
	counts []int
	doc    *Document
}

func (r *recordingListener) BeforeEdit(e Edit) {
	r.before = append(r.before, e)
	r.counts = append(r.counts, r.doc.LineCount())
}

func (r *recordingListener) AfterEdit(e Edit) {
	r.after = append(r.after, e)
	r.counts = append(r.counts, r.doc.LineCount())
}

func TestSetLinesFiresHooksAroundMutation(t *testing.T) {
	doc := New([]string{"a", "b", "c"}, nil)
	l := &recordingListener{doc: doc}
	doc.AddListener(l)

	if err := doc.SetLines(1, 2, []string{"x", "y"}); err != nil {
		t.Fatalf("SetLines failed: %v", err)
	}

	want := Edit{Start: 1, End: 2, Count: 2}
	if len(l.before) != 1 || l.before[0] != want {
		t.Fatalf("before = %v, want [%v]", l.before, want)
	}
	if len(l.after) != 1 || l.after[0] != want {
		t.Fatalf("after = %v, want [%v]", l.after, want)
	}
	if l.counts[0] != 3 || l.counts[1] != 4 {
		t.Fatalf("line counts seen by hooks = %v, want [3 4]", l.counts)
	}
	if want.Delta() != 1 || want.NewEnd() != 3 {
		t.Fatalf("Delta/NewEnd = %d/%d, want 1/3", want.Delta(), want.NewEnd())
	}

	got := doc.All()
	expected := []string{"a", "x", "y", "c"}
	if len(got) != len(expected) {
		t.Fatalf("lines = %v, want %v", got, expected)
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Fatalf("lines = %v, want %v", got, expected)
		}
	}
}

func TestSetLinesValidation(t *testing.T) {
	doc := New([]string{"a"}, nil)

	if err := doc.SetLines(0, 2, nil); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("error = %v, want ErrOutOfRange", err)
	}

	doc.SetReadOnly(true)
	if err := doc.SetLines(0, 1, nil); !errors.Is(err, ErrReadOnly) {
		t.Fatalf("error = %v, want ErrReadOnly", err)
	}
	if err := doc.Reset(nil); !errors.Is(err, ErrReadOnly) {
		t.Fatalf("Reset error = %v, want ErrReadOnly", err)
	}
}

func TestSetLinesUndoRedo(t *testing.T) {
	log, err := undo.NewLog(10)
	if err != nil {
		t.Fatal(err)
	}
	doc := New([]string{"a", "b", "c"}, log)
	l := &recordingListener{doc: doc}
	doc.AddListener(l)

	if err := doc.SetLines(0, 2, []string{"z"}); err != nil {
		t.Fatalf("SetLines failed: %v", err)
	}
	if err := log.Undo(); err != nil {
		t.Fatalf("Undo failed: %v", err)
	}
	if got := doc.All(); len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("after undo = %v", got)
	}
	if err := log.Redo(); err != nil {
		t.Fatalf("Redo failed: %v", err)
	}
	if got := doc.All(); len(got) != 2 || got[0] != "z" || got[1] != "c" {
		t.Fatalf("after redo = %v", got)
	}

	// Undo and redo go through the hooks too.
	if len(l.before) != 3 {
		t.Fatalf("hook calls = %d, want 3", len(l.before))
	}
	if l.before[1] != (Edit{Start: 0, End: 1, Count: 2}) {
		t.Fatalf("undo edit = %v", l.before[1])
	}
}

func TestLinesClamps(t *testing.T) {
	doc := New([]string{"a", "b"}, nil)
	if got := doc.Lines(-3, 10); len(got) != 2 {
		t.Fatalf("Lines(-3, 10) = %v", got)
	}
	if got := doc.Lines(2, 1); len(got) != 0 {
		t.Fatalf("Lines(2, 1) = %v", got)
	}
}

func TestSplitJoin(t *testing.T) {
	tests := []struct {
		name  string
		input string
		lines []string
	}{
		{name: "empty", input: "", lines: nil},
		{name: "trailing newline", input: "a\nb\n", lines: []string{"a", "b"}},
		{name: "no trailing newline", input: "a\nb", lines: []string{"a", "b"}},
		{name: "crlf", input: "a\r\nb\r\n", lines: []string{"a", "b"}},
		{name: "blank line", input: "\n", lines: []string{""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Split([]byte(tt.input))
			if len(c.Lines) != len(tt.lines) {
				t.Fatalf("lines = %q, want %q", c.Lines, tt.lines)
			}
			for i := range tt.lines {
				if c.Lines[i] != tt.lines[i] {
					t.Fatalf("lines = %q, want %q", c.Lines, tt.lines)
				}
			}
			if got := string(c.Bytes()); got != tt.input {
				t.Fatalf("Bytes() = %q, want %q", got, tt.input)
			}
		})
	}
}
