package tui

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"github.com/chojs23/threeway/internal/engine"
	"github.com/chojs23/threeway/internal/textdoc"
	"github.com/chojs23/threeway/internal/undo"
	"github.com/chojs23/threeway/internal/worddiff"
)

func newTestSession(t *testing.T, in engine.Input) (*engine.Session, *undo.Log, *sessionEvents) {
	t.Helper()
	log, err := undo.NewLog(100)
	if err != nil {
		t.Fatalf("NewLog error = %v", err)
	}
	events := &sessionEvents{}
	s := engine.NewSession(textdoc.New(nil, log), log, engine.Options{Observer: events})
	t.Cleanup(s.Close)
	if err := s.Rediff(context.Background(), in); err != nil {
		t.Fatalf("Rediff error = %v", err)
	}
	return s, log, events
}

func twoHunks() engine.Input {
	return engine.Input{
		Left:  []string{"a", "L", "c", "d", "e"},
		Base:  []string{"a", "b", "c", "d", "e"},
		Right: []string{"a", "b", "c", "d", "R"},
	}
}

func texts(lines []lineInfo) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.text
	}
	return out
}

func TestBuildSidePaneMarksChanges(t *testing.T) {
	s, _, _ := newTestSession(t, twoHunks())

	lines, start := buildSidePane(s, engine.Left, 1)
	if got := texts(lines); !reflect.DeepEqual(got, []string{"a", "L", "c", "d", "e"}) {
		t.Fatalf("left lines = %v", got)
	}
	if start != 4 {
		t.Fatalf("start = %d, want 4", start)
	}
	if lines[1].category != categoryModified || lines[1].connector != ">" {
		t.Fatalf("changed line = %+v", lines[1])
	}
	if lines[4].category != categoryDefault || !lines[4].selected {
		t.Fatalf("unchanged selected line = %+v", lines[4])
	}
	if lines[0].selected || lines[0].number != 1 {
		t.Fatalf("plain line = %+v", lines[0])
	}
}

func TestBuildSidePaneInsertMarker(t *testing.T) {
	s, _, _ := newTestSession(t, engine.Input{
		Left:  []string{"a", "c"},
		Base:  []string{"a", "b", "c"},
		Right: []string{"a", "b", "c"},
	})

	lines, start := buildSidePane(s, engine.Left, 0)
	if got := texts(lines); !reflect.DeepEqual(got, []string{"a", "~", "c"}) {
		t.Fatalf("left lines = %v", got)
	}
	if start != 1 || lines[1].number != 0 || lines[1].category != categoryInsertMarker {
		t.Fatalf("marker = %+v at %d", lines[1], start)
	}
	if lines[2].number != 2 {
		t.Fatalf("line after marker numbered %d, want 2", lines[2].number)
	}
}

func TestBuildResultPaneFollowsResolution(t *testing.T) {
	s, _, _ := newTestSession(t, twoHunks())

	lines, _ := buildResultPane(s, 0)
	if got := texts(lines); !reflect.DeepEqual(got, []string{"a", "b", "c", "d", "e"}) {
		t.Fatalf("result lines = %v", got)
	}
	if lines[1].connector != "|" {
		t.Fatalf("selected unresolved connector = %q, want |", lines[1].connector)
	}

	if err := s.AcceptSide(0, engine.Left, false); err != nil {
		t.Fatalf("AcceptSide error = %v", err)
	}
	lines, _ = buildResultPane(s, 1)
	if lines[1].text != "L" || lines[1].category != categoryResolved || lines[1].connector != "v" {
		t.Fatalf("resolved line = %+v", lines[1])
	}
}

func TestBuildResultPaneEmptyRange(t *testing.T) {
	s, _, _ := newTestSession(t, engine.Input{
		Left:  []string{"a", "b", "c"},
		Base:  []string{"a", "c"},
		Right: []string{"a", "c"},
	})

	lines, start := buildResultPane(s, 0)
	if got := texts(lines); !reflect.DeepEqual(got, []string{"a", "[inserted]", "c"}) {
		t.Fatalf("result lines = %v", got)
	}
	if start != 1 {
		t.Fatalf("start = %d, want 1", start)
	}
}

func TestSplitInner(t *testing.T) {
	lines := []string{"foo bar", "baz"}
	// "foo bar\nbaz\n": "bar\nbaz" spans bytes 4..11.
	got := splitInner(lines, []worddiff.Range{{Start: 4, End: 11}})
	want := [][]worddiff.Range{{{Start: 4, End: 7}}, {{Start: 0, End: 3}}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("splitInner = %v, want %v", got, want)
	}
	if splitInner(lines, nil) != nil {
		t.Fatalf("splitInner without ranges should be nil")
	}
}

func TestRenderTextKeepsContent(t *testing.T) {
	out := renderText("a\tb", []worddiff.Range{{Start: 2, End: 3}}, resultLineStyle)
	if !strings.Contains(out, "a    ") || !strings.Contains(out, "b") {
		t.Fatalf("renderText = %q", out)
	}
}

func TestRenderLinesNumbersOnlyRealLines(t *testing.T) {
	out := renderLines([]lineInfo{
		{number: 1, text: "one"},
		{text: "~", category: categoryInsertMarker},
		{number: 12, text: "twelve"},
	}, currentLineStyles())
	rows := strings.Split(out, "\n")
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}
	if !strings.Contains(rows[0], " 1") || !strings.Contains(rows[2], "12") {
		t.Fatalf("numbers missing: %q", out)
	}
	if strings.ContainsAny(rows[1], "0123456789") {
		t.Fatalf("virtual line numbered: %q", rows[1])
	}
}

func TestStatusText(t *testing.T) {
	s, _, _ := newTestSession(t, engine.Input{
		Left:  []string{"call(alpha, beta)"},
		Base:  []string{"call(a, beta)"},
		Right: []string{"call(a, gamma)"},
	})
	ch, _ := s.Change(0)
	if got := statusText(s, ch); got != "Unresolved (auto-mergeable)" {
		t.Fatalf("status = %q", got)
	}
	if _, err := s.ResolveAutomatically(0); err != nil {
		t.Fatalf("ResolveAutomatically error = %v", err)
	}
	if got := statusText(s, ch); got != "Resolved (auto)" {
		t.Fatalf("status = %q", got)
	}
}
