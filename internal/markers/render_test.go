package markers

import (
	"reflect"
	"testing"
)

func TestRenderConflict(t *testing.T) {
	got := RenderConflict([]string{"L"}, []string{"x"}, []string{"R"}, Labels{Ours: "HEAD"})
	want := []string{
		"<<<<<<< HEAD",
		"L",
		"||||||| base",
		"x",
		"=======",
		"R",
		">>>>>>> theirs",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("rendered mismatch:\ngot  %q\nwant %q", got, want)
	}
}

func TestRenderConflictEmptySides(t *testing.T) {
	got := RenderConflict(nil, []string{"gone"}, nil, DefaultLabels)
	want := []string{"<<<<<<< ours", "||||||| base", "gone", "=======", ">>>>>>> theirs"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("rendered mismatch:\ngot  %q\nwant %q", got, want)
	}
}

func TestRenderedConflictParses(t *testing.T) {
	lines := append([]string{"top"}, RenderConflict([]string{"a"}, nil, []string{"b", "c"}, DefaultLabels)...)
	lines = append(lines, "bottom")

	doc, err := Parse(lines)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(doc.Conflicts) != 1 {
		t.Fatalf("expected 1 conflict, got %d", len(doc.Conflicts))
	}
	seg := doc.Segments[1].(ConflictSegment)
	if !seg.HasBase || len(seg.Base) != 0 {
		t.Errorf("base = %q (HasBase %v)", seg.Base, seg.HasBase)
	}
	if !reflect.DeepEqual(seg.Theirs, []string{"b", "c"}) {
		t.Errorf("theirs = %q", seg.Theirs)
	}

	if got := Render(doc); !reflect.DeepEqual(got, lines) {
		t.Errorf("Render mismatch:\ngot  %q\nwant %q", got, lines)
	}
}
