package markers

type Document struct {
	Segments  []Segment
	Conflicts []ConflictRef
}

type Segment interface{ isSegment() }

type TextSegment struct{ Lines []string }

func (TextSegment) isSegment() {}

type ConflictSegment struct {
	Ours   []string
	Base   []string
	Theirs []string
	// HasBase is set for diff3 style blocks, even when Base is empty.
	HasBase bool

	OursLabel   string
	BaseLabel   string
	TheirsLabel string
}

func (ConflictSegment) isSegment() {}

// ConflictRef points to a conflict segment inside Document.Segments.
//
// We keep an index list for convenient iteration and stable ordering.
type ConflictRef struct {
	SegmentIndex int
}

// Labels are written after the markers of rendered conflicts.
type Labels struct {
	Ours   string
	Base   string
	Theirs string
}

// DefaultLabels matches what git writes for a merge with diff3 style.
var DefaultLabels = Labels{Ours: "ours", Base: "base", Theirs: "theirs"}
