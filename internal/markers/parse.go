package markers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/chojs23/threeway/internal/textdoc"
)

var ErrMalformedConflict = errors.New("malformed conflict markers")

const (
	markStart = "<<<<<<<"
	markBase  = "|||||||"
	markMid   = "======="
	markEnd   = ">>>>>>>"
)

// Parse splits lines into text segments and conflict segments.
//
// It is strict: if it encounters a start marker, it requires a full, valid
// marker structure (optionally including a diff3 base section).
func Parse(lines []string) (Document, error) {
	var doc Document
	var text []string

	flushText := func() {
		if len(text) == 0 {
			return
		}
		doc.Segments = append(doc.Segments, TextSegment{Lines: text})
		text = nil
	}

	for i := 0; i < len(lines); i++ {
		label, ok := markerLabel(lines[i], markStart)
		if !ok {
			text = append(text, lines[i])
			continue
		}
		flushText()
		seg := ConflictSegment{OursLabel: label}

		// Collect ours until base/mid.
		for i++; i < len(lines) && !isMarker(lines[i], markBase) && !isMarker(lines[i], markMid); i++ {
			seg.Ours = append(seg.Ours, lines[i])
		}
		if i >= len(lines) {
			return Document{}, fmt.Errorf("%w: missing separator", ErrMalformedConflict)
		}

		// Optional base section.
		if label, ok := markerLabel(lines[i], markBase); ok {
			seg.HasBase = true
			seg.BaseLabel = label
			for i++; i < len(lines) && !isMarker(lines[i], markMid); i++ {
				seg.Base = append(seg.Base, lines[i])
			}
			if i >= len(lines) {
				return Document{}, fmt.Errorf("%w: missing %s after base", ErrMalformedConflict, markMid)
			}
		}

		// Collect theirs until end.
		for i++; i < len(lines) && !isMarker(lines[i], markEnd); i++ {
			seg.Theirs = append(seg.Theirs, lines[i])
		}
		if i >= len(lines) {
			return Document{}, fmt.Errorf("%w: missing end marker", ErrMalformedConflict)
		}
		seg.TheirsLabel, _ = markerLabel(lines[i], markEnd)

		doc.Conflicts = append(doc.Conflicts, ConflictRef{SegmentIndex: len(doc.Segments)})
		doc.Segments = append(doc.Segments, seg)
	}

	flushText()
	return doc, nil
}

// ParseBytes splits data into lines and parses them.
func ParseBytes(data []byte) (Document, error) {
	return Parse(textdoc.Split(data).Lines)
}

func isMarker(line, marker string) bool {
	_, ok := markerLabel(line, marker)
	return ok
}

// markerLabel matches a marker at line start, followed by nothing or by a
// space and a label. Markers appear at line start in git output.
func markerLabel(line, marker string) (string, bool) {
	rest, ok := strings.CutPrefix(line, marker)
	if !ok {
		return "", false
	}
	if rest == "" {
		return "", true
	}
	if rest[0] != ' ' && rest[0] != '\t' {
		return "", false
	}
	return strings.TrimSpace(rest), true
}

// IsResolved returns true if data contains no valid conflict block. Malformed
// markers count as unresolved.
func IsResolved(data []byte) bool {
	doc, err := ParseBytes(data)
	if err != nil {
		return false
	}
	return len(doc.Conflicts) == 0
}
