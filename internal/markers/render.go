package markers

// RenderConflict writes a diff3 style conflict block. Empty labels fall back
// to DefaultLabels.
func RenderConflict(ours, base, theirs []string, labels Labels) []string {
	labels = labels.withDefaults()
	out := make([]string, 0, len(ours)+len(base)+len(theirs)+4)
	out = append(out, markStart+" "+labels.Ours)
	out = append(out, ours...)
	out = append(out, markBase+" "+labels.Base)
	out = append(out, base...)
	out = append(out, markMid)
	out = append(out, theirs...)
	out = append(out, markEnd+" "+labels.Theirs)
	return out
}

// Render writes doc back as lines. Conflict segments keep their markers and
// labels.
func Render(doc Document) []string {
	var out []string
	for _, seg := range doc.Segments {
		switch s := seg.(type) {
		case TextSegment:
			out = append(out, s.Lines...)
		case ConflictSegment:
			out = append(out, marker(markStart, s.OursLabel))
			out = append(out, s.Ours...)
			if s.HasBase {
				out = append(out, marker(markBase, s.BaseLabel))
				out = append(out, s.Base...)
			}
			out = append(out, markMid)
			out = append(out, s.Theirs...)
			out = append(out, marker(markEnd, s.TheirsLabel))
		}
	}
	return out
}

func marker(m, label string) string {
	if label == "" {
		return m
	}
	return m + " " + label
}

func (l Labels) withDefaults() Labels {
	if l.Ours == "" {
		l.Ours = DefaultLabels.Ours
	}
	if l.Base == "" {
		l.Base = DefaultLabels.Base
	}
	if l.Theirs == "" {
		l.Theirs = DefaultLabels.Theirs
	}
	return l
}
