package engine

import "github.com/chojs23/threeway/internal/markers"

// Result returns the output with every unresolved, unmodified change written
// as a diff3 conflict block, and the number of such blocks. Changes that were
// edited by hand keep their content even when unresolved.
func (s *Session) Result(labels markers.Labels) ([]string, int) {
	output := s.doc.All()
	out := make([]string, 0, len(output))
	pos, blocks := 0, 0
	for _, ch := range s.changes {
		if ch.IsResolved() || s.isModified(ch) {
			continue
		}
		r := ch.Range()
		out = append(out, output[pos:r.Start]...)
		out = append(out, markers.RenderConflict(
			s.input.span(Left, ch.fragment),
			s.input.span(Base, ch.fragment),
			s.input.span(Right, ch.fragment),
			labels,
		)...)
		pos = r.End
		blocks++
	}
	out = append(out, output[pos:]...)
	return out, blocks
}
