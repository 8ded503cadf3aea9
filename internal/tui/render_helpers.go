package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/chojs23/threeway/internal/engine"
	"github.com/chojs23/threeway/internal/worddiff"
)

const tabWidth = 4

type lineInfo struct {
	// number is 1-based; 0 marks a virtual line that is not part of the text.
	number    int
	text      string
	category  lineCategory
	selected  bool
	dim       bool
	connector string
	inner     []worddiff.Range
}

type lineCategory int

const (
	categoryDefault lineCategory = iota
	categoryModified
	categoryAdded
	categoryRemoved
	categoryConflicted
	categoryInsertMarker
	categoryResolved
)

type lineStyles struct {
	base      map[lineCategory]lipgloss.Style
	selected  map[lineCategory]lipgloss.Style
	connector map[lineCategory]lipgloss.Style
}

func currentLineStyles() lineStyles {
	highlight := map[lineCategory]lipgloss.Style{
		categoryDefault:      resultLineStyle,
		categoryModified:     modifiedLineStyle,
		categoryAdded:        addedLineStyle,
		categoryRemoved:      removedLineStyle,
		categoryConflicted:   conflictedLineStyle,
		categoryInsertMarker: insertMarkerStyle,
		categoryResolved:     resultLineStyle,
	}
	selected := make(map[lineCategory]lipgloss.Style, len(highlight))
	for category, style := range highlight {
		selected[category] = style.Bold(true)
	}
	selected[categoryInsertMarker] = selectedHunkMarkerStyle

	connector := map[lineCategory]lipgloss.Style{
		categoryDefault:  lineNumberStyle,
		categoryResolved: resultResolvedMarkerStyle,
	}
	for category, style := range highlight {
		if _, ok := connector[category]; !ok {
			connector[category] = style
		}
	}
	return lineStyles{base: highlight, selected: selected, connector: connector}
}

func renderLines(lines []lineInfo, styles lineStyles) string {
	if len(lines) == 0 {
		return ""
	}

	maxNumber := 0
	for _, line := range lines {
		maxNumber = max(maxNumber, line.number)
	}
	width := len(fmt.Sprintf("%d", max(maxNumber, 1)))

	var b strings.Builder
	for i, line := range lines {
		connector := line.connector
		if connector == "" {
			connector = " "
		}
		numberText := strings.Repeat(" ", width)
		if line.number > 0 {
			numberText = fmt.Sprintf("%*d", width, line.number)
		}

		style := styleForCategory(styles.base, line.category, lipgloss.NewStyle())
		if line.selected {
			style = styleForCategory(styles.selected, line.category, style)
		}
		if line.dim {
			style = style.Foreground(dimForeground)
		}
		connectorStyle := styleForCategory(styles.connector, line.category, lineNumberStyle)
		if line.selected {
			connectorStyle = styleForCategory(styles.selected, line.category, connectorStyle)
		}

		b.WriteString(lineNumberStyle.Render(numberText) + " " + connectorStyle.Render(connector) + " ")
		b.WriteString(renderText(line.text, line.inner, style))
		if i < len(lines)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// renderText styles text, highlighting the byte ranges in inner.
func renderText(text string, inner []worddiff.Range, style lipgloss.Style) string {
	if len(inner) == 0 {
		return style.Render(expandTabs(text))
	}
	var b strings.Builder
	pos := 0
	for _, r := range inner {
		start, end := max(r.Start, pos), min(r.End, len(text))
		if start >= end {
			continue
		}
		if start > pos {
			b.WriteString(style.Render(expandTabs(text[pos:start])))
		}
		b.WriteString(innerDiffStyle.Render(expandTabs(text[start:end])))
		pos = end
	}
	if pos < len(text) {
		b.WriteString(style.Render(expandTabs(text[pos:])))
	}
	return b.String()
}

func expandTabs(s string) string {
	return strings.ReplaceAll(s, "\t", strings.Repeat(" ", tabWidth))
}

func styleForCategory(styles map[lineCategory]lipgloss.Style, category lineCategory, fallback lipgloss.Style) lipgloss.Style {
	if style, ok := styles[category]; ok {
		return style
	}
	if style, ok := styles[categoryDefault]; ok {
		return style
	}
	return fallback
}

func categoryForKind(kind engine.ConflictKind) lineCategory {
	switch kind {
	case engine.Inserted:
		return categoryAdded
	case engine.Deleted:
		return categoryRemoved
	case engine.Conflicting:
		return categoryConflicted
	default:
		return categoryModified
	}
}

// splitInner maps byte ranges over worddiff.JoinLines(lines) onto each line.
func splitInner(lines []string, ranges []worddiff.Range) [][]worddiff.Range {
	if len(ranges) == 0 {
		return nil
	}
	out := make([][]worddiff.Range, len(lines))
	offset := 0
	for i, line := range lines {
		end := offset + len(line)
		for _, r := range ranges {
			start, stop := max(r.Start, offset), min(r.End, end)
			if start < stop {
				out[i] = append(out[i], worddiff.Range{Start: start - offset, End: stop - offset})
			}
		}
		offset = end + 1
	}
	return out
}

func innerFor(ch *engine.Change, side engine.Side) []worddiff.Range {
	res := ch.InnerDifferences()
	if res == nil {
		return nil
	}
	switch side {
	case engine.Left:
		return res.Left
	case engine.Right:
		return res.Right
	default:
		return res.Base
	}
}

// buildSidePane lays out the full text of side with every change marked.
// It returns the lines and the index of the first line of change current.
func buildSidePane(s *engine.Session, side engine.Side, current int) ([]lineInfo, int) {
	in := s.Input()
	text := in.Left
	if side == engine.Right {
		text = in.Right
	}

	var lines []lineInfo
	currentStart := -1
	pos := 0
	plain := func(end int) {
		for ; pos < end; pos++ {
			lines = append(lines, lineInfo{number: pos + 1, text: text[pos]})
		}
	}

	for i, ch := range s.Changes() {
		span := ch.Span(side)
		plain(span.Start)
		selected := i == current
		if selected {
			currentStart = len(lines)
		}
		changed := ch.IsChange(side)
		connector := ""
		if changed {
			connector = connectorForSide(side)
		}

		if span.Empty() {
			if changed || selected {
				lines = append(lines, lineInfo{
					text:      "~",
					category:  categoryInsertMarker,
					selected:  selected,
					dim:       ch.IsResolvedSide(side),
					connector: connector,
				})
			}
			continue
		}

		category := categoryDefault
		if changed {
			category = categoryForKind(ch.Type().Kind())
		}
		hunk := text[span.Start:span.End]
		inner := splitInner(hunk, innerFor(ch, side))
		for k, line := range hunk {
			info := lineInfo{
				number:    span.Start + k + 1,
				text:      line,
				category:  category,
				selected:  selected,
				dim:       ch.IsResolvedSide(side),
				connector: connector,
			}
			if inner != nil {
				info.inner = inner[k]
			}
			lines = append(lines, info)
		}
		pos = span.End
	}
	plain(len(text))

	if currentStart == -1 {
		currentStart = 0
	}
	return lines, currentStart
}

// buildResultPane lays out the output document. Unresolved changes keep
// their kind colour; resolved ones are marked in the connector column.
func buildResultPane(s *engine.Session, current int) ([]lineInfo, int) {
	output := s.Output()

	var lines []lineInfo
	currentStart := -1
	pos := 0
	plain := func(end int) {
		for ; pos < end; pos++ {
			lines = append(lines, lineInfo{number: pos + 1, text: output[pos]})
		}
	}

	for i, ch := range s.Changes() {
		r := ch.Range()
		plain(r.Start)
		selected := i == current
		if selected {
			currentStart = len(lines)
		}
		resolved := ch.IsResolved()
		category := categoryForKind(ch.Type().Kind())
		if resolved {
			category = categoryResolved
		}
		connector := connectorForResult(resolved, selected)

		if r.Empty() {
			lines = append(lines, lineInfo{
				text:      emptyResultText(ch),
				category:  categoryInsertMarker,
				selected:  selected,
				dim:       true,
				connector: connector,
			})
			continue
		}

		hunk := output[r.Start:r.End]
		var inner [][]worddiff.Range
		if !resolved {
			inner = splitInner(hunk, innerFor(ch, engine.Base))
		}
		for k, line := range hunk {
			info := lineInfo{
				number:    r.Start + k + 1,
				text:      line,
				category:  category,
				selected:  selected,
				connector: connector,
			}
			if inner != nil {
				info.inner = inner[k]
			}
			lines = append(lines, info)
		}
		pos = r.End
	}
	plain(len(output))

	if currentStart == -1 {
		currentStart = 0
	}
	return lines, currentStart
}

func emptyResultText(ch *engine.Change) string {
	if ch.IsResolved() {
		return "[removed]"
	}
	return "[" + ch.Type().String() + "]"
}

func connectorForSide(side engine.Side) string {
	switch side {
	case engine.Left:
		return ">"
	case engine.Right:
		return "<"
	default:
		return " "
	}
}

func connectorForResult(resolved bool, selected bool) string {
	if resolved {
		return "v"
	}
	if selected {
		return "|"
	}
	return " "
}

// statusText describes the state of a change for the result pane title.
func statusText(s *engine.Session, ch *engine.Change) string {
	switch {
	case ch.IsResolved() && ch.ResolvedByAutomation():
		return "Resolved (auto)"
	case ch.IsResolved():
		return "Resolved"
	case ch.OnesideApplied():
		return "One side applied"
	case s.IsModified(ch.Index()):
		return "Edited"
	case ch.Type().CanAutoResolve():
		return "Unresolved (auto-mergeable)"
	default:
		return "Unresolved"
	}
}
