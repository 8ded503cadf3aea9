package tui

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/chojs23/threeway/internal/config"
)

// FileCandidate is one unmerged path with a summary of its three-way diff.
type FileCandidate struct {
	Path string
	// Resolved is set when MERGED no longer holds conflict markers.
	Resolved   bool
	Hunks      int
	Conflicts  int
	Resolvable int
	// Err is set when the index stages could not be read or diffed.
	Err error
}

// summary is the short hunk description shown next to the path.
func (c FileCandidate) summary() string {
	switch {
	case c.Err != nil:
		return "no summary"
	case c.Conflicts == 0:
		return plural(c.Hunks, "hunk")
	case c.Resolvable == c.Conflicts:
		return plural(c.Conflicts, "conflict") + ", all auto"
	case c.Resolvable > 0:
		return fmt.Sprintf("%s, %d auto", plural(c.Conflicts, "conflict"), c.Resolvable)
	default:
		return plural(c.Conflicts, "conflict")
	}
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

// sortCandidates puts files still holding markers first, the ones with the
// most conflicts leading, then orders by path.
func sortCandidates(candidates []FileCandidate) []FileCandidate {
	out := slices.Clone(candidates)
	slices.SortStableFunc(out, func(a, b FileCandidate) int {
		if a.Resolved != b.Resolved {
			if a.Resolved {
				return 1
			}
			return -1
		}
		if c := cmp.Compare(b.Conflicts, a.Conflicts); c != 0 {
			return c
		}
		return cmp.Compare(a.Path, b.Path)
	})
	return out
}

type fileItem struct {
	FileCandidate
}

func (f fileItem) FilterValue() string {
	return f.Path
}

const (
	statusWidth  = len("unresolved")
	summaryWidth = 22
)

var (
	resolvedLabelStyle   lipgloss.Style
	unresolvedLabelStyle lipgloss.Style
)

type fileItemDelegate struct{}

func (d fileItemDelegate) Height() int {
	return 1
}

func (d fileItemDelegate) Spacing() int {
	return 0
}

func (d fileItemDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd {
	return nil
}

func (d fileItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	file, ok := item.(fileItem)
	if !ok {
		return
	}
	cursor := "  "
	if index == m.Index() {
		cursor = "> "
	}
	label, style := "unresolved", unresolvedLabelStyle
	if file.Resolved {
		label, style = "resolved", resolvedLabelStyle
	}
	summary := runewidth.FillRight(runewidth.Truncate(file.summary(), summaryWidth, "…"), summaryWidth)

	path := file.Path
	if avail := m.Width() - len(cursor) - statusWidth - summaryWidth - 4; m.Width() > 0 && avail > 0 {
		path = runewidth.Truncate(path, avail, "…")
	}
	fmt.Fprintf(w, "%s%s  %s  %s", cursor, style.Render(fmt.Sprintf("%*s", statusWidth, label)), summary, path)
}

type fileSelectModel struct {
	candidates   []FileCandidate
	hideResolved bool
	list         list.Model
	selected     string
	err          error
}

var ErrSelectorQuit = errors.New("selector quit")

func newFileSelectModel(candidates []FileCandidate) fileSelectModel {
	m := fileSelectModel{
		candidates: sortCandidates(candidates),
		list:       list.New(nil, fileItemDelegate{}, 0, 0),
	}
	m.list.SetShowHelp(false)
	m.list.SetShowStatusBar(false)
	m.list.SetShowPagination(false)
	m.list.SetFilteringEnabled(false)
	m.refreshItems()
	return m
}

// refreshItems rebuilds the list from the candidates, keeping the selected
// path when it is still shown.
func (m *fileSelectModel) refreshItems() {
	current := ""
	if item, ok := m.list.SelectedItem().(fileItem); ok {
		current = item.Path
	}

	items := make([]list.Item, 0, len(m.candidates))
	unresolved := 0
	cursor := 0
	for _, c := range m.candidates {
		if !c.Resolved {
			unresolved++
		}
		if c.Resolved && m.hideResolved {
			continue
		}
		if c.Path == current {
			cursor = len(items)
		}
		items = append(items, fileItem{c})
	}
	m.list.SetItems(items)
	m.list.Select(cursor)
	m.list.Title = fmt.Sprintf("Conflicted files: %d of %d unresolved", unresolved, len(m.candidates))
}

// SelectFile opens a TUI selector and returns the chosen repo-relative path.
func SelectFile(ctx context.Context, candidates []FileCandidate, cfg config.Config) (string, error) {
	theme, err := themeFromConfig(cfg.Theme)
	if err != nil {
		return "", err
	}
	applyTheme(theme)

	program := tea.NewProgram(newFileSelectModel(candidates), tea.WithAltScreen(), tea.WithContext(ctx))
	finalModel, err := program.Run()
	if err != nil {
		return "", fmt.Errorf("file selector TUI error: %w", err)
	}

	result, ok := finalModel.(fileSelectModel)
	if !ok {
		return "", fmt.Errorf("file selector returned unexpected model")
	}
	if result.err != nil {
		return "", result.err
	}
	if result.selected == "" {
		return "", errors.New("no file selected")
	}
	return result.selected, nil
}

func (m fileSelectModel) Init() tea.Cmd {
	return nil
}

func (m fileSelectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.err = ErrSelectorQuit
			return m, tea.Quit
		case "enter":
			if item, ok := m.list.SelectedItem().(fileItem); ok {
				m.selected = item.Path
				return m, tea.Quit
			}
			return m, nil
		case "t":
			m.hideResolved = !m.hideResolved
			m.refreshItems()
			return m, nil
		}
	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width, max(msg.Height, 5)-2)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m fileSelectModel) View() string {
	help := "up/down: move | enter: open | t: hide resolved | q: quit"
	if m.hideResolved {
		help = "up/down: move | enter: open | t: show resolved | q: quit"
	}
	if len(m.list.Items()) == 0 {
		return m.list.Title + "\n\n  Every file is resolved.\n\n" + help
	}
	return m.list.View() + "\n" + help
}
