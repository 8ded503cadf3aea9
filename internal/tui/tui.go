package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/golang/glog"
	"github.com/mattn/go-runewidth"

	"github.com/chojs23/threeway/internal/cli"
	"github.com/chojs23/threeway/internal/config"
	"github.com/chojs23/threeway/internal/engine"
	"github.com/chojs23/threeway/internal/linediff"
	"github.com/chojs23/threeway/internal/markers"
	"github.com/chojs23/threeway/internal/textdoc"
	"github.com/chojs23/threeway/internal/undo"
)

const (
	toastDuration = 2 * time.Second
	reloadDelay   = 200 * time.Millisecond
)

var ErrBackToSelector = errors.New("back to selector")

type model struct {
	ctx     context.Context
	opts    cli.Options
	cfg     config.Config
	files   engine.Files
	session *engine.Session
	log     *undo.Log
	events  *sessionEvents
	// content carries the line terminators used when writing.
	content textdoc.Content

	current        int
	pendingScroll  bool
	viewportOurs   viewport.Model
	viewportResult viewport.Model
	viewportTheirs viewport.Model
	ready          bool
	width          int
	height         int
	quitting       bool
	toastMessage   string
	toastSeq       int
	reloadSeq      int
	err            error
}

// sessionEvents collects observer callbacks until the next render.
type sessionEvents struct {
	dirty   bool
	reset   bool
	notices []string
}

func (e *sessionEvents) ChangesReset() {
	e.dirty = true
	e.reset = true
}

func (e *sessionEvents) ChangeUpdated(int) {
	e.dirty = true
}

func (e *sessionEvents) Notice(msg string) {
	e.dirty = true
	e.notices = append(e.notices, msg)
}

// programExecutor runs session callbacks on the event loop goroutine.
type programExecutor struct {
	send func(tea.Msg)
}

func (e *programExecutor) Post(fn func()) {
	e.send(runMsg{fn: fn})
}

type runMsg struct {
	fn func()
}

type editorFinishedMsg struct {
	err error
}

type toastExpiredMsg struct {
	id int
}

type inputsChangedMsg struct {
	path string
}

type reloadMsg struct {
	id int
}

// Run starts the TUI for interactive conflict resolution.
func Run(ctx context.Context, opts cli.Options, cfg config.Config) error {
	theme, err := themeFromConfig(cfg.Theme)
	if err != nil {
		return err
	}
	applyTheme(theme)

	files := engine.Files{Base: opts.BasePath, Left: opts.LocalPath, Right: opts.RemotePath}
	in, content, err := engine.ReadInput(files)
	if err != nil {
		return err
	}

	log, err := undo.NewLog(cfg.UndoLimit)
	if err != nil {
		return err
	}
	executor := &programExecutor{}
	events := &sessionEvents{}
	session := engine.NewSession(textdoc.New(nil, log), log, engine.Options{
		Policy:         cfg.Policy(),
		MaxLines:       cfg.MaxLines,
		Executor:       executor,
		Observer:       events,
		InnerDiff:      cfg.InnerDiff,
		InnerDiffDelay: cfg.InnerDiffDelay.Duration,
	})
	defer session.Close()

	m := newModel(ctx, opts, cfg, session, log, events)
	m.content = content

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	executor.send = p.Send

	if err := session.Rediff(ctx, in); err != nil && !errors.Is(err, linediff.ErrInputTooLarge) {
		return err
	}

	if w, err := watchInputs(files, p.Send); err != nil {
		glog.Warningf("watch inputs: %v", err)
	} else {
		defer w.Close()
	}

	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	if m, ok := finalModel.(model); ok {
		return m.err
	}
	return nil
}

func newModel(ctx context.Context, opts cli.Options, cfg config.Config, session *engine.Session, log *undo.Log, events *sessionEvents) model {
	return model{
		ctx:           ctx,
		opts:          opts,
		cfg:           cfg,
		files:         engine.Files{Base: opts.BasePath, Left: opts.LocalPath, Right: opts.RemotePath},
		session:       session,
		log:           log,
		events:        events,
		content:       textdoc.Content{TrailingNewline: true},
		pendingScroll: true,
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m *model) showToast(message string) tea.Cmd {
	m.toastMessage = message
	m.toastSeq++
	seq := m.toastSeq
	return tea.Tick(toastDuration, func(time.Time) tea.Msg {
		return toastExpiredMsg{id: seq}
	})
}

func (m *model) labels() markers.Labels {
	return markers.Labels{Ours: m.cfg.Labels.Ours, Base: m.cfg.Labels.Base, Theirs: m.cfg.Labels.Theirs}
}

// resultBytes renders the output with unresolved hunks as conflict blocks.
func (m *model) resultBytes() ([]byte, int) {
	lines, remaining := m.session.Result(m.labels())
	return m.content.Join(lines), remaining
}

func (m *model) writeResolved() (int, error) {
	data, remaining := m.resultBytes()
	if err := engine.WriteResult(m.opts.MergedPath, data, m.opts.Backup || m.cfg.Backup); err != nil {
		return 0, err
	}
	glog.Infof("wrote %s: %d unresolved hunks", m.opts.MergedPath, remaining)
	return remaining, nil
}

func (m *model) openEditor() tea.Cmd {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "vi"
	}
	if _, err := m.writeResolved(); err != nil {
		return func() tea.Msg {
			return editorFinishedMsg{err: fmt.Errorf("write merged before editor: %w", err)}
		}
	}
	cmd := exec.Command(editor, m.opts.MergedPath)
	return tea.ExecProcess(cmd, func(err error) tea.Msg {
		if err != nil {
			return editorFinishedMsg{err: fmt.Errorf("editor failed: %w", err)}
		}
		return editorFinishedMsg{}
	})
}

// reloadFromEditor applies the edited MERGED file to the output as manual
// edits.
func (m *model) reloadFromEditor() error {
	data, err := os.ReadFile(m.opts.MergedPath)
	if err != nil {
		return fmt.Errorf("read edited file: %w", err)
	}
	return m.session.ReplaceOutput(m.ctx, textdoc.Split(data).Lines)
}

func (m *model) reloadInputs() tea.Cmd {
	in, content, err := engine.ReadInput(m.files)
	if err != nil {
		return m.showToast(fmt.Sprintf("Reload failed: %v", err))
	}
	m.content = content
	m.session.RediffAsync(m.ctx, in)
	m.syncSession()
	return m.showToast("Inputs changed, recomputing")
}

// syncSession refreshes the panes after session callbacks and returns a
// toast for the latest notice.
func (m *model) syncSession() tea.Cmd {
	if !m.events.dirty {
		return nil
	}
	if m.events.reset {
		m.clampCurrent()
		m.pendingScroll = true
	}
	var cmd tea.Cmd
	if n := len(m.events.notices); n > 0 {
		cmd = m.showToast(m.events.notices[n-1])
	}
	*m.events = sessionEvents{}
	m.updateViewports()
	return cmd
}

func (m *model) clampCurrent() {
	if m.current >= m.session.ChangeCount() {
		m.current = m.session.ChangeCount() - 1
	}
	if m.current < 0 {
		m.current = 0
	}
}

func (m *model) move(delta int, unresolvedOnly bool) {
	n := m.session.ChangeCount()
	for i := m.current + delta; i >= 0 && i < n; i += delta {
		ch, _ := m.session.Change(i)
		if unresolvedOnly && ch.IsResolved() {
			continue
		}
		m.current = i
		m.pendingScroll = true
		m.updateViewports()
		return
	}
}

// handleKey runs the action bound to key. handled is false for keys that
// should reach the viewports.
func (m *model) handleKey(key string) (cmd tea.Cmd, handled bool) {
	s := m.session
	report := func(err error, ok string) tea.Cmd {
		if err != nil {
			return m.showToast(err.Error())
		}
		if ok == "" {
			return nil
		}
		return m.showToast(ok)
	}
	hasChange := s.ChangeCount() > 0

	switch key {
	case "n":
		m.move(1, false)
	case "p":
		m.move(-1, false)
	case "]":
		m.move(1, true)
	case "[":
		m.move(-1, true)
	case "h", "H":
		if hasChange {
			cmd = report(s.AcceptSide(m.current, engine.Left, key == "H"), "")
		}
	case "l", "L":
		if hasChange {
			cmd = report(s.AcceptSide(m.current, engine.Right, key == "L"), "")
		}
	case "x":
		if hasChange {
			cmd = report(s.IgnoreSide(m.current, engine.Left, false), "")
		}
	case "X":
		if hasChange {
			cmd = report(s.IgnoreSide(m.current, engine.Right, false), "")
		}
	case "m":
		if hasChange {
			ok, err := s.ResolveAutomatically(m.current)
			switch {
			case err != nil:
				cmd = report(err, "")
			case !ok:
				cmd = m.showToast("Cannot resolve this hunk automatically")
			}
		}
	case "A":
		n, err := s.ApplyNonConflicting(engine.Base)
		cmd = report(err, fmt.Sprintf("Applied %d non-conflicting hunks", n))
	case "R":
		n, err := s.ApplyResolvableConflicts()
		cmd = report(err, fmt.Sprintf("Merged %d conflicts", n))
	case "r":
		if hasChange {
			err := s.Reset(m.current)
			if errors.Is(err, engine.ErrNotResettable) {
				cmd = m.showToast("Only automatic resolutions can be reset")
			} else {
				cmd = report(err, "")
			}
		}
	case "u":
		if err := s.Undo(); errors.Is(err, undo.ErrNothingToUndo) {
			cmd = m.showToast("Nothing to undo")
		} else {
			cmd = report(err, "")
		}
	case "ctrl+r":
		if err := s.Redo(); errors.Is(err, undo.ErrNothingToRedo) {
			cmd = m.showToast("Nothing to redo")
		} else {
			cmd = report(err, "")
		}
	case "i":
		policy := s.Policy().Next()
		s.SetPolicy(policy)
		s.RediffAsync(m.ctx, s.Input())
		cmd = m.showToast("Ignore policy: " + policy.String())
	case "d":
		s.SetInnerDiff(!s.InnerDiffEnabled())
		state := "off"
		if s.InnerDiffEnabled() {
			state = "on"
		}
		cmd = m.showToast("Word differences " + state)
	case "w":
		remaining, err := m.writeResolved()
		if err != nil {
			m.err = fmt.Errorf("failed to write resolved: %w", err)
			m.quitting = true
			return tea.Quit, true
		}
		if remaining > 0 {
			cmd = m.showToast(fmt.Sprintf("Saved with %d conflicts", remaining))
		} else {
			cmd = m.showToast("Saved")
		}
	case "e":
		return m.openEditor(), true
	default:
		return nil, false
	}

	if sync := m.syncSession(); sync != nil {
		cmd = tea.Batch(cmd, sync)
	}
	return cmd, true
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case runMsg:
		msg.fn()
		return m, m.syncSession()

	case editorFinishedMsg:
		if msg.err != nil {
			m.err = fmt.Errorf("editor workflow failed: %w", msg.err)
			m.quitting = true
			return m, tea.Quit
		}
		if err := m.reloadFromEditor(); err != nil {
			return m, m.showToast(fmt.Sprintf("Reload after editor failed: %v", err))
		}
		m.events.dirty = true
		return m, m.syncSession()

	case inputsChangedMsg:
		glog.V(1).Infof("input changed: %s", msg.path)
		m.reloadSeq++
		seq := m.reloadSeq
		return m, tea.Tick(reloadDelay, func(time.Time) tea.Msg {
			return reloadMsg{id: seq}
		})

	case reloadMsg:
		if msg.id != m.reloadSeq {
			return m, nil
		}
		return m, m.reloadInputs()

	case toastExpiredMsg:
		if msg.id == m.toastSeq {
			m.toastMessage = ""
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q":
			m.err = ErrBackToSelector
			m.quitting = true
			return m, tea.Quit
		case "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}
		if m.session == nil {
			return m, nil
		}
		if cmd, handled := m.handleKey(msg.String()); handled {
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		headerHeight := 2
		footerHeight := 3
		contentHeight := max(m.height-headerHeight-footerHeight-6, 1) // borders + padding
		paneWidth := max((m.width-12)/3, 1)                         // 3 panes with borders

		if !m.ready {
			m.viewportOurs = viewport.New(paneWidth, contentHeight)
			m.viewportResult = viewport.New(paneWidth, contentHeight)
			m.viewportTheirs = viewport.New(paneWidth, contentHeight)
			m.ready = true
		} else {
			for _, vp := range []*viewport.Model{&m.viewportOurs, &m.viewportResult, &m.viewportTheirs} {
				vp.Width = paneWidth
				vp.Height = contentHeight
			}
		}
		m.updateViewports()
	}

	// Update viewports
	m.viewportOurs, cmd = m.viewportOurs.Update(msg)
	cmds = append(cmds, cmd)
	m.viewportResult, cmd = m.viewportResult.Update(msg)
	cmds = append(cmds, cmd)
	m.viewportTheirs, cmd = m.viewportTheirs.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m model) View() string {
	if !m.ready {
		return "\n  Initializing..."
	}

	if m.quitting {
		if m.err != nil {
			if errors.Is(m.err, ErrBackToSelector) {
				return "\n  Returning to selector...\n"
			}
			return fmt.Sprintf("\n  Error: %v\n", m.err)
		}
		return "\n  Bye.\n"
	}

	s := m.session
	header := headerStyle.Render(truncate(m.headerText(), m.width-4))

	statusLabel := "No differences"
	statusStyle := statusResolvedStyle
	var ch *engine.Change
	if s.ChangeCount() > 0 {
		ch, _ = s.Change(m.current)
		statusLabel = statusText(s, ch)
		if !ch.IsResolved() {
			statusStyle = statusUnresolvedStyle
		}
	}

	oursPane := m.renderSidePane(engine.Left, ch, m.viewportOurs)
	theirsPane := m.renderSidePane(engine.Right, ch, m.viewportTheirs)

	resultStyle := resultUnresolvedPaneStyle
	if s.UnresolvedCount() == 0 {
		resultStyle = resultResolvedPaneStyle
	}
	resultTitle := resultTitleStyle.Render("RESULT " + statusStyle.Render("("+statusLabel+")"))
	resultPane := resultStyle.Render(resultTitle + "\n" + m.viewportResult.View())

	panes := lipgloss.JoinHorizontal(lipgloss.Top, oursPane, resultPane, theirsPane)

	undoInfo := ""
	if m.log != nil && m.log.UndoDepth() > 0 {
		undoInfo = fmt.Sprintf(" | undo: %d", m.log.UndoDepth())
	}
	help := "n/p: hunk | ]/[: unresolved | h/l: accept (H/L force) | x/X: ignore | m: merge | A: apply | R: resolvable | r: reset | u/^r: undo/redo | i: policy | d: words | e: editor | w: write | q: back" + undoInfo
	footerText := footerStyle.Width(m.width).Render(truncate(help, m.width-4))
	footer := lipgloss.JoinVertical(lipgloss.Left, footerText, m.renderToastLine())

	return lipgloss.JoinVertical(lipgloss.Left, header, panes, footer)
}

func (m model) headerText() string {
	s := m.session
	position := "no hunks"
	if n := s.ChangeCount(); n > 0 {
		position = fmt.Sprintf("Hunk %d/%d", m.current+1, n)
	}
	text := fmt.Sprintf("%s - %s | %d unresolved | %d conflicts | ignore: %s",
		m.opts.MergedPath, position, s.UnresolvedCount(), s.ConflictCount(), s.Policy())
	if s.Loading() {
		text += " | computing..."
	}
	return text
}

func (m model) renderSidePane(side engine.Side, ch *engine.Change, vp viewport.Model) string {
	name, label := "OURS", m.cfg.Labels.Ours
	if side == engine.Right {
		name, label = "THEIRS", m.cfg.Labels.Theirs
	}
	title := name
	if label != "" {
		title = fmt.Sprintf("%s (%s)", name, label)
	}
	style := sidePaneStyle
	if ch != nil && ch.IsChange(side) && ch.IsResolvedSide(side) {
		style = selectedSidePaneStyle
	}
	return style.Render(titleStyle.Render(truncate(title, vp.Width)) + "\n" + vp.View())
}

func (m model) renderToastLine() string {
	content := ""
	if m.toastMessage != "" {
		content = toastStyle.Render(m.toastMessage)
	}
	return toastLineStyle.Width(m.width).Render(content)
}

func truncate(s string, width int) string {
	if width <= 0 {
		return s
	}
	return runewidth.Truncate(s, width, "…")
}

func (m *model) updateViewports() {
	if !m.ready || m.session == nil {
		return
	}
	styles := currentLineStyles()

	oursLines, oursStart := buildSidePane(m.session, engine.Left, m.current)
	m.viewportOurs.SetContent(renderLines(oursLines, styles))
	theirsLines, theirsStart := buildSidePane(m.session, engine.Right, m.current)
	m.viewportTheirs.SetContent(renderLines(theirsLines, styles))
	resultLines, resultStart := buildResultPane(m.session, m.current)
	m.viewportResult.SetContent(renderLines(resultLines, styles))

	if m.pendingScroll {
		ensureVisible(&m.viewportOurs, oursStart, len(oursLines))
		ensureVisible(&m.viewportTheirs, theirsStart, len(theirsLines))
		ensureVisible(&m.viewportResult, resultStart, len(resultLines))
		m.pendingScroll = false
	}
}

func ensureVisible(viewportModel *viewport.Model, start int, total int) {
	if viewportModel.Height <= 0 {
		return
	}
	if total <= 0 {
		viewportModel.SetYOffset(0)
		return
	}

	maxOffset := max(total-viewportModel.Height, 0)
	margin := 2
	target := min(max(start-margin, 0), maxOffset)
	viewportModel.SetYOffset(target)
}
