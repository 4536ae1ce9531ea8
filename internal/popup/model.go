// Package popup is the compact terminal shell of DeepGuard. It drives its
// own workflow controller and renders from its snapshots.
package popup

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kdimtricp/deepguard/internal/logger"
	"github.com/kdimtricp/deepguard/internal/media"
	"github.com/kdimtricp/deepguard/internal/workflow"
)

// Options configures the popup.
type Options struct {
	Controller *workflow.Controller
	WebsiteURL string
	// ReadFile loads the selected path. Defaults to media.ReadFile.
	ReadFile func(path string) (media.File, error)
}

type snapshotMsg workflow.Snapshot

type closedMsg struct{}

// Model is the popup's Bubble Tea state.
type Model struct {
	ctrl        *workflow.Controller
	updates     <-chan workflow.Snapshot
	unsubscribe func()
	readFile    func(string) (media.File, error)
	website     string

	snap   workflow.Snapshot
	status string

	input   textinput.Model
	spinner spinner.Model
	help    help.Model
	keys    keyMap
	styles  styles

	quitting bool
}

func New(opts Options) Model {
	readFile := opts.ReadFile
	if readFile == nil {
		readFile = media.ReadFile
	}

	ti := textinput.New()
	ti.Placeholder = "path/to/image-or-video"
	ti.Prompt = "File: "
	ti.CharLimit = 4096
	ti.Width = 40
	ti.Focus()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(colorAccent)

	updates, unsubscribe := opts.Controller.Subscribe()

	return Model{
		ctrl:        opts.Controller,
		updates:     updates,
		unsubscribe: unsubscribe,
		readFile:    readFile,
		website:     opts.WebsiteURL,
		snap:        opts.Controller.Snapshot(),
		input:       ti,
		spinner:     s,
		help:        help.New(),
		keys:        defaultKeyMap(),
		styles:      defaultStyles(),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitForSnapshot(m.updates))
}

func waitForSnapshot(updates <-chan workflow.Snapshot) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-updates
		if !ok {
			return closedMsg{}
		}
		return snapshotMsg(snap)
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		return m, nil

	case snapshotMsg:
		wasBusy := m.snap.Busy()
		m.apply(workflow.Snapshot(msg))
		cmds := []tea.Cmd{waitForSnapshot(m.updates)}
		if m.snap.Busy() && !wasBusy {
			cmds = append(cmds, m.spinner.Tick)
		}
		return m, tea.Batch(cmds...)

	case closedMsg:
		m.quitting = true
		return m, tea.Quit

	case spinner.TickMsg:
		if !m.snap.Busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	if m.input.Focused() {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" || (!m.input.Focused() && key.Matches(msg, m.keys.Quit)) {
		return m.quit()
	}

	keys := m.keys.forState(m.snap.State)
	switch {
	case key.Matches(msg, keys.Select):
		return m.selectFile()
	case m.input.Focused():
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	case key.Matches(msg, keys.Detect):
		err := m.ctrl.StartAnalysis()
		return m.afterCommand(err, m.spinner.Tick)
	case key.Matches(msg, keys.Retry):
		err := m.ctrl.Retry()
		return m.afterCommand(err, m.spinner.Tick)
	case key.Matches(msg, keys.Change):
		m.ctrl.Reset()
		m.input.SetValue("")
		return m.afterCommand(nil, m.input.Focus())
	}
	return m, nil
}

func (m Model) selectFile() (tea.Model, tea.Cmd) {
	path := strings.TrimSpace(m.input.Value())

	var f media.File
	if path != "" {
		var err error
		f, err = m.readFile(path)
		if err != nil {
			logger.Warn("popup file read failed", "path", path, "error", err)
			m.status = "Error reading file"
			return m, nil
		}
	}

	return m.afterCommand(m.ctrl.SelectFile(f), nil)
}

// afterCommand refreshes the view from the controller once a command ran.
// Validation problems are already part of the snapshot notice.
func (m Model) afterCommand(err error, next tea.Cmd) (tea.Model, tea.Cmd) {
	m.status = ""
	if err != nil && !errors.Is(err, workflow.ErrBusy) {
		logger.Debug("popup command rejected", "state", m.snap.State, "error", err)
	}
	m.apply(m.ctrl.Snapshot())
	if err != nil {
		return m, nil
	}
	return m, next
}

func (m *Model) apply(snap workflow.Snapshot) {
	if snap.Version < m.snap.Version {
		return
	}
	m.snap = snap
	if snap.State == workflow.Idle {
		if !m.input.Focused() {
			m.input.Focus()
		}
	} else {
		m.input.Blur()
	}
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.quitting = true
	m.unsubscribe()
	return m, tea.Quit
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	st := m.styles
	var b strings.Builder

	b.WriteString(st.Title.Render("DeepGuard"))
	b.WriteString("\n")
	b.WriteString(st.Subtitle.Render("Deepfake detection"))
	b.WriteString("\n\n")

	switch m.snap.State {
	case workflow.Idle:
		b.WriteString("Select an image or video to analyze\n")
		b.WriteString(m.input.View())
		b.WriteString("\n")
		b.WriteString(st.Muted.Render(m.ctrl.Policy().Describe()))
		b.WriteString("\n")
	case workflow.Ready:
		b.WriteString(m.renderAsset())
	case workflow.Analyzing:
		b.WriteString(m.renderAsset())
		fmt.Fprintf(&b, "%s Analyzing media...\n", m.spinner.View())
	case workflow.Succeeded:
		b.WriteString(m.renderAsset())
		b.WriteString(m.renderResult())
	case workflow.Failed:
		b.WriteString(m.renderAsset())
		if m.snap.Error != nil {
			b.WriteString(st.Error.Render(m.snap.Error.Message))
			b.WriteString("\n")
		}
	}

	if m.status != "" {
		b.WriteString(st.Notice.Render(m.status))
		b.WriteString("\n")
	} else if m.snap.Notice != nil {
		b.WriteString(st.Notice.Render(m.snap.Notice.Message))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys.forState(m.snap.State)))
	b.WriteString("\n")
	if m.website != "" {
		b.WriteString(st.Link.Render("Visit DeepGuard Website"))
		b.WriteString(st.Muted.Render(" " + m.website))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderAsset() string {
	a := m.snap.Asset
	if a == nil {
		return ""
	}
	details := m.styles.Muted.Render(fmt.Sprintf("%s, %s", a.Category, a.FormattedSize()))
	return m.styles.Card.Render(a.Name+"\n"+details) + "\n"
}

func (m Model) renderResult() string {
	r := m.snap.Result
	if r == nil {
		return ""
	}
	card, headline := m.styles.verdict(r.IsSynthetic)

	var body strings.Builder
	body.WriteString(headline.Render(r.Verdict()))
	fmt.Fprintf(&body, "\nConfidence: %s", r.ConfidenceText())
	for _, ind := range r.Indicators() {
		fmt.Fprintf(&body, "\n  • %s", ind)
	}
	return card.Render(body.String()) + "\n"
}

// Run starts the popup on the terminal and blocks until the user quits or
// ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	p := tea.NewProgram(New(opts), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
