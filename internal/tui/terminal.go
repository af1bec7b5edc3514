// SPDX-License-Identifier: MIT
package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"spectrum/internal/display"
	"spectrum/internal/log"
	"spectrum/internal/render"
)

var (
	panelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8CCFFF")).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#25A065"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Faint(true)

	quitKeys = key.NewBinding(key.WithKeys("q", "ctrl+c", "esc"))
)

type frameMsg struct {
	seq    uint64
	panel  string
	status string
}

// panelModel shows the latest frame and a status line.
type panelModel struct {
	title  string
	frame  frameMsg
	onQuit func()
}

func (m panelModel) Init() tea.Cmd {
	return nil
}

func (m panelModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case frameMsg:
		m.frame = msg
	case tea.KeyMsg:
		if key.Matches(msg, quitKeys) {
			if m.onQuit != nil {
				m.onQuit()
			}
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m panelModel) View() string {
	if m.frame.panel == "" {
		return titleStyle.Render(m.title) + "\n\nWaiting for the first frame..."
	}
	return fmt.Sprintf("%s\n%s\n%s\n%s",
		titleStyle.Render(m.title),
		panelStyle.Render(m.frame.panel),
		statusStyle.Render(m.frame.status),
		infoStyle.Render("q: Quit"))
}

// TerminalDisplay draws the panel in the terminal with braille characters.
// Pressing q calls the cancel function given to NewTerminalDisplay.
type TerminalDisplay struct {
	cancel  context.CancelFunc
	status  func() string
	options []tea.ProgramOption

	program     *tea.Program
	done        chan struct{}
	orientation render.Orientation
	rotated     *render.FrameBuffer
}

// NewTerminalDisplay returns a terminal sink. status, if non-nil, supplies
// the line shown under the panel on every frame.
func NewTerminalDisplay(cancel context.CancelFunc, status func() string, opts ...tea.ProgramOption) *TerminalDisplay {
	return &TerminalDisplay{cancel: cancel, status: status, options: opts}
}

func (d *TerminalDisplay) Configure(res render.Resolution, o render.Orientation) error {
	if err := res.Validate(); err != nil {
		return err
	}
	d.orientation = o
	d.rotated = render.NewFrameBuffer(res)

	model := panelModel{
		title:  fmt.Sprintf("Spectrum %s", res),
		onQuit: d.cancel,
	}
	opts := append([]tea.ProgramOption{tea.WithAltScreen()}, d.options...)
	d.program = tea.NewProgram(model, opts...)
	d.done = make(chan struct{})

	go func() {
		defer close(d.done)
		if _, err := d.program.Run(); err != nil {
			log.Errorf("TerminalDisplay: %v", err)
		}
		// The terminal is gone; stop the run as if q was pressed.
		if d.cancel != nil {
			d.cancel()
		}
	}()
	return nil
}

// Blit hands the frame to the terminal program. It blocks while the
// program is busy redrawing.
func (d *TerminalDisplay) Blit(fb *render.FrameBuffer) error {
	select {
	case <-d.done:
		return nil
	default:
	}
	render.RotateInto(d.rotated, fb, d.orientation)
	msg := frameMsg{seq: fb.Seq, panel: Braille(d.rotated)}
	if d.status != nil {
		msg.status = d.status()
	}
	d.program.Send(msg)
	return nil
}

// Close quits the terminal program and restores the terminal.
func (d *TerminalDisplay) Close() error {
	if d.program == nil {
		return nil
	}
	d.program.Quit()
	select {
	case <-d.done:
	case <-time.After(time.Second):
		d.program.Kill()
	}
	return nil
}

var _ display.Display = (*TerminalDisplay)(nil)
