// SPDX-License-Identifier: MIT
// Package tui holds the interactive terminal front ends: the device picker
// and the terminal panel display.
package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"spectrum/internal/audio"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5"))

	highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().Faint(true)
)

// ErrCancelled is returned by PickDevice when the user quits without choosing.
var ErrCancelled = errors.New("tui: device selection cancelled")

// Rates offered on the configuration screen.
var sampleRates = []float64{44100, 48000, 88200, 96000}

type keyMap struct {
	Up, Down, Select, Back, Quit key.Binding
}

var keys = keyMap{
	Up:     key.NewBinding(key.WithKeys("up", "k")),
	Down:   key.NewBinding(key.WithKeys("down", "j")),
	Select: key.NewBinding(key.WithKeys("enter")),
	Back:   key.NewBinding(key.WithKeys("esc")),
	Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c")),
}

// screen is the active picker page.
type screen int

const (
	listScreen screen = iota
	rateScreen
)

// Selection is the outcome of the picker.
type Selection struct {
	Device     audio.Device
	SampleRate float64
}

type devicesMsg struct {
	devices []audio.Device
}

type errMsg struct {
	err error
}

// pickerModel lists input devices, then lets the user choose a sample rate.
type pickerModel struct {
	fetch    func() ([]audio.Device, error)
	devices  []audio.Device
	selected int
	rate     int
	screen   screen
	viewport viewport.Model
	ready    bool
	err      error

	chosen *Selection
}

func newPickerModel(fetch func() ([]audio.Device, error), preferredRate float64) pickerModel {
	m := pickerModel{fetch: fetch}
	for i, r := range sampleRates {
		if r == preferredRate {
			m.rate = i
		}
	}
	return m
}

func (m pickerModel) Init() tea.Cmd {
	return func() tea.Msg {
		devices, err := m.fetch()
		if err != nil {
			return errMsg{err}
		}
		return devicesMsg{inputDevices(devices)}
	}
}

// inputDevices keeps the devices that can capture.
func inputDevices(devices []audio.Device) []audio.Device {
	var in []audio.Device
	for _, d := range devices {
		if d.MaxInputChannels > 0 {
			in = append(in, d)
		}
	}
	return in
}

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-4)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 4
		}

	case devicesMsg:
		m.devices = msg.devices

	case errMsg:
		m.err = msg.err
		return m, tea.Quit

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			return m, tea.Quit
		}
		var done bool
		if m, done = m.handleKey(msg); done {
			return m, tea.Quit
		}
	}

	m.viewport.SetContent(m.content())
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// handleKey applies a key press and reports whether a selection was made.
func (m pickerModel) handleKey(msg tea.KeyMsg) (pickerModel, bool) {
	switch m.screen {
	case listScreen:
		switch {
		case key.Matches(msg, keys.Up):
			m.selected = max(m.selected-1, 0)
		case key.Matches(msg, keys.Down):
			m.selected = min(m.selected+1, max(len(m.devices)-1, 0))
		case key.Matches(msg, keys.Select):
			if len(m.devices) > 0 {
				m.screen = rateScreen
			}
		}
	case rateScreen:
		switch {
		case key.Matches(msg, keys.Back):
			m.screen = listScreen
		case key.Matches(msg, keys.Up):
			m.rate = max(m.rate-1, 0)
		case key.Matches(msg, keys.Down):
			m.rate = min(m.rate+1, len(sampleRates)-1)
		case key.Matches(msg, keys.Select):
			m.chosen = &Selection{Device: m.devices[m.selected], SampleRate: sampleRates[m.rate]}
			return m, true
		}
	}
	return m, false
}

func (m pickerModel) View() string {
	if m.err != nil {
		return fmt.Sprintf("Error: %v\n", m.err)
	}
	if !m.ready {
		return "Initializing..."
	}

	var title, help string
	if m.screen == listScreen {
		title = titleStyle.Render("Input Devices")
		help = infoStyle.Render("↑/↓: Navigate • Enter: Choose • q: Quit")
	} else {
		title = titleStyle.Render("Sample Rate")
		help = infoStyle.Render("↑/↓: Change • Enter: Start • Esc: Back • q: Quit")
	}
	return fmt.Sprintf("%s\n\n%s\n\n%s", title, m.viewport.View(), help)
}

func (m pickerModel) content() string {
	if m.screen == rateScreen {
		return m.renderRates()
	}
	return m.renderDevices()
}

func (m pickerModel) renderDevices() string {
	if len(m.devices) == 0 {
		return "No input devices found."
	}

	var sb strings.Builder
	for i, d := range m.devices {
		line := fmt.Sprintf("[%d] %s (%s)\n", d.ID, d.Name, d.HostAPI)
		detail := fmt.Sprintf("    %d input channels, default %.0f Hz, low latency %s\n",
			d.MaxInputChannels, d.DefaultSampleRate, d.LowInputLatency)
		if i == m.selected {
			line = highlightStyle.Render(line)
		} else {
			detail = dimStyle.Render(detail)
		}
		sb.WriteString(line)
		sb.WriteString(detail)
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m pickerModel) renderRates() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Device: %s\n\n", m.devices[m.selected].Name)
	for i, rate := range sampleRates {
		marker := " "
		if i == m.rate {
			marker = "▶"
		}
		line := fmt.Sprintf("  %s %.0f Hz\n", marker, rate)
		if i == m.rate {
			line = highlightStyle.Render(line)
		}
		sb.WriteString(line)
	}
	return sb.String()
}

// PickDevice runs the interactive picker over the host's input devices.
// preferredRate preselects a sample rate when it is one of the offered ones.
func PickDevice(preferredRate float64, opts ...tea.ProgramOption) (Selection, error) {
	return pick(audio.HostDevices, preferredRate, opts...)
}

func pick(fetch func() ([]audio.Device, error), preferredRate float64, opts ...tea.ProgramOption) (Selection, error) {
	opts = append([]tea.ProgramOption{tea.WithAltScreen()}, opts...)
	final, err := tea.NewProgram(newPickerModel(fetch, preferredRate), opts...).Run()
	if err != nil {
		return Selection{}, err
	}
	m := final.(pickerModel)
	if m.err != nil {
		return Selection{}, m.err
	}
	if m.chosen == nil {
		return Selection{}, ErrCancelled
	}
	return *m.chosen, nil
}
