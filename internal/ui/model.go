// ABOUTME: Bubbletea model for the conversion progress TUI
// ABOUTME: Tracks per-source progress and renders it with lipgloss
package ui

import (
	"fmt"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tonietools/tonieconv/internal/pipeline"
)

const (
	boxWidth = 56
	barWidth = 16
)

var (
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1).
			Width(boxWidth)
	titleStyle = lipgloss.NewStyle().Bold(true)
	doneStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	dimStyle   = lipgloss.NewStyle().Faint(true)
)

type sourceState int

const (
	statePending sourceState = iota
	stateRunning
	stateDone
	stateFailed
)

type sourceRow struct {
	path    string
	state   sourceState
	percent int
	known   bool
	skipped int
	format  string
}

// Model represents the TUI state
type Model struct {
	output  string
	format  string
	sources []sourceRow

	// Result
	finished bool
	err      error
	chapters int

	// Dimensions
	width  int
	height int
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case ProgressMsg:
		m.applyProgress(msg)
	case SourceDoneMsg:
		m.applySourceDone(msg)
	case DoneMsg:
		m.finished = true
		m.err = msg.Err
		m.chapters = msg.Summary.Chapters
		return m, tea.Quit
	}

	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s\n", titleStyle.Render("tonieconv"))
	fmt.Fprintf(&b, "Output: %s (%s)\n\n", truncate(m.output, boxWidth-20), m.format)

	for i, s := range m.sources {
		b.WriteString(m.renderSource(i, s))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.renderFooter())

	return boxStyle.Render(b.String()) + "\n"
}

func (m Model) renderSource(i int, s sourceRow) string {
	name := truncate(filepath.Base(s.path), 22)
	var status string
	switch s.state {
	case statePending:
		status = dimStyle.Render("waiting")
	case stateRunning:
		if s.known {
			status = fmt.Sprintf("[%s] %3d%%", renderBar(s.percent, 100, barWidth), s.percent)
		} else {
			status = "converting..."
		}
	case stateDone:
		status = doneStyle.Render("done")
		if s.skipped > 0 {
			status += dimStyle.Render(fmt.Sprintf(" (%d packets skipped)", s.skipped))
		}
	case stateFailed:
		status = errStyle.Render("failed")
	}
	return fmt.Sprintf("%2d. %-22s %s", i+1, name, status)
}

func (m Model) renderFooter() string {
	switch {
	case m.finished && m.err != nil:
		return errStyle.Render("Error: " + m.err.Error())
	case m.finished:
		return doneStyle.Render(fmt.Sprintf("Finished, %d chapters", m.chapters+1))
	default:
		return dimStyle.Render("q: hide progress")
	}
}

// handleKey handles keyboard input. Quitting only closes the view; the
// conversion runs to completion.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) applyProgress(msg ProgressMsg) {
	if msg.Index < 0 || msg.Index >= len(m.sources) {
		return
	}
	s := &m.sources[msg.Index]
	s.state = stateRunning
	s.known = msg.Known
	if msg.Known {
		s.percent = msg.Percent
	}
}

func (m *Model) applySourceDone(msg SourceDoneMsg) {
	if msg.Index < 0 || msg.Index >= len(m.sources) {
		return
	}
	s := &m.sources[msg.Index]
	if msg.Err != nil {
		s.state = stateFailed
		return
	}
	s.state = stateDone
	s.percent = 100
	s.skipped = msg.Stats.Skipped()
	s.format = msg.Stats.Format.String()
}

// ProgressMsg reports progress of one source
type ProgressMsg pipeline.Progress

// SourceDoneMsg reports the end of one source
type SourceDoneMsg struct {
	Index int
	Stats pipeline.Stats
	Err   error
}

// DoneMsg ends the program
type DoneMsg struct {
	Summary pipeline.Summary
	Err     error
}

// Utility functions
func renderBar(value, max, width int) string {
	if max <= 0 {
		return strings.Repeat("░", width)
	}
	filled := (value * width) / max
	if filled > width {
		filled = width
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}
