// ABOUTME: TUI initialization and control
// ABOUTME: Wraps the bubbletea program and feeds it pipeline events
package ui

import (
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tonietools/tonieconv/internal/pipeline"
)

// NewModel creates a new TUI model with every source waiting
func NewModel(output, format string, sources []string) Model {
	rows := make([]sourceRow, len(sources))
	for i, s := range sources {
		rows[i] = sourceRow{path: s}
	}
	return Model{
		output:  output,
		format:  format,
		sources: rows,
	}
}

// Program runs the progress view alongside a conversion
type Program struct {
	p    *tea.Program
	done chan error
}

// Start launches the TUI on out in its own goroutine
func Start(model Model, in io.Reader, out io.Writer) *Program {
	p := tea.NewProgram(model, tea.WithInput(in), tea.WithOutput(out))
	prog := &Program{p: p, done: make(chan error, 1)}
	go func() {
		_, err := p.Run()
		prog.done <- err
	}()
	return prog
}

// Progress forwards a pipeline progress event
func (p *Program) Progress(ev pipeline.Progress) {
	p.p.Send(ProgressMsg(ev))
}

// SourceDone marks a source finished
func (p *Program) SourceDone(index int, stats pipeline.Stats, err error) {
	p.p.Send(SourceDoneMsg{Index: index, Stats: stats, Err: err})
}

// Finish shows the result and waits for the program to exit
func (p *Program) Finish(summary pipeline.Summary, err error) error {
	p.p.Send(DoneMsg{Summary: summary, Err: err})
	return <-p.done
}
