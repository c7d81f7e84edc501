// ABOUTME: Multi-source orchestrator composing sources into chapters
// ABOUTME: Runs the pipeline per source in order and finalizes the writer once
package pipeline

import (
	"fmt"
	"log/slog"
)

// Summary describes a completed run.
type Summary struct {
	Sources  []Stats
	Chapters int // number of chapter boundaries written
}

// Orchestrator sequences a Pipeline over several sources.
type Orchestrator struct {
	pipeline *Pipeline
}

// NewOrchestrator returns an orchestrator driving p.
func NewOrchestrator(p *Pipeline) *Orchestrator {
	return &Orchestrator{pipeline: p}
}

// Run converts primary and then each secondary, separating them with chapter
// boundaries. The writer is finalized once after every source succeeded; on
// failure the partially written output is left as is.
func (o *Orchestrator) Run(primary string, secondaries []string) (Summary, error) {
	var summary Summary
	p := o.pipeline

	stats, err := p.run(0, primary)
	summary.Sources = append(summary.Sources, stats)
	if err != nil {
		return summary, err
	}

	for i, path := range secondaries {
		if err := p.sink.NewChapter(); err != nil {
			return summary, fmt.Errorf("new chapter before %s: %w", path, err)
		}
		summary.Chapters++
		p.cfg.Metrics.Chapter()
		p.log.Debug("Chapter boundary", slog.Int("chapter", summary.Chapters+1), slog.String("source", path))

		stats, err := p.run(i+1, path)
		summary.Sources = append(summary.Sources, stats)
		if err != nil {
			return summary, err
		}
	}

	if err := p.sink.Finalize(); err != nil {
		return summary, fmt.Errorf("finalize: %w", err)
	}
	return summary, nil
}
