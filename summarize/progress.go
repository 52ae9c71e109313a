package summarize

import (
	"fmt"
	"io"
	"time"

	"github.com/poiesic/chatvault/core"
)

// Outcome is what a run did with one window.
type Outcome int

const (
	// Created means a new summary was generated and saved
	Created Outcome = iota
	// Kept means an existing summary was left in place
	Kept
	// Skipped means the window had no content to summarize
	Skipped
)

func (o Outcome) String() string {
	switch o {
	case Created:
		return "created"
	case Kept:
		return "kept"
	case Skipped:
		return "skipped"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Report accounts for the windows of one session run.
type Report struct {
	Session string        `json:"session"`
	Windows int           `json:"windows"`
	Created int           `json:"created"`
	Kept    int           `json:"kept"`
	Skipped int           `json:"skipped"`
	Elapsed time.Duration `json:"elapsed"`

	// Summaries holds the created and kept summaries in chunk order
	Summaries []*core.MetaSummary `json:"summaries"`
}

// Done returns how many windows have an outcome.
func (r *Report) Done() int {
	return r.Created + r.Kept + r.Skipped
}

// progress fills a Report and rewrites a status line on writer every
// interval windows.
type progress struct {
	writer       io.Writer
	interval     int
	lastReported int
	start        time.Time
	report       Report
}

func newProgress(writer io.Writer, session string, windows, interval int) *progress {
	return &progress{
		writer:   writer,
		interval: max(interval, 1),
		start:    time.Now(),
		report: Report{
			Session:   session,
			Windows:   windows,
			Summaries: make([]*core.MetaSummary, 0, windows),
		},
	}
}

// record counts one window. meta is nil for skipped windows.
func (p *progress) record(outcome Outcome, meta *core.MetaSummary) {
	switch outcome {
	case Created:
		p.report.Created++
	case Kept:
		p.report.Kept++
	case Skipped:
		p.report.Skipped++
	}
	if meta != nil {
		p.report.Summaries = append(p.report.Summaries, meta)
	}

	if done := p.report.Done(); done-p.lastReported >= p.interval {
		p.print()
		p.lastReported = done
	}
}

// stop freezes the elapsed time and returns the report as it stands.
func (p *progress) stop() *Report {
	p.report.Elapsed = time.Since(p.start)
	return &p.report
}

// finish prints the final status line and returns the completed report.
func (p *progress) finish() *Report {
	report := p.stop()
	p.print()
	fmt.Fprintln(p.writer)
	return report
}

func (p *progress) print() {
	r := &p.report
	fmt.Fprintf(p.writer, "\r%s: %d/%d windows (%d created, %d kept, %d skipped)",
		r.Session, r.Done(), r.Windows, r.Created, r.Kept, r.Skipped)
}
