// Package progress reports long-running work (embedding chunks, scoring
// goldens) on stderr.
package progress

import (
	"fmt"
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
)

// Reporter receives progress for a known amount of work. It satisfies
// vectordb.ProgressReporter and the evaluation harness's progress hook.
type Reporter interface {
	Start(total int)
	Update(current int, message string)
	Finish()
}

// NewReporter picks a line-based reporter under CI and a progress bar
// otherwise.
func NewReporter(description string) Reporter {
	if os.Getenv("CI") != "" || os.Getenv("GITHUB_ACTIONS") != "" {
		return &CIReporter{Out: os.Stderr, Description: description}
	}
	return &TerminalReporter{Out: os.Stderr, Description: description}
}

// TerminalReporter draws a progress bar; the latest message is shown as
// the bar's description.
type TerminalReporter struct {
	Out         io.Writer
	Description string
	bar         *progressbar.ProgressBar
}

func (r *TerminalReporter) Start(total int) {
	r.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(r.Out),
		progressbar.OptionSetDescription(r.Description),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionClearOnFinish(),
	)
}

func (r *TerminalReporter) Update(current int, message string) {
	if r.bar == nil {
		return
	}
	if message != "" {
		r.bar.Describe(fmt.Sprintf("%s (%s)", r.Description, message))
	}
	_ = r.bar.Set(current)
}

func (r *TerminalReporter) Finish() {
	if r.bar != nil {
		_ = r.bar.Finish()
	}
}

// CIReporter prints one line per Step items (every item when Step is 0)
// plus the final one.
type CIReporter struct {
	Out         io.Writer
	Description string
	Step        int
	total       int
}

func (r *CIReporter) Start(total int) {
	r.total = total
	fmt.Fprintf(r.Out, "%s: %d items\n", r.Description, total)
}

func (r *CIReporter) Update(current int, message string) {
	if r.Step > 1 && current%r.Step != 0 && current != r.total {
		return
	}
	fmt.Fprintf(r.Out, "[%d/%d] %s\n", current, r.total, message)
}

func (r *CIReporter) Finish() {
	fmt.Fprintf(r.Out, "%s: done\n", r.Description)
}
