package main

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
)

// progressReporter draws the page progress bar and a spinner while the book
// is written to status, and prints the final result line to out.
type progressReporter struct {
	mu      sync.Mutex
	out     io.Writer
	status  io.Writer
	enabled bool

	bar     *progressbar.ProgressBar
	spinner *spinner.Spinner
}

func newProgressReporter(out, status io.Writer, enabled bool) *progressReporter {
	return &progressReporter{out: out, status: status, enabled: enabled}
}

func (r *progressReporter) Progress(current, total int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.enabled {
		return
	}
	if r.bar == nil {
		r.bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(r.status),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "█",
				SaucerHead:    "█",
				SaucerPadding: "░",
				BarStart:      "│",
				BarEnd:        "│",
			}),
			progressbar.OptionOnCompletion(func() {
				fmt.Fprint(r.status, "\n")
			}),
		)
	}
	r.bar.Describe(fmt.Sprintf("Processing page: %d/%d", current, total))
	_ = r.bar.Set(current)

	if current == total && r.spinner == nil {
		r.spinner = spinner.New(spinner.CharSets[14], 100*time.Millisecond,
			spinner.WithWriter(r.status),
			spinner.WithSuffix(" Writing EPUB"),
		)
		r.spinner.Start()
	}
}

func (r *progressReporter) Success(outputPath string) {
	r.finish()
	color.New(color.FgGreen).Fprintf(r.out, "✓ EPUB created: %s\n", outputPath)
}

func (r *progressReporter) Failure(reason string) {
	r.finish()
	color.New(color.FgRed).Fprintf(r.out, "✗ Conversion failed: %s\n", reason)
}

func (r *progressReporter) finish() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.spinner != nil {
		r.spinner.Stop()
		r.spinner = nil
	}
	if r.bar != nil && !r.bar.IsFinished() {
		_ = r.bar.Exit()
	}
}
