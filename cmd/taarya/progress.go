package main

import (
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
)

// rowProgress renders an ingest counter on stderr. The total row count is not
// known up front, so the bar runs in spinner mode.
type rowProgress struct {
	bar *progressbar.ProgressBar
}

func newRowProgress(description string, quiet bool) *rowProgress {
	if quiet {
		return &rowProgress{}
	}
	bar := progressbar.NewOptions64(
		-1,
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("rows"),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(os.Stderr, "\n")
		}),
		progressbar.OptionSetRenderBlankState(true),
	)
	return &rowProgress{bar: bar}
}

// Add advances the counter by n rows.
func (p *rowProgress) Add(n int) {
	if p.bar != nil {
		_ = p.bar.Add(n)
	}
}

// Finish completes the bar.
func (p *rowProgress) Finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}
