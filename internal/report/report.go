// Package report turns search results into human-readable output for
// the batch host. An unattainable target shows up here as data, never as
// an error: one stubborn image must not abort a batch.
package report

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

// AdvisoryLimit flags outputs above the common 10 MiB mail-attachment
// ceiling, independent of whatever target was configured.
const AdvisoryLimit = 10 * 1024 * 1024

// Image is one processed source image.
type Image struct {
	Source     string
	Output     string
	InputSize  int64
	OutputSize int64
	Fidelity   float64
	Variant    string
	Pass       bool
	Err        error
}

// SavedPercent is the size reduction relative to the input.
func (r *Image) SavedPercent() float64 {
	if r.InputSize <= 0 {
		return 0
	}
	return (1 - float64(r.OutputSize)/float64(r.InputSize)) * 100
}

// Oversized reports whether the output trips the fixed advisory limit.
func (r *Image) Oversized() bool {
	return r.OutputSize > AdvisoryLimit
}

// Line renders one report line.
func (r *Image) Line() string {
	if r.Err != nil {
		return fmt.Sprintf("%s: error: %v", r.Source, r.Err)
	}

	status := "ok"
	if !r.Pass {
		status = "over target"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s -> %s (%+.1f%%) fidelity %.2f %s [%s]",
		r.Source,
		humanize.IBytes(uint64(r.InputSize)),
		humanize.IBytes(uint64(r.OutputSize)),
		-r.SavedPercent(),
		r.Fidelity,
		r.Variant,
		status,
	)
	if r.Oversized() {
		fmt.Fprintf(&b, " ! exceeds %s advisory limit", humanize.IBytes(AdvisoryLimit))
	}
	return b.String()
}

// Summary aggregates a whole batch.
type Summary struct {
	Total      int
	Passed     int
	Fallbacks  int
	Errors     int
	InputSize  int64
	OutputSize int64
}

// Summarize folds per-image results into batch totals.
func Summarize(images []Image) Summary {
	var s Summary
	for i := range images {
		r := &images[i]
		s.Total++
		switch {
		case r.Err != nil:
			s.Errors++
		case r.Pass:
			s.Passed++
		default:
			s.Fallbacks++
		}
		s.InputSize += r.InputSize
		s.OutputSize += r.OutputSize
	}
	return s
}

func (s Summary) String() string {
	saved := 0.0
	if s.InputSize > 0 {
		saved = (1 - float64(s.OutputSize)/float64(s.InputSize)) * 100
	}
	return fmt.Sprintf("%d images: %d ok, %d over target, %d errors; %s -> %s (%.1f%% saved)",
		s.Total, s.Passed, s.Fallbacks, s.Errors,
		humanize.IBytes(uint64(s.InputSize)),
		humanize.IBytes(uint64(s.OutputSize)),
		saved,
	)
}
