package pipeline

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"

	"github.com/khaledhikmat/vs-bench/model"
)

// Progress extrapolates the remaining time linearly from the average cost of
// the frames processed so far. Percent and remaining time stay zero when the
// total frame count is unknown.
func Progress(stats model.LoopStats, totalFrames int, now time.Time) model.ProgressReport {
	elapsed := now.Sub(stats.StartTime)
	report := model.ProgressReport{
		Frames:      stats.Frames,
		TotalFrames: totalFrames,
		HasTotal:    totalFrames > 0,
		Elapsed:     elapsed,
	}
	if !report.HasTotal || stats.Frames == 0 {
		return report
	}

	report.Percent = float64(stats.Frames) / float64(totalFrames) * 100
	estimatedTotal := time.Duration(float64(elapsed) * float64(totalFrames) / float64(stats.Frames))
	report.Remaining = estimatedTotal - elapsed
	if report.Remaining < 0 {
		report.Remaining = 0
	}
	return report
}

// Summarize builds the final figures for a run.
func Summarize(runID string, stats model.LoopStats, state model.LoopState, now time.Time) model.Summary {
	summary := model.Summary{
		RunID:         runID,
		State:         state.String(),
		Frames:        stats.Frames,
		Detections:    stats.Detections,
		Errors:        stats.Errors,
		MinDetectTime: stats.MinDetectTime,
		MaxDetectTime: stats.MaxDetectTime,
		Timestamp:     now.Unix(),
	}
	if !stats.StartTime.IsZero() {
		summary.Elapsed = now.Sub(stats.StartTime)
	}
	if summary.Elapsed > 0 {
		summary.FPS = float64(stats.Frames) / summary.Elapsed.Seconds()
	}
	if detected := stats.Frames - stats.Errors; detected > 0 {
		summary.AvgDetectTime = stats.DetectTime / time.Duration(detected)
	}
	return summary
}

type ConsoleReporter struct {
	out        io.Writer
	verbose    bool
	info       *color.Color
	highlight  *color.Color
	warn       *color.Color
	successful *color.Color
}

// NewConsoleReporter prints line oriented progress to out. Per frame
// latency lines are printed only when verbose is set.
func NewConsoleReporter(out io.Writer, verbose bool) *ConsoleReporter {
	return &ConsoleReporter{
		out:        out,
		verbose:    verbose,
		info:       color.New(color.FgCyan),
		highlight:  color.New(color.FgWhite, color.Bold),
		warn:       color.New(color.FgYellow),
		successful: color.New(color.FgGreen, color.Bold),
	}
}

func (r *ConsoleReporter) Progress(p model.ProgressReport) {
	if !p.HasTotal {
		r.info.Fprintf(r.out, "Processed %d frames\n", p.Frames)
		return
	}
	r.info.Fprintf(r.out, "Processed %d/%d frames (%.2f%% complete) - Estimated time left: %.2f seconds\n",
		p.Frames, p.TotalFrames, p.Percent, p.Remaining.Seconds())
}

func (r *ConsoleReporter) Frame(f model.FrameStats) {
	if f.Err != nil {
		r.warn.Fprintf(r.out, "Frame %d: detection failed: %v\n", f.Index, f.Err)
		return
	}
	if !r.verbose {
		return
	}
	fmt.Fprintf(r.out, "Frame %d: %d detections in %.4f seconds\n", f.Index, f.Detections, f.Latency.Seconds())
}

func (r *ConsoleReporter) Summary(s model.Summary) {
	c := r.successful
	if s.State != model.StateCompleted.String() {
		c = r.warn
	}
	c.Fprintf(r.out, "Run %s %s\n", s.RunID, s.State)
	r.highlight.Fprintf(r.out, "Processed %d frames in %.2f seconds (%.2f FPS)\n", s.Frames, s.Elapsed.Seconds(), s.FPS)
	r.highlight.Fprintf(r.out, "Total detections: %d\n", s.Detections)
	fmt.Fprintf(r.out, "Detection time avg %.4fs min %.4fs max %.4fs\n",
		s.AvgDetectTime.Seconds(), s.MinDetectTime.Seconds(), s.MaxDetectTime.Seconds())
	if s.Errors > 0 {
		r.warn.Fprintf(r.out, "Frames with detection errors: %d\n", s.Errors)
	}
}
