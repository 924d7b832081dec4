package pipeline

import (
	"image"
	"io"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/khaledhikmat/vs-bench/model"
)

type stubSource struct {
	frames int
	meta   model.VideoMetadata
	failAt int // 1-based read that fails with ErrFrameRead, 0 never
	reads  int
	closed bool
}

func newStubSource(frames, total int) *stubSource {
	return &stubSource{
		frames: frames,
		meta:   model.VideoMetadata{Path: "stub.mp4", TotalFrames: total, FPS: 30, Width: 64, Height: 48},
	}
}

func (s *stubSource) Metadata() model.VideoMetadata {
	return s.meta
}

func (s *stubSource) Next() (FrameData, error) {
	if s.reads >= s.frames {
		return FrameData{}, io.EOF
	}
	s.reads++
	if s.failAt > 0 && s.reads == s.failAt {
		return FrameData{}, model.GenError(framerName, model.ErrFrameRead, nil, "stub decode failure")
	}
	return FrameData{
		Mat:   blankFrame(48, 64),
		Index: s.reads,
	}, nil
}

func (s *stubSource) Close() error {
	s.closed = true
	return nil
}

func (s *stubSource) opener() SourceOpener {
	return func(string) (FrameSource, error) { return s, nil }
}

// stubDetector answers with boxesFor(call), call being 0-based.
type stubDetector struct {
	boxesFor func(call int) ([]image.Rectangle, error)
	calls    int
	closed   bool
	params   []DetectParams
}

func (d *stubDetector) Detect(gray gocv.Mat, params DetectParams) ([]image.Rectangle, error) {
	call := d.calls
	d.calls++
	d.params = append(d.params, params)
	if d.boxesFor == nil {
		return nil, nil
	}
	return d.boxesFor(call)
}

func (d *stubDetector) Close() error {
	d.closed = true
	return nil
}

func (d *stubDetector) loader() DetectorLoader {
	return func(string) (Detector, error) { return d, nil }
}

// votingDetector keeps the candidates backed by at least MinNeighbors votes.
type votingDetector struct {
	candidates []votedBox
}

type votedBox struct {
	rect  image.Rectangle
	votes int
}

func (d *votingDetector) Detect(_ gocv.Mat, params DetectParams) ([]image.Rectangle, error) {
	var out []image.Rectangle
	for _, c := range d.candidates {
		if c.votes >= params.MinNeighbors {
			out = append(out, c.rect)
		}
	}
	return out, nil
}

func (d *votingDetector) Close() error { return nil }

type stubDisplay struct {
	cancelAt int // 1-based shown frame that requests cancellation, 0 never
	shown    int
	closed   bool
}

func (d *stubDisplay) Show(gocv.Mat) bool {
	d.shown++
	return d.cancelAt > 0 && d.shown == d.cancelAt
}

func (d *stubDisplay) Close() error {
	d.closed = true
	return nil
}

func (d *stubDisplay) opener() DisplayOpener {
	return func(string, time.Duration, []int) (Display, error) { return d, nil }
}

type recordingReporter struct {
	progress  []model.ProgressReport
	frames    []model.FrameStats
	summaries []model.Summary
}

func (r *recordingReporter) Progress(p model.ProgressReport) { r.progress = append(r.progress, p) }
func (r *recordingReporter) Frame(f model.FrameStats) { r.frames = append(r.frames, f) }
func (r *recordingReporter) Summary(s model.Summary) { r.summaries = append(r.summaries, s) }

type recordingSink struct {
	frames []int
	boxes  int
}

func (s *recordingSink) Record(frame int, boxes []image.Rectangle) error {
	s.frames = append(s.frames, frame)
	s.boxes += len(boxes)
	return nil
}

// fakeClock advances by step every time it is read.
type fakeClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func newFakeClock(step time.Duration) *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), step: step}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(c.step)
	return c.now
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
