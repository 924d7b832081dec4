package pipeline

import (
	"context"
	"errors"
	"image"
	"io"
	"log/slog"
	"time"

	"gocv.io/x/gocv"
	"golang.org/x/xerrors"

	"github.com/khaledhikmat/vs-bench/model"
	"github.com/khaledhikmat/vs-bench/service/config"
	"github.com/khaledhikmat/vs-bench/service/lgr"
)

const loopName = "processing_loop"

type Loop struct {
	cfg       Config
	runID     string
	open      SourceOpener
	load      DetectorLoader
	display   DisplayOpener
	reporter  Reporter
	sink      DetectionSink
	annotator Annotator
	now       func() time.Time

	state model.LoopState
	stats model.LoopStats
}

type Option func(*Loop)

func WithSourceOpener(open SourceOpener) Option {
	return func(l *Loop) { l.open = open }
}

func WithDetectorLoader(load DetectorLoader) Option {
	return func(l *Loop) { l.load = load }
}

func WithDisplayOpener(display DisplayOpener) Option {
	return func(l *Loop) { l.display = display }
}

func WithReporter(r Reporter) Option {
	return func(l *Loop) { l.reporter = r }
}

func WithDetectionSink(s DetectionSink) Option {
	return func(l *Loop) { l.sink = s }
}

func WithRunID(id string) Option {
	return func(l *Loop) { l.runID = id }
}

func WithClock(now func() time.Time) Option {
	return func(l *Loop) { l.now = now }
}

// NewConfig maps the configuration service onto loop settings.
func NewConfig(cfgSvc config.IService) Config {
	return Config{
		ModelPath: cfgSvc.GetModelPath(),
		Params: DetectParams{
			ScaleFactor:  cfgSvc.GetScaleFactor(),
			MinNeighbors: cfgSvc.GetMinNeighbors(),
			MinSize:      image.Pt(cfgSvc.GetMinSize(), cfgSvc.GetMinSize()),
			MaxSize:      image.Pt(cfgSvc.GetMaxSize(), cfgSvc.GetMaxSize()),
		},
		ProgressInterval: cfgSvc.GetProgressInterval(),
		FrameCap:         cfgSvc.GetFrameCap(),
		Headless:         cfgSvc.IsHeadless(),
		WindowName:       cfgSvc.GetWindowName(),
		DisplayWait:      time.Duration(cfgSvc.GetDisplayWaitMillis()) * time.Millisecond,
		CancelKeys:       cfgSvc.GetCancelKeys(),
		Overlay:          cfgSvc.IsOverlayEnabled(),
	}
}

func NewLoop(cfg Config, opts ...Option) *Loop {
	if cfg.ProgressInterval < 1 {
		cfg.ProgressInterval = 10
	}

	l := &Loop{
		cfg:       cfg,
		open:      OpenVideoSource,
		load:      LoadCascadeDetector,
		display:   OpenWindow,
		reporter:  nopReporter{},
		annotator: NewAnnotator(cfg.Overlay),
		now:       time.Now,
		state:     model.StateIdle,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Loop) State() model.LoopState {
	return l.state
}

func (l *Loop) Stats() model.LoopStats {
	return l.stats
}

// Run processes videoPath until the stream ends, the frame cap is reached,
// the viewer cancels or ctx is done. Cancellation is only observed between
// frames. Source, detector and display are released on every exit path.
func (l *Loop) Run(ctx context.Context, videoPath string) Result {
	if l.state != model.StateIdle {
		return l.finish(ctx, model.StateFailed, xerrors.Errorf("loop already ran, state %s", l.state))
	}

	detector, err := l.load(l.cfg.ModelPath)
	if err != nil {
		return l.finish(ctx, model.StateFailed, err)
	}
	defer closeQuietly(ctx, "detector", detector)

	source, err := l.open(videoPath)
	if err != nil {
		return l.finish(ctx, model.StateFailed, err)
	}
	defer closeQuietly(ctx, "source", source)

	var display Display
	if !l.cfg.Headless {
		display, err = l.display(l.cfg.WindowName, l.cfg.DisplayWait, l.cfg.CancelKeys)
		if err != nil {
			return l.finish(ctx, model.StateFailed, model.GenError(loopName, err, nil, "error opening display"))
		}
		defer closeQuietly(ctx, "display", display)
	}

	meta := source.Metadata()
	l.state = model.StateRunning
	l.stats = model.LoopStats{StartTime: l.now()}

	lgr.Logger.InfoContext(ctx,
		"processing loop running",
		slog.String("video", videoPath),
		slog.Int("totalFrames", meta.TotalFrames),
		slog.Float64("scaleFactor", l.cfg.Params.ScaleFactor),
		slog.Int("minNeighbors", l.cfg.Params.MinNeighbors),
		slog.Int("frameCap", l.cfg.FrameCap),
		slog.Bool("headless", display == nil),
	)

	gray := gocv.NewMat()
	defer gray.Close()

	for {
		if l.cfg.FrameCap > 0 && l.stats.Frames >= l.cfg.FrameCap {
			return l.finish(ctx, model.StateCompleted, nil)
		}

		select {
		case <-ctx.Done():
			lgr.Logger.InfoContext(ctx, "processing loop context cancelled")
			return l.finish(ctx, model.StateCancelled, nil)
		default:
		}

		frame, err := source.Next()
		if errors.Is(err, io.EOF) {
			return l.finish(ctx, model.StateCompleted, nil)
		}
		if err != nil {
			return l.finish(ctx, model.StateFailed, err)
		}

		cancelled := l.process(ctx, frame, meta, detector, &gray, display)
		frame.Mat.Close() // Crucial to close the image to avoid memory leaks
		if cancelled {
			lgr.Logger.InfoContext(ctx, "processing cancelled from display", slog.Int("frames", l.stats.Frames))
			return l.finish(ctx, model.StateCancelled, nil)
		}
	}
}

// process runs one iteration over a frame the source delivered and reports
// whether the viewer asked to stop.
func (l *Loop) process(ctx context.Context, frame FrameData, meta model.VideoMetadata, detector Detector, gray *gocv.Mat, display Display) bool {
	l.stats.Frames++

	toGray(frame.Mat, gray)

	start := l.now()
	boxes, err := detector.Detect(*gray, l.cfg.Params)
	latency := l.now().Sub(start)

	fs := model.FrameStats{Index: frame.Index, Latency: latency}
	if err != nil {
		l.stats.Errors++
		fs.Err = err
		lgr.Logger.WarnContext(ctx,
			"detection failed, skipping frame",
			slog.Int("frame", frame.Index),
			lgr.Err(err),
		)
	} else {
		l.stats.RecordDetect(latency)
		l.stats.Detections += len(boxes)
		fs.Detections = len(boxes)
		l.annotator.Annotate(&frame.Mat, boxes,
			OverlayLines(frame.Index, meta.TotalFrames, len(boxes), l.stats.Detections))

		for _, r := range boxes {
			lgr.Logger.DebugContext(ctx, "bounding box",
				slog.Int("frame", frame.Index),
				slog.Int("x", r.Min.X),
				slog.Int("y", r.Min.Y),
				slog.Int("w", r.Dx()),
				slog.Int("h", r.Dy()),
			)
		}

		if l.sink != nil {
			if err := l.sink.Record(frame.Index, boxes); err != nil {
				lgr.Logger.WarnContext(ctx, "error recording detections", lgr.Err(err))
			}
		}
	}
	l.reporter.Frame(fs)

	if l.stats.Frames%l.cfg.ProgressInterval == 0 {
		l.reporter.Progress(Progress(l.stats, meta.TotalFrames, l.now()))
	}

	if display == nil {
		return false
	}
	return display.Show(frame.Mat)
}

func (l *Loop) finish(ctx context.Context, state model.LoopState, err error) Result {
	l.state = state
	summary := Summarize(l.runID, l.stats, state, l.now())

	if err != nil {
		lgr.Logger.ErrorContext(ctx,
			"processing loop failed",
			slog.String("state", state.String()),
			slog.Int("frames", l.stats.Frames),
			lgr.Err(err),
		)
	} else {
		lgr.Logger.InfoContext(ctx,
			"processing loop finished",
			slog.String("state", state.String()),
			slog.Int("frames", summary.Frames),
			slog.Int("detections", summary.Detections),
			slog.Duration("elapsed", summary.Elapsed),
		)
	}

	// Nothing to summarize when startup failed.
	if !l.stats.StartTime.IsZero() {
		l.reporter.Summary(summary)
	}
	return Result{State: state, Summary: summary, Err: err}
}

func toGray(src gocv.Mat, dst *gocv.Mat) {
	switch src.Channels() {
	case 1:
		src.CopyTo(dst)
	case 4:
		gocv.CvtColor(src, dst, gocv.ColorBGRAToGray)
	default:
		gocv.CvtColor(src, dst, gocv.ColorBGRToGray)
	}
}

func closeQuietly(ctx context.Context, what string, c io.Closer) {
	if err := c.Close(); err != nil {
		lgr.Logger.WarnContext(ctx, "error releasing "+what, lgr.Err(err))
	}
}

type nopReporter struct{}

func (nopReporter) Progress(model.ProgressReport) {}
func (nopReporter) Frame(model.FrameStats) {}
func (nopReporter) Summary(model.Summary) {}
