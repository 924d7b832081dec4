package pipeline

import (
	"image"
	"time"

	"gocv.io/x/gocv"

	"github.com/khaledhikmat/vs-bench/model"
)

type FrameData struct {
	Mat   gocv.Mat
	Index int // 1-based position in the stream
}

// FrameSource delivers decoded frames in stream order. Next returns io.EOF
// once the stream is exhausted.
type FrameSource interface {
	Metadata() model.VideoMetadata
	Next() (FrameData, error)
	Close() error
}

type DetectParams struct {
	ScaleFactor  float64
	MinNeighbors int
	MinSize      image.Point
	MaxSize      image.Point
}

// Detector finds object regions in a single channel image.
type Detector interface {
	Detect(gray gocv.Mat, params DetectParams) ([]image.Rectangle, error)
	Close() error
}

// Display shows annotated frames. Show reports true when the viewer asked to
// stop.
type Display interface {
	Show(frame gocv.Mat) bool
	Close() error
}

// Reporter receives progress while the loop runs and the summary at the end.
type Reporter interface {
	Progress(report model.ProgressReport)
	Frame(stats model.FrameStats)
	Summary(summary model.Summary)
}

// DetectionSink records the boxes found in each frame.
type DetectionSink interface {
	Record(frame int, boxes []image.Rectangle) error
}

// Signatures of the collaborators the loop builds when it starts
type SourceOpener func(path string) (FrameSource, error)
type DetectorLoader func(modelPath string) (Detector, error)
type DisplayOpener func(name string, wait time.Duration, cancelKeys []int) (Display, error)

type Config struct {
	ModelPath        string
	Params           DetectParams
	ProgressInterval int
	FrameCap         int // 0 means no cap
	Headless         bool
	WindowName       string
	DisplayWait      time.Duration
	CancelKeys       []int
	Overlay          bool
}

type Result struct {
	State   model.LoopState
	Summary model.Summary
	Err     error
}
