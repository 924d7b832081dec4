package model

import (
	"errors"
	"fmt"
	"runtime/debug"
	"time"
)

var (
	ErrModelLoad         = errors.New("model load error")
	ErrSourceUnavailable = errors.New("source unavailable")
	ErrFrameRead         = errors.New("frame read error")
	ErrDetection         = errors.New("detection error")
	ErrInvalidConfig     = errors.New("invalid configuration")
)

type CustomError struct {
	Processor  string                 `json:"processor"`
	Inner      error                  `json:"innerError"`
	Message    string                 `json:"message"`
	StackTrace string                 `json:"stackTrace"`
	Misc       map[string]interface{} `json:"misc"`
}

func GenError(proc string, err error, misc map[string]interface{}, messagef string, args ...interface{}) CustomError {
	return CustomError{
		Processor:  proc,
		Inner:      err,
		Message:    fmt.Sprintf(messagef, args...),
		StackTrace: string(debug.Stack()),
		Misc:       misc,
	}
}

func (e CustomError) Error() string {
	if e.Inner == nil {
		return fmt.Sprintf("%s: %s", e.Processor, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Processor, e.Message, e.Inner)
}

func (e CustomError) Unwrap() error {
	return e.Inner
}

// LoopState is the lifecycle state of the processing loop.
type LoopState int

const (
	StateIdle LoopState = iota
	StateRunning
	StateCompleted
	StateCancelled
	StateFailed
)

func (s LoopState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether no further transitions are possible.
func (s LoopState) Terminal() bool {
	return s == StateCompleted || s == StateCancelled || s == StateFailed
}

type VideoMetadata struct {
	Path        string  `json:"path"`
	TotalFrames int     `json:"totalFrames"` // 0 when the container does not report it
	FPS         float64 `json:"fps"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
}

// LoopStats holds the counters owned by the processing loop.
type LoopStats struct {
	Frames        int           `json:"frames"`
	Detections    int           `json:"detections"`
	Errors        int           `json:"errors"`
	StartTime     time.Time     `json:"startTime"`
	DetectTime    time.Duration `json:"detectTime"`
	MinDetectTime time.Duration `json:"minDetectTime"`
	MaxDetectTime time.Duration `json:"maxDetectTime"`
}

// RecordDetect accumulates the latency of one successful detector invocation.
func (s *LoopStats) RecordDetect(d time.Duration) {
	s.DetectTime += d
	if s.MinDetectTime == 0 || d < s.MinDetectTime {
		s.MinDetectTime = d
	}
	if d > s.MaxDetectTime {
		s.MaxDetectTime = d
	}
}

type ProgressReport struct {
	Frames      int           `json:"frames"`
	TotalFrames int           `json:"totalFrames"`
	HasTotal    bool          `json:"hasTotal"`
	Percent     float64       `json:"percent"`
	Elapsed     time.Duration `json:"elapsed"`
	Remaining   time.Duration `json:"remaining"`
}

type FrameStats struct {
	Index      int           `json:"index"`
	Detections int           `json:"detections"`
	Latency    time.Duration `json:"latency"`
	Err        error         `json:"-"`
}

type Summary struct {
	RunID         string        `json:"runId"`
	State         string        `json:"state"`
	Frames        int           `json:"frames"`
	Detections    int           `json:"detections"`
	Errors        int           `json:"errors"`
	Elapsed       time.Duration `json:"elapsed"`
	FPS           float64       `json:"fps"`
	AvgDetectTime time.Duration `json:"avgDetectTime"`
	MinDetectTime time.Duration `json:"minDetectTime"`
	MaxDetectTime time.Duration `json:"maxDetectTime"`
	Timestamp     int64         `json:"timestamp"`
}
