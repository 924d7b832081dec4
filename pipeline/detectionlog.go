package pipeline

import (
	"encoding/json"
	"image"
	"io"
	"time"

	"github.com/natefinch/lumberjack"
	"golang.org/x/xerrors"
)

type detectionEntry struct {
	Time       string        `json:"time"`
	Run        string        `json:"run"`
	Frame      int           `json:"frame"`
	Detections []detectedBox `json:"detections"`
}

type detectedBox struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// DetectionLog appends one JSON line per frame with detections.
type DetectionLog struct {
	runID string
	w     io.WriteCloser
}

func NewDetectionLog(filename, runID string) *DetectionLog {
	return &DetectionLog{
		runID: runID,
		w: &lumberjack.Logger{
			Filename:   filename,
			MaxSize:    10, // MB
			MaxBackups: 5,
			MaxAge:     7,    // days
			Compress:   true, // compress old logs
		},
	}
}

func newDetectionLogWriter(w io.WriteCloser, runID string) *DetectionLog {
	return &DetectionLog{runID: runID, w: w}
}

func (l *DetectionLog) Record(frame int, boxes []image.Rectangle) error {
	if len(boxes) == 0 {
		return nil
	}

	entry := detectionEntry{
		Time:       time.Now().Format(time.RFC3339),
		Run:        l.runID,
		Frame:      frame,
		Detections: make([]detectedBox, 0, len(boxes)),
	}
	for _, r := range boxes {
		entry.Detections = append(entry.Detections, detectedBox{X: r.Min.X, Y: r.Min.Y, W: r.Dx(), H: r.Dy()})
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return xerrors.Errorf("marshaling detections: %w", err)
	}
	if _, err := l.w.Write(append(data, '\n')); err != nil {
		return xerrors.Errorf("writing detection log: %w", err)
	}
	return nil
}

func (l *DetectionLog) Close() error {
	return l.w.Close()
}
