package pipeline

import (
	"io"
	"log/slog"
	"os"

	"gocv.io/x/gocv"
	"golang.org/x/xerrors"

	"github.com/khaledhikmat/vs-bench/model"
	"github.com/khaledhikmat/vs-bench/service/lgr"
)

const framerName = "video_file_framer"

type VideoFileSource struct {
	capture *gocv.VideoCapture
	meta    model.VideoMetadata
	frames  int
}

// OpenVideoFile opens a video file for sequential decoding.
func OpenVideoFile(path string) (*VideoFileSource, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, model.GenError(framerName,
			xerrors.Errorf("%v: %w", err, model.ErrSourceUnavailable),
			map[string]interface{}{"path": path},
			"video file %s not found", path)
	}
	if info.IsDir() {
		return nil, model.GenError(framerName,
			model.ErrSourceUnavailable,
			map[string]interface{}{"path": path},
			"video path %s is a directory", path)
	}

	capture, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, model.GenError(framerName,
			xerrors.Errorf("%v: %w", err, model.ErrSourceUnavailable),
			map[string]interface{}{"path": path},
			"error opening video %s", path)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, model.GenError(framerName,
			model.ErrSourceUnavailable,
			map[string]interface{}{"path": path},
			"error opening video %s", path)
	}

	src := &VideoFileSource{
		capture: capture,
		meta: model.VideoMetadata{
			Path:        path,
			TotalFrames: positive(capture.Get(gocv.VideoCaptureFrameCount)),
			FPS:         capture.Get(gocv.VideoCaptureFPS),
			Width:       positive(capture.Get(gocv.VideoCaptureFrameWidth)),
			Height:      positive(capture.Get(gocv.VideoCaptureFrameHeight)),
		},
	}

	lgr.Logger.Info(
		"video info",
		slog.String("path", path),
		slog.Int("frames", src.meta.TotalFrames),
		slog.Float64("fps", src.meta.FPS),
		slog.Int("width", src.meta.Width),
		slog.Int("height", src.meta.Height),
	)

	return src, nil
}

// OpenVideoSource adapts OpenVideoFile to SourceOpener.
func OpenVideoSource(path string) (FrameSource, error) {
	src, err := OpenVideoFile(path)
	if err != nil {
		return nil, err
	}
	return src, nil
}

func (s *VideoFileSource) Metadata() model.VideoMetadata {
	return s.meta
}

// Next decodes the following frame. A failed read is the end of the stream.
// The advertised frame count is only an estimate for many containers, so a
// mismatch with the delivered count is logged but never fails the run. A read
// that reports success without producing pixels is an ErrFrameRead.
func (s *VideoFileSource) Next() (FrameData, error) {
	img := gocv.NewMat()
	if ok := s.capture.Read(&img); !ok {
		img.Close() // Crucial to close the image to avoid memory leaks
		if s.meta.TotalFrames > 0 && s.frames != s.meta.TotalFrames {
			lgr.Logger.Warn(
				"frame count differs from container header",
				slog.String("path", s.meta.Path),
				slog.Int("advertised", s.meta.TotalFrames),
				slog.Int("delivered", s.frames),
			)
		}
		return FrameData{}, io.EOF
	}
	if img.Empty() {
		img.Close()
		return FrameData{}, model.GenError(framerName,
			model.ErrFrameRead,
			map[string]interface{}{"frame": s.frames + 1, "total": s.meta.TotalFrames},
			"decoder returned an empty frame %d", s.frames+1)
	}

	s.frames++
	return FrameData{Mat: img, Index: s.frames}, nil
}

func (s *VideoFileSource) Close() error {
	return s.capture.Close()
}

func positive(v float64) int {
	if v <= 0 {
		return 0
	}
	return int(v)
}
