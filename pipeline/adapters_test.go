package pipeline

import (
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/khaledhikmat/vs-bench/model"
)

func TestLoadCascadeMissingModel(t *testing.T) {
	det, err := LoadCascade(filepath.Join(t.TempDir(), "cars.xml"))

	require.Error(t, err)
	assert.Nil(t, det)
	assert.ErrorIs(t, err, model.ErrModelLoad)

	var custom model.CustomError
	require.ErrorAs(t, err, &custom)
	assert.Equal(t, cascadeName, custom.Processor)
	assert.NotEmpty(t, custom.StackTrace)
}

func TestCascadeDetectRejectsUnusableFrames(t *testing.T) {
	det := &CascadeDetector{classifier: gocv.NewCascadeClassifier(), modelPath: "none.xml"}
	defer det.Close()

	params := DetectParams{ScaleFactor: 1.1, MinNeighbors: 4}

	color := blankFrame(48, 64)
	defer color.Close()
	rects, err := det.Detect(color, params)
	assert.Nil(t, rects)
	assert.ErrorIs(t, err, model.ErrDetection)

	empty := gocv.NewMat()
	defer empty.Close()
	rects, err = det.Detect(empty, params)
	assert.Nil(t, rects)
	assert.ErrorIs(t, err, model.ErrDetection)
}

func TestOpenVideoFileMissing(t *testing.T) {
	src, err := OpenVideoFile(filepath.Join(t.TempDir(), "clip.mp4"))

	require.Error(t, err)
	assert.Nil(t, src)
	assert.ErrorIs(t, err, model.ErrSourceUnavailable)
}

func TestOpenVideoFileDirectory(t *testing.T) {
	_, err := OpenVideoSource(t.TempDir())

	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrSourceUnavailable)
}

func writeClip(t *testing.T, frames int) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "clip.avi")
	w, err := gocv.VideoWriterFile(path, "MJPG", 10, 64, 48, true)
	require.NoError(t, err)
	require.True(t, w.IsOpened())

	for i := 0; i < frames; i++ {
		img := blankFrame(48, 64)
		require.NoError(t, w.Write(img))
		img.Close()
	}
	require.NoError(t, w.Close())
	return path
}

func TestVideoFileSourceEndsWithEOF(t *testing.T) {
	const n = 5
	src, err := OpenVideoFile(writeClip(t, n))
	require.NoError(t, err)
	defer src.Close()

	assert.Equal(t, 64, src.Metadata().Width)
	assert.Equal(t, 48, src.Metadata().Height)

	var read int
	for {
		frame, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		read++
		assert.Equal(t, read, frame.Index)
		assert.False(t, frame.Mat.Empty())
		frame.Mat.Close()
		require.LessOrEqual(t, read, n)
	}
	assert.Equal(t, n, read)

	_, err = src.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestVideoFileSourceShortStreamIsNotAFailure(t *testing.T) {
	src, err := OpenVideoFile(writeClip(t, 3))
	require.NoError(t, err)
	defer src.Close()

	// header claims more frames than the container holds
	src.meta.TotalFrames = 4

	for i := 0; i < 3; i++ {
		frame, err := src.Next()
		require.NoError(t, err)
		frame.Mat.Close()
	}
	_, err = src.Next()
	assert.ErrorIs(t, err, io.EOF)
	assert.NotErrorIs(t, err, model.ErrFrameRead)
}
