package pipeline

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"gocv.io/x/gocv"
)

func TestAnnotateDrawsBoxes(t *testing.T) {
	frame := blankFrame(100, 100)
	defer frame.Close()

	a := NewAnnotator(false)
	a.Annotate(&frame, []image.Rectangle{image.Rect(20, 20, 60, 60)}, []string{"ignored"})

	// color.RGBA{0, 255, 0} ends up in the second BGR channel
	edge := frame.GetVecbAt(20, 40)
	assert.Equal(t, uint8(255), edge[1])
	assert.Equal(t, uint8(0), edge[0])

	inside := frame.GetVecbAt(40, 40)
	assert.Equal(t, uint8(0), inside[1])

	// overlay disabled, nothing drawn at the text origin
	assert.Equal(t, uint8(0), frame.GetVecbAt(25, 12)[2])
}

func TestAnnotateWithoutDetectionsLeavesFrame(t *testing.T) {
	frame := blankFrame(50, 50)
	defer frame.Close()

	NewAnnotator(false).Annotate(&frame, nil, nil)

	assert.Equal(t, 0, gocv.CountNonZero(grayOf(t, frame)))
}

func TestAnnotateOverlayText(t *testing.T) {
	frame := blankFrame(120, 320)
	defer frame.Close()

	NewAnnotator(true).Annotate(&frame, nil, OverlayLines(3, 10, 1, 5))

	assert.Positive(t, gocv.CountNonZero(grayOf(t, frame)))
}

func TestOverlayLines(t *testing.T) {
	assert.Equal(t, []string{"Frame: 3/10", "Detected: 1", "Total: 5"}, OverlayLines(3, 10, 1, 5))
	assert.Equal(t, []string{"Frame: 7", "Detected: 0", "Total: 0"}, OverlayLines(7, 0, 0, 0))
}

func grayOf(t *testing.T, frame gocv.Mat) gocv.Mat {
	t.Helper()
	gray := gocv.NewMat()
	t.Cleanup(func() { gray.Close() })
	gocv.CvtColor(frame, &gray, gocv.ColorBGRToGray)
	return gray
}

func blankFrame(rows, cols int) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), rows, cols, gocv.MatTypeCV8UC3)
}
