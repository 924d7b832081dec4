package pipeline

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

const (
	overlayLeft   = 10
	overlayTop    = 30
	overlayStride = 30
)

type Annotator struct {
	BoxColor  color.RGBA
	TextColor color.RGBA
	Thickness int
	FontScale float64
	Overlay   bool
}

func NewAnnotator(overlay bool) Annotator {
	return Annotator{
		BoxColor:  color.RGBA{0, 255, 0, 0},
		TextColor: color.RGBA{255, 255, 255, 0},
		Thickness: 2,
		FontScale: 0.7,
		Overlay:   overlay,
	}
}

// Annotate draws the boxes and, when the overlay is on, the text lines onto
// the frame in place.
func (a Annotator) Annotate(frame *gocv.Mat, boxes []image.Rectangle, lines []string) {
	for _, r := range boxes {
		gocv.Rectangle(frame, r, a.BoxColor, a.Thickness)
	}

	if !a.Overlay {
		return
	}
	for i, text := range lines {
		gocv.PutText(frame, text, image.Pt(overlayLeft, overlayTop+i*overlayStride),
			gocv.FontHersheySimplex, a.FontScale, a.TextColor, a.Thickness)
	}
}

// OverlayLines renders the frame position and detection counters.
func OverlayLines(frame, total, detected, running int) []string {
	position := fmt.Sprintf("Frame: %d", frame)
	if total > 0 {
		position = fmt.Sprintf("Frame: %d/%d", frame, total)
	}
	return []string{
		position,
		fmt.Sprintf("Detected: %d", detected),
		fmt.Sprintf("Total: %d", running),
	}
}
