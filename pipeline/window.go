package pipeline

import (
	"log/slog"
	"time"

	"gocv.io/x/gocv"

	"github.com/khaledhikmat/vs-bench/service/lgr"
)

type windowDisplay struct {
	window     *gocv.Window
	wait       int
	cancelKeys map[int]bool
}

// OpenWindow creates an on-screen display. A key from cancelKeys pressed
// while a frame is shown asks the loop to stop.
func OpenWindow(name string, wait time.Duration, cancelKeys []int) (Display, error) {
	ms := int(wait / time.Millisecond)
	if ms < 1 {
		ms = 1
	}

	keys := make(map[int]bool, len(cancelKeys))
	for _, k := range cancelKeys {
		keys[k&0xFF] = true
	}

	lgr.Logger.Debug("opening display window",
		slog.String("name", name),
		slog.Int("waitMs", ms),
	)

	return &windowDisplay{
		window:     gocv.NewWindow(name),
		wait:       ms,
		cancelKeys: keys,
	}, nil
}

func (d *windowDisplay) Show(frame gocv.Mat) bool {
	d.window.IMShow(frame)
	key := d.window.WaitKey(d.wait)
	if key < 0 {
		return false
	}
	return d.cancelKeys[key&0xFF]
}

func (d *windowDisplay) Close() error {
	return d.window.Close()
}
