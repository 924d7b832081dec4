package pipeline

import (
	"image"
	"log/slog"
	"os"

	"gocv.io/x/gocv"
	"golang.org/x/xerrors"

	"github.com/khaledhikmat/vs-bench/model"
	"github.com/khaledhikmat/vs-bench/service/lgr"
)

const cascadeName = "cascade_detector"

type CascadeDetector struct {
	classifier gocv.CascadeClassifier
	modelPath  string
}

// LoadCascade loads a pretrained cascade classifier definition.
func LoadCascade(modelPath string) (*CascadeDetector, error) {
	if _, err := os.Stat(modelPath); err != nil {
		return nil, model.GenError(cascadeName,
			xerrors.Errorf("%v: %w", err, model.ErrModelLoad),
			map[string]interface{}{"model": modelPath},
			"no cascade model exists at %s", modelPath)
	}

	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(modelPath) {
		classifier.Close()
		return nil, model.GenError(cascadeName,
			model.ErrModelLoad,
			map[string]interface{}{"model": modelPath},
			"error reading cascade file %s", modelPath)
	}

	lgr.Logger.Info(
		"cascade classifier loaded",
		slog.String("model", modelPath),
		slog.String("openCV", gocv.OpenCVVersion()),
	)

	return &CascadeDetector{classifier: classifier, modelPath: modelPath}, nil
}

// LoadCascadeDetector adapts LoadCascade to DetectorLoader.
func LoadCascadeDetector(modelPath string) (Detector, error) {
	det, err := LoadCascade(modelPath)
	if err != nil {
		return nil, err
	}
	return det, nil
}

func (d *CascadeDetector) Detect(gray gocv.Mat, params DetectParams) (rects []image.Rectangle, err error) {
	defer func() {
		if r := recover(); r != nil {
			rects = nil
			err = model.GenError(cascadeName,
				xerrors.Errorf("%v: %w", r, model.ErrDetection),
				map[string]interface{}{"model": d.modelPath},
				"cascade detection panicked")
		}
	}()

	if gray.Empty() {
		return nil, model.GenError(cascadeName,
			model.ErrDetection,
			nil,
			"empty frame")
	}
	if gray.Channels() != 1 {
		return nil, model.GenError(cascadeName,
			model.ErrDetection,
			map[string]interface{}{"channels": gray.Channels()},
			"expected a grayscale frame, got %d channels", gray.Channels())
	}

	return d.classifier.DetectMultiScaleWithParams(gray,
		params.ScaleFactor,
		params.MinNeighbors,
		0,
		params.MinSize,
		params.MaxSize), nil
}

func (d *CascadeDetector) Close() error {
	return d.classifier.Close()
}
