package config

const escKey = 27

type hardcodedService struct {
}

func NewHardCoded() IService {
	return &hardcodedService{}
}

func (svc *hardcodedService) GetModelPath() string {
	return "haarcascade_frontalface_default.xml"
}

func (svc *hardcodedService) GetScaleFactor() float64 {
	return 1.1
}

func (svc *hardcodedService) GetMinNeighbors() int {
	return 4
}

// GetMinSize returns the smallest square window searched, 0 means no bound.
func (svc *hardcodedService) GetMinSize() int {
	return 0
}

func (svc *hardcodedService) GetMaxSize() int {
	return 0
}

func (svc *hardcodedService) GetProgressInterval() int {
	return 10
}

// GetFrameCap returns the maximum number of frames to process, 0 means all.
func (svc *hardcodedService) GetFrameCap() int {
	return 0
}

func (svc *hardcodedService) IsHeadless() bool {
	return false
}

func (svc *hardcodedService) GetWindowName() string {
	return "Detection"
}

func (svc *hardcodedService) GetDisplayWaitMillis() int {
	return 1
}

func (svc *hardcodedService) GetCancelKeys() []int {
	return []int{'q', escKey}
}

func (svc *hardcodedService) IsOverlayEnabled() bool {
	return true
}

func (svc *hardcodedService) GetDetectionLogFile() string {
	return "detections.log"
}

func (svc *hardcodedService) GetLogFile() string {
	return ""
}

func (svc *hardcodedService) GetLogLevel() string {
	return "info"
}
