package config

type IService interface {
	GetModelPath() string
	GetScaleFactor() float64
	GetMinNeighbors() int
	GetMinSize() int
	GetMaxSize() int
	GetProgressInterval() int
	GetFrameCap() int
	IsHeadless() bool
	GetWindowName() string
	GetDisplayWaitMillis() int
	GetCancelKeys() []int
	IsOverlayEnabled() bool
	GetDetectionLogFile() string
	GetLogFile() string
	GetLogLevel() string
}
