package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"golang.org/x/xerrors"

	"github.com/khaledhikmat/vs-bench/model"
)

const (
	envModelPath      = "DETECT_MODEL_PATH"
	envScaleFactor    = "DETECT_SCALE_FACTOR"
	envMinNeighbors   = "DETECT_MIN_NEIGHBORS"
	envMinSize        = "DETECT_MIN_SIZE"
	envMaxSize        = "DETECT_MAX_SIZE"
	envInterval       = "PROGRESS_INTERVAL"
	envFrameCap       = "FRAME_CAP"
	envHeadless       = "HEADLESS"
	envWindowName     = "WINDOW_NAME"
	envDisplayWait    = "DISPLAY_WAIT_MS"
	envCancelKeys     = "CANCEL_KEYS"
	envOverlay        = "OVERLAY"
	envDetectionLog   = "DETECTION_LOG"
	envLogFile        = "LOG_FILE"
	envLogLevel       = "LOG_LEVEL"
	envRunTimeEnv     = "RUN_TIME_ENV"
	defaultDotEnvFile = ".env"
)

type envService struct {
	modelPath    string
	scaleFactor  float64
	minNeighbors int
	minSize      int
	maxSize      int
	interval     int
	frameCap     int
	headless     bool
	windowName   string
	displayWait  int
	cancelKeys   []int
	overlay      bool
	detectionLog string
	logFile      string
	logLevel     string
}

// LoadDotEnv loads a .env file in dev mode. A missing file is not an error.
func LoadDotEnv(files ...string) error {
	if rt := os.Getenv(envRunTimeEnv); rt != "" && rt != "dev" {
		return nil
	}

	if len(files) == 0 {
		files = []string{defaultDotEnvFile}
	}

	err := godotenv.Load(files...)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return xerrors.Errorf("loading env file: %w", err)
	}
	return nil
}

// NewEnv overlays environment variables on top of the hard-coded defaults.
func NewEnv() (IService, error) {
	return newEnvFrom(os.LookupEnv)
}

func newEnvFrom(lookup func(string) (string, bool)) (IService, error) {
	def := NewHardCoded()
	svc := &envService{
		modelPath:    def.GetModelPath(),
		scaleFactor:  def.GetScaleFactor(),
		minNeighbors: def.GetMinNeighbors(),
		minSize:      def.GetMinSize(),
		maxSize:      def.GetMaxSize(),
		interval:     def.GetProgressInterval(),
		frameCap:     def.GetFrameCap(),
		headless:     def.IsHeadless(),
		windowName:   def.GetWindowName(),
		displayWait:  def.GetDisplayWaitMillis(),
		cancelKeys:   def.GetCancelKeys(),
		overlay:      def.IsOverlayEnabled(),
		detectionLog: def.GetDetectionLogFile(),
		logFile:      def.GetLogFile(),
		logLevel:     def.GetLogLevel(),
	}

	p := parser{lookup: lookup}
	p.setString(envModelPath, &svc.modelPath)
	p.setFloat(envScaleFactor, &svc.scaleFactor)
	p.setInt(envMinNeighbors, &svc.minNeighbors)
	p.setInt(envMinSize, &svc.minSize)
	p.setInt(envMaxSize, &svc.maxSize)
	p.setInt(envInterval, &svc.interval)
	p.setInt(envFrameCap, &svc.frameCap)
	p.setBool(envHeadless, &svc.headless)
	p.setString(envWindowName, &svc.windowName)
	p.setInt(envDisplayWait, &svc.displayWait)
	p.setKeys(envCancelKeys, &svc.cancelKeys)
	p.setBool(envOverlay, &svc.overlay)
	p.setOptional(envDetectionLog, &svc.detectionLog)
	p.setOptional(envLogFile, &svc.logFile)
	p.setString(envLogLevel, &svc.logLevel)
	if p.err != nil {
		return nil, p.err
	}

	if err := Validate(svc); err != nil {
		return nil, err
	}
	return svc, nil
}

// Validate checks the detection and loop settings.
func Validate(svc IService) error {
	var problems []string
	if svc.GetModelPath() == "" {
		problems = append(problems, "model path is empty")
	}
	if svc.GetScaleFactor() <= 1.0 {
		problems = append(problems, "scale factor must be greater than 1.0")
	}
	if svc.GetMinNeighbors() < 1 {
		problems = append(problems, "min neighbors must be at least 1")
	}
	if svc.GetMinSize() < 0 || svc.GetMaxSize() < 0 {
		problems = append(problems, "detection window sizes cannot be negative")
	}
	if svc.GetMaxSize() > 0 && svc.GetMaxSize() < svc.GetMinSize() {
		problems = append(problems, "max size is smaller than min size")
	}
	if svc.GetProgressInterval() < 1 {
		problems = append(problems, "progress interval must be at least 1")
	}
	if svc.GetFrameCap() < 0 {
		problems = append(problems, "frame cap cannot be negative")
	}
	if svc.GetDisplayWaitMillis() < 1 {
		problems = append(problems, "display wait must be at least 1ms")
	}

	if len(problems) > 0 {
		return xerrors.Errorf("%s: %w", strings.Join(problems, "; "), model.ErrInvalidConfig)
	}
	return nil
}

type parser struct {
	lookup func(string) (string, bool)
	err    error
}

func (p *parser) value(key string) (string, bool) {
	if p.err != nil {
		return "", false
	}
	v, ok := p.lookup(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func (p *parser) fail(key, raw string, err error) {
	p.err = xerrors.Errorf("%s=%q: %v: %w", key, raw, err, model.ErrInvalidConfig)
}

func (p *parser) setString(key string, dst *string) {
	if v, ok := p.value(key); ok {
		*dst = v
	}
}

// setOptional lets a variable that is set but empty clear the default.
func (p *parser) setOptional(key string, dst *string) {
	if p.err != nil {
		return
	}
	if v, ok := p.lookup(key); ok {
		*dst = strings.TrimSpace(v)
	}
}

func (p *parser) setInt(key string, dst *int) {
	v, ok := p.value(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, v, err)
		return
	}
	*dst = n
}

func (p *parser) setFloat(key string, dst *float64) {
	v, ok := p.value(key)
	if !ok {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.fail(key, v, err)
		return
	}
	*dst = f
}

func (p *parser) setBool(key string, dst *bool) {
	v, ok := p.value(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(key, v, err)
		return
	}
	*dst = b
}

// setKeys parses a comma separated list. A single character stands for its own
// key code, anything longer must be a decimal key code (27 for Esc).
func (p *parser) setKeys(key string, dst *[]int) {
	v, ok := p.value(key)
	if !ok {
		return
	}

	var out []int
	for _, item := range strings.Split(v, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if r := []rune(item); len(r) == 1 {
			out = append(out, int(r[0]))
			continue
		}
		n, err := strconv.Atoi(item)
		if err != nil {
			p.fail(key, v, err)
			return
		}
		out = append(out, n)
	}
	*dst = out
}

func (svc *envService) GetModelPath() string { return svc.modelPath }
func (svc *envService) GetScaleFactor() float64 { return svc.scaleFactor }
func (svc *envService) GetMinNeighbors() int { return svc.minNeighbors }
func (svc *envService) GetMinSize() int { return svc.minSize }
func (svc *envService) GetMaxSize() int { return svc.maxSize }
func (svc *envService) GetProgressInterval() int { return svc.interval }
func (svc *envService) GetFrameCap() int { return svc.frameCap }
func (svc *envService) IsHeadless() bool { return svc.headless }
func (svc *envService) GetWindowName() string { return svc.windowName }
func (svc *envService) GetDisplayWaitMillis() int { return svc.displayWait }
func (svc *envService) GetCancelKeys() []int { return svc.cancelKeys }
func (svc *envService) IsOverlayEnabled() bool { return svc.overlay }
func (svc *envService) GetDetectionLogFile() string { return svc.detectionLog }
func (svc *envService) GetLogFile() string { return svc.logFile }
func (svc *envService) GetLogLevel() string { return svc.logLevel }
