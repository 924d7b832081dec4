package model

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/xerrors"
)

func TestCustomErrorMatchesKind(t *testing.T) {
	inner := xerrors.Errorf("open failed: %w", ErrSourceUnavailable)
	err := error(GenError("framer", inner, map[string]interface{}{"path": "a.mp4"}, "error opening %s", "a.mp4"))

	assert.ErrorIs(t, err, ErrSourceUnavailable)
	assert.NotErrorIs(t, err, ErrModelLoad)
	assert.Contains(t, err.Error(), "framer: error opening a.mp4")

	var custom CustomError
	assert.True(t, errors.As(err, &custom))
	assert.Equal(t, "a.mp4", custom.Misc["path"])
}

func TestCustomErrorWithoutInner(t *testing.T) {
	err := GenError("loop", nil, nil, "stopped")
	assert.Equal(t, "loop: stopped", err.Error())
	assert.Nil(t, err.Unwrap())
}

func TestLoopState(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "running", StateRunning.String())
	assert.Equal(t, "completed", StateCompleted.String())
	assert.Equal(t, "cancelled", StateCancelled.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, "state(42)", LoopState(42).String())

	assert.False(t, StateIdle.Terminal())
	assert.False(t, StateRunning.Terminal())
	assert.True(t, StateCompleted.Terminal())
	assert.True(t, StateCancelled.Terminal())
	assert.True(t, StateFailed.Terminal())
}

func TestRecordDetect(t *testing.T) {
	var s LoopStats
	s.RecordDetect(20 * time.Millisecond)
	s.RecordDetect(5 * time.Millisecond)
	s.RecordDetect(40 * time.Millisecond)

	assert.Equal(t, 65*time.Millisecond, s.DetectTime)
	assert.Equal(t, 5*time.Millisecond, s.MinDetectTime)
	assert.Equal(t, 40*time.Millisecond, s.MaxDetectTime)
}
