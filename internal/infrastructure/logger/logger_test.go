package logger

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevelRecognizesKnownNames(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warn"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
}

func TestParseLevelDefaultsToInfoForUnknownNames(t *testing.T) {
	assert.Equal(t, slog.LevelInfo, parseLevel(""))
	assert.Equal(t, slog.LevelInfo, parseLevel("trace"))
}

func TestSetupAttachesComponentAndInstallsDefault(t *testing.T) {
	l := Setup("debug", "scheduler")
	assert.NotNil(t, l)
	assert.Same(t, l, slog.Default())
}

func TestSetupWithoutComponentSkipsWithCall(t *testing.T) {
	l := Setup("info", "")
	assert.NotNil(t, l)
}
