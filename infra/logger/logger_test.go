package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestZerologLoggerMethods(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	l := NewZerologLogger("test")
	assert.NotNil(t, l)
	l.Debugf("debug %d", 1)
	l.Debugw("debug", map[string]any{"k": 1})
	l.Infof("info %s", "test")
	l.Infow("info", map[string]any{"fare": "(0,0)->(1,1)@3"})
	l.Warnf("warn")
	l.Errorf("error")
}

func TestNewSelectsDriver(t *testing.T) {
	t.Setenv("LOG_DRIVER", "logrus")
	_, ok := New("c").(*LogrusLogger)
	assert.True(t, ok, "expected logrus logger")

	t.Setenv("LOG_DRIVER", "")
	_, ok = New("c").(*ZerologLogger)
	assert.True(t, ok, "expected zerolog logger")
}

func TestLogrusLoggerMethods(t *testing.T) {
	l := NewLogrusLogger("test")
	l.Debugw("bid", map[string]any{"agent": "t1"})
	l.Infow("award", map[string]any{"agent": "t1"})
	l.Warnf("warn %d", 2)
}
