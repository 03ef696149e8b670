package zaplogger

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestWrap_FieldsAndErrors(t *testing.T) {
	t.Parallel()
	core, logs := observer.New(zapcore.DebugLevel)
	l := Wrap(zap.New(core)).With(observability.F("service", "order-service"))

	l.Warn("order_cancel_failed",
		observability.F("order_id", "o1"),
		observability.Err(errors.New("boom")),
	)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.WarnLevel, entry.Level)
	assert.Equal(t, "order_cancel_failed", entry.Message)
	fields := entry.ContextMap()
	assert.Equal(t, "order-service", fields["service"])
	assert.Equal(t, "o1", fields["order_id"])
	assert.Equal(t, "boom", fields["error"])
}

func TestWrap_NilUsesNop(t *testing.T) {
	t.Parallel()
	l := Wrap(nil)
	assert.NotPanics(t, func() { l.Info("ignored") })
	assert.Same(t, l.Zap(), l.Zap())
}

func TestNew_RejectsUnknownLevel(t *testing.T) {
	t.Parallel()
	_, err := New(Options{Level: "loud"})
	assert.Error(t, err)
}

func TestNew_CreatesLogFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "logs", "checkout.log")

	l, err := New(Options{Level: "debug", File: path, Fixed: []observability.Field{observability.F("env", "test")}})
	require.NoError(t, err)
	l.Info("started")
	_ = l.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"started"`)
	assert.Contains(t, string(data), `"env":"test"`)
}
