package testutil

import (
	"os"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// TestLogger writes to stdout rather than t.Log so that connection goroutines
// still draining after a test returns do not log into a finished test.
func TestLogger(t *testing.T) *zap.Logger {
	enc := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	core := zapcore.NewCore(enc, zapcore.Lock(os.Stdout), zap.DebugLevel)
	logger := zap.New(core).Named("test").With(zap.String("test", t.Name()))
	t.Cleanup(func() {
		_ = logger.Sync()
	})
	return logger
}
