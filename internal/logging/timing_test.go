package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestTiming_Success(t *testing.T) {
	tl := NewTestLogger(t)

	timing := tl.StartTiming(CategoryPerformance, "refresh-stats")
	timing.Close(context.Background())

	entries := tl.FilterMessage("operation completed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	tl.AssertField(t, "operation completed", "operation", "refresh-stats")
}

func TestTiming_MarkFailed(t *testing.T) {
	tl := NewTestLogger(t)

	timing := tl.StartTiming(CategoryPerformance, "refresh-stats")
	assert.False(t, timing.Failed())
	timing.MarkFailed()
	assert.True(t, timing.Failed())
	timing.Close(context.Background())

	tl.AssertLogged(t, zapcore.ErrorLevel, "operation failed")
}

func TestTiming_CloseIsExactlyOnce(t *testing.T) {
	tl := NewTestLogger(t)
	ctx := context.Background()

	timing := tl.StartTiming(CategoryPerformance, "refresh-stats")
	timing.Close(ctx)
	timing.Close(ctx)
	timing.Close(ctx)

	assert.Len(t, tl.All(), 1)
}

func TestTiming_DeferredAlongsideExplicitClose(t *testing.T) {
	tl := NewTestLogger(t)
	ctx := context.Background()

	func() {
		timing := tl.StartTiming(CategoryPerformance, "refresh-stats")
		defer timing.Close(ctx)
		timing.Close(ctx)
	}()

	assert.Len(t, tl.All(), 1)
}
