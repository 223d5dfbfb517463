package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShutdownManager_ReverseOrder(t *testing.T) {
	sm := NewShutdownManager(NewLogger(ErrorLevel, nil), time.Second)

	var order []string
	sm.Register("db", func(ctx context.Context) error { order = append(order, "db"); return nil })
	sm.Register("http", func(ctx context.Context) error { order = append(order, "http"); return nil })

	require.NoError(t, sm.Shutdown(context.Background()))
	assert.Equal(t, []string{"http", "db"}, order)
}

func TestShutdownManager_CollectsErrorsAndRunsOnce(t *testing.T) {
	sm := NewShutdownManager(NewLogger(ErrorLevel, nil), time.Second)

	calls := 0
	sm.Register("redis", func(ctx context.Context) error { calls++; return errors.New("already closed") })
	sm.Register("otel", func(ctx context.Context) error { calls++; return nil })

	err := sm.Shutdown(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis: already closed")

	assert.NoError(t, sm.Shutdown(context.Background()))
	assert.Equal(t, 2, calls)
}

func TestShutdownManager_ContextSurvivesCancelledParent(t *testing.T) {
	sm := NewShutdownManager(NewLogger(ErrorLevel, nil), time.Second)
	parent, cancel := context.WithCancel(context.Background())
	cancel()

	sm.Register("check", func(ctx context.Context) error { return ctx.Err() })

	assert.NoError(t, sm.Shutdown(parent))
}
