package runtime

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoopService_StopWaitsForReturn(t *testing.T) {
	ran := make(chan struct{})
	l := NewLoopService(func(ctx context.Context) {
		<-ctx.Done()
		close(ran)
	})
	l.Start()
	require.NoError(t, l.Stop())

	select {
	case <-ran:
	default:
		t.Fatal("fn did not observe cancellation before Stop returned")
	}
}

func TestLoopService_StatusAlwaysNil(t *testing.T) {
	l := NewLoopService(func(ctx context.Context) { <-ctx.Done() })
	require.NoError(t, l.Status())
	l.Start()
	require.NoError(t, l.Status())
	require.NoError(t, l.Stop())
}

func TestLoopService_RunsConcurrently(t *testing.T) {
	var ticks int
	done := make(chan struct{})
	l := NewLoopService(func(ctx context.Context) {
		ticker := time.NewTicker(time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				close(done)
				return
			case <-ticker.C:
				ticks++
			}
		}
	})
	l.Start()
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, l.Stop())
	<-done
	require.Greater(t, ticks, 0)
}
