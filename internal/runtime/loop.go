package runtime

import (
	"context"
)

// LoopService adapts a bare `func(ctx context.Context)` background loop
// (the shape every Cache/Supervisor/Core's Run method takes) into the
// Service interface the registry expects, so components that only need a
// cancelable goroutine don't each need their own Start/Stop/Status boilerplate.
type LoopService struct {
	fn     func(ctx context.Context)
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewLoopService wraps fn for registration with a ServiceRegistry.
func NewLoopService(fn func(ctx context.Context)) *LoopService {
	ctx, cancel := context.WithCancel(context.Background())
	return &LoopService{fn: fn, ctx: ctx, cancel: cancel, done: make(chan struct{})}
}

// Start launches fn in the background.
func (l *LoopService) Start() {
	go func() {
		defer close(l.done)
		l.fn(l.ctx)
	}()
}

// Stop cancels the loop's context and waits for it to return.
func (l *LoopService) Stop() error {
	l.cancel()
	<-l.done
	return nil
}

// Status always reports healthy; loop failures surface through metrics/logs
// rather than through the registry, matching how Cache/Supervisor Run loops
// degrade (keep the prior snapshot) instead of terminating.
func (l *LoopService) Status() error {
	return nil
}
