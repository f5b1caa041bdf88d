package test

import (
	"context"

	"go.uber.org/fx"
)

// LifecycleRecorder collects fx hooks registered during a test so they can
// be driven by hand instead of a running container.
type LifecycleRecorder struct {
	Hooks []fx.Hook
}

// Append stores the hook for later invocation.
func (l *LifecycleRecorder) Append(h fx.Hook) {
	l.Hooks = append(l.Hooks, h)
}

// StartAll invokes every recorded OnStart hook in order.
func (l *LifecycleRecorder) StartAll(ctx context.Context) error {
	for _, h := range l.Hooks {
		if h.OnStart == nil {
			continue
		}
		if err := h.OnStart(ctx); err != nil {
			return err
		}
	}
	return nil
}

// StopAll invokes every recorded OnStop hook in reverse order.
func (l *LifecycleRecorder) StopAll(ctx context.Context) error {
	for i := len(l.Hooks) - 1; i >= 0; i-- {
		if l.Hooks[i].OnStop == nil {
			continue
		}
		if err := l.Hooks[i].OnStop(ctx); err != nil {
			return err
		}
	}
	return nil
}

// ShutdownerStub records graceful shutdown requests.
type ShutdownerStub struct {
	Called chan struct{}
}

// Shutdown signals the test that a shutdown was requested.
func (s *ShutdownerStub) Shutdown(...fx.ShutdownOption) error {
	if s.Called != nil {
		select {
		case s.Called <- struct{}{}:
		default:
		}
	}
	return nil
}
