package upload

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// CancelToken stops a run at the next chunk boundary. Calls already in flight see
// Context() cancelled and may abort early if the backend honours it.
type CancelToken struct {
	ctx    context.Context
	cancel context.CancelFunc
}

func NewCancelToken(parent context.Context) *CancelToken {
	ctx, cancel := context.WithCancel(parent)
	return &CancelToken{ctx: ctx, cancel: cancel}
}

func (t *CancelToken) Cancel() { t.cancel() }

func (t *CancelToken) Done() <-chan struct{} { return t.ctx.Done() }

func (t *CancelToken) Cancelled() bool { return t.ctx.Err() != nil }

func (t *CancelToken) Context() context.Context { return t.ctx }

// WatchInterrupt arms a token that is cancelled on SIGINT or SIGTERM. The returned
// stop deregisters the signal handler and must be called when the run ends.
func WatchInterrupt(ctx context.Context) (*CancelToken, func()) {
	token := NewCancelToken(ctx)

	sigCh := make(chan os.Signal, 1)
	done := make(chan struct{})
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigCh:
			slog.Warn("interrupt received, finishing in-flight uploads", "signal", sig.String())
			token.Cancel()
		case <-done:
		}
	}()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			signal.Stop(sigCh)
			close(done)
		})
	}
	return token, stop
}
