package sigcontext

import (
	"context"
	"os"
	"os/signal"
	"sync"
)

// WithSignalCancel is a context that will cancel itself when a signal is sent
// to the process. The cancel function returned is responsible for freeing the
// signal handlers used and must be called. A second signal after the context is
// done is left to the go runtime once cancel has been called.
//
// notify, when non-nil, is called with each signal received before the context
// is cancelled.
func WithSignalCancel(ctx context.Context, notify func(os.Signal), sigs ...os.Signal) (context.Context, context.CancelFunc) {
	sigctx, ctxcancel := context.WithCancel(ctx)

	sigchan := make(chan os.Signal, 1)
	signal.Notify(sigchan, sigs...)

	var once sync.Once
	cancel := func() {
		ctxcancel()
		once.Do(func() {
			signal.Stop(sigchan)
			close(sigchan)
		})
	}

	go func() {
		for {
			select {
			case <-sigctx.Done():
				return
			case sig, ok := <-sigchan:
				if !ok {
					continue
				}
				if notify != nil {
					notify(sig)
				}
				ctxcancel()
			}
		}
	}()

	return sigctx, cancel
}
