package signals

import (
	"os"
	"os/signal"
	"sync"
	"syscall"
)

var (
	handlers     []func()
	handlersMu   sync.Mutex
	startHandler sync.Once
)

// RegisterGracefulTerminationHandler runs fn, in registration order with the
// others, on the first SIGINT or SIGTERM. The process exits afterwards.
func RegisterGracefulTerminationHandler(fn func()) {
	startHandler.Do(func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			<-c
			runHandlers()
			os.Exit(0)
		}()
	})

	handlersMu.Lock()
	defer handlersMu.Unlock()
	handlers = append(handlers, fn)
}

func runHandlers() {
	handlersMu.Lock()
	defer handlersMu.Unlock()
	for _, fn := range handlers {
		fn()
	}
}
