package plugin

import (
	"context"
	"sync"
)

// Placeholder shown while an async component is loading
const LoadingComponent StaticComponent = "VLoading"

// AsyncComponent is a component resolved on first use by the host's loader.
// Until the load settles, ComponentName reports the loading placeholder.
type AsyncComponent struct {
	Loader  func(ctx context.Context) (Component, error)
	Loading Component

	once     sync.Once
	done     chan struct{}
	initDone sync.Once
	result   Component
	err      error
}

// NewAsyncComponent creates a deferred component with the default placeholder
func NewAsyncComponent(loader func(ctx context.Context) (Component, error)) *AsyncComponent {
	return &AsyncComponent{Loader: loader, Loading: LoadingComponent}
}

func (a *AsyncComponent) doneCh() chan struct{} {
	a.initDone.Do(func() {
		a.done = make(chan struct{})
	})
	return a.done
}

// Load starts the load if it has not started yet and waits for it to settle
// or for ctx to end. Later calls return the settled result.
func (a *AsyncComponent) Load(ctx context.Context) (Component, error) {
	done := a.doneCh()
	a.once.Do(func() {
		go func() {
			defer close(done)
			if a.Loader == nil {
				a.err = ErrInvalidDescriptor
				return
			}
			a.result, a.err = a.Loader(context.WithoutCancel(ctx))
		}()
	})

	select {
	case <-done:
		return a.result, a.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Settled reports whether the load has finished, successfully or not
func (a *AsyncComponent) Settled() bool {
	select {
	case <-a.doneCh():
		return true
	default:
		return false
	}
}

// ComponentName returns the loaded view, or the placeholder until it is available
func (a *AsyncComponent) ComponentName() string {
	if a.Settled() && a.err == nil && a.result != nil {
		return a.result.ComponentName()
	}
	if a.Loading == nil {
		return string(LoadingComponent)
	}
	return a.Loading.ComponentName()
}
