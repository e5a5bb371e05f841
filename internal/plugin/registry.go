package plugin

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Loadable is a component that resolves through the host's module loader
type Loadable interface {
	Component
	Load(ctx context.Context) (Component, error)
}

// Resolve loads every deferred component the descriptor references: entries of
// Components and the tabs of each extension point. Failed loads keep their
// placeholder and are returned joined.
func (d Descriptor) Resolve(ctx context.Context) error {
	var errs []error
	load := func(where string, c Component) {
		l, ok := c.(Loadable)
		if !ok {
			return
		}
		if _, err := l.Load(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", where, err))
		}
	}

	for name, c := range d.Components {
		load("component "+name, c)
	}
	for _, id := range d.ExtensionPointIDs() {
		for _, tab := range d.ExtensionPoints[id]() {
			load(id+" tab "+tab.ID, tab.Component)
		}
	}
	return errors.Join(errs...)
}

// Registry is a Host that resolves deferred components when a plugin is defined
// and keeps the descriptor for serving
type Registry struct {
	// LoadTimeout bounds the module loader per definition
	LoadTimeout time.Duration
	// OnLoadError observes loader failures; the descriptor is kept with placeholders
	OnLoadError func(error)

	mu      sync.RWMutex
	current *Descriptor
}

// NewRegistry creates a registry with a bounded loader
func NewRegistry(loadTimeout time.Duration) *Registry {
	return &Registry{LoadTimeout: loadTimeout}
}

// DefinePlugin resolves d and makes it the served descriptor
func (r *Registry) DefinePlugin(d Descriptor) error {
	ctx := context.Background()
	if r.LoadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.LoadTimeout)
		defer cancel()
	}

	if err := d.Resolve(ctx); err != nil && r.OnLoadError != nil {
		r.OnLoadError(err)
	}

	r.mu.Lock()
	r.current = &d
	r.mu.Unlock()
	return nil
}

// Descriptor returns the defined descriptor; ok is false before any definition
func (r *Registry) Descriptor() (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.current == nil {
		return Descriptor{}, false
	}
	return *r.current, true
}
