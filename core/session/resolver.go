package session

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

type (
	// Backend is the external session/token service.
	Backend interface {
		// CurrentSession returns the currently authenticated Identity, or nil
		// when no one is signed in.
		CurrentSession(ctx context.Context) (*Identity, error)
		SignOut(ctx context.Context) error
		// OnChange registers a callback fired on sign-in, sign-out and token
		// refresh. The returned function unregisters it.
		OnChange(fn func(*Identity)) (unsubscribe func())
	}

	// Resolver resolves "who is the caller" against a Backend and fans change
	// notifications out to subscribers in occurrence order.
	//
	// A backend failure resolves to "no identity": unknown callers are
	// indistinguishable from signed-out ones so that consumers deny by default.
	Resolver struct {
		backend Backend
		logger  core.Logger

		mu       sync.Mutex
		started  bool
		resolved bool
		current  *Identity
		subs     map[int]func(*Identity)
		nextSub  int
		stop     func()

		// dispatchMu serializes subscriber callbacks so notifications are
		// never reordered (e.g. a sign-out right after a sign-in).
		dispatchMu sync.Mutex
	}
)

func NewResolver(backend Backend, logger core.Logger) *Resolver {
	return &Resolver{
		backend: backend,
		logger:  logger,
		subs:    make(map[int]func(*Identity)),
	}
}

// Start performs the initial resolution (exactly once per activation) and
// begins relaying backend change notifications. It is a no-op when called twice.
func (r *Resolver) Start(ctx context.Context) {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return
	}
	r.started = true
	r.mu.Unlock()

	// Subscribe before the initial fetch so no change event is lost. Any
	// event delivered meanwhile is newer than the fetch result and wins.
	r.stop = r.backend.OnChange(func(id *Identity) {
		r.commit(id, true)
	})

	id, err := r.backend.CurrentSession(ctx)
	if err != nil {
		r.logger.Error("resolving current session", errors.Wrap(err, "resolving current session"))
		id = nil // unknown identity == no identity
	}
	r.commit(id, false)
}

// Stop tears the resolver down; no notification is delivered afterwards.
func (r *Resolver) Stop() {
	r.mu.Lock()
	stop := r.stop
	r.stop = nil
	r.subs = make(map[int]func(*Identity))
	r.mu.Unlock()

	if stop != nil {
		stop()
	}
}

// Current returns the resolved Identity, or nil when no one is signed in or
// the initial resolution has not completed yet.
func (r *Resolver) Current() *Identity {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Resolved reports whether the initial resolution has completed.
func (r *Resolver) Resolved() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resolved
}

// Subscribe registers fn to be called with the Identity (or nil) on every
// change. If the initial resolution already happened, fn is called right away
// with the current state. The returned function unregisters fn; fn is never
// called after it returns.
func (r *Resolver) Subscribe(fn func(*Identity)) (unsubscribe func()) {
	r.mu.Lock()
	key := r.nextSub
	r.nextSub++
	r.subs[key] = fn
	resolved, current := r.resolved, r.current
	r.mu.Unlock()

	if resolved {
		r.dispatchMu.Lock()
		r.mu.Lock()
		_, alive := r.subs[key]
		r.mu.Unlock()
		if alive {
			fn(current)
		}
		r.dispatchMu.Unlock()
	}

	return func() {
		r.dispatchMu.Lock()
		defer r.dispatchMu.Unlock()
		r.mu.Lock()
		delete(r.subs, key)
		r.mu.Unlock()
	}
}

// SignOut signs the caller out via the backend; the resulting change event
// clears the current Identity and notifies subscribers.
func (r *Resolver) SignOut(ctx context.Context) error {
	return errors.Wrap(r.backend.SignOut(ctx), "signing out")
}

// commit records new state and notifies subscribers in order. The initial
// fetch result (fromBackend=false) is discarded when a backend event already
// resolved newer state.
func (r *Resolver) commit(id *Identity, fromBackend bool) {
	r.dispatchMu.Lock()
	defer r.dispatchMu.Unlock()

	r.mu.Lock()
	if !fromBackend && r.resolved {
		r.mu.Unlock()
		return
	}
	r.resolved = true
	r.current = id
	subs := make([]func(*Identity), 0, len(r.subs))
	for _, fn := range r.subs {
		subs = append(subs, fn)
	}
	r.mu.Unlock()

	for _, fn := range subs {
		fn(id)
	}
}
