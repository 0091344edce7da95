package session_test

import (
	"context"
	"io/ioutil"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/darasa/core/session"
	logsvc "github.com/trezcool/darasa/services/logger"
)

var ctx = context.Background()

// stubBackend is a scriptable session.Backend.
type stubBackend struct {
	mu         sync.Mutex
	current    *session.Identity
	err        error
	fetchCalls int
	subs       map[int]func(*session.Identity)
	nextSub    int

	// onFetch, when set, runs inside CurrentSession before it returns. It lets
	// tests interleave a change event with the initial fetch.
	onFetch func()
}

var _ session.Backend = (*stubBackend)(nil)

func newStubBackend(current *session.Identity) *stubBackend {
	return &stubBackend{current: current, subs: make(map[int]func(*session.Identity))}
}

func (b *stubBackend) CurrentSession(ctx context.Context) (*session.Identity, error) {
	b.mu.Lock()
	b.fetchCalls++
	current, err, onFetch := b.current, b.err, b.onFetch
	b.mu.Unlock()

	if onFetch != nil {
		onFetch()
	}
	return current, err
}

func (b *stubBackend) SignOut(ctx context.Context) error {
	b.mu.Lock()
	b.current = nil
	b.mu.Unlock()
	b.fire(nil)
	return nil
}

func (b *stubBackend) OnChange(fn func(*session.Identity)) (unsubscribe func()) {
	b.mu.Lock()
	key := b.nextSub
	b.nextSub++
	b.subs[key] = fn
	b.mu.Unlock()
	return func() {
		b.mu.Lock()
		delete(b.subs, key)
		b.mu.Unlock()
	}
}

func (b *stubBackend) fire(id *session.Identity) {
	b.mu.Lock()
	b.current = id
	subs := make([]func(*session.Identity), 0, len(b.subs))
	for _, fn := range b.subs {
		subs = append(subs, fn)
	}
	b.mu.Unlock()
	for _, fn := range subs {
		fn(id)
	}
}

func testLogger() *logsvc.StdLogger {
	return logsvc.NewStdLogger(log.New(ioutil.Discard, "", 0))
}

func identity(userID string) *session.Identity {
	return &session.Identity{UserID: userID, ExpiresAt: time.Now().Add(time.Hour)}
}

func TestResolverInitialResolution(t *testing.T) {
	backend := newStubBackend(identity("u1"))
	r := session.NewResolver(backend, testLogger())
	defer r.Stop()

	assert.False(t, r.Resolved())
	assert.Nil(t, r.Current())

	r.Start(ctx)
	assert.True(t, r.Resolved())
	if assert.NotNil(t, r.Current()) {
		assert.Equal(t, "u1", r.Current().UserID)
	}

	// starting again must not re-resolve
	r.Start(ctx)
	assert.Equal(t, 1, backend.fetchCalls)
}

func TestResolverBackendErrorResolvesToNoIdentity(t *testing.T) {
	backend := newStubBackend(identity("u1"))
	backend.err = errors.New("session service unavailable")
	r := session.NewResolver(backend, testLogger())
	defer r.Stop()

	r.Start(ctx)
	// unknown identity must read as signed out, so consumers deny by default
	assert.True(t, r.Resolved())
	assert.Nil(t, r.Current())
}

func TestResolverEventDuringInitialFetchWins(t *testing.T) {
	backend := newStubBackend(identity("stale"))
	r := session.NewResolver(backend, testLogger())
	defer r.Stop()

	// a sign-in lands while the initial fetch is still in flight
	backend.onFetch = func() {
		backend.onFetch = nil
		backend.fire(identity("fresh"))
	}

	r.Start(ctx)
	if assert.NotNil(t, r.Current()) {
		assert.Equal(t, "fresh", r.Current().UserID)
	}
}

func TestResolverSubscribeDeliveryOrder(t *testing.T) {
	backend := newStubBackend(nil)
	r := session.NewResolver(backend, testLogger())
	defer r.Stop()

	var got []string
	record := func(id *session.Identity) {
		if id == nil {
			got = append(got, "<anon>")
			return
		}
		got = append(got, id.UserID)
	}

	unsub := r.Subscribe(record)
	defer unsub()

	r.Start(ctx)
	backend.fire(identity("u1"))
	backend.fire(nil) // sign-out right after; order must hold
	backend.fire(identity("u2"))

	assert.Equal(t, []string{"<anon>", "u1", "<anon>", "u2"}, got)
}

func TestResolverSubscribeAfterResolution(t *testing.T) {
	backend := newStubBackend(identity("u1"))
	r := session.NewResolver(backend, testLogger())
	defer r.Stop()
	r.Start(ctx)

	var got *session.Identity
	unsub := r.Subscribe(func(id *session.Identity) { got = id })
	defer unsub()

	// current state is delivered right away
	if assert.NotNil(t, got) {
		assert.Equal(t, "u1", got.UserID)
	}
}

func TestResolverNoDeliveryAfterUnsubscribe(t *testing.T) {
	backend := newStubBackend(nil)
	r := session.NewResolver(backend, testLogger())
	defer r.Stop()
	r.Start(ctx)

	var calls int
	unsub := r.Subscribe(func(id *session.Identity) { calls++ })
	unsub()
	backend.fire(identity("u1"))

	assert.Equal(t, 1, calls) // the immediate delivery only
}

func TestResolverStop(t *testing.T) {
	backend := newStubBackend(nil)
	r := session.NewResolver(backend, testLogger())
	r.Start(ctx)

	var calls int
	r.Subscribe(func(id *session.Identity) { calls++ })
	r.Stop()
	backend.fire(identity("u1"))

	assert.Equal(t, 1, calls)
}

func TestResolverSignOut(t *testing.T) {
	backend := newStubBackend(identity("u1"))
	r := session.NewResolver(backend, testLogger())
	defer r.Stop()
	r.Start(ctx)

	assert.NoError(t, r.SignOut(ctx))
	assert.Nil(t, r.Current())
}
