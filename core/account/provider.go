package account

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/profile"
	"github.com/trezcool/darasa/core/session"
)

// Snapshot is the process-wide "who am I" state handed to every consumer.
// Loading is true until the first session resolution completes; consumers must
// render nothing protected while it is.
type Snapshot struct {
	Identity *session.Identity `json:"identity"`
	Profile  *profile.Profile  `json:"profile"`
	Loading  bool              `json:"is_loading"`
}

// Provider caches the current identity and its profile for the lifetime of
// the application. It re-resolves the profile on every session notification
// and republishes to subscribers.
//
// Ordering guarantees:
//   - identity is cleared before any repopulation, so a quick
//     sign-out/sign-in never shows the previous user's profile;
//   - a profile refresh commits only if it was triggered by the most recent
//     notification (last-notification-wins), stale results are discarded;
//   - nothing is delivered to a subscriber after it unsubscribes, and nothing
//     is committed after Close.
type Provider struct {
	resolver    *session.Resolver
	profileRepo profile.Repository
	logger      core.Logger

	mu      sync.Mutex
	seq     uint64 // bumped per notification; in-flight refreshes check it
	snap    Snapshot
	subs    map[int]func(Snapshot)
	nextSub int
	stop    func()
	closed  bool

	dispatchMu sync.Mutex

	// refreshes tracks in-flight profile fetches so tests can wait them out.
	refreshes sync.WaitGroup
}

func NewProvider(resolver *session.Resolver, profileRepo profile.Repository, logger core.Logger) *Provider {
	return &Provider{
		resolver:    resolver,
		profileRepo: profileRepo,
		logger:      logger,
		snap:        Snapshot{Loading: true},
		subs:        make(map[int]func(Snapshot)),
	}
}

// Start subscribes to the session resolver. Call once on activation.
func (p *Provider) Start(ctx context.Context) {
	p.mu.Lock()
	if p.stop != nil || p.closed {
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	stop := p.resolver.Subscribe(func(id *session.Identity) {
		p.onSession(ctx, id)
	})

	p.mu.Lock()
	if p.closed { // Close raced Start
		p.mu.Unlock()
		stop()
		return
	}
	p.stop = stop
	p.mu.Unlock()
}

// Close tears the provider down; in-flight refreshes become no-ops.
func (p *Provider) Close() {
	p.mu.Lock()
	p.closed = true
	p.seq++ // invalidate in-flight refreshes
	stop := p.stop
	p.stop = nil
	p.subs = make(map[int]func(Snapshot))
	p.mu.Unlock()

	if stop != nil {
		stop()
	}
	p.refreshes.Wait()
}

// Snapshot returns the current account state.
func (p *Provider) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snap
}

// Subscribe registers fn for every published Snapshot, starting with the
// current one. The returned function unregisters fn; fn is never called after
// it returns.
func (p *Provider) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	p.mu.Lock()
	key := p.nextSub
	p.nextSub++
	p.subs[key] = fn
	snap := p.snap
	p.mu.Unlock()

	p.dispatchMu.Lock()
	p.mu.Lock()
	_, alive := p.subs[key]
	p.mu.Unlock()
	if alive {
		fn(snap)
	}
	p.dispatchMu.Unlock()

	return func() {
		p.dispatchMu.Lock()
		defer p.dispatchMu.Unlock()
		p.mu.Lock()
		delete(p.subs, key)
		p.mu.Unlock()
	}
}

// onSession handles one resolver notification: clear first, then refresh the
// profile asynchronously under a sequence check.
func (p *Provider) onSession(ctx context.Context, id *session.Identity) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.seq++
	seq := p.seq
	p.mu.Unlock()

	if id == nil {
		// clear-before-repopulate: signed out state is published immediately
		p.publish(seq, Snapshot{})
		return
	}

	// publish the identity right away; profile follows when fetched
	p.publish(seq, Snapshot{Identity: id, Loading: true})

	p.refreshes.Add(1)
	go func() {
		defer p.refreshes.Done()

		prof, err := p.profileRepo.GetProfileByUserID(ctx, id.UserID)
		if err != nil {
			// both "no profile" and a denied read degrade to unknown fields
			if cause := errors.Cause(err); cause != profile.ErrNotFound && cause != profile.ErrDenied {
				p.logger.Error("fetching profile", errors.Wrap(err, "fetching profile"), *id)
			}
			p.publish(seq, Snapshot{Identity: id})
			return
		}
		p.publish(seq, Snapshot{Identity: id, Profile: &prof})
	}()
}

// publish commits snap iff seq is still the latest notification, then
// notifies subscribers in order.
func (p *Provider) publish(seq uint64, snap Snapshot) {
	p.dispatchMu.Lock()
	defer p.dispatchMu.Unlock()

	p.mu.Lock()
	if p.closed || seq != p.seq {
		p.mu.Unlock()
		return // a newer notification owns the state now
	}
	p.snap = snap
	subs := make([]func(Snapshot), 0, len(p.subs))
	for _, fn := range p.subs {
		subs = append(subs, fn)
	}
	p.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}
