package sessionsvc

import (
	"context"
	"sync"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/session"
)

var errUnexpectedSigningMethod = errors.New("unexpected token signing method")

// TokenBackend is a session.Backend over a locally held signed token (the
// hosted auth service issues it; we only verify and observe it). SetToken and
// SignOut fire change notifications.
type TokenBackend struct {
	secretKey []byte

	mu      sync.Mutex
	raw     string
	subs    map[int]func(*session.Identity)
	nextSub int
}

var _ session.Backend = (*TokenBackend)(nil)

func NewTokenBackend(conf *core.Config) *TokenBackend {
	return &TokenBackend{
		secretKey: []byte(conf.SecretKey),
		subs:      make(map[int]func(*session.Identity)),
	}
}

func (b *TokenBackend) parse(raw string) (*session.Identity, error) {
	claims := new(jwt.StandardClaims)
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errUnexpectedSigningMethod
		}
		return b.secretKey, nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "parsing session token")
	}
	return &session.Identity{
		UserID:    claims.Subject,
		Token:     raw,
		ExpiresAt: time.Unix(claims.ExpiresAt, 0).UTC(),
	}, nil
}

// SetToken installs a new session token (sign-in or refresh) and notifies.
func (b *TokenBackend) SetToken(raw string) error {
	id, err := b.parse(raw)
	if err != nil {
		return err
	}

	b.mu.Lock()
	b.raw = raw
	subs := b.snapshotSubs()
	b.mu.Unlock()

	for _, fn := range subs {
		fn(id)
	}
	return nil
}

func (b *TokenBackend) CurrentSession(ctx context.Context) (*session.Identity, error) {
	b.mu.Lock()
	raw := b.raw
	b.mu.Unlock()

	if raw == "" {
		return nil, nil
	}
	id, err := b.parse(raw)
	if err != nil {
		return nil, err
	}
	if id.Expired() {
		return nil, nil
	}
	return id, nil
}

func (b *TokenBackend) SignOut(ctx context.Context) error {
	b.mu.Lock()
	b.raw = ""
	subs := b.snapshotSubs()
	b.mu.Unlock()

	for _, fn := range subs {
		fn(nil)
	}
	return nil
}

func (b *TokenBackend) OnChange(fn func(*session.Identity)) (unsubscribe func()) {
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

// snapshotSubs must be called with b.mu held.
func (b *TokenBackend) snapshotSubs() []func(*session.Identity) {
	subs := make([]func(*session.Identity), 0, len(b.subs))
	for _, fn := range b.subs {
		subs = append(subs, fn)
	}
	return subs
}
