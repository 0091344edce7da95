package sessionsvc

import (
	"context"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/darasa/core/session"
	testutil "github.com/trezcool/darasa/tests"
)

func makeToken(t *testing.T, secret, userID string, delta time.Duration) string {
	now := time.Now()
	claims := jwt.StandardClaims{
		Subject:   userID,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(delta).Unix(),
	}
	ss, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("makeToken(): %v", err)
	}
	return ss
}

func TestTokenBackend(t *testing.T) {
	conf := testutil.NewConfig()
	ctx := context.Background()
	backend := NewTokenBackend(conf)

	var events []*session.Identity
	unsub := backend.OnChange(func(id *session.Identity) { events = append(events, id) })
	defer unsub()

	t.Run("no token means signed out", func(t *testing.T) {
		id, err := backend.CurrentSession(ctx)
		assert.NoError(t, err)
		assert.Nil(t, id)
	})

	t.Run("garbage token is rejected", func(t *testing.T) {
		assert.Error(t, backend.SetToken("lol"))
		assert.Empty(t, events)
	})

	t.Run("token signed with another key is rejected", func(t *testing.T) {
		assert.Error(t, backend.SetToken(makeToken(t, "other-secret", "u1", time.Hour)))
		assert.Empty(t, events)
	})

	t.Run("valid token signs in and notifies", func(t *testing.T) {
		assert.NoError(t, backend.SetToken(makeToken(t, conf.SecretKey, "u1", time.Hour)))

		id, err := backend.CurrentSession(ctx)
		assert.NoError(t, err)
		if assert.NotNil(t, id) {
			assert.Equal(t, "u1", id.UserID)
			assert.False(t, id.Expired())
		}
		if assert.Len(t, events, 1) {
			assert.Equal(t, "u1", events[0].UserID)
		}
	})

	t.Run("sign out clears and notifies", func(t *testing.T) {
		assert.NoError(t, backend.SignOut(ctx))

		id, err := backend.CurrentSession(ctx)
		assert.NoError(t, err)
		assert.Nil(t, id)
		if assert.Len(t, events, 2) {
			assert.Nil(t, events[1])
		}
	})
}
