package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	pkgerrors "github.com/fungalflux/storefront-backend/pkg/errors"
	"github.com/fungalflux/storefront-backend/pkg/redis"
)

// Store persists checkout sessions across page reloads.
type Store interface {
	Load(ctx context.Context, sessionID string) (*Session, error)
	Save(ctx context.Context, session *Session) error
	Delete(ctx context.Context, sessionID string) error
}

type redisStore struct {
	blobs redis.BlobStore
	ttl   time.Duration
}

// NewRedisStore builds a Redis-backed session store. Sessions expire after
// ttl of inactivity; every Save refreshes the clock.
func NewRedisStore(blobs redis.BlobStore, ttl time.Duration) Store {
	return &redisStore{blobs: blobs, ttl: ttl}
}

// Load returns the stored session, or a fresh one at the cart step when none
// exists yet. A missing key is the normal first-visit case, not an error.
func (s *redisStore) Load(ctx context.Context, sessionID string) (*Session, error) {
	raw, err := s.blobs.Get(ctx, s.blobs.CheckoutSessionKey(sessionID))
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return NewSession(sessionID), nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load checkout session")
	}

	var session Session
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		// A corrupt blob is unrecoverable; start the shopper over.
		return NewSession(sessionID), nil
	}
	session.SessionID = sessionID
	return &session, nil
}

func (s *redisStore) Save(ctx context.Context, session *Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode checkout session")
	}
	key := s.blobs.CheckoutSessionKey(session.SessionID)
	if err := s.blobs.Set(ctx, key, payload, s.ttl); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save checkout session")
	}
	return nil
}

func (s *redisStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.blobs.Del(ctx, s.blobs.CheckoutSessionKey(sessionID)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete checkout session")
	}
	return nil
}
