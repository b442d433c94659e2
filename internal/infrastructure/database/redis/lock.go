package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/turtacn/ChemScribe/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/ChemScribe/pkg/errors"
	"github.com/turtacn/ChemScribe/pkg/types/common"
)

// SessionLocker serializes workflow transitions per session: at most one
// transition may hold a session's lock at a time.  A second caller gets the
// session-busy conflict immediately; it never queues.
type SessionLocker interface {
	// Acquire takes the session lock, returning a release function.
	// Fails with ErrCodeSessionBusy when another transition holds it.
	Acquire(ctx context.Context, sessionID common.ID) (release func(), err error)
}

// unlockScript releases the lock only when the caller still owns it, so an
// expired-and-reacquired lock is never released by the previous holder.
var unlockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`)

type sessionLocker struct {
	client *Client
	ttl    time.Duration
	logger logging.Logger
}

// NewSessionLocker constructs the Redis-backed locker.  The TTL bounds how
// long a crashed process can block its session.
func NewSessionLocker(client *Client, ttl time.Duration, logger logging.Logger) SessionLocker {
	return &sessionLocker{
		client: client,
		ttl:    ttl,
		logger: logger.Named("redis.lock"),
	}
}

func (l *sessionLocker) Acquire(ctx context.Context, sessionID common.ID) (func(), error) {
	key := l.client.Key("lock", "session", string(sessionID))
	token := uuid.NewString()

	ok, err := l.client.Underlying().SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeCacheError, "failed to acquire session lock")
	}
	if !ok {
		return nil, apperrors.New(apperrors.ErrCodeSessionBusy,
			"another transition is in progress for this session").
			WithDetail("session=" + string(sessionID))
	}

	release := func() {
		// Release outlives the request context.
		rctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := unlockScript.Run(rctx, l.client.Underlying(), []string{key}, token).Err(); err != nil {
			l.logger.Warn("failed to release session lock",
				logging.String("session", string(sessionID)), logging.Err(err))
		}
	}
	return release, nil
}

// NoopLocker performs no locking.  Single-process deployments and tests use
// it in place of the Redis-backed locker.
type NoopLocker struct{}

// Acquire implements SessionLocker.
func (NoopLocker) Acquire(context.Context, common.ID) (func(), error) {
	return func() {}, nil
}
