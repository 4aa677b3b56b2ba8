package locks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/vidyasetu/vidyasetu-backend/internal/platform/logger"
)

// ErrHeld is returned when another run already holds the learner lock.
// Callers surface it as a concurrent-update conflict and retry.
var ErrHeld = fmt.Errorf("learner lock already held")

// LearnerLocker serializes orchestrator runs per learner. Cross-learner runs
// never contend: keys are scoped to a single learner ID.
type LearnerLocker interface {
	Acquire(ctx context.Context, learnerID uuid.UUID, ttl time.Duration) (release func(), err error)
}

type redisLocker struct {
	log *logger.Logger
	rdb *goredis.Client
}

func NewRedisLocker(log *logger.Logger, rdb *goredis.Client) (LearnerLocker, error) {
	if rdb == nil {
		return nil, fmt.Errorf("redis client required")
	}
	return &redisLocker{log: log.With("service", "RedisLearnerLocker"), rdb: rdb}, nil
}

func lockKey(learnerID uuid.UUID) string {
	return "progression:lock:" + learnerID.String()
}

func (l *redisLocker) Acquire(ctx context.Context, learnerID uuid.UUID, ttl time.Duration) (func(), error) {
	if learnerID == uuid.Nil {
		return nil, fmt.Errorf("missing learner_id")
	}
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	key := lockKey(learnerID)
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire learner lock: %w", err)
	}
	if !ok {
		return nil, ErrHeld
	}
	release := func() {
		// Delete only if we still own the lock; an expired lock may have
		// been re-acquired by a newer run.
		rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		const script = `if redis.call("get", KEYS[1]) == ARGV[1] then return redis.call("del", KEYS[1]) else return 0 end`
		if err := l.rdb.Eval(rctx, script, []string{key}, token).Err(); err != nil && l.log != nil {
			l.log.Warn("learner lock release failed", "learner_id", learnerID.String(), "error", err)
		}
	}
	return release, nil
}

// memoryLocker is the single-process fallback when Redis is not configured.
type memoryLocker struct {
	mu   sync.Mutex
	held map[uuid.UUID]struct{}
}

func NewMemoryLocker() LearnerLocker {
	return &memoryLocker{held: make(map[uuid.UUID]struct{})}
}

func (l *memoryLocker) Acquire(_ context.Context, learnerID uuid.UUID, _ time.Duration) (func(), error) {
	if learnerID == uuid.Nil {
		return nil, fmt.Errorf("missing learner_id")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.held[learnerID]; busy {
		return nil, ErrHeld
	}
	l.held[learnerID] = struct{}{}
	release := func() {
		l.mu.Lock()
		delete(l.held, learnerID)
		l.mu.Unlock()
	}
	return release, nil
}
