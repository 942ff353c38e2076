package session

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
)

const activeSessionsKey = "active_sessions"

// Journal persists session activity outside the process.
type Journal interface {
	Opened(ctx context.Context, s *Session) error
	Record(ctx context.Context, sessionID string, ev Event) error
	Closed(ctx context.Context, sessionID string) error
	Close() error
}

// RedisJournal mirrors each session as a hash plus a capped list of log
// entries, both expiring after the session timeout.
type RedisJournal struct {
	client   redis.Cmdable
	closer   func() error
	ttl      time.Duration
	capacity int64
}

// NewRedisJournal connects to Redis. It returns an error when the server
// is unreachable so callers can run without a journal.
func NewRedisJournal(ctx context.Context, addr, password string, ttl time.Duration, capacity int) (*RedisJournal, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis unavailable at %s: %w", addr, err)
	}

	return newRedisJournal(client, client.Close, ttl, capacity), nil
}

func newRedisJournal(client redis.Cmdable, closer func() error, ttl time.Duration, capacity int) *RedisJournal {
	if capacity <= 0 {
		capacity = DefaultLogCapacity
	}
	return &RedisJournal{
		client:   client,
		closer:   closer,
		ttl:      ttl,
		capacity: int64(capacity),
	}
}

func sessionKey(id string) string { return "session:" + id }
func logsKey(id string) string    { return "session:" + id + ":logs" }

// Opened stores the session hash and marks it active.
func (j *RedisJournal) Opened(ctx context.Context, s *Session) error {
	key := sessionKey(s.ID)
	if err := j.client.HSet(ctx, key, map[string]interface{}{
		"created_at":    s.CreatedAt.Format(time.RFC3339),
		"last_activity": time.Now().Format(time.RFC3339),
		"status":        StatusIdle.String(),
		"active":        true,
	}).Err(); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	if err := j.client.SAdd(ctx, activeSessionsKey, s.ID).Err(); err != nil {
		return fmt.Errorf("failed to mark session active: %w", err)
	}
	return j.client.Expire(ctx, key, j.ttl).Err()
}

// Record applies one state event. Frames are not journaled.
func (j *RedisJournal) Record(ctx context.Context, sessionID string, ev Event) error {
	key := sessionKey(sessionID)
	now := time.Now().Format(time.RFC3339)

	switch ev.Kind {
	case EventStatus:
		if err := j.client.HSet(ctx, key, "status", ev.Status.String(), "last_activity", now).Err(); err != nil {
			return fmt.Errorf("failed to record status: %w", err)
		}
	case EventActive:
		if err := j.client.HSet(ctx, key, "active", ev.Active, "last_activity", now).Err(); err != nil {
			return fmt.Errorf("failed to record active flag: %w", err)
		}
		if !ev.Active {
			return j.client.SRem(ctx, activeSessionsKey, sessionID).Err()
		}
	case EventLog:
		data, err := sonic.Marshal(ev.Log)
		if err != nil {
			return fmt.Errorf("failed to encode log entry: %w", err)
		}
		lk := logsKey(sessionID)
		if err := j.client.RPush(ctx, lk, data).Err(); err != nil {
			return fmt.Errorf("failed to append log entry: %w", err)
		}
		if err := j.client.LTrim(ctx, lk, -j.capacity, -1).Err(); err != nil {
			return fmt.Errorf("failed to trim log: %w", err)
		}
		return j.client.Expire(ctx, lk, j.ttl).Err()
	default:
		return nil
	}
	return j.client.Expire(ctx, key, j.ttl).Err()
}

// Closed removes the session from the active set. The hash and logs stay
// until they expire.
func (j *RedisJournal) Closed(ctx context.Context, sessionID string) error {
	return j.client.SRem(ctx, activeSessionsKey, sessionID).Err()
}

// Close releases the Redis client.
func (j *RedisJournal) Close() error {
	if j.closer == nil {
		return nil
	}
	return j.closer()
}
