package auth

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

func sessionKey(id string) string {
	return "session:" + id
}

func userSessionKey(userID string) string {
	return "session:user:" + userID
}

var _ SessionStore = (*RedisSessionStore)(nil)

// RedisSessionStore keeps each session in a hash that expires with it, plus a
// per-user pointer so a new login replaces the previous session.
type RedisSessionStore struct {
	client *redis.Client
}

func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func NewRedisSessionStore(client *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{client: client}
}

func (r *RedisSessionStore) Create(ctx context.Context, userID string, ttl time.Duration) (Session, error) {
	session := Session{
		SessionID: uuid.NewString(),
		UserID:    userID,
		ExpiresAt: time.Now().Add(ttl),
	}

	previous, err := r.client.Get(ctx, userSessionKey(userID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return Session{}, err
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if previous != "" {
			pipe.Del(ctx, sessionKey(previous))
		}
		pipe.HSet(ctx, sessionKey(session.SessionID),
			"user_id", session.UserID,
			"expires_at", strconv.FormatInt(session.ExpiresAt.UnixNano(), 10),
			"edit_mode", "0",
		)
		pipe.Expire(ctx, sessionKey(session.SessionID), ttl)
		pipe.Set(ctx, userSessionKey(userID), session.SessionID, ttl)
		return nil
	})
	if err != nil {
		return Session{}, err
	}
	return session, nil
}

func (r *RedisSessionStore) Find(ctx context.Context, sessionID string) (Session, error) {
	fields, err := r.client.HGetAll(ctx, sessionKey(sessionID)).Result()
	if err != nil {
		return Session{}, err
	}
	if len(fields) == 0 {
		return Session{}, ErrSessionNotFound
	}

	nanos, err := strconv.ParseInt(fields["expires_at"], 10, 64)
	if err != nil {
		return Session{}, err
	}

	return Session{
		SessionID: sessionID,
		UserID:    fields["user_id"],
		ExpiresAt: time.Unix(0, nanos),
		EditMode:  fields["edit_mode"] == "1",
	}, nil
}

func (r *RedisSessionStore) Delete(ctx context.Context, sessionID string) error {
	userID, err := r.client.HGet(ctx, sessionKey(sessionID), "user_id").Result()
	if errors.Is(err, redis.Nil) {
		return ErrSessionNotFound
	}
	if err != nil {
		return err
	}

	return r.client.Del(ctx, sessionKey(sessionID), userSessionKey(userID)).Err()
}

func (r *RedisSessionStore) Refresh(ctx context.Context, sessionID string, ttl time.Duration) (time.Time, error) {
	session, err := r.Find(ctx, sessionID)
	if err != nil {
		return time.Time{}, err
	}

	expiresAt := time.Now().Add(ttl)
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, sessionKey(sessionID), "expires_at", strconv.FormatInt(expiresAt.UnixNano(), 10))
		pipe.Expire(ctx, sessionKey(sessionID), ttl)
		pipe.Expire(ctx, userSessionKey(session.UserID), ttl)
		return nil
	})
	if err != nil {
		return time.Time{}, err
	}
	return expiresAt, nil
}

func (r *RedisSessionStore) ToggleEditMode(ctx context.Context, sessionID string) (bool, error) {
	key := sessionKey(sessionID)
	var enabled bool

	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.HGet(ctx, key, "edit_mode").Result()
		if errors.Is(err, redis.Nil) {
			return ErrSessionNotFound
		}
		if err != nil {
			return err
		}

		enabled = current != "1"
		value := "0"
		if enabled {
			value = "1"
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, "edit_mode", value)
			return nil
		})
		return err
	}, key)

	return enabled, err
}
