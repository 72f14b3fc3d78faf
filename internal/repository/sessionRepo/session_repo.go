package sessionRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionRepo keeps portal login sessions in redis under a TTL.
type SessionRepo struct {
	Client *redis.Client
}

func New(client *redis.Client) *SessionRepo {
	return &SessionRepo{Client: client}
}

func (r *SessionRepo) buildKey(token string) string {
	return fmt.Sprintf("session:%s", token)
}

func (r *SessionRepo) SaveSession(ctx context.Context, token string, userID uuid.UUID, ttl time.Duration) error {
	key := r.buildKey(token)
	return r.Client.Set(ctx, key, userID.String(), ttl).Err()
}

func (r *SessionRepo) GetSession(ctx context.Context, token string) (uuid.UUID, error) {
	key := r.buildKey(token)
	value, err := r.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return uuid.Nil, ErrSessionNotFound
	}
	if err != nil {
		return uuid.Nil, err
	}
	userID, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, fmt.Errorf("corrupt session value: %w", err)
	}
	return userID, nil
}

func (r *SessionRepo) DeleteSession(ctx context.Context, token string) error {
	key := r.buildKey(token)
	return r.Client.Del(ctx, key).Err()
}
