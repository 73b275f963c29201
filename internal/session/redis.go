package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	gwerrors "product-strategy-gateway/internal/errors"
)

const defaultKeyPrefix = "strategy:session:"

// RedisOptions configures a RedisStore
type RedisOptions struct {
	Addr      string
	Password  string
	DB        int
	TTL       time.Duration
	KeyPrefix string
}

// RedisStore keeps view state in redis as JSON values that expire after TTL.
// Every Save refreshes the expiry.
type RedisStore struct {
	client redis.UniversalClient
	ttl    time.Duration
	prefix string
}

// NewRedisStore connects to redis and verifies the connection
func NewRedisStore(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", opts.Addr, err)
	}

	return NewRedisStoreWithClient(client, opts.TTL, opts.KeyPrefix), nil
}

// NewRedisStoreWithClient wraps an existing client
func NewRedisStoreWithClient(client redis.UniversalClient, ttl time.Duration, prefix string) *RedisStore {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &RedisStore{client: client, ttl: ttl, prefix: prefix}
}

func (r *RedisStore) key(id string) string {
	return r.prefix + id
}

// Create stores and returns a new empty state
func (r *RedisStore) Create(ctx context.Context) (*State, error) {
	state := NewState()
	if err := r.Save(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

// Get loads the state with the given id
func (r *RedisStore) Get(ctx context.Context, id string) (*State, error) {
	if id == "" {
		return nil, gwerrors.ErrSessionIDRequired
	}

	data, err := r.client.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, gwerrors.NewNotFoundError("session", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", id, err)
	}
	return decodeState(data)
}

// Save writes state and refreshes its expiry
func (r *RedisStore) Save(ctx context.Context, state *State) error {
	if state == nil || state.ID == "" {
		return gwerrors.ErrSessionIDRequired
	}

	state.UpdatedAt = time.Now().UTC()
	data, err := encodeState(state)
	if err != nil {
		return err
	}

	if err := r.client.Set(ctx, r.key(state.ID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session %s: %w", state.ID, err)
	}
	return nil
}

// Delete removes a state
func (r *RedisStore) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, r.key(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	return nil
}

// Close releases the redis connection pool
func (r *RedisStore) Close() error {
	return r.client.Close()
}

// Ping checks the redis connection
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
