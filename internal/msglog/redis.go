package msglog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pitt-rnel/rtma/internal/rtmaerr"
)

// RedisStore is a Redis-backed Store. SAVE_MESSAGE_LOG's pathname is
// interpreted as a "redis://" address when it carries that scheme;
// Controller.OpenLog chooses the backend from it.
type RedisStore struct {
	client *redis.Client
	mu     sync.RWMutex
	closed bool
	prefix string
	index  string
}

// RedisStoreConfig configures the Redis-backed store.
type RedisStoreConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisStore dials addr and returns a ready RedisStore.
func NewRedisStore(cfg RedisStoreConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("rtma: connect to redis message log: %w", err)
	}

	return &RedisStore{
		client: client,
		prefix: "rtma:msglog:",
		index:  "rtma:msglog:index",
	}, nil
}

func (r *RedisStore) makeKey(key string) string { return r.prefix + key }

func (r *RedisStore) Save(ctx context.Context, key string, rec Record) error {
	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		return rtmaerr.ErrStoreClosed
	}
	r.mu.RUnlock()

	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	pipe := r.client.Pipeline()
	pipe.Set(ctx, r.makeKey(key), data, 0)
	pipe.SAdd(ctx, r.index, key)
	_, err = pipe.Exec(ctx)
	return err
}

func (r *RedisStore) Load(ctx context.Context, key string) (Record, error) {
	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		return Record{}, rtmaerr.ErrStoreClosed
	}
	r.mu.RUnlock()

	data, err := r.client.Get(ctx, r.makeKey(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Record{}, rtmaerr.ErrNotFound
		}
		return Record{}, err
	}

	var rec Record
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (r *RedisStore) List(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		return nil, rtmaerr.ErrStoreClosed
	}
	r.mu.RUnlock()

	keys, err := r.client.SMembers(ctx, r.index).Result()
	if err != nil {
		return nil, err
	}
	// Set members come back unordered; the zero-padded sequence keys make
	// lexical order the insertion order.
	sort.Strings(keys)
	return keys, nil
}

func (r *RedisStore) Reset(ctx context.Context) error {
	keys, err := r.List(ctx)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	pipe := r.client.Pipeline()
	for _, k := range keys {
		pipe.Del(ctx, r.makeKey(k))
	}
	pipe.Del(ctx, r.index)
	_, err = pipe.Exec(ctx)
	return err
}

func (r *RedisStore) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return rtmaerr.ErrStoreClosed
	}
	r.closed = true
	return r.client.Close()
}
