// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
)

var _ Store = (*RedisStore)(nil)

// RedisStore keeps each document in a hash and announces writes on a
// pub/sub channel per key, so every process sharing the server is notified.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
	clock  clockwork.Clock
}

// NewRedisStore wraps an existing client. Keys are namespaced by prefix.
func NewRedisStore(rdb *redis.Client, prefix string, clock clockwork.Clock) *RedisStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &RedisStore{rdb: rdb, prefix: prefix, clock: clock}
}

// OpenRedisStore parses a redis:// URL and verifies the connection
func OpenRedisStore(ctx context.Context, url, prefix string, clock clockwork.Clock) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, classifyRedis(err)
	}
	return NewRedisStore(rdb, prefix, clock), nil
}

func (s *RedisStore) docKey(key string) string {
	return fmt.Sprintf("%sdoc:%s", s.prefix, key)
}

func (s *RedisStore) channel(key string) string {
	return fmt.Sprintf("%sevents:%s", s.prefix, key)
}

// Get retrieves a document by key
func (s *RedisStore) Get(ctx context.Context, key string) (Document, error) {
	fields, err := s.rdb.HGetAll(ctx, s.docKey(key)).Result()
	if err != nil {
		return Document{}, classifyRedis(err)
	}
	if len(fields) == 0 {
		return Document{}, ErrNotFound
	}
	return decodeHash(key, fields)
}

// Set stores a document unconditionally
func (s *RedisStore) Set(ctx context.Context, key string, body []byte) (Document, error) {
	k := s.docKey(key)
	now := s.clock.Now()

	var incr *redis.IntCmd
	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.HIncrBy(ctx, k, "version", 1)
		p.HSet(ctx, k, "body", string(body), "updated_at", now.UnixMilli())
		return nil
	})
	if err != nil {
		return Document{}, classifyRedis(err)
	}

	doc := Document{
		Key:       key,
		Body:      copyBody(body),
		Version:   incr.Val(),
		UpdatedAt: time.UnixMilli(now.UnixMilli()).UTC(),
	}
	s.publish(ctx, doc)
	return doc, nil
}

// CompareAndSet uses WATCH so the version check and write are atomic
func (s *RedisStore) CompareAndSet(ctx context.Context, key string, body []byte, version int64) (Document, error) {
	k := s.docKey(key)
	now := s.clock.Now()
	doc := Document{
		Key:       key,
		Body:      copyBody(body),
		Version:   version + 1,
		UpdatedAt: time.UnixMilli(now.UnixMilli()).UTC(),
	}

	err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.HGet(ctx, k, "version").Int64()
		if err == redis.Nil {
			current = 0
		} else if err != nil {
			return err
		}
		if current != version {
			return fmt.Errorf("%w: have %d, want %d", ErrConflict, current, version)
		}

		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.HSet(ctx, k, "body", string(body), "version", doc.Version, "updated_at", now.UnixMilli())
			return nil
		})
		return err
	}, k)

	if errors.Is(err, ErrConflict) {
		return Document{}, err
	}
	if errors.Is(err, redis.TxFailedErr) {
		return Document{}, fmt.Errorf("%w: %s changed during write", ErrConflict, key)
	}
	if err != nil {
		return Document{}, classifyRedis(err)
	}

	s.publish(ctx, doc)
	return doc, nil
}

func (s *RedisStore) publish(ctx context.Context, doc Document) {
	payload, err := json.Marshal(doc)
	if err != nil {
		slog.Error("failed to encode document event", "error", err, "key", doc.Key)
		return
	}
	// The write already succeeded; a lost notification is repaired by the next one
	if err := s.rdb.Publish(ctx, s.channel(doc.Key), payload).Err(); err != nil {
		slog.Warn("failed to publish document event", "error", err, "key", doc.Key)
	}
}

// Subscribe listens on the key's channel until ctx ends or Cancel is called
func (s *RedisStore) Subscribe(ctx context.Context, key string, fn func(Document)) (Subscription, error) {
	ps := s.rdb.Subscribe(ctx, s.channel(key))
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, classifyRedis(err)
	}

	sub := &redisSubscription{ps: ps, done: make(chan struct{})}
	ch := ps.Channel()

	go func() {
		for {
			select {
			case <-ctx.Done():
				sub.Cancel()
				return
			case <-sub.done:
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var doc Document
				if err := json.Unmarshal([]byte(msg.Payload), &doc); err != nil {
					slog.Warn("dropping malformed document event", "error", err, "channel", msg.Channel)
					continue
				}
				fn(doc)
			}
		}
	}()

	return sub, nil
}

// Close closes the underlying client
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

type redisSubscription struct {
	ps   *redis.PubSub
	done chan struct{}
	once sync.Once
}

func (s *redisSubscription) Cancel() {
	s.once.Do(func() {
		close(s.done)
		s.ps.Close()
	})
}

func decodeHash(key string, fields map[string]string) (Document, error) {
	var version, updatedAt int64
	if _, err := fmt.Sscan(fields["version"], &version); err != nil {
		return Document{}, fmt.Errorf("%w: bad version for %s: %v", ErrUnavailable, key, err)
	}
	if _, err := fmt.Sscan(fields["updated_at"], &updatedAt); err != nil {
		return Document{}, fmt.Errorf("%w: bad updated_at for %s: %v", ErrUnavailable, key, err)
	}
	return Document{
		Key:       key,
		Body:      []byte(fields["body"]),
		Version:   version,
		UpdatedAt: time.UnixMilli(updatedAt).UTC(),
	}, nil
}

func classifyRedis(err error) error {
	if strings.HasPrefix(err.Error(), "NOPERM") || strings.HasPrefix(err.Error(), "NOAUTH") {
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
