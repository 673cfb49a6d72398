// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package docstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// Requires a running redis, e.g. TEST_REDIS_ADDR=localhost:6379
func TestRedisStore(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}

	runStoreTests(t, func(t *testing.T) Store {
		rdb := redis.NewClient(&redis.Options{Addr: addr})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			t.Fatalf("redis ping: %v", err)
		}
		prefix := fmt.Sprintf("pickabox-test:%d:", time.Now().UnixNano())
		s := NewRedisStore(rdb, prefix, nil)
		t.Cleanup(func() {
			keys, _ := rdb.Keys(context.Background(), prefix+"*").Result()
			if len(keys) > 0 {
				rdb.Del(context.Background(), keys...)
			}
			s.Close()
		})
		return s
	})
}

func TestOpenRedisStoreBadURL(t *testing.T) {
	if _, err := OpenRedisStore(context.Background(), "not a url", "", nil); err == nil {
		t.Error("OpenRedisStore() should reject a malformed URL")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := OpenRedisStore(ctx, "redis://127.0.0.1:1/0", "", nil); !errors.Is(err, ErrUnavailable) {
		t.Errorf("OpenRedisStore() error = %v, want ErrUnavailable", err)
	}
}

func TestDecodeHash(t *testing.T) {
	doc, err := decodeHash("k", map[string]string{
		"body":       `{"a":1}`,
		"version":    "7",
		"updated_at": "1735732800000",
	})
	if err != nil {
		t.Fatalf("decodeHash() error = %v", err)
	}
	if doc.Version != 7 || string(doc.Body) != `{"a":1}` {
		t.Errorf("decodeHash() = %s v%d", doc.Body, doc.Version)
	}
	if want := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC); !doc.UpdatedAt.Equal(want) {
		t.Errorf("UpdatedAt = %v, want %v", doc.UpdatedAt, want)
	}

	if _, err := decodeHash("k", map[string]string{"version": "x"}); !errors.Is(err, ErrUnavailable) {
		t.Errorf("decodeHash() bad version error = %v, want ErrUnavailable", err)
	}
}

func TestClassifyRedis(t *testing.T) {
	tests := []struct {
		msg  string
		want error
	}{
		{"NOPERM this user has no permissions to run the 'hset' command", ErrPermissionDenied},
		{"NOAUTH Authentication required.", ErrPermissionDenied},
		{"dial tcp 127.0.0.1:6379: connect: connection refused", ErrUnavailable},
	}
	for _, tt := range tests {
		if got := classifyRedis(errors.New(tt.msg)); !errors.Is(got, tt.want) {
			t.Errorf("classifyRedis(%q) = %v, want %v", tt.msg, got, tt.want)
		}
	}
}
