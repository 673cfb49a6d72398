// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

var _ Store = (*NATSStore)(nil)

// NATSStore decorates a store so that writes are announced on NATS and
// subscriptions are fed from NATS. Several processes sharing one SQL
// database see each other's writes this way.
type NATSStore struct {
	inner  Store
	nc     *nats.Conn
	prefix string
}

// ConnectNATS dials NATS with reconnect handling
func ConnectNATS(url string) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			slog.Error("NATS disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			slog.Error("NATS error", "error", err)
		}),
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: connect to NATS: %v", ErrUnavailable, err)
	}
	return nc, nil
}

// NewNATSStore wraps inner. The store takes ownership of nc.
func NewNATSStore(inner Store, nc *nats.Conn, prefix string) *NATSStore {
	return &NATSStore{inner: inner, nc: nc, prefix: prefix}
}

// subject turns "app/state" into "<prefix>.app.state"
func (s *NATSStore) subject(key string) string {
	token := strings.NewReplacer("/", ".", " ", "_", "*", "_", ">", "_").Replace(key)
	return s.prefix + "." + token
}

func (s *NATSStore) Get(ctx context.Context, key string) (Document, error) {
	return s.inner.Get(ctx, key)
}

func (s *NATSStore) Set(ctx context.Context, key string, body []byte) (Document, error) {
	doc, err := s.inner.Set(ctx, key, body)
	if err != nil {
		return Document{}, err
	}
	s.publish(doc)
	return doc, nil
}

func (s *NATSStore) CompareAndSet(ctx context.Context, key string, body []byte, version int64) (Document, error) {
	doc, err := s.inner.CompareAndSet(ctx, key, body, version)
	if err != nil {
		return Document{}, err
	}
	s.publish(doc)
	return doc, nil
}

func (s *NATSStore) publish(doc Document) {
	payload, err := json.Marshal(doc)
	if err != nil {
		slog.Error("failed to encode document event", "error", err, "key", doc.Key)
		return
	}
	if err := s.nc.Publish(s.subject(doc.Key), payload); err != nil {
		slog.Warn("failed to publish document event", "error", err, "key", doc.Key)
	}
}

// Subscribe receives writes from every process publishing on the key's subject,
// including this one.
func (s *NATSStore) Subscribe(ctx context.Context, key string, fn func(Document)) (Subscription, error) {
	natsSub, err := s.nc.Subscribe(s.subject(key), func(msg *nats.Msg) {
		var doc Document
		if err := json.Unmarshal(msg.Data, &doc); err != nil {
			slog.Warn("dropping malformed document event", "error", err, "subject", msg.Subject)
			return
		}
		fn(doc)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: subscribe: %v", ErrUnavailable, err)
	}
	// Make sure the server knows about the interest before the first write
	if err := s.nc.Flush(); err != nil {
		natsSub.Unsubscribe()
		return nil, fmt.Errorf("%w: flush: %v", ErrUnavailable, err)
	}

	sub := &natsSubscription{sub: natsSub, done: make(chan struct{})}
	go func() {
		select {
		case <-ctx.Done():
			sub.Cancel()
		case <-sub.done:
		}
	}()
	return sub, nil
}

func (s *NATSStore) Close() error {
	s.nc.Close()
	return s.inner.Close()
}

type natsSubscription struct {
	sub  *nats.Subscription
	done chan struct{}
	once sync.Once
}

func (s *natsSubscription) Cancel() {
	s.once.Do(func() {
		close(s.done)
		if err := s.sub.Unsubscribe(); err != nil {
			slog.Debug("NATS unsubscribe failed", "error", err)
		}
	})
}
