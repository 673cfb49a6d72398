// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package docstore

import (
	"context"
	"sync"
)

// hub fans writes out to in-process subscribers. Publishing never blocks:
// each subscription has its own queue drained by its own goroutine, so a
// slow callback delays only itself.
type hub struct {
	mu   sync.Mutex
	subs map[string]map[*hubSubscription]struct{}
}

func newHub() *hub {
	return &hub{subs: make(map[string]map[*hubSubscription]struct{})}
}

func (h *hub) subscribe(ctx context.Context, key string, fn func(Document)) *hubSubscription {
	s := &hubSubscription{
		hub:  h,
		key:  key,
		fn:   fn,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	if h.subs[key] == nil {
		h.subs[key] = make(map[*hubSubscription]struct{})
	}
	h.subs[key][s] = struct{}{}
	h.mu.Unlock()

	go s.run()
	go func() {
		select {
		case <-ctx.Done():
			s.Cancel()
		case <-s.done:
		}
	}()

	return s
}

func (h *hub) publish(doc Document) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs[doc.Key] {
		s.enqueue(doc)
	}
}

func (h *hub) remove(s *hubSubscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs, ok := h.subs[s.key]; ok {
		delete(subs, s)
		if len(subs) == 0 {
			delete(h.subs, s.key)
		}
	}
}

func (h *hub) closeAll() {
	h.mu.Lock()
	var all []*hubSubscription
	for _, subs := range h.subs {
		for s := range subs {
			all = append(all, s)
		}
	}
	h.mu.Unlock()

	for _, s := range all {
		s.Cancel()
	}
}

type hubSubscription struct {
	hub  *hub
	key  string
	fn   func(Document)
	mu   sync.Mutex
	q    []Document
	wake chan struct{}
	done chan struct{}
	once sync.Once
}

func (s *hubSubscription) enqueue(doc Document) {
	s.mu.Lock()
	s.q = append(s.q, doc)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *hubSubscription) run() {
	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
		}

		for {
			s.mu.Lock()
			if len(s.q) == 0 {
				s.mu.Unlock()
				break
			}
			doc := s.q[0]
			s.q = s.q[1:]
			s.mu.Unlock()

			select {
			case <-s.done:
				return
			default:
			}
			s.fn(doc)
		}
	}
}

func (s *hubSubscription) Cancel() {
	s.once.Do(func() {
		close(s.done)
		s.hub.remove(s)
	})
}
