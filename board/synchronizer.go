// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package board

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/danielhkuo/pick-a-box/docstore"
	"github.com/danielhkuo/pick-a-box/models"
)

// Authenticator checks the admin password
type Authenticator interface {
	Authenticate(ctx context.Context, password string) error
}

// Options configures a Synchronizer
type Options struct {
	Key         string
	Size        int
	SeedSecrets []int

	// WriteMode is models.WriteModeCheckAndSet or models.WriteModeOverwrite.
	// Overwrite reproduces last-write-wins: two visitors racing for one box
	// can both succeed and the later name silently replaces the earlier one.
	WriteMode string
	// MaxRetries bounds re-fetch-and-retry after a version conflict
	MaxRetries int

	// ClaimOncePerDevice rejects a second claim from the same session within
	// a round. Best effort: a new session gets a fresh flag.
	ClaimOncePerDevice bool
	// ClaimOncePerIdentity requires an identity on every claim and allows at
	// most one box per identity, checked against the whole board.
	ClaimOncePerIdentity bool

	// PreserveSecretsOnShuffle permutes the current secrets instead of
	// regenerating 1..N.
	PreserveSecretsOnShuffle bool

	Clock clockwork.Clock
	Rand  *rand.Rand
}

// DefaultOptions returns the settings used when nothing is configured
func DefaultOptions() Options {
	return Options{
		Key:                models.DefaultBoardKey,
		Size:               models.DefaultBoardSize,
		WriteMode:          models.WriteModeCheckAndSet,
		MaxRetries:         3,
		ClaimOncePerDevice: true,
	}
}

// Subscription stops change notifications when cancelled
type Subscription interface {
	Cancel()
}

// Synchronizer owns the cached board and mediates every mutation against
// the document store. It is safe for concurrent use; mutations are
// serialized, including the store round trip.
type Synchronizer struct {
	store docstore.Store
	auth  Authenticator
	opts  Options
	clock clockwork.Clock

	mu       sync.Mutex
	rng      *rand.Rand
	board    models.Board
	version  int64
	ready    bool
	storeSub docstore.Subscription

	listenersMu  sync.Mutex
	listeners    map[int]func(models.Board)
	nextListener int
}

// New creates a Synchronizer. Call Initialize before use.
func New(store docstore.Store, authenticator Authenticator, opts Options) *Synchronizer {
	if opts.Key == "" {
		opts.Key = models.DefaultBoardKey
	}
	if opts.Size <= 0 {
		opts.Size = models.DefaultBoardSize
	}
	if opts.WriteMode == "" {
		opts.WriteMode = models.WriteModeCheckAndSet
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}

	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	return &Synchronizer{
		store:     store,
		auth:      authenticator,
		opts:      opts,
		clock:     clock,
		rng:       rng,
		listeners: make(map[int]func(models.Board)),
	}
}

// Options returns the effective configuration
func (s *Synchronizer) Options() Options {
	return s.opts
}

func (s *Synchronizer) checkAndSet() bool {
	return s.opts.WriteMode != models.WriteModeOverwrite
}

// Initialize loads the board, seeding and persisting it if the store has
// none, and starts following remote changes.
func (s *Synchronizer) Initialize(ctx context.Context) (models.Board, error) {
	doc, err := s.store.Get(ctx, s.opts.Key)
	if errors.Is(err, docstore.ErrNotFound) {
		doc, err = s.seed(ctx)
	}
	if err != nil {
		slog.Error("failed to load board", "error", err, "key", s.opts.Key)
		return models.Board{}, storeError(err)
	}

	b, err := decodeBoard(doc.Body)
	if err != nil {
		slog.Error("stored board is unreadable", "error", err, "key", s.opts.Key)
		return models.Board{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	s.mu.Lock()
	if doc.Version >= s.version {
		s.board = b
		s.version = doc.Version
	}
	s.ready = true
	snapshot := s.board.Clone()
	needSub := s.storeSub == nil
	s.mu.Unlock()

	if needSub {
		sub, err := s.store.Subscribe(context.Background(), s.opts.Key, s.onDocument)
		if err != nil {
			slog.Error("failed to subscribe to board", "error", err, "key", s.opts.Key)
			return snapshot, storeError(err)
		}
		s.mu.Lock()
		if s.storeSub == nil {
			s.storeSub = sub
			sub = nil
		}
		s.mu.Unlock()
		// Lost a race with a concurrent load
		if sub != nil {
			sub.Cancel()
		}
	}

	slog.Info("board ready", "key", s.opts.Key, "boxes", len(snapshot.Boxes), "version", doc.Version)
	return snapshot, nil
}

// loadTimeout bounds a retried load on a read path that has no context
const loadTimeout = 10 * time.Second

// ensureLoaded retries Initialize when the first load failed, so the next
// user action after a store outage brings the board back.
func (s *Synchronizer) ensureLoaded(ctx context.Context) error {
	s.mu.Lock()
	ready := s.ready
	s.mu.Unlock()
	if ready {
		return nil
	}
	slog.Info("board not loaded, retrying", "key", s.opts.Key)
	_, err := s.Initialize(ctx)
	return err
}

func (s *Synchronizer) ensureLoadedBackground() error {
	ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
	defer cancel()
	return s.ensureLoaded(ctx)
}

// seed creates the initial board. In check-and-set mode a concurrent seeder
// wins cleanly and its board is used instead.
func (s *Synchronizer) seed(ctx context.Context) (docstore.Document, error) {
	s.mu.Lock()
	b := Seed(s.opts.Size, s.opts.SeedSecrets, s.rng, s.clock.Now())
	s.mu.Unlock()

	body, err := json.Marshal(b)
	if err != nil {
		return docstore.Document{}, err
	}

	if !s.checkAndSet() {
		slog.Info("seeding board", "key", s.opts.Key, "boxes", len(b.Boxes))
		return s.store.Set(ctx, s.opts.Key, body)
	}

	doc, err := s.store.CompareAndSet(ctx, s.opts.Key, body, 0)
	if errors.Is(err, docstore.ErrConflict) {
		slog.Info("board seeded concurrently, loading it", "key", s.opts.Key)
		return s.store.Get(ctx, s.opts.Key)
	}
	if err == nil {
		slog.Info("seeded board", "key", s.opts.Key, "boxes", len(b.Boxes))
	}
	return doc, err
}

// Close stops following remote changes
func (s *Synchronizer) Close() {
	s.mu.Lock()
	sub := s.storeSub
	s.storeSub = nil
	s.mu.Unlock()
	if sub != nil {
		sub.Cancel()
	}
}

// onDocument reconciles a pushed snapshot into the cache. Snapshots older
// than the cache are dropped; the writer's own echo is still announced.
func (s *Synchronizer) onDocument(doc docstore.Document) {
	b, err := decodeBoard(doc.Body)
	if err != nil {
		slog.Warn("ignoring unreadable board snapshot", "error", err, "version", doc.Version)
		return
	}

	s.mu.Lock()
	if doc.Version < s.version {
		s.mu.Unlock()
		slog.Debug("ignoring stale board snapshot", "version", doc.Version)
		return
	}
	s.board = b
	s.version = doc.Version
	s.ready = true
	snapshot := s.board.Clone()
	s.mu.Unlock()

	s.notify(snapshot)
}

func (s *Synchronizer) notify(b models.Board) {
	s.listenersMu.Lock()
	fns := make([]func(models.Board), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.listenersMu.Unlock()

	for _, fn := range fns {
		fn(b.Clone())
	}
}

// Subscribe registers fn for every reconciled remote change, including
// echoes of this process's own writes. Callbacks must not block for long.
func (s *Synchronizer) Subscribe(fn func(models.Board)) Subscription {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn
	return &listener{s: s, id: id}
}

type listener struct {
	s    *Synchronizer
	id   int
	once sync.Once
}

func (l *listener) Cancel() {
	l.once.Do(func() {
		l.s.listenersMu.Lock()
		delete(l.s.listeners, l.id)
		l.s.listenersMu.Unlock()
	})
}

// Board returns a copy of the cached board, loading it first if needed
func (s *Synchronizer) Board() (models.Board, error) {
	if err := s.ensureLoadedBackground(); err != nil {
		return models.Board{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return models.Board{}, ErrNotInitialized
	}
	return s.board.Clone(), nil
}

// Version returns the store version the cache reflects
func (s *Synchronizer) Version() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// mutate applies fn to the board and persists the whole document.
//
// In overwrite mode fn runs on the cache itself, so a failed write leaves
// local state ahead of the store until the next snapshot arrives. In
// check-and-set mode fn runs on a copy; on a version conflict the board is
// re-fetched and fn runs again, so its checks see the winning write.
// committed runs under the lock once the write has landed.
func (s *Synchronizer) mutate(ctx context.Context, op string, fn func(b *models.Board) error, committed func()) (models.Board, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return models.Board{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ready {
		return models.Board{}, ErrNotInitialized
	}

	if !s.checkAndSet() {
		if err := fn(&s.board); err != nil {
			return models.Board{}, err
		}
		s.board.UpdatedAt = s.clock.Now()
		body, err := json.Marshal(s.board)
		if err != nil {
			return models.Board{}, err
		}
		doc, err := s.store.Set(ctx, s.opts.Key, body)
		if err != nil {
			slog.Error("failed to save board", "op", op, "error", err)
			return models.Board{}, storeError(err)
		}
		if doc.Version > s.version {
			s.version = doc.Version
		}
		if committed != nil {
			committed()
		}
		return s.board.Clone(), nil
	}

	for attempt := 0; ; attempt++ {
		next := s.board.Clone()
		if err := fn(&next); err != nil {
			return models.Board{}, err
		}
		next.UpdatedAt = s.clock.Now()
		body, err := json.Marshal(next)
		if err != nil {
			return models.Board{}, err
		}

		doc, err := s.store.CompareAndSet(ctx, s.opts.Key, body, s.version)
		if err == nil {
			s.board = next
			s.version = doc.Version
			if committed != nil {
				committed()
			}
			return next.Clone(), nil
		}

		if !errors.Is(err, docstore.ErrConflict) {
			slog.Error("failed to save board", "op", op, "error", err)
			return models.Board{}, storeError(err)
		}
		if attempt >= s.opts.MaxRetries {
			slog.Warn("giving up after version conflicts", "op", op, "attempts", attempt+1)
			return models.Board{}, storeError(err)
		}

		slog.Info("board changed underneath, reloading", "op", op, "version", s.version)
		fresh, err := s.store.Get(ctx, s.opts.Key)
		if err != nil {
			return models.Board{}, storeError(err)
		}
		b, err := decodeBoard(fresh.Body)
		if err != nil {
			return models.Board{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		s.board = b
		s.version = fresh.Version
	}
}

// Claim binds name to the box at index and returns it with its secret.
// Checks run against the cached board before anything is written.
func (s *Synchronizer) Claim(ctx context.Context, sess *Session, index int, name, identity string) (models.Box, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Box{}, ErrEmptyName
	}
	if s.opts.ClaimOncePerIdentity && identity == "" {
		return models.Box{}, ErrIdentityRequired
	}

	// Retries after a conflict target the same box even if it moved
	var boxID string
	var claimed models.Box
	var round int

	_, err := s.mutate(ctx, "claim", func(b *models.Board) error {
		if boxID == "" {
			if index < 0 || index >= len(b.Boxes) {
				return ErrInvalidIndex
			}
			boxID = b.Boxes[index].ID
		}
		i := indexOf(*b, boxID)
		if i < 0 {
			return ErrInvalidIndex
		}

		if b.Boxes[i].Claimed {
			return ErrAlreadyClaimed
		}
		if s.opts.ClaimOncePerDevice && sess != nil && sess.HasPicked(b.Round) {
			return ErrAlreadyPicked
		}
		if s.opts.ClaimOncePerIdentity {
			for _, box := range b.Boxes {
				if box.ClaimantRef != nil && *box.ClaimantRef == identity {
					return ErrIdentityHasClaim
				}
			}
		}

		now := s.clock.Now()
		box := &b.Boxes[i]
		box.Claimed = true
		box.Name = &name
		box.ClaimedAt = &now
		if identity != "" {
			ref := identity
			box.ClaimantRef = &ref
		}
		claimed = *box
		round = b.Round
		return nil
	}, func() {
		// Marked under the board lock so a second claim from this session sees it
		if sess != nil {
			sess.markPicked(round, claimed.ID)
		}
	})
	if err != nil {
		return models.Box{}, err
	}

	return claimed, nil
}

// Reveal returns the box this session claimed in the current round
func (s *Synchronizer) Reveal(sess *Session) (models.Box, error) {
	boxID, round, ok := sess.claim()
	if !ok {
		return models.Box{}, ErrNothingClaimed
	}
	if err := s.ensureLoadedBackground(); err != nil {
		return models.Box{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return models.Box{}, ErrNotInitialized
	}
	if round != s.board.Round {
		return models.Box{}, ErrNothingClaimed
	}
	i := indexOf(s.board, boxID)
	if i < 0 {
		return models.Box{}, ErrNothingClaimed
	}
	return s.board.Clone().Boxes[i], nil
}

// Login authenticates the session as admin
func (s *Synchronizer) Login(ctx context.Context, sess *Session, password string) error {
	if err := s.auth.Authenticate(ctx, password); err != nil {
		slog.Warn("admin login failed", "session", shortToken(sess.Token))
		return fmt.Errorf("%w: %v", ErrInvalidPassword, err)
	}
	sess.login()
	slog.Info("admin logged in", "session", shortToken(sess.Token))
	return nil
}

func requireAdmin(sess *Session) error {
	if sess == nil || !sess.IsAdmin() {
		return ErrAuthRequired
	}
	return nil
}

// AdminShuffle deals the secrets out again in a uniform random order
func (s *Synchronizer) AdminShuffle(ctx context.Context, sess *Session) (models.Board, error) {
	if err := requireAdmin(sess); err != nil {
		return models.Board{}, err
	}

	b, err := s.mutate(ctx, "shuffle", func(b *models.Board) error {
		var secrets []int
		if s.opts.PreserveSecretsOnShuffle {
			secrets = b.Secrets()
		} else {
			secrets = sequence(len(b.Boxes))
		}
		Shuffle(secrets, s.rng)
		for i := range b.Boxes {
			b.Boxes[i].Secret = secrets[i]
		}
		return nil
	}, nil)
	if err != nil {
		return models.Board{}, err
	}
	slog.Info("secrets shuffled", "boxes", len(b.Boxes))
	return b, nil
}

// AdminAddBox appends an unclaimed box whose secret is N+1
func (s *Synchronizer) AdminAddBox(ctx context.Context, sess *Session) (models.Board, error) {
	if err := requireAdmin(sess); err != nil {
		return models.Board{}, err
	}

	b, err := s.mutate(ctx, "add", func(b *models.Board) error {
		b.Boxes = append(b.Boxes, models.Box{
			ID:     uuid.NewString(),
			Secret: len(b.Boxes) + 1,
		})
		return nil
	}, nil)
	if err != nil {
		return models.Board{}, err
	}
	slog.Info("box added", "boxes", len(b.Boxes))
	return b, nil
}

// AdminRemoveBox deletes the box at index
func (s *Synchronizer) AdminRemoveBox(ctx context.Context, sess *Session, index int) (models.Board, error) {
	if err := requireAdmin(sess); err != nil {
		return models.Board{}, err
	}

	var boxID string
	b, err := s.mutate(ctx, "remove", func(b *models.Board) error {
		if boxID == "" {
			if index < 0 || index >= len(b.Boxes) {
				return ErrInvalidIndex
			}
			boxID = b.Boxes[index].ID
		}
		i := indexOf(*b, boxID)
		if i < 0 {
			return ErrInvalidIndex
		}
		b.Boxes = Remove(b.Boxes, i)
		return nil
	}, nil)
	if err != nil {
		return models.Board{}, err
	}
	slog.Info("box removed", "box_id", boxID, "boxes", len(b.Boxes))
	return b, nil
}

// AdminReorder moves the box at from to position to
func (s *Synchronizer) AdminReorder(ctx context.Context, sess *Session, from, to int) (models.Board, error) {
	if err := requireAdmin(sess); err != nil {
		return models.Board{}, err
	}

	if from == to {
		b, err := s.Board()
		if err != nil {
			return models.Board{}, err
		}
		if from < 0 || from >= len(b.Boxes) {
			return models.Board{}, ErrInvalidIndex
		}
		return b, nil
	}

	var boxID string
	b, err := s.mutate(ctx, "reorder", func(b *models.Board) error {
		if to < 0 || to >= len(b.Boxes) {
			return ErrInvalidIndex
		}
		if boxID == "" {
			if from < 0 || from >= len(b.Boxes) {
				return ErrInvalidIndex
			}
			boxID = b.Boxes[from].ID
		}
		i := indexOf(*b, boxID)
		if i < 0 {
			return ErrInvalidIndex
		}
		b.Boxes = Move(b.Boxes, i, to)
		return nil
	}, nil)
	if err != nil {
		return models.Board{}, err
	}
	slog.Info("box moved", "box_id", boxID, "from", from, "to", to)
	return b, nil
}

// AdminSetSecret overrides the number behind one box
func (s *Synchronizer) AdminSetSecret(ctx context.Context, sess *Session, index, secret int) (models.Board, error) {
	if err := requireAdmin(sess); err != nil {
		return models.Board{}, err
	}
	if secret <= 0 {
		return models.Board{}, ErrInvalidSecret
	}

	var boxID string
	b, err := s.mutate(ctx, "set-secret", func(b *models.Board) error {
		if boxID == "" {
			if index < 0 || index >= len(b.Boxes) {
				return ErrInvalidIndex
			}
			boxID = b.Boxes[index].ID
		}
		i := indexOf(*b, boxID)
		if i < 0 {
			return ErrInvalidIndex
		}
		b.Boxes[i].Secret = secret
		return nil
	}, nil)
	if err != nil {
		return models.Board{}, err
	}
	slog.Info("secret updated", "box_id", boxID)
	return b, nil
}

// AdminReset clears every claim after the admin re-enters the password.
// Secrets and ids are untouched. The round counter moves on, which clears
// the picked flag of every session.
func (s *Synchronizer) AdminReset(ctx context.Context, sess *Session, password string) (models.Board, error) {
	if err := requireAdmin(sess); err != nil {
		return models.Board{}, err
	}
	if err := s.auth.Authenticate(ctx, password); err != nil {
		return models.Board{}, fmt.Errorf("%w: %v", ErrInvalidPassword, err)
	}

	b, err := s.mutate(ctx, "reset", func(b *models.Board) error {
		ResetClaims(b)
		return nil
	}, nil)
	if err != nil {
		return models.Board{}, err
	}

	sess.clearPick()
	slog.Info("board reset", "round", b.Round)
	return b, nil
}

func shortToken(token string) string {
	if len(token) > 8 {
		return token[:8]
	}
	return token
}
