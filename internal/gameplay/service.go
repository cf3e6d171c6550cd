// Package gameplay runs player actions as single database transactions over
// the pure economy engines and publishes the resulting events.
package gameplay

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"lodyland/internal/collect"
	"lodyland/internal/content"
	"lodyland/internal/database"
	"lodyland/internal/database/repositories"
	"lodyland/internal/game"
	"lodyland/internal/progression"
	"lodyland/internal/quest"
	"lodyland/pkg/logger"
)

// ErrUnauthenticated is returned for missing or expired session tokens
var ErrUnauthenticated = errors.New("not authenticated")

const maxNameLength = 32

// Config holds the gameplay constants
type Config struct {
	Collect          collect.Config
	DailyRewardCoins int64
	MaxActiveQuests  int
	StartingCards    map[string]int
	SessionTTL       time.Duration
}

// DefaultConfig returns the stock economy constants
func DefaultConfig() Config {
	return Config{
		Collect:          collect.DefaultConfig(),
		DailyRewardCoins: 50,
		MaxActiveQuests:  10,
		StartingCards:    map[string]int{"land_forest": 1},
		SessionTTL:       30 * 24 * time.Hour,
	}
}

// Service executes player actions
type Service struct {
	db      *database.DB
	content *content.Store
	cfg     Config
	events  game.EventSink
	tracker *quest.Tracker
	rng     *lockedRNG
	now     func() time.Time
	logger  *logger.ColoredLogger
}

// NewService creates the gameplay service. events may be nil.
func NewService(db *database.DB, store *content.Store, cfg Config, events game.EventSink) *Service {
	if events == nil {
		events = game.Sinks(nil)
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultConfig().SessionTTL
	}
	return &Service{
		db:      db,
		content: store,
		cfg:     cfg,
		events:  events,
		tracker: quest.NewTracker(),
		rng:     &lockedRNG{r: rand.New(rand.NewSource(time.Now().UnixNano()))},
		now:     time.Now,
		logger:  logger.NewComponentLogger("GAMEPLAY", logger.ColorGreen),
	}
}

// Content returns the registry new requests run against
func (s *Service) Content() *content.Registry {
	return s.content.Current()
}

// SetRandSource replaces the loot RNG, for reproducible runs
func (s *Service) SetRandSource(src rand.Source) {
	s.rng.mu.Lock()
	s.rng.r = rand.New(src)
	s.rng.mu.Unlock()
}

// SetClock replaces the time source
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// lockedRNG makes a *rand.Rand safe for concurrent requests
type lockedRNG struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (l *lockedRNG) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

func (l *lockedRNG) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Intn(n)
}

// engines builds the collection and progression engines over reg
func (s *Service) engines(reg *content.Registry) (*collect.Engine, *progression.Engine) {
	prog := progression.NewEngine(reg)
	return collect.NewEngine(reg, prog, s.rng, s.cfg.Collect), prog
}

// txn runs fn in one transaction and publishes the collected events only
// after a successful commit
func (s *Service) txn(ctx context.Context, fn func(r *database.Repository, emit func(game.Event)) error) error {
	var pending []game.Event
	emit := func(e game.Event) { pending = append(pending, e) }

	if err := s.db.WithTx(ctx, func(r *database.Repository) error { return fn(r, emit) }); err != nil {
		return err
	}
	for _, e := range pending {
		s.events.Publish(e)
	}
	return nil
}

// loadState reads the player with stock and cards
func loadState(ctx context.Context, r *database.Repository, playerID int64) (*game.PlayerState, error) {
	p, err := r.Players.GetByID(ctx, playerID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, game.Reject(game.ReasonPlayerNotFound)
		}
		return nil, err
	}
	return r.Stock.LoadState(ctx, p)
}

// saveState writes the player row and dirty inventory rows
func (s *Service) saveState(ctx context.Context, r *database.Repository, state *game.PlayerState, now time.Time) error {
	if err := r.Stock.SaveState(ctx, state); err != nil {
		return err
	}
	return r.Players.Save(ctx, state.Player, now)
}

// Session is a fresh login
type Session struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	Player    *game.Player `json:"player"`
}

func (s *Service) newSession(ctx context.Context, r *database.Repository, p *game.Player, now time.Time) (*Session, error) {
	sess := &repositories.Session{
		Token:     uuid.NewString(),
		PlayerID:  p.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.SessionTTL),
	}
	if err := r.Sessions.Create(ctx, sess); err != nil {
		return nil, err
	}
	return &Session{Token: sess.Token, ExpiresAt: sess.ExpiresAt, Player: p}, nil
}

// Register creates a player with the starting cards and logs them in
func (s *Service) Register(ctx context.Context, name string) (*Session, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxNameLength {
		return nil, game.Reject(game.ReasonInvalidName, "max_length", maxNameLength)
	}
	reg := s.content.Current()
	now := s.now()

	var out *Session
	err := s.txn(ctx, func(r *database.Repository, emit func(game.Event)) error {
		p, err := r.Players.Create(ctx, name, now)
		if errors.Is(err, repositories.ErrDuplicate) {
			return game.Reject(game.ReasonNameTaken, "name", name)
		}
		if err != nil {
			return err
		}

		state := game.NewPlayerState(p, nil, nil)
		for key, qty := range s.cfg.StartingCards {
			if _, ok := reg.Card(key); !ok {
				s.logger.Warn("Starting card %s is not defined, skipped", key)
				continue
			}
			state.AddCard(key, qty)
		}
		if err := r.Stock.SaveState(ctx, state); err != nil {
			return err
		}

		if out, err = s.newSession(ctx, r, p, now); err != nil {
			return err
		}
		emit(game.NewEvent(game.EventRegister, p.ID, now, map[string]any{"name": p.Name}))
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Registered player %s (ID: %d)", out.Player.Name, out.Player.ID)
	return out, nil
}

// Login opens a new session for an existing player
func (s *Service) Login(ctx context.Context, name string) (*Session, error) {
	name = strings.TrimSpace(name)
	now := s.now()

	var out *Session
	err := s.txn(ctx, func(r *database.Repository, _ func(game.Event)) error {
		p, err := r.Players.GetByName(ctx, name)
		if errors.Is(err, repositories.ErrNotFound) {
			return game.Reject(game.ReasonPlayerNotFound, "name", name)
		}
		if err != nil {
			return err
		}
		out, err = s.newSession(ctx, r, p, now)
		return err
	})
	return out, err
}

// PlayerForSession resolves a session token to its player
func (s *Service) PlayerForSession(ctx context.Context, token string) (*game.Player, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}
	var p *game.Player
	err := s.txn(ctx, func(r *database.Repository, _ func(game.Event)) error {
		sess, err := r.Sessions.Get(ctx, token, s.now())
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrUnauthenticated
		}
		if err != nil {
			return err
		}
		p, err = r.Players.GetByID(ctx, sess.PlayerID)
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrUnauthenticated
		}
		return err
	})
	return p, err
}

// Logout drops a session
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.txn(ctx, func(r *database.Repository, _ func(game.Event)) error {
		return r.Sessions.Delete(ctx, token)
	})
}

// PurgeSessions deletes expired sessions
func (s *Service) PurgeSessions(ctx context.Context) (int64, error) {
	var n int64
	err := s.txn(ctx, func(r *database.Repository, _ func(game.Event)) error {
		var err error
		n, err = r.Sessions.DeleteExpired(ctx, s.now())
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to purge sessions: %w", err)
	}
	return n, nil
}
