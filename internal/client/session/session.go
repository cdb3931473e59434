// Package session owns the authenticated identity of the client: the bearer
// token and user record, their persistence in the local database, and the
// forced-logout notifications the API client triggers on a 401.
package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrijs2005/supportdesk/internal/client/models"
	"github.com/dmitrijs2005/supportdesk/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/supportdesk/internal/dbx"
	"github.com/dmitrijs2005/supportdesk/internal/logging"
)

const (
	keyToken = "token"
	keyUser  = "user"
)

// Store is safe for concurrent use. A Store with a nil database keeps the
// session in memory only.
type Store struct {
	db  *sql.DB
	log logging.Logger
	now func() time.Time

	mu        sync.RWMutex
	token     string
	user      *models.User
	listeners []func()
}

type Option func(*Store)

// WithClock overrides the time source used for token expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithLogger(l logging.Logger) Option {
	return func(s *Store) { s.log = l }
}

func New(db *sql.DB, opts ...Option) *Store {
	s := &Store{db: db, log: logging.Discard(), now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Restore loads a persisted session. Incomplete, unreadable or expired
// sessions are wiped and leave the store logged out.
func (s *Store) Restore(ctx context.Context) error {
	if s.db == nil {
		return nil
	}

	repo := metadata.NewSQLiteRepository(s.db)
	vals, err := repo.GetMany(ctx, keyToken, keyUser)
	if err != nil {
		return fmt.Errorf("restore session: %w", err)
	}

	token := string(vals[keyToken])
	rawUser := vals[keyUser]
	if token == "" || len(rawUser) == 0 {
		if len(vals) > 0 {
			return s.wipe(ctx, "incomplete session")
		}
		return nil
	}

	if expired(token, s.now()) {
		return s.wipe(ctx, "token expired")
	}

	var u models.User
	if err := json.Unmarshal(rawUser, &u); err != nil {
		return s.wipe(ctx, "unreadable user record")
	}

	s.mu.Lock()
	s.token = token
	s.user = &u
	s.mu.Unlock()

	s.log.Debug(ctx, "session restored", "user", u.Username)
	return nil
}

func (s *Store) wipe(ctx context.Context, reason string) error {
	s.log.Info(ctx, "discarding stored session", "reason", reason)
	if err := metadata.NewSQLiteRepository(s.db).Delete(ctx, keyToken, keyUser); err != nil {
		return fmt.Errorf("discard session: %w", err)
	}
	return nil
}

// Login records a fresh session and persists it in one transaction.
func (s *Store) Login(ctx context.Context, token string, user models.User) error {
	if token == "" {
		return errors.New("empty token")
	}

	if s.db != nil {
		rawUser, err := json.Marshal(user)
		if err != nil {
			return fmt.Errorf("encode user: %w", err)
		}
		err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
			repo := metadata.NewSQLiteRepository(tx)
			if err := repo.Set(ctx, keyToken, []byte(token)); err != nil {
				return err
			}
			return repo.Set(ctx, keyUser, rawUser)
		})
		if err != nil {
			return fmt.Errorf("persist session: %w", err)
		}
	}

	u := user
	u.Roles = slices.Clone(user.Roles)

	s.mu.Lock()
	s.token = token
	s.user = &u
	s.mu.Unlock()

	s.log.Info(ctx, "logged in", "user", user.Username)
	return nil
}

// Logout clears the session. Listeners registered with OnLogout run only
// when a session was actually active.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	wasActive := s.token != ""
	s.token = ""
	s.user = nil
	listeners := slices.Clone(s.listeners)
	s.mu.Unlock()

	var err error
	if s.db != nil {
		if derr := metadata.NewSQLiteRepository(s.db).Delete(ctx, keyToken, keyUser); derr != nil {
			err = fmt.Errorf("clear session: %w", derr)
		}
	}

	if wasActive {
		s.log.Info(ctx, "logged out")
		for _, fn := range listeners {
			fn()
		}
	}
	return err
}

// OnLogout registers fn to run after every logout of an active session,
// including forced ones.
func (s *Store) OnLogout(fn func()) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns a copy of the current user.
func (s *Store) User() (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return models.User{}, false
	}
	u := *s.user
	u.Roles = slices.Clone(s.user.Roles)
	return u, true
}

func (s *Store) IsAuthenticated() bool {
	return s.Token() != ""
}

func (s *Store) Roles() []models.Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	return slices.Clone(s.user.Roles)
}

func (s *Store) HasRole(role models.Role) bool {
	return slices.Contains(s.Roles(), role)
}

// expired reports whether token is a JWT whose exp claim lies before now.
// Opaque tokens never expire client-side; the server has the final word.
func expired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !now.Before(exp.Time)
}
