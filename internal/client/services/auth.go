package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/supportdesk/internal/client/models"
	"github.com/dmitrijs2005/supportdesk/internal/logging"
)

// ErrEmptyCredentials is returned before any network call when the username
// or password is blank.
var ErrEmptyCredentials = errors.New("username and password are required")

// AuthService defines authentication operations for the CLI.
//
// Contract:
//   - Login: authenticate against the API and persist the session.
//   - Logout: drop the session locally.
//   - Current: the logged-in user, if any.
type AuthService interface {
	Login(ctx context.Context, username string, password []byte) (models.User, error)
	Logout(ctx context.Context) error
	Current() (models.User, bool)
}

type authService struct {
	gw      AuthGateway
	session Session
	log     logging.Logger
}

func NewAuthService(gw AuthGateway, session Session, log logging.Logger) AuthService {
	if log == nil {
		log = logging.Discard()
	}
	return &authService{gw: gw, session: session, log: log}
}

func (a *authService) Login(ctx context.Context, username string, password []byte) (models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || len(password) == 0 {
		return models.User{}, ErrEmptyCredentials
	}

	resp, err := a.gw.Login(ctx, username, string(password))
	if err != nil {
		return models.User{}, fmt.Errorf("login error: %w", err)
	}
	if resp.AccessToken == "" {
		return models.User{}, errors.New("login error: empty access token")
	}

	if err := a.session.Login(ctx, resp.AccessToken, resp.User); err != nil {
		return models.User{}, fmt.Errorf("session saving error: %w", err)
	}
	return resp.User, nil
}

func (a *authService) Logout(ctx context.Context) error {
	return a.session.Logout(ctx)
}

func (a *authService) Current() (models.User, bool) {
	return a.session.User()
}
