package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/supportdesk/internal/client/api"
	"github.com/dmitrijs2005/supportdesk/internal/client/models"
	"github.com/dmitrijs2005/supportdesk/internal/common"
)

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("ok persists session", func(t *testing.T) {
		gw := newFakeGateway()
		gw.loginResp = models.AuthResponse{AccessToken: "jwt", User: alice}
		sess := &fakeSession{}
		svc := NewAuthService(gw, sess, nil)

		u, err := svc.Login(ctx, "  alice ", []byte("password"))
		require.NoError(t, err)
		assert.Equal(t, alice, u)
		assert.Equal(t, "jwt", sess.token)

		cur, ok := svc.Current()
		require.True(t, ok)
		assert.Equal(t, "alice", cur.Username)
	})

	t.Run("blank credentials make no call", func(t *testing.T) {
		gw := newFakeGateway()
		svc := NewAuthService(gw, &fakeSession{}, nil)

		_, err := svc.Login(ctx, " ", []byte("x"))
		require.ErrorIs(t, err, ErrEmptyCredentials)
		_, err = svc.Login(ctx, "alice", nil)
		require.ErrorIs(t, err, ErrEmptyCredentials)
		assert.Zero(t, gw.logins)
	})

	t.Run("gateway error is wrapped", func(t *testing.T) {
		gw := newFakeGateway()
		gw.loginErr = &api.Error{StatusCode: 401, Message: "Bad credentials"}
		sess := &fakeSession{}
		svc := NewAuthService(gw, sess, nil)

		_, err := svc.Login(ctx, "alice", []byte("nope"))
		require.ErrorIs(t, err, common.ErrorUnauthorized)
		assert.Empty(t, sess.token)
	})

	t.Run("empty token", func(t *testing.T) {
		gw := newFakeGateway()
		gw.loginResp = models.AuthResponse{User: alice}
		svc := NewAuthService(gw, &fakeSession{}, nil)

		_, err := svc.Login(ctx, "alice", []byte("password"))
		require.Error(t, err)
	})

	t.Run("session error", func(t *testing.T) {
		gw := newFakeGateway()
		gw.loginResp = models.AuthResponse{AccessToken: "jwt", User: alice}
		boom := errors.New("disk full")
		svc := NewAuthService(gw, &fakeSession{loginFn: func() error { return boom }}, nil)

		_, err := svc.Login(ctx, "alice", []byte("password"))
		require.ErrorIs(t, err, boom)
	})
}

func TestAuthService_Logout(t *testing.T) {
	sess := loggedIn(alice)
	svc := NewAuthService(newFakeGateway(), sess, nil)

	require.NoError(t, svc.Logout(context.Background()))
	_, ok := svc.Current()
	assert.False(t, ok)
	assert.Equal(t, 1, sess.logouts)
}
