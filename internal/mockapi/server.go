// Package mockapi is an in-memory double of the supportdesk REST API and
// its object storage. It keeps just enough state and performs just enough
// checks to drive every client path, including injected storage failures
// and server-side session revocation.
package mockapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/supportdesk/internal/client/models"
	"github.com/dmitrijs2005/supportdesk/internal/cryptox"
	"github.com/dmitrijs2005/supportdesk/internal/logging"
	"github.com/dmitrijs2005/supportdesk/internal/mockapi/config"
	"github.com/dmitrijs2005/supportdesk/internal/mockapi/objstore"
)

// SeedPassword is the password of every seeded account.
const SeedPassword = "password"

const storagePrefix = "/storage"

type Server struct {
	cfg     *config.Config
	log     logging.Logger
	secret  []byte
	hashing cryptox.Params

	state   *state
	objects *objstore.Store
	epoch   atomic.Int64

	engine *gin.Engine
}

type Option func(*Server)

// WithPasswordParams overrides the argon2id cost used for seeded and
// verified passwords.
func WithPasswordParams(p cryptox.Params) Option {
	return func(s *Server) { s.hashing = p }
}

func New(ctx context.Context, cfg *config.Config, log logging.Logger, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:     cfg,
		log:     log.With("module", "mockapi"),
		secret:  []byte(cfg.SecretKey),
		hashing: cryptox.DefaultParams,
		state:   newState(),
	}
	for _, o := range opts {
		o(s)
	}

	objects, err := objstore.New(ctx, objstore.Config{
		Bucket:    cfg.Storage.Bucket,
		Region:    cfg.Storage.Region,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		Expiry:    cfg.Storage.URLExpiry,
	})
	if err != nil {
		return nil, fmt.Errorf("object store init error: %w", err)
	}
	s.objects = objects
	objects.OnRejectedPut(s.putRejected)

	if err := s.seed(); err != nil {
		return nil, err
	}

	s.engine = gin.New()
	s.engine.Use(gin.Recovery(), s.requestLogger)
	s.routes()
	return s, nil
}

func (s *Server) seed() error {
	accounts := []struct {
		name  string
		roles []models.Role
	}{
		{"user", []models.Role{models.RoleUser}},
		{"triage", []models.Role{models.RoleUser, models.RoleTriage}},
		{"admin", []models.Role{models.RoleUser, models.RoleAdmin}},
	}
	for _, a := range accounts {
		hash, err := cryptox.HashPassword([]byte(SeedPassword), s.hashing)
		if err != nil {
			return fmt.Errorf("seed %s: %w", a.name, err)
		}
		id := s.state.id()
		s.state.users[id] = &userRecord{
			User: models.User{
				ID:       id,
				Username: a.name,
				Email:    a.name + "@supportdesk.test",
				Roles:    a.roles,
			},
			passwordHash: hash,
		}
	}
	return nil
}

func (s *Server) routes() {
	api := s.engine.Group("/api/v1")
	api.POST("/auth/login", s.login)

	authed := api.Group("", s.authenticate)
	authed.GET("/requests", s.listRequests)
	authed.POST("/requests", s.createRequest)

	req := authed.Group("/requests/:id")
	req.GET("", s.getRequest)
	req.PATCH("", s.updateRequest)
	req.DELETE("", s.deleteRequest)
	req.GET("/comments", s.listComments)
	req.POST("/comments", s.addComment)
	req.DELETE("/comments/:cid", s.deleteComment)

	s.attachmentRoutes(req)
	s.attachmentRoutes(req.Group("/comments/:cid"))

	authed.GET("/users", s.listUsersByRole)

	admin := authed.Group("/admin", requireRole(models.RoleAdmin))
	admin.GET("/users", s.listAllUsers)
	admin.GET("/roles", s.listRoles)
	admin.PATCH("/users/:uid/roles", s.updateRoles)

	s.objects.Register(s.engine.Group(storagePrefix))
}

func (s *Server) attachmentRoutes(r gin.IRouter) {
	r.GET("/attachments", s.listAttachments)
	r.POST("/attachments/upload-url", s.createUploadURL)
	r.POST("/attachments/:aid/confirm", s.confirmUpload)
	r.GET("/attachments/:aid/download-url", s.downloadURL)
	r.DELETE("/attachments/:aid", s.deleteAttachment)
}

// Handler exposes the router, e.g. for httptest.NewServer.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves on the configured address until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.log.Info(ctx, "Stopping mock API...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Error(ctx, "shutdown failed", "error", err)
		}
	}()

	s.log.Info(ctx, "Starting mock API", "address", s.cfg.ListenAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// FailNextPut makes the next direct upload answer status. Calls queue up.
func (s *Server) FailNextPut(status int) { s.objects.FailNextPut(status) }

// RevokeSessions invalidates every token issued so far; the next
// authenticated call answers 401.
func (s *Server) RevokeSessions() { s.epoch.Add(1) }

// ExpireUploadURLs makes every pre-signed URL issued so far answer 403.
// PENDING rows with nothing uploaded turn FAILED on the next listing.
func (s *Server) ExpireUploadURLs() {
	s.objects.Expire()
	s.state.mu.Lock()
	now := s.state.now()
	for _, a := range s.state.attachments {
		if a.State == models.AttachmentPending {
			a.urlExpiresAt = now
		}
	}
	s.state.mu.Unlock()
}

// Attachments lists the attachments of scope in any state.
func (s *Server) Attachments(scope models.AttachmentScope) []models.Attachment {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	s.sweepLocked()
	out := []models.Attachment{}
	for _, a := range s.state.attachmentsIn(scope) {
		out = append(out, a.Attachment)
	}
	return out
}
