package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/dmitrijs2005/supportdesk/internal/client/api"
	"github.com/dmitrijs2005/supportdesk/internal/client/config"
	"github.com/dmitrijs2005/supportdesk/internal/client/services"
	"github.com/dmitrijs2005/supportdesk/internal/client/session"
	"github.com/dmitrijs2005/supportdesk/internal/client/storage"
	"github.com/dmitrijs2005/supportdesk/internal/client/upload"
	"github.com/dmitrijs2005/supportdesk/internal/logging"
	"github.com/dmitrijs2005/supportdesk/internal/netx"
)

type App struct {
	config      *config.Config
	log         logging.Logger
	db          *sql.DB
	session     *session.Store
	api         *api.Client
	auth        services.AuthService
	requests    *services.RequestService
	attachments *services.AttachmentService

	reader *bufio.Reader
	outMu  sync.Mutex
	out    io.Writer
}

// NewApp opens the session database, restores a saved session and wires the
// services. The caller owns the App and must Close it.
func NewApp(ctx context.Context, c *config.Config, log logging.Logger) (*App, error) {
	if log == nil {
		log = logging.Discard()
	}

	db, err := storage.InitDatabase(ctx, c.SessionDBPath)
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}

	store := session.New(db, session.WithLogger(log))
	if err := store.Restore(ctx); err != nil {
		log.Warn(ctx, "session restore failed", "error", err)
	}

	a := &App{
		config:  c,
		log:     log,
		db:      db,
		session: store,
		reader:  bufio.NewReader(os.Stdin),
		out:     os.Stdout,
	}

	a.api = api.New(c.APIBaseURL, store, c.HTTPTimeout, api.WithLogger(log))
	a.api.OnUnauthorized(func() {
		a.printf("Session expired. Please log in again.\n")
	})

	a.auth = services.NewAuthService(a.api, store, log)
	a.requests = services.NewRequestService(a.api, store)
	a.attachments = services.NewAttachmentService(a.api, netx.NewTransferer(nil), c.Attachments, log,
		upload.WithListener(a.onUploadEvent))

	// A forced logout can fire from inside an upload goroutine, which
	// Close waits for.
	store.OnLogout(func() { go a.attachments.Close() })
	return a, nil
}

// Run blocks in the REPL until the user exits or input ends.
func (a *App) Run(ctx context.Context) {
	defer a.Close()

	a.printf("Welcome to supportdesk CLI (type 'help' for commands)\n")
	if u, ok := a.session.User(); ok {
		a.printf("Restored session for %s\n", u.Username)
	}
	runREPL(ctx, a, a.status, a.reader)
}

// Close cancels running uploads and closes the session database.
func (a *App) Close() {
	a.attachments.Close()
	if err := a.db.Close(); err != nil {
		a.log.Warn(context.Background(), "close session db", "error", err)
	}
}

func (a *App) isLoggedIn() bool {
	return a.session.IsAuthenticated()
}

func (a *App) status() string {
	u, ok := a.session.User()
	if !ok {
		return ""
	}
	return fmt.Sprintf("(%s)", u.Username)
}

// printf serialises output; upload events arrive from worker goroutines.
func (a *App) printf(format string, args ...any) {
	a.outMu.Lock()
	defer a.outMu.Unlock()
	fmt.Fprintf(a.out, format, args...)
}

func (a *App) onUploadEvent(ev upload.Event) {
	if ev.Removed {
		return
	}
	t := ev.Task
	switch t.Status {
	case upload.StatusDone:
		a.printf("[upload %s] %s uploaded\n", shortID(t.ID), t.File.Name())
	case upload.StatusError, upload.StatusCancelled:
		if t.Attempt > 0 {
			a.printf("[upload %s] %s: %s\n", shortID(t.ID), t.File.Name(), t.Error)
		}
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
