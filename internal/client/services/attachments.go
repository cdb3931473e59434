package services

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/dmitrijs2005/supportdesk/internal/client/attachments"
	"github.com/dmitrijs2005/supportdesk/internal/client/config"
	"github.com/dmitrijs2005/supportdesk/internal/client/models"
	"github.com/dmitrijs2005/supportdesk/internal/client/upload"
	"github.com/dmitrijs2005/supportdesk/internal/common"
	"github.com/dmitrijs2005/supportdesk/internal/filex"
	"github.com/dmitrijs2005/supportdesk/internal/logging"
)

var (
	// ErrNotReady is returned when downloading an attachment that is not
	// ACTIVE yet.
	ErrNotReady = errors.New("attachment is not ready for download")
	// ErrAmbiguousTask is returned when a task id prefix matches several
	// tasks.
	ErrAmbiguousTask = errors.New("task id is ambiguous")
)

// AttachmentService owns one upload orchestrator per scope. Orchestrators
// are created on first use and live until Close.
type AttachmentService struct {
	gw       AttachmentGateway
	transfer Transferer
	limits   config.AttachmentLimits
	log      logging.Logger
	opts     []upload.Option

	mu        sync.Mutex
	uploaders map[models.AttachmentScope]*upload.Orchestrator

	// refreshMu orders list+count pairs so the last refresh to run sets the
	// final count.
	refreshMu sync.Mutex
}

// NewAttachmentService binds the gateway and transfer layer to the configured
// limits. opts are passed to every orchestrator it creates.
func NewAttachmentService(gw AttachmentGateway, transfer Transferer, limits config.AttachmentLimits, log logging.Logger, opts ...upload.Option) *AttachmentService {
	if log == nil {
		log = logging.Discard()
	}
	return &AttachmentService{
		gw:        gw,
		transfer:  transfer,
		limits:    limits,
		log:       log,
		opts:      opts,
		uploaders: make(map[models.AttachmentScope]*upload.Orchestrator),
	}
}

// Limit is the attachment cap for scope.
func (s *AttachmentService) Limit(scope models.AttachmentScope) int {
	if scope.IsComment() {
		return s.limits.CommentMaxCount
	}
	return s.limits.RequestMaxCount
}

// Uploader returns the orchestrator for scope, creating it on first use. The
// scope's current list seeds the existing count.
func (s *AttachmentService) Uploader(ctx context.Context, scope models.AttachmentScope) (*upload.Orchestrator, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	o, ok := s.uploaders[scope]
	s.mu.Unlock()
	if ok {
		return o, nil
	}

	list, err := s.gw.ListAttachments(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}

	cfg := upload.Config{
		ScopeLabel:          scope.Label(),
		ExistingCount:       attachments.CountHeld(list),
		MaxCount:            s.Limit(scope),
		MaxFileSizeBytes:    s.limits.MaxFileSizeBytes,
		AllowedContentTypes: s.limits.AllowedContentTypes,
	}
	collab := upload.Collaborators{
		CreateUploadURL: func(ctx context.Context, f upload.File, replaces int64) (models.UploadURL, error) {
			return s.gw.CreateUploadURL(ctx, scope, models.UploadURLRequest{
				FileName:             f.Name(),
				ContentType:          f.ContentType(),
				FileSize:             f.Size(),
				ReplacesAttachmentID: replaces,
			})
		},
		ConfirmUpload: func(ctx context.Context, attachmentID int64) error {
			_, err := s.gw.ConfirmUpload(ctx, scope, attachmentID)
			return err
		},
		OnCompleted: func() {
			if _, err := s.Refresh(context.Background(), scope); err != nil {
				s.log.Warn(context.Background(), "attachment refresh failed", "scope", scope.String(), "error", err)
			}
		},
	}

	opts := append([]upload.Option{
		upload.WithLogger(s.log),
		upload.WithTransferer(s.transfer),
	}, s.opts...)

	created, err := upload.New(cfg, collab, opts...)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if o, ok := s.uploaders[scope]; ok {
		created.Close()
		return o, nil
	}
	s.uploaders[scope] = created
	return created, nil
}

// Upload submits files to the scope's orchestrator.
func (s *AttachmentService) Upload(ctx context.Context, scope models.AttachmentScope, files ...upload.File) ([]upload.Task, error) {
	o, err := s.Uploader(ctx, scope)
	if err != nil {
		return nil, err
	}
	return o.Submit(files...), nil
}

// Refresh fetches the scope's list and updates its orchestrator's existing
// count, if one is running.
func (s *AttachmentService) Refresh(ctx context.Context, scope models.AttachmentScope) ([]models.Attachment, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	list, err := s.gw.ListAttachments(ctx, scope)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	o := s.uploaders[scope]
	s.mu.Unlock()
	if o != nil {
		o.SyncExisting(list)
	}
	return list, nil
}

// List returns the scope's attachments in server order.
func (s *AttachmentService) List(ctx context.Context, scope models.AttachmentScope) ([]models.Attachment, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	return s.Refresh(ctx, scope)
}

// Download fetches a fresh download URL for an ACTIVE attachment and writes
// the file into dir. It returns the written path.
func (s *AttachmentService) Download(ctx context.Context, scope models.AttachmentScope, attachmentID int64, dir string) (string, error) {
	list, err := s.List(ctx, scope)
	if err != nil {
		return "", err
	}
	att, ok := attachments.Find(list, attachmentID)
	if !ok {
		return "", fmt.Errorf("attachment %d: %w", attachmentID, common.ErrorNotFound)
	}
	if att.State != models.AttachmentActive {
		return "", ErrNotReady
	}

	link, err := s.gw.FetchDownloadURL(ctx, scope, attachmentID)
	if err != nil {
		return "", fmt.Errorf("download url: %w", err)
	}

	dir, err = filex.EnsureDir(dir)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, localName(att))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := s.transfer.Download(ctx, link.DownloadURL, f); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", path, err)
	}

	s.log.Info(ctx, "attachment downloaded", "scope", scope.String(), "attachment", attachmentID, "path", path)
	return path, nil
}

// Delete removes an attachment and refreshes the scope's existing count.
func (s *AttachmentService) Delete(ctx context.Context, scope models.AttachmentScope, attachmentID int64) error {
	if err := scope.Validate(); err != nil {
		return err
	}
	if err := s.gw.DeleteAttachment(ctx, scope, attachmentID); err != nil {
		return err
	}
	if _, err := s.Refresh(ctx, scope); err != nil {
		s.log.Warn(ctx, "attachment refresh failed", "scope", scope.String(), "error", err)
	}
	return nil
}

// Scopes lists the scopes with a running orchestrator, ordered by request
// then comment.
func (s *AttachmentService) Scopes() []models.AttachmentScope {
	s.mu.Lock()
	out := make([]models.AttachmentScope, 0, len(s.uploaders))
	for sc := range s.uploaders {
		out = append(out, sc)
	}
	s.mu.Unlock()

	slices.SortFunc(out, func(a, b models.AttachmentScope) int {
		if c := cmp.Compare(a.RequestID, b.RequestID); c != 0 {
			return c
		}
		return cmp.Compare(a.CommentID, b.CommentID)
	})
	return out
}

// FindTask resolves a task id, or a unique prefix of one, across all scopes.
func (s *AttachmentService) FindTask(id string) (*upload.Orchestrator, upload.Task, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, upload.Task{}, upload.ErrTaskNotFound
	}

	var (
		found *upload.Orchestrator
		task  upload.Task
		n     int
	)
	for _, o := range s.snapshot() {
		for _, t := range o.Tasks() {
			if t.ID == id {
				return o, t, nil
			}
			if strings.HasPrefix(t.ID, id) {
				found, task = o, t
				n++
			}
		}
	}

	switch n {
	case 0:
		return nil, upload.Task{}, upload.ErrTaskNotFound
	case 1:
		return found, task, nil
	default:
		return nil, upload.Task{}, ErrAmbiguousTask
	}
}

// Wait blocks until every orchestrator is idle.
func (s *AttachmentService) Wait() {
	for _, o := range s.snapshot() {
		o.Wait()
	}
}

// Close cancels all uploads and forgets every orchestrator. It runs on
// logout so a new session starts clean.
func (s *AttachmentService) Close() {
	s.mu.Lock()
	all := make([]*upload.Orchestrator, 0, len(s.uploaders))
	for _, o := range s.uploaders {
		all = append(all, o)
	}
	clear(s.uploaders)
	s.mu.Unlock()

	for _, o := range all {
		o.Close()
	}
}

func (s *AttachmentService) snapshot() []*upload.Orchestrator {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*upload.Orchestrator, 0, len(s.uploaders))
	for _, o := range s.uploaders {
		out = append(out, o)
	}
	return out
}

// localName keeps only the base name the server reported.
func localName(a models.Attachment) string {
	name := filepath.Base(filepath.Clean("/" + a.FileName))
	if name == "/" || name == "." || name == "" {
		return fmt.Sprintf("attachment-%d", a.ID)
	}
	return name
}
