// Package services contains application services for the supportdesk client.
// They combine the API gateway, the session store, the policy rules and the
// per-scope upload orchestrators into the operations the CLI exposes.
package services

import (
	"context"
	"io"

	"github.com/dmitrijs2005/supportdesk/internal/client/api"
	"github.com/dmitrijs2005/supportdesk/internal/client/models"
	"github.com/dmitrijs2005/supportdesk/internal/client/upload"
)

// AuthGateway is the login call of the REST API.
type AuthGateway interface {
	Login(ctx context.Context, username, password string) (models.AuthResponse, error)
}

// AttachmentGateway covers the per-scope attachment routes.
type AttachmentGateway interface {
	CreateUploadURL(ctx context.Context, scope models.AttachmentScope, in models.UploadURLRequest) (models.UploadURL, error)
	ConfirmUpload(ctx context.Context, scope models.AttachmentScope, attachmentID int64) (models.Attachment, error)
	ListAttachments(ctx context.Context, scope models.AttachmentScope) ([]models.Attachment, error)
	FetchDownloadURL(ctx context.Context, scope models.AttachmentScope, attachmentID int64) (models.DownloadURL, error)
	DeleteAttachment(ctx context.Context, scope models.AttachmentScope, attachmentID int64) error
}

// RequestGateway covers requests, comments and user administration.
type RequestGateway interface {
	FetchRequests(ctx context.Context, p api.ListParams) (models.Page[models.SupportRequest], error)
	FetchRequest(ctx context.Context, id int64) (models.SupportRequest, error)
	CreateRequest(ctx context.Context, in models.CreateRequest) (models.SupportRequest, error)
	UpdateRequest(ctx context.Context, id int64, in models.UpdateRequest) (models.SupportRequest, error)
	DeleteRequest(ctx context.Context, id int64) error
	FetchComments(ctx context.Context, requestID int64) (models.Page[models.Comment], error)
	AddComment(ctx context.Context, requestID int64, body string) (models.Comment, error)
	DeleteComment(ctx context.Context, requestID, commentID int64) error
	FetchAssignableUsers(ctx context.Context) ([]models.User, error)
	FetchAdminUsers(ctx context.Context) ([]models.User, error)
	FetchAvailableRoles(ctx context.Context) ([]models.Role, error)
	UpdateUserRoles(ctx context.Context, userID int64, roles []models.Role) (models.User, error)
}

// Session is the part of session.Store the services use.
type Session interface {
	Login(ctx context.Context, token string, user models.User) error
	Logout(ctx context.Context) error
	User() (models.User, bool)
	Roles() []models.Role
}

// Transferer moves attachment bytes to and from object storage.
type Transferer interface {
	upload.Transferer
	Download(ctx context.Context, url string, w io.Writer) (int64, error)
}

var (
	_ AuthGateway       = (*api.Client)(nil)
	_ AttachmentGateway = (*api.Client)(nil)
	_ RequestGateway    = (*api.Client)(nil)
)

// currentUser returns a pointer suitable for the policy functions, nil when
// nobody is logged in.
func currentUser(s Session) *models.User {
	u, ok := s.User()
	if !ok {
		return nil
	}
	return &u
}
