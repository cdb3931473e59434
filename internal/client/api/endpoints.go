package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-resty/resty/v2"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/supportdesk/internal/client/models"
	"github.com/dmitrijs2005/supportdesk/internal/common"
)

// Login exchanges credentials for a token. A 401 here is a plain error and
// never triggers the forced-logout path.
func (c *Client) Login(ctx context.Context, username, password string) (models.AuthResponse, error) {
	var out models.AuthResponse
	body := map[string]string{"username": username, "password": password}
	err := c.do(ctx, http.MethodPost, loginPath, body, &out, nil)
	return out, err
}

// ListParams selects a page of requests. Zero Size means 20.
type ListParams struct {
	Page   int
	Size   int
	Status models.RequestStatus
}

// FetchRequests lists requests newest first.
func (c *Client) FetchRequests(ctx context.Context, p ListParams) (models.Page[models.SupportRequest], error) {
	if p.Size <= 0 {
		p.Size = 20
	}
	var out models.Page[models.SupportRequest]
	err := c.do(ctx, http.MethodGet, "/requests", nil, &out, func(r *resty.Request) {
		r.SetQueryParams(map[string]string{
			"page":      strconv.Itoa(p.Page),
			"size":      strconv.Itoa(p.Size),
			"sort":      "createdAt",
			"direction": "desc",
		})
		if p.Status != "" {
			r.SetQueryParam("status", string(p.Status))
		}
	})
	return out, err
}

func (c *Client) FetchRequest(ctx context.Context, id int64) (models.SupportRequest, error) {
	var out models.SupportRequest
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/requests/%d", id), nil, &out, nil)
	return out, err
}

func (c *Client) CreateRequest(ctx context.Context, in models.CreateRequest) (models.SupportRequest, error) {
	var out models.SupportRequest
	err := c.do(ctx, http.MethodPost, "/requests", in, &out, nil)
	return out, err
}

func (c *Client) UpdateRequest(ctx context.Context, id int64, in models.UpdateRequest) (models.SupportRequest, error) {
	var out models.SupportRequest
	err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/requests/%d", id), in, &out, nil)
	return out, err
}

func (c *Client) DeleteRequest(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/requests/%d", id), nil, nil, nil)
}

// FetchComments returns the first 50 comments of a request.
func (c *Client) FetchComments(ctx context.Context, requestID int64) (models.Page[models.Comment], error) {
	var out models.Page[models.Comment]
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/requests/%d/comments", requestID), nil, &out, func(r *resty.Request) {
		r.SetQueryParams(map[string]string{"page": "0", "size": "50"})
	})
	return out, err
}

func (c *Client) AddComment(ctx context.Context, requestID int64, body string) (models.Comment, error) {
	var out models.Comment
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/requests/%d/comments", requestID),
		map[string]string{"body": body}, &out, nil)
	return out, err
}

func (c *Client) DeleteComment(ctx context.Context, requestID, commentID int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/requests/%d/comments/%d", requestID, commentID), nil, nil, nil)
}

// CreateUploadURL allocates a PENDING attachment and a pre-signed PUT URL.
func (c *Client) CreateUploadURL(ctx context.Context, scope models.AttachmentScope, in models.UploadURLRequest) (models.UploadURL, error) {
	var out models.UploadURL
	if err := scope.Validate(); err != nil {
		return out, err
	}
	if in.ContentType == "" {
		in.ContentType = common.DefaultContentType
	}
	err := c.do(ctx, http.MethodPost, scope.Path()+"/attachments/upload-url", in, &out, nil)
	return out, err
}

// ConfirmUpload marks an attachment ACTIVE after its bytes were stored.
func (c *Client) ConfirmUpload(ctx context.Context, scope models.AttachmentScope, attachmentID int64) (models.Attachment, error) {
	var out models.Attachment
	if err := scope.Validate(); err != nil {
		return out, err
	}
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("%s/attachments/%d/confirm", scope.Path(), attachmentID), nil, &out, nil)
	return out, err
}

func (c *Client) ListAttachments(ctx context.Context, scope models.AttachmentScope) ([]models.Attachment, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	out := []models.Attachment{}
	err := c.do(ctx, http.MethodGet, scope.Path()+"/attachments", nil, &out, nil)
	return out, err
}

// FetchDownloadURL always asks the server; download URLs are short-lived.
func (c *Client) FetchDownloadURL(ctx context.Context, scope models.AttachmentScope, attachmentID int64) (models.DownloadURL, error) {
	var out models.DownloadURL
	if err := scope.Validate(); err != nil {
		return out, err
	}
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("%s/attachments/%d/download-url", scope.Path(), attachmentID), nil, &out, func(r *resty.Request) {
		r.SetHeader("Cache-Control", "no-store")
	})
	return out, err
}

// DeleteAttachment treats an already-missing attachment as deleted.
func (c *Client) DeleteAttachment(ctx context.Context, scope models.AttachmentScope, attachmentID int64) error {
	if err := scope.Validate(); err != nil {
		return err
	}
	err := c.do(ctx, http.MethodDelete, fmt.Sprintf("%s/attachments/%d", scope.Path(), attachmentID), nil, nil, nil)
	if errors.Is(err, common.ErrorNotFound) {
		return nil
	}
	return err
}

func (c *Client) FetchUsersByRole(ctx context.Context, role models.Role) ([]models.User, error) {
	out := []models.User{}
	err := c.do(ctx, http.MethodGet, "/users", nil, &out, func(r *resty.Request) {
		r.SetQueryParam("role", string(role))
	})
	return out, err
}

// FetchAssignableUsers returns TRIAGE users followed by ADMIN users, each
// user once.
func (c *Client) FetchAssignableUsers(ctx context.Context) ([]models.User, error) {
	roles := []models.Role{models.RoleTriage, models.RoleAdmin}
	results := make([][]models.User, len(roles))

	g, gctx := errgroup.WithContext(ctx)
	for i, role := range roles {
		g.Go(func() error {
			users, err := c.FetchUsersByRole(gctx, role)
			if err != nil {
				return err
			}
			results[i] = users
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[int64]struct{})
	var out []models.User
	for _, batch := range results {
		for _, u := range batch {
			if _, dup := seen[u.ID]; dup {
				continue
			}
			seen[u.ID] = struct{}{}
			out = append(out, u)
		}
	}
	return out, nil
}

func (c *Client) FetchAdminUsers(ctx context.Context) ([]models.User, error) {
	out := []models.User{}
	err := c.do(ctx, http.MethodGet, "/admin/users", nil, &out, nil)
	return out, err
}

func (c *Client) FetchAvailableRoles(ctx context.Context) ([]models.Role, error) {
	out := []models.Role{}
	err := c.do(ctx, http.MethodGet, "/admin/roles", nil, &out, nil)
	return out, err
}

func (c *Client) UpdateUserRoles(ctx context.Context, userID int64, roles []models.Role) (models.User, error) {
	var out models.User
	err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/admin/users/%d/roles", userID),
		map[string][]models.Role{"roles": roles}, &out, nil)
	return out, err
}
