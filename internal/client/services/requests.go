package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/supportdesk/internal/client/api"
	"github.com/dmitrijs2005/supportdesk/internal/client/models"
	"github.com/dmitrijs2005/supportdesk/internal/client/policy"
	"github.com/dmitrijs2005/supportdesk/internal/common"
)

var (
	ErrEmptyTitle   = errors.New("title is required")
	ErrEmptyComment = errors.New("comment body is required")
	// ErrInvalidTransition is returned for a status move the workflow does
	// not allow.
	ErrInvalidTransition = errors.New("status transition not allowed")
)

// RequestDetail is a request with its comments and the viewer's
// permissions on it.
type RequestDetail struct {
	Request     models.SupportRequest
	Comments    []models.Comment
	Permissions policy.Permissions
}

// RequestService wraps request, comment and admin calls with the policy
// checks the client applies before calling the API.
type RequestService struct {
	gw      RequestGateway
	session Session
}

func NewRequestService(gw RequestGateway, session Session) *RequestService {
	return &RequestService{gw: gw, session: session}
}

func (s *RequestService) List(ctx context.Context, page int, status models.RequestStatus) (models.Page[models.SupportRequest], error) {
	return s.gw.FetchRequests(ctx, api.ListParams{Page: page, Status: status})
}

func (s *RequestService) Get(ctx context.Context, id int64) (models.SupportRequest, error) {
	return s.gw.FetchRequest(ctx, id)
}

// Detail fetches the request and its comments concurrently.
func (s *RequestService) Detail(ctx context.Context, id int64) (RequestDetail, error) {
	var (
		d        RequestDetail
		comments models.Page[models.Comment]
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		d.Request, err = s.gw.FetchRequest(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		comments, err = s.gw.FetchComments(gctx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		return RequestDetail{}, err
	}

	d.Comments = comments.Content
	d.Permissions = policy.PermissionsFor(currentUser(s.session), d.Request, s.session.Roles())
	return d, nil
}

func (s *RequestService) Create(ctx context.Context, title, description string) (models.SupportRequest, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return models.SupportRequest{}, ErrEmptyTitle
	}
	return s.gw.CreateRequest(ctx, models.CreateRequest{Title: title, Description: strings.TrimSpace(description)})
}

// Delete removes a request the viewer may manage.
func (s *RequestService) Delete(ctx context.Context, id int64) error {
	req, err := s.gw.FetchRequest(ctx, id)
	if err != nil {
		return err
	}
	if !policy.CanManage(currentUser(s.session), req.CreatedBy, s.session.Roles()) {
		return fmt.Errorf("delete request %d: %w", id, common.ErrorForbidden)
	}
	return s.gw.DeleteRequest(ctx, id)
}

func (s *RequestService) AddComment(ctx context.Context, requestID int64, body string) (models.Comment, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return models.Comment{}, ErrEmptyComment
	}
	return s.gw.AddComment(ctx, requestID, body)
}

// DeleteComment removes a comment the viewer authored, or any comment for
// TRIAGE and ADMIN.
func (s *RequestService) DeleteComment(ctx context.Context, requestID, commentID int64) error {
	page, err := s.gw.FetchComments(ctx, requestID)
	if err != nil {
		return err
	}
	i := slices.IndexFunc(page.Content, func(c models.Comment) bool { return c.ID == commentID })
	if i < 0 {
		return fmt.Errorf("comment %d: %w", commentID, common.ErrorNotFound)
	}
	if !policy.CanDeleteComment(currentUser(s.session), page.Content[i].Author, s.session.Roles()) {
		return fmt.Errorf("delete comment %d: %w", commentID, common.ErrorForbidden)
	}
	return s.gw.DeleteComment(ctx, requestID, commentID)
}

// CanManageScope reports whether the viewer may upload to or delete
// attachments of scope: the request's creator for a request, the comment's
// author for a comment, and TRIAGE or ADMIN for either.
func (s *RequestService) CanManageScope(ctx context.Context, scope models.AttachmentScope) (bool, error) {
	if err := scope.Validate(); err != nil {
		return false, err
	}
	cur, roles := currentUser(s.session), s.session.Roles()

	if !scope.IsComment() {
		req, err := s.gw.FetchRequest(ctx, scope.RequestID)
		if err != nil {
			return false, err
		}
		return policy.CanManage(cur, req.CreatedBy, roles), nil
	}

	page, err := s.gw.FetchComments(ctx, scope.RequestID)
	if err != nil {
		return false, err
	}
	i := slices.IndexFunc(page.Content, func(c models.Comment) bool { return c.ID == scope.CommentID })
	if i < 0 {
		return false, fmt.Errorf("comment %d: %w", scope.CommentID, common.ErrorNotFound)
	}
	return policy.CanDeleteComment(cur, page.Content[i].Author, roles), nil
}

// Transition moves a request to the next status.
func (s *RequestService) Transition(ctx context.Context, id int64, to models.RequestStatus) (models.SupportRequest, error) {
	roles := s.session.Roles()
	if !policy.CanChangeStatus(roles) {
		return models.SupportRequest{}, fmt.Errorf("change status: %w", common.ErrorForbidden)
	}

	req, err := s.gw.FetchRequest(ctx, id)
	if err != nil {
		return models.SupportRequest{}, err
	}
	if !policy.CanTransition(roles, req.Status, to) {
		return models.SupportRequest{}, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, req.Status.Label(), to.Label())
	}
	return s.gw.UpdateRequest(ctx, id, models.UpdateRequest{Status: &to})
}

// Assign sets the request's assignee. The user must be assignable.
func (s *RequestService) Assign(ctx context.Context, id, userID int64) (models.SupportRequest, error) {
	if !policy.CanAssign(s.session.Roles()) {
		return models.SupportRequest{}, fmt.Errorf("assign: %w", common.ErrorForbidden)
	}

	users, err := s.gw.FetchAssignableUsers(ctx)
	if err != nil {
		return models.SupportRequest{}, err
	}
	if !slices.ContainsFunc(users, func(u models.User) bool { return u.ID == userID }) {
		return models.SupportRequest{}, fmt.Errorf("assignable user %d: %w", userID, common.ErrorNotFound)
	}
	return s.gw.UpdateRequest(ctx, id, models.UpdateRequest{AssignedToID: &userID})
}

func (s *RequestService) AssignableUsers(ctx context.Context) ([]models.User, error) {
	return s.gw.FetchAssignableUsers(ctx)
}

func (s *RequestService) AdminUsers(ctx context.Context) ([]models.User, error) {
	if !slices.Contains(s.session.Roles(), models.RoleAdmin) {
		return nil, fmt.Errorf("admin users: %w", common.ErrorForbidden)
	}
	return s.gw.FetchAdminUsers(ctx)
}

// SetRoles replaces a user's roles. The change is applied as a series of
// toggles so the last-role and own-ADMIN guards hold; an unchanged set makes
// no call.
func (s *RequestService) SetRoles(ctx context.Context, userID int64, roles []models.Role) (models.User, error) {
	users, err := s.AdminUsers(ctx)
	if err != nil {
		return models.User{}, err
	}
	i := slices.IndexFunc(users, func(u models.User) bool { return u.ID == userID })
	if i < 0 {
		return models.User{}, fmt.Errorf("user %d: %w", userID, common.ErrorNotFound)
	}
	target := users[i]

	if len(roles) == 0 {
		return target, policy.ErrLastRole
	}
	if policy.SameRoles(target.Roles, roles) {
		return target, nil
	}

	available, err := s.gw.FetchAvailableRoles(ctx)
	if err != nil {
		return models.User{}, err
	}
	for _, r := range roles {
		if !slices.Contains(available, r) {
			return target, fmt.Errorf("role %s: %w", r, common.ErrorNotFound)
		}
	}

	current := currentUser(s.session)
	selected := slices.Clone(target.Roles)
	for _, r := range roles {
		if !slices.Contains(selected, r) {
			selected, _ = policy.ToggleRole(current, target, selected, r)
		}
	}
	for _, r := range slices.Clone(selected) {
		if slices.Contains(roles, r) {
			continue
		}
		if selected, err = policy.ToggleRole(current, target, selected, r); err != nil {
			return target, err
		}
	}

	return s.gw.UpdateUserRoles(ctx, userID, selected)
}
