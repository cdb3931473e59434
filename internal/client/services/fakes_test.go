package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"

	"github.com/dmitrijs2005/supportdesk/internal/client/api"
	"github.com/dmitrijs2005/supportdesk/internal/client/models"
	"github.com/dmitrijs2005/supportdesk/internal/common"
	"github.com/dmitrijs2005/supportdesk/internal/netx"
)

// fakeSession is an in-memory Session.
type fakeSession struct {
	mu      sync.Mutex
	token   string
	user    *models.User
	loginFn func() error
	logouts int
}

func loggedIn(u models.User) *fakeSession {
	return &fakeSession{token: "tok", user: &u}
}

func (s *fakeSession) Login(_ context.Context, token string, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loginFn != nil {
		if err := s.loginFn(); err != nil {
			return err
		}
	}
	s.token, s.user = token, &user
	return nil
}

func (s *fakeSession) Logout(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token, s.user = "", nil
	s.logouts++
	return nil
}

func (s *fakeSession) User() (models.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return models.User{}, false
	}
	return *s.user, true
}

func (s *fakeSession) Roles() []models.Role {
	u, ok := s.User()
	if !ok {
		return nil
	}
	return u.Roles
}

var (
	alice  = models.User{ID: 1, Username: "alice", Roles: []models.Role{models.RoleUser}}
	bob    = models.User{ID: 2, Username: "bob", Roles: []models.Role{models.RoleUser}}
	triage = models.User{ID: 3, Username: "triage", Roles: []models.Role{models.RoleUser, models.RoleTriage}}
	admin  = models.User{ID: 4, Username: "admin", Roles: []models.Role{models.RoleUser, models.RoleAdmin}}
)

// fakeGateway keeps requests, comments and attachments in memory.
type fakeGateway struct {
	mu sync.Mutex

	loginResp models.AuthResponse
	loginErr  error
	logins    int

	requests map[int64]models.SupportRequest
	comments map[int64][]models.Comment
	updates  []models.UpdateRequest
	deleted  []int64

	attachments map[models.AttachmentScope][]models.Attachment
	nextID      int64
	creates     int
	lists       int
	listErr     error

	users     []models.User
	roles     []models.Role
	roleCalls [][]models.Role
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		requests:    map[int64]models.SupportRequest{},
		comments:    map[int64][]models.Comment{},
		attachments: map[models.AttachmentScope][]models.Attachment{},
		nextID:      100,
		users:       []models.User{alice, bob, triage, admin},
		roles:       slices.Clone(models.AllRoles),
	}
}

func (g *fakeGateway) Login(_ context.Context, username, password string) (models.AuthResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.logins++
	return g.loginResp, g.loginErr
}

func (g *fakeGateway) FetchRequests(_ context.Context, p api.ListParams) (models.Page[models.SupportRequest], error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out models.Page[models.SupportRequest]
	for _, r := range g.requests {
		if p.Status == "" || r.Status == p.Status {
			out.Content = append(out.Content, r)
		}
	}
	slices.SortFunc(out.Content, func(a, b models.SupportRequest) int { return int(b.ID - a.ID) })
	out.TotalElements = len(out.Content)
	return out, nil
}

func (g *fakeGateway) FetchRequest(_ context.Context, id int64) (models.SupportRequest, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	r, ok := g.requests[id]
	if !ok {
		return r, &api.Error{StatusCode: 404, Message: "Request not found"}
	}
	return r, nil
}

func (g *fakeGateway) CreateRequest(_ context.Context, in models.CreateRequest) (models.SupportRequest, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nextID++
	r := models.SupportRequest{ID: g.nextID, Title: in.Title, Description: in.Description, Status: models.StatusOpen}
	g.requests[r.ID] = r
	return r, nil
}

func (g *fakeGateway) UpdateRequest(_ context.Context, id int64, in models.UpdateRequest) (models.SupportRequest, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.updates = append(g.updates, in)
	r := g.requests[id]
	if in.Status != nil {
		r.Status = *in.Status
	}
	if in.AssignedToID != nil {
		r.AssignedTo = &models.UserSummary{ID: *in.AssignedToID}
	}
	g.requests[id] = r
	return r, nil
}

func (g *fakeGateway) DeleteRequest(_ context.Context, id int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.deleted = append(g.deleted, id)
	delete(g.requests, id)
	return nil
}

func (g *fakeGateway) FetchComments(_ context.Context, requestID int64) (models.Page[models.Comment], error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return models.Page[models.Comment]{Content: slices.Clone(g.comments[requestID])}, nil
}

func (g *fakeGateway) AddComment(_ context.Context, requestID int64, body string) (models.Comment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nextID++
	c := models.Comment{ID: g.nextID, RequestID: requestID, Body: body}
	g.comments[requestID] = append(g.comments[requestID], c)
	return c, nil
}

func (g *fakeGateway) DeleteComment(_ context.Context, requestID, commentID int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.comments[requestID] = slices.DeleteFunc(g.comments[requestID], func(c models.Comment) bool { return c.ID == commentID })
	g.deleted = append(g.deleted, commentID)
	return nil
}

func (g *fakeGateway) FetchAssignableUsers(context.Context) ([]models.User, error) {
	return []models.User{triage, admin}, nil
}

func (g *fakeGateway) FetchAdminUsers(context.Context) ([]models.User, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return slices.Clone(g.users), nil
}

func (g *fakeGateway) FetchAvailableRoles(context.Context) ([]models.Role, error) {
	return slices.Clone(g.roles), nil
}

func (g *fakeGateway) UpdateUserRoles(_ context.Context, userID int64, roles []models.Role) (models.User, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.roleCalls = append(g.roleCalls, roles)
	for i, u := range g.users {
		if u.ID == userID {
			g.users[i].Roles = roles
			return g.users[i], nil
		}
	}
	return models.User{}, common.ErrorNotFound
}

func (g *fakeGateway) CreateUploadURL(_ context.Context, scope models.AttachmentScope, in models.UploadURLRequest) (models.UploadURL, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.creates++
	for i := range g.attachments[scope] {
		if a := &g.attachments[scope][i]; a.ID == in.ReplacesAttachmentID && a.State == models.AttachmentPending {
			a.State = models.AttachmentFailed
		}
	}
	g.nextID++
	g.attachments[scope] = append(g.attachments[scope], models.Attachment{
		ID: g.nextID, FileName: in.FileName, ContentType: in.ContentType, FileSize: in.FileSize,
		State: models.AttachmentPending,
	})
	return models.UploadURL{AttachmentID: g.nextID, UploadURL: fmt.Sprintf("https://storage.test/obj/%d", g.nextID)}, nil
}

func (g *fakeGateway) ConfirmUpload(_ context.Context, scope models.AttachmentScope, id int64) (models.Attachment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	list := g.attachments[scope]
	for i := range list {
		if list[i].ID == id {
			list[i].State = models.AttachmentActive
			return list[i], nil
		}
	}
	return models.Attachment{}, &api.Error{StatusCode: 404, Message: "Attachment not found"}
}

func (g *fakeGateway) ListAttachments(_ context.Context, scope models.AttachmentScope) ([]models.Attachment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lists++
	if g.listErr != nil {
		return nil, g.listErr
	}
	return slices.Clone(g.attachments[scope]), nil
}

func (g *fakeGateway) FetchDownloadURL(_ context.Context, _ models.AttachmentScope, id int64) (models.DownloadURL, error) {
	return models.DownloadURL{AttachmentID: id, DownloadURL: fmt.Sprintf("https://storage.test/obj/%d", id)}, nil
}

func (g *fakeGateway) DeleteAttachment(_ context.Context, scope models.AttachmentScope, id int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.attachments[scope] = slices.DeleteFunc(g.attachments[scope], func(a models.Attachment) bool { return a.ID == id })
	return nil
}

func (g *fakeGateway) seed(scope models.AttachmentScope, n int, state models.AttachmentState) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for range n {
		g.nextID++
		g.attachments[scope] = append(g.attachments[scope], models.Attachment{
			ID: g.nextID, FileName: fmt.Sprintf("f%d.txt", g.nextID), ContentType: "text/plain", FileSize: 3, State: state,
		})
	}
}

// fakeTransfer stores uploaded bytes by URL and serves them back.
type fakeTransfer struct {
	mu      sync.Mutex
	objects map[string][]byte
	puts    int
	getErr  error
}

func newFakeTransfer() *fakeTransfer {
	return &fakeTransfer{objects: map[string][]byte{}}
}

func (t *fakeTransfer) Put(_ context.Context, url string, src netx.Source, progress netx.ProgressFunc) error {
	rc, err := src.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return err
	}
	if progress != nil {
		progress(int64(len(data)), src.Size())
	}
	t.mu.Lock()
	t.objects[url] = data
	t.puts++
	t.mu.Unlock()
	return nil
}

func (t *fakeTransfer) Download(_ context.Context, url string, w io.Writer) (int64, error) {
	t.mu.Lock()
	data, ok := t.objects[url]
	getErr := t.getErr
	t.mu.Unlock()
	if getErr != nil {
		return 0, getErr
	}
	if !ok {
		return 0, errors.New("no such object")
	}
	n, err := w.Write(data)
	return int64(n), err
}
