package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/supportdesk/internal/client/models"
	"github.com/dmitrijs2005/supportdesk/internal/common"
)

type fakeSession struct {
	mu      sync.Mutex
	token   string
	logouts int
}

func (f *fakeSession) Token() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

func (f *fakeSession) Logout(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = ""
	f.logouts++
	return nil
}

func (f *fakeSession) logoutCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.logouts
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, h http.HandlerFunc, sess Session) *Client {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return New(ts.URL+"/api/v1", sess, 5*time.Second)
}

func TestClient_InjectsBearerToken(t *testing.T) {
	var gotAuth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get(common.AuthorizationHeaderName)
		assert.Equal(t, "/api/v1/requests/5", r.URL.Path)
		writeJSON(w, http.StatusOK, models.SupportRequest{ID: 5, Title: "printer"})
	}, &fakeSession{token: "tok-1"})

	req, err := c.FetchRequest(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-1", gotAuth)
	assert.Equal(t, "printer", req.Title)
}

func TestClient_NoTokenNoHeader(t *testing.T) {
	var gotAuth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get(common.AuthorizationHeaderName)
		writeJSON(w, http.StatusOK, []models.Attachment{})
	}, &fakeSession{})

	_, err := c.ListAttachments(context.Background(), models.RequestScope(1))
	require.NoError(t, err)
	assert.Empty(t, gotAuth)
}

func TestClient_401ForcesLogout(t *testing.T) {
	sess := &fakeSession{token: "stale"}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"code": "UNAUTHORIZED", "message": "token expired"})
	}, sess)

	var notified int
	c.OnUnauthorized(func() { notified++ })

	_, err := c.FetchRequest(context.Background(), 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
	assert.Equal(t, 1, sess.logoutCount())
	assert.Equal(t, 1, notified)
	assert.Empty(t, sess.Token())
}

func TestClient_LoginFailureDoesNotLogout(t *testing.T) {
	sess := &fakeSession{token: "keep"}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/auth/login", r.URL.Path)
		writeJSON(w, http.StatusUnauthorized, map[string]string{"code": "BAD_CREDENTIALS", "message": "Invalid username or password"})
	}, sess)

	_, err := c.Login(context.Background(), "alice", "nope")
	require.Error(t, err)

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Invalid username or password", apiErr.ServerMessage())
	assert.Equal(t, 0, sess.logoutCount())
}

func TestClient_Login(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "alice", body["username"])
		assert.Equal(t, "secret", body["password"])
		writeJSON(w, http.StatusOK, models.AuthResponse{
			AccessToken: "jwt", TokenType: "Bearer", ExpiresIn: 3600,
			User: models.User{ID: 1, Username: "alice", Roles: []models.Role{models.RoleUser}},
		})
	}, nil)

	resp, err := c.Login(context.Background(), "alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, "jwt", resp.AccessToken)
	assert.Equal(t, "alice", resp.User.Username)
}

func TestError_Mapping(t *testing.T) {
	tests := []struct {
		status int
		target error
	}{
		{http.StatusUnauthorized, common.ErrorUnauthorized},
		{http.StatusForbidden, common.ErrorForbidden},
		{http.StatusNotFound, common.ErrorNotFound},
		{http.StatusServiceUnavailable, common.ErrorInternal},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			e := &Error{StatusCode: tt.status}
			assert.ErrorIs(t, e, tt.target)
			assert.Equal(t, tt.status, e.HTTPStatus())
		})
	}
	assert.NotErrorIs(t, &Error{StatusCode: 400}, common.ErrorNotFound)
	assert.Equal(t, "api error 400 BAD: nope", (&Error{StatusCode: 400, Code: "BAD", Message: "nope"}).Error())
	assert.Equal(t, "api error 500", (&Error{StatusCode: 500}).Error())
}

func TestClient_ErrorBodyWithoutJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gateway down", http.StatusBadGateway)
	}, nil)

	_, err := c.FetchRequest(context.Background(), 1)
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Empty(t, apiErr.Message)
}

func TestClient_NetworkError(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	ts.Close()

	c := New(ts.URL, nil, time.Second)
	_, err := c.FetchRequest(context.Background(), 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrNetwork)
}

func TestClient_FetchRequestsQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "2", q.Get("page"))
		assert.Equal(t, "20", q.Get("size"))
		assert.Equal(t, "createdAt", q.Get("sort"))
		assert.Equal(t, "desc", q.Get("direction"))
		assert.Equal(t, "OPEN", q.Get("status"))
		writeJSON(w, http.StatusOK, models.Page[models.SupportRequest]{
			Content: []models.SupportRequest{{ID: 1}}, TotalElements: 1, TotalPages: 1, Number: 2, Size: 20,
		})
	}, nil)

	page, err := c.FetchRequests(context.Background(), ListParams{Page: 2, Status: models.StatusOpen})
	require.NoError(t, err)
	require.Len(t, page.Content, 1)
	assert.Equal(t, 2, page.Number)
}

func TestClient_AttachmentRoutes(t *testing.T) {
	var (
		mu    sync.Mutex
		calls []string
	)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls = append(calls, r.Method+" "+r.URL.Path)
		mu.Unlock()

		switch r.URL.Path {
		case "/api/v1/requests/3/comments/9/attachments/upload-url":
			body, _ := io.ReadAll(r.Body)
			var in models.UploadURLRequest
			require.NoError(t, json.Unmarshal(body, &in))
			assert.Equal(t, common.DefaultContentType, in.ContentType)
			writeJSON(w, http.StatusCreated, models.UploadURL{AttachmentID: 42, UploadURL: "http://storage/put"})
		case "/api/v1/requests/3/comments/9/attachments/42/confirm":
			writeJSON(w, http.StatusOK, models.Attachment{ID: 42, State: models.AttachmentActive})
		case "/api/v1/requests/3/comments/9/attachments/42/download-url":
			writeJSON(w, http.StatusOK, models.DownloadURL{AttachmentID: 42, DownloadURL: "http://storage/get"})
		case "/api/v1/requests/3/comments/9/attachments/42":
			writeJSON(w, http.StatusNotFound, map[string]string{"code": "NOT_FOUND", "message": "gone"})
		default:
			http.NotFound(w, r)
		}
	}, nil)

	ctx := context.Background()
	scope := models.CommentScope(3, 9)

	up, err := c.CreateUploadURL(ctx, scope, models.UploadURLRequest{FileName: "a.bin", FileSize: 3})
	require.NoError(t, err)
	assert.Equal(t, int64(42), up.AttachmentID)

	att, err := c.ConfirmUpload(ctx, scope, 42)
	require.NoError(t, err)
	assert.Equal(t, models.AttachmentActive, att.State)

	dl, err := c.FetchDownloadURL(ctx, scope, 42)
	require.NoError(t, err)
	assert.Equal(t, "http://storage/get", dl.DownloadURL)

	require.NoError(t, c.DeleteAttachment(ctx, scope, 42), "404 on delete is tolerated")

	_, err = c.ListAttachments(ctx, models.AttachmentScope{})
	assert.ErrorIs(t, err, models.ErrInvalidScope)

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, calls, 4)
}

func TestClient_FetchAssignableUsersDeduplicates(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("role") {
		case "TRIAGE":
			writeJSON(w, http.StatusOK, []models.User{
				{ID: 2, Username: "triage"},
				{ID: 3, Username: "both"},
			})
		case "ADMIN":
			writeJSON(w, http.StatusOK, []models.User{
				{ID: 3, Username: "both"},
				{ID: 4, Username: "admin"},
			})
		default:
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "role required"})
		}
	}, nil)

	users, err := c.FetchAssignableUsers(context.Background())
	require.NoError(t, err)

	var names []string
	for _, u := range users {
		names = append(names, u.Username)
	}
	assert.Equal(t, []string{"triage", "both", "admin"}, names)
}

func TestClient_FetchAssignableUsersPropagatesError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("role") == "ADMIN" {
			writeJSON(w, http.StatusForbidden, map[string]string{"message": "nope"})
			return
		}
		writeJSON(w, http.StatusOK, []models.User{})
	}, nil)

	_, err := c.FetchAssignableUsers(context.Background())
	assert.ErrorIs(t, err, common.ErrorForbidden)
}

func TestClient_AdminEndpoints(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/v1/admin/users":
			writeJSON(w, http.StatusOK, []models.User{{ID: 1, Username: "user"}})
		case r.Method == http.MethodGet && r.URL.Path == "/api/v1/admin/roles":
			writeJSON(w, http.StatusOK, []string{"USER", "TRIAGE", "ADMIN"})
		case r.Method == http.MethodPatch && r.URL.Path == "/api/v1/admin/users/1/roles":
			var in struct {
				Roles []models.Role `json:"roles"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
			writeJSON(w, http.StatusOK, models.User{ID: 1, Username: "user", Roles: in.Roles})
		default:
			http.NotFound(w, r)
		}
	}, nil)

	ctx := context.Background()
	users, err := c.FetchAdminUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)

	roles, err := c.FetchAvailableRoles(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.AllRoles, roles)

	u, err := c.UpdateUserRoles(ctx, 1, []models.Role{models.RoleUser, models.RoleTriage})
	require.NoError(t, err)
	assert.True(t, u.HasRole(models.RoleTriage))
}

func TestClient_RequestAndCommentCRUD(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method + " " + r.URL.Path {
		case "POST /api/v1/requests":
			var in models.CreateRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
			writeJSON(w, http.StatusCreated, models.SupportRequest{ID: 9, Title: in.Title, Status: models.StatusOpen})
		case "PATCH /api/v1/requests/9":
			var in models.UpdateRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
			require.NotNil(t, in.Status)
			writeJSON(w, http.StatusOK, models.SupportRequest{ID: 9, Status: *in.Status})
		case "DELETE /api/v1/requests/9":
			w.WriteHeader(http.StatusNoContent)
		case "GET /api/v1/requests/9/comments":
			assert.Equal(t, "50", r.URL.Query().Get("size"))
			writeJSON(w, http.StatusOK, models.Page[models.Comment]{Content: []models.Comment{{ID: 1, Body: "hi"}}})
		case "POST /api/v1/requests/9/comments":
			writeJSON(w, http.StatusCreated, models.Comment{ID: 2, RequestID: 9, Body: "thanks"})
		case "DELETE /api/v1/requests/9/comments/2":
			w.WriteHeader(http.StatusNoContent)
		default:
			http.NotFound(w, r)
		}
	}, nil)

	ctx := context.Background()
	created, err := c.CreateRequest(ctx, models.CreateRequest{Title: "VPN", Description: "down"})
	require.NoError(t, err)
	assert.Equal(t, "VPN", created.Title)

	st := models.StatusInProgress
	updated, err := c.UpdateRequest(ctx, 9, models.UpdateRequest{Status: &st})
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, updated.Status)

	comments, err := c.FetchComments(ctx, 9)
	require.NoError(t, err)
	assert.Len(t, comments.Content, 1)

	cm, err := c.AddComment(ctx, 9, "thanks")
	require.NoError(t, err)
	assert.Equal(t, int64(2), cm.ID)

	require.NoError(t, c.DeleteComment(ctx, 9, 2))
	require.NoError(t, c.DeleteRequest(ctx, 9))

	err = c.DeleteComment(ctx, 9, 77)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}
