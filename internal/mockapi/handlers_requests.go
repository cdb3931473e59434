package mockapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/supportdesk/internal/client/models"
	"github.com/dmitrijs2005/supportdesk/internal/client/policy"
)

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, fmt.Sprintf("Invalid %s", name))
		return 0, false
	}
	return id, true
}

func queryInt(c *gin.Context, name string, def int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		badRequest(c, fmt.Sprintf("Invalid %s", name))
		return 0, false
	}
	return v, true
}

// lookupRequest returns the request named by :id if u may see it. Callers
// hold s.state.mu.
func (s *Server) lookupRequest(c *gin.Context, u models.User) (*models.SupportRequest, bool) {
	id, ok := pathID(c, "id")
	if !ok {
		return nil, false
	}
	r, found := s.state.requests[id]
	if !found || !visible(u, r) {
		notFound(c, "Request")
		return nil, false
	}
	return r, true
}

func (s *Server) listRequests(c *gin.Context) {
	page, ok := queryInt(c, "page", 0)
	if !ok {
		return
	}
	size, ok := queryInt(c, "size", 20)
	if !ok {
		return
	}
	var status models.RequestStatus
	if raw := c.Query("status"); raw != "" {
		st, err := models.ParseStatus(raw)
		if err != nil {
			badRequest(c, err.Error())
			return
		}
		status = st
	}

	u := currentUser(c)
	s.state.mu.Lock()
	items := s.state.requestsFor(u, status)
	s.state.mu.Unlock()

	c.JSON(http.StatusOK, paginate(items, page, size))
}

func (s *Server) createRequest(c *gin.Context) {
	var in models.CreateRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Malformed body")
		return
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		badRequest(c, "Title is required")
		return
	}

	u := currentUser(c)
	s.state.mu.Lock()
	now := s.state.now()
	r := &models.SupportRequest{
		ID:          s.state.id(),
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Status:      models.StatusOpen,
		CreatedBy:   u.Summary(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.state.requests[r.ID] = r
	out := *r
	s.state.mu.Unlock()

	c.JSON(http.StatusCreated, out)
}

func (s *Server) getRequest(c *gin.Context) {
	u := currentUser(c)
	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	r, ok := s.lookupRequest(c, u)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, *r)
}

func (s *Server) updateRequest(c *gin.Context) {
	var in models.UpdateRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Malformed body")
		return
	}

	u := currentUser(c)
	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	r, ok := s.lookupRequest(c, u)
	if !ok {
		return
	}

	if in.Status != nil && *in.Status != r.Status {
		if !policy.CanChangeStatus(u.Roles) {
			forbidden(c)
			return
		}
		if !policy.CanTransition(u.Roles, r.Status, *in.Status) {
			badRequest(c, fmt.Sprintf("Cannot move from %s to %s", r.Status.Label(), in.Status.Label()))
			return
		}
	}

	var assignee *models.UserSummary
	if in.AssignedToID != nil {
		if !policy.CanAssign(u.Roles) {
			forbidden(c)
			return
		}
		target, found := s.state.users[*in.AssignedToID]
		if !found || !policy.IsTriageOrAdmin(target.Roles) {
			badRequest(c, "Assignee must be a TRIAGE or ADMIN user")
			return
		}
		sum := target.Summary()
		assignee = &sum
	}

	if in.Status != nil {
		r.Status = *in.Status
	}
	if assignee != nil {
		r.AssignedTo = assignee
	}
	r.UpdatedAt = s.state.now()
	c.JSON(http.StatusOK, *r)
}

func (s *Server) deleteRequest(c *gin.Context) {
	u := currentUser(c)
	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	r, ok := s.lookupRequest(c, u)
	if !ok {
		return
	}
	if !policy.CanManage(&u, r.CreatedBy, u.Roles) {
		forbidden(c)
		return
	}
	for _, key := range s.state.dropRequest(r.ID) {
		s.objects.Delete(key)
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) listComments(c *gin.Context) {
	page, ok := queryInt(c, "page", 0)
	if !ok {
		return
	}
	size, ok := queryInt(c, "size", 50)
	if !ok {
		return
	}

	u := currentUser(c)
	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	r, ok := s.lookupRequest(c, u)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, paginate(s.state.commentsOf(r.ID), page, size))
}

func (s *Server) addComment(c *gin.Context) {
	var in struct {
		Body string `json:"body"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Malformed body")
		return
	}
	body := strings.TrimSpace(in.Body)
	if body == "" {
		badRequest(c, "Comment body is required")
		return
	}

	u := currentUser(c)
	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	r, ok := s.lookupRequest(c, u)
	if !ok {
		return
	}
	cm := &models.Comment{
		ID:        s.state.id(),
		RequestID: r.ID,
		Author:    u.Summary(),
		Body:      body,
		CreatedAt: s.state.now(),
	}
	s.state.comments[cm.ID] = cm
	r.CommentCount++
	c.JSON(http.StatusCreated, *cm)
}

func (s *Server) deleteComment(c *gin.Context) {
	u := currentUser(c)
	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	r, ok := s.lookupRequest(c, u)
	if !ok {
		return
	}
	cid, ok := pathID(c, "cid")
	if !ok {
		return
	}
	cm, found := s.state.comments[cid]
	if !found || cm.RequestID != r.ID {
		notFound(c, "Comment")
		return
	}
	if !policy.CanDeleteComment(&u, cm.Author, u.Roles) {
		forbidden(c)
		return
	}
	for _, key := range s.state.dropComment(cm) {
		s.objects.Delete(key)
	}
	c.Status(http.StatusNoContent)
}
