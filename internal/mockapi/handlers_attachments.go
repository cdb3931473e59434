package mockapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/supportdesk/internal/client/models"
	"github.com/dmitrijs2005/supportdesk/internal/client/policy"
	"github.com/dmitrijs2005/supportdesk/internal/filex"
	"github.com/dmitrijs2005/supportdesk/internal/mockapi/objstore"
)

// resolveScope maps :id and the optional :cid to a scope and the user who
// owns it. Callers hold s.state.mu.
func (s *Server) resolveScope(c *gin.Context, u models.User) (models.AttachmentScope, models.UserSummary, bool) {
	r, ok := s.lookupRequest(c, u)
	if !ok {
		return models.AttachmentScope{}, models.UserSummary{}, false
	}
	if c.Param("cid") == "" {
		return models.RequestScope(r.ID), r.CreatedBy, true
	}

	cid, ok := pathID(c, "cid")
	if !ok {
		return models.AttachmentScope{}, models.UserSummary{}, false
	}
	cm, found := s.state.comments[cid]
	if !found || cm.RequestID != r.ID {
		notFound(c, "Comment")
		return models.AttachmentScope{}, models.UserSummary{}, false
	}
	return models.CommentScope(r.ID, cid), cm.Author, true
}

func (s *Server) lookupAttachment(c *gin.Context, scope models.AttachmentScope) (*attachmentRecord, bool) {
	aid, ok := pathID(c, "aid")
	if !ok {
		return nil, false
	}
	a, found := s.state.attachments[aid]
	if !found || a.scope != scope {
		notFound(c, "Attachment")
		return nil, false
	}
	return a, true
}

func (s *Server) maxCount(scope models.AttachmentScope) int {
	if scope.IsComment() {
		return s.cfg.Limits.CommentMaxCount
	}
	return s.cfg.Limits.RequestMaxCount
}

func (s *Server) typeAllowed(ct string) bool {
	for _, t := range s.cfg.Limits.AllowedContentTypes {
		if strings.EqualFold(t, ct) {
			return true
		}
	}
	return false
}

func storageEndpoint(c *gin.Context) string {
	return "http://" + c.Request.Host + storagePrefix
}

// abandonLocked marks a PENDING row FAILED and drops whatever was stored
// under its key. Rows in any other state are left alone.
func (s *Server) abandonLocked(a *attachmentRecord, reason string) {
	if a.State != models.AttachmentPending {
		return
	}
	a.State = models.AttachmentFailed
	s.objects.Delete(a.key)
	s.log.Info(context.Background(), "attachment abandoned", "attachment", a.ID, "reason", reason)
}

// sweepLocked fails PENDING rows whose upload URL expired with nothing
// stored under their key.
func (s *Server) sweepLocked() {
	now := s.state.now()
	for _, a := range s.state.attachments {
		if a.State != models.AttachmentPending || now.Before(a.urlExpiresAt) {
			continue
		}
		if _, err := s.objects.Get(a.key); err != nil {
			s.abandonLocked(a, "upload url expired")
		}
	}
}

// putRejected is called by the object store when a direct upload was
// refused or broke off.
func (s *Server) putRejected(key string) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	if a := s.state.attachmentByKey(key); a != nil {
		s.abandonLocked(a, "upload rejected")
	}
}

func (s *Server) listAttachments(c *gin.Context) {
	u := currentUser(c)
	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	scope, _, ok := s.resolveScope(c, u)
	if !ok {
		return
	}
	s.sweepLocked()
	out := []models.Attachment{}
	for _, a := range s.state.attachmentsIn(scope) {
		out = append(out, a.Attachment)
	}
	c.JSON(http.StatusOK, out)
}

// createUploadURL allocates a PENDING attachment. ACTIVE and PENDING rows
// count against the limit; a retry names the row it replaces, which is
// failed first so it gives its slot back.
func (s *Server) createUploadURL(c *gin.Context) {
	var in models.UploadURLRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Malformed body")
		return
	}

	u := currentUser(c)
	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	scope, owner, ok := s.resolveScope(c, u)
	if !ok {
		return
	}
	if !policy.CanManage(&u, owner, u.Roles) {
		forbidden(c)
		return
	}

	maxSize := s.cfg.Limits.MaxFileSizeBytes
	switch {
	case strings.TrimSpace(in.FileName) == "":
		badRequest(c, "File name is required")
		return
	case in.FileSize <= 0:
		badRequest(c, "File is empty")
		return
	case in.FileSize > maxSize:
		badRequest(c, fmt.Sprintf("File is too large (%s). Max allowed is %s.", filex.FormatBytes(in.FileSize), filex.FormatBytes(maxSize)))
		return
	case !s.typeAllowed(in.ContentType):
		badRequest(c, fmt.Sprintf("File type is not allowed (%s).", in.ContentType))
		return
	}
	s.sweepLocked()
	if prev, found := s.state.attachments[in.ReplacesAttachmentID]; found && prev.scope == scope {
		s.abandonLocked(prev, "replaced by retry")
	}
	if limit := s.maxCount(scope); s.state.countHeld(scope) >= limit {
		abort(c, http.StatusConflict, codeLimit, fmt.Sprintf("Attachment limit reached for %s (%d files max).", scope.Label(), limit))
		return
	}

	rec := &attachmentRecord{
		Attachment: models.Attachment{
			ID:          s.state.id(),
			FileName:    in.FileName,
			ContentType: in.ContentType,
			FileSize:    in.FileSize,
			State:       models.AttachmentPending,
			UploadedBy:  u.Summary(),
			CreatedAt:   s.state.now(),
		},
		scope: scope,
		key:   objstore.NewKey(fmt.Sprintf("requests/%d", scope.RequestID)),
	}
	if scope.IsComment() {
		rec.CommentID = &scope.CommentID
	} else {
		rec.RequestID = &scope.RequestID
	}

	url, exp, err := s.objects.PresignPut(c.Request.Context(), storageEndpoint(c), rec.key)
	if err != nil {
		s.log.Error(c.Request.Context(), "presign put failed", "error", err)
		abort(c, http.StatusInternalServerError, codeInternal, "Could not create upload URL")
		return
	}
	rec.urlExpiresAt = exp
	s.state.attachments[rec.ID] = rec

	c.JSON(http.StatusCreated, models.UploadURL{AttachmentID: rec.ID, UploadURL: url, ExpiresAt: exp})
}

func (s *Server) confirmUpload(c *gin.Context) {
	u := currentUser(c)
	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	scope, owner, ok := s.resolveScope(c, u)
	if !ok {
		return
	}
	a, ok := s.lookupAttachment(c, scope)
	if !ok {
		return
	}
	if !policy.CanManage(&u, owner, u.Roles) {
		forbidden(c)
		return
	}
	switch a.State {
	case models.AttachmentActive:
		c.JSON(http.StatusOK, a.Attachment)
		return
	case models.AttachmentFailed:
		badRequest(c, "Attachment is in FAILED state and cannot be confirmed")
		return
	}

	obj, err := s.objects.Get(a.key)
	if err != nil {
		s.abandonLocked(a, "object missing at confirm")
		badRequest(c, "Attachment object was not found in storage")
		return
	}
	a.State = models.AttachmentActive
	a.FileSize = int64(len(obj.Data))
	c.JSON(http.StatusOK, a.Attachment)
}

func (s *Server) downloadURL(c *gin.Context) {
	u := currentUser(c)
	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	scope, _, ok := s.resolveScope(c, u)
	if !ok {
		return
	}
	a, ok := s.lookupAttachment(c, scope)
	if !ok {
		return
	}
	if a.State != models.AttachmentActive {
		abort(c, http.StatusConflict, codeConflict, "Attachment is not ready for download")
		return
	}

	url, exp, err := s.objects.PresignGet(c.Request.Context(), storageEndpoint(c), a.key)
	if err != nil {
		s.log.Error(c.Request.Context(), "presign get failed", "error", err)
		abort(c, http.StatusInternalServerError, codeInternal, "Could not create download URL")
		return
	}
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, models.DownloadURL{AttachmentID: a.ID, DownloadURL: url, ExpiresAt: exp})
}

func (s *Server) deleteAttachment(c *gin.Context) {
	u := currentUser(c)
	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	scope, owner, ok := s.resolveScope(c, u)
	if !ok {
		return
	}
	a, ok := s.lookupAttachment(c, scope)
	if !ok {
		return
	}
	if !policy.CanManage(&u, owner, u.Roles) {
		forbidden(c)
		return
	}
	delete(s.state.attachments, a.ID)
	s.objects.Delete(a.key)
	c.Status(http.StatusNoContent)
}
