package models

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidScope is returned by AttachmentScope.Validate.
var ErrInvalidScope = errors.New("invalid attachment scope")

// AttachmentScope identifies the owner of a set of attachments: a request,
// or a comment of that request when CommentID is set.
type AttachmentScope struct {
	RequestID int64
	CommentID int64
}

// RequestScope is the scope of attachments on the request itself.
func RequestScope(requestID int64) AttachmentScope {
	return AttachmentScope{RequestID: requestID}
}

// CommentScope is the scope of attachments on one comment.
func CommentScope(requestID, commentID int64) AttachmentScope {
	return AttachmentScope{RequestID: requestID, CommentID: commentID}
}

func (s AttachmentScope) Validate() error {
	if s.RequestID <= 0 {
		return fmt.Errorf("%w: request id must be positive", ErrInvalidScope)
	}
	if s.CommentID < 0 {
		return fmt.Errorf("%w: comment id must not be negative", ErrInvalidScope)
	}
	return nil
}

// IsComment reports whether the scope owner is a comment.
func (s AttachmentScope) IsComment() bool { return s.CommentID > 0 }

// Kind is "comment" or "request".
func (s AttachmentScope) Kind() string {
	if s.IsComment() {
		return "comment"
	}
	return "request"
}

// Label names the scope in user-facing messages.
func (s AttachmentScope) Label() string { return s.Kind() }

// Path is the REST prefix of the scope's attachment routes.
func (s AttachmentScope) Path() string {
	if s.IsComment() {
		return fmt.Sprintf("/requests/%d/comments/%d", s.RequestID, s.CommentID)
	}
	return fmt.Sprintf("/requests/%d", s.RequestID)
}

func (s AttachmentScope) String() string {
	if s.IsComment() {
		return fmt.Sprintf("request %d comment %d", s.RequestID, s.CommentID)
	}
	return fmt.Sprintf("request %d", s.RequestID)
}

// AttachmentState is the server-side lifecycle state of an attachment.
type AttachmentState string

const (
	AttachmentPending AttachmentState = "PENDING"
	AttachmentActive  AttachmentState = "ACTIVE"
	AttachmentFailed  AttachmentState = "FAILED"
)

// Attachment is the server's record of an uploaded file.
type Attachment struct {
	ID          int64           `json:"id"`
	RequestID   *int64          `json:"requestId,omitempty"`
	CommentID   *int64          `json:"commentId,omitempty"`
	FileName    string          `json:"fileName"`
	ContentType string          `json:"contentType"`
	FileSize    int64           `json:"fileSize"`
	State       AttachmentState `json:"state"`
	UploadedBy  UserSummary     `json:"uploadedBy"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// UploadURLRequest is the body of POST <scope>/attachments/upload-url.
type UploadURLRequest struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	FileSize    int64  `json:"fileSize"`
	// ReplacesAttachmentID names the PENDING attachment of an earlier
	// attempt of the same upload; the server marks it FAILED.
	ReplacesAttachmentID int64 `json:"replacesAttachmentId,omitempty"`
}

// UploadURL is the server's answer to an upload-url request. AttachmentID
// refers to a PENDING attachment.
type UploadURL struct {
	AttachmentID int64     `json:"attachmentId"`
	UploadURL    string    `json:"uploadUrl"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// DownloadURL is a short-lived URL for an ACTIVE attachment.
type DownloadURL struct {
	AttachmentID int64     `json:"attachmentId"`
	DownloadURL  string    `json:"downloadUrl"`
	ExpiresAt    time.Time `json:"expiresAt"`
}
