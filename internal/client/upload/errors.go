package upload

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"

	"github.com/dmitrijs2005/supportdesk/internal/common"
	"github.com/dmitrijs2005/supportdesk/internal/filex"
)

// User-facing failure messages.
const (
	MsgCancelled   = "Upload cancelled."
	MsgNetwork     = "Upload failed due to network/CORS issue. Check connectivity and retry."
	MsgForbidden   = "Upload URL expired or forbidden. Retry to request a new upload URL."
	MsgUnavailable = "Upload service temporarily unavailable. Retry in a moment."
	MsgGeneric     = "Upload failed. Please retry."
	MsgUnexpected  = "Upload failed unexpectedly. Please retry."
)

var (
	ErrValidation      = errors.New("upload rejected")
	ErrTaskNotFound    = errors.New("upload task not found")
	ErrNotRetryable    = errors.New("upload task cannot be retried")
	ErrNotCancellable  = errors.New("upload task is not in progress")
	ErrNotDismissable  = errors.New("upload task is still in progress")
	ErrClosed          = errors.New("uploader closed")
	ErrInvalidSettings = errors.New("invalid uploader settings")
)

// ValidationError is a client-side rejection. It never reaches the server.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return ErrValidation }

func limitReached(scopeLabel string, maxCount int) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf("Attachment limit reached for %s (%d files max).", scopeLabel, maxCount)}
}

func tooLarge(size, limit int64) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf("File is too large (%s). Max allowed is %s.",
		filex.FormatBytes(size), filex.FormatBytes(limit))}
}

func typeNotAllowed(contentType string) *ValidationError {
	if contentType == "" {
		contentType = "unknown"
	}
	return &ValidationError{Message: fmt.Sprintf("File type is not allowed (%s).", contentType)}
}

// Phase is the step of the upload sequence a failure happened in.
type Phase int

const (
	PhaseCreateURL Phase = iota
	PhaseTransfer
	PhaseConfirm
)

func (p Phase) String() string {
	switch p {
	case PhaseCreateURL:
		return "create-url"
	case PhaseTransfer:
		return "transfer"
	case PhaseConfirm:
		return "confirm"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// FailureMessage maps a failure to the message shown on the task. Status
// codes are read from errors implementing HTTPStatus() int and server
// messages from ServerMessage() string.
func FailureMessage(phase Phase, err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.Canceled) {
		return MsgCancelled
	}

	var withStatus interface{ HTTPStatus() int }
	if !errors.As(err, &withStatus) || withStatus.HTTPStatus() == 0 {
		if isNetwork(err) {
			return MsgNetwork
		}
		return MsgUnexpected
	}

	status := withStatus.HTTPStatus()
	switch {
	case status == http.StatusForbidden && phase == PhaseTransfer:
		return MsgForbidden
	case status >= http.StatusInternalServerError:
		return MsgUnavailable
	}

	var withMessage interface{ ServerMessage() string }
	if errors.As(err, &withMessage) && withMessage.ServerMessage() != "" {
		return withMessage.ServerMessage()
	}
	return MsgGeneric
}

func isNetwork(err error) bool {
	if errors.Is(err, common.ErrNetwork) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
