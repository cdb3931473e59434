package api

import (
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/supportdesk/internal/common"
)

// Error is a non-2xx answer from the API. Code and Message come from the
// {"code","message"} error body when the server sent one.
type Error struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Code != "":
		return fmt.Sprintf("api error %d %s: %s", e.StatusCode, e.Code, e.Message)
	case e.Message != "":
		return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
	default:
		return fmt.Sprintf("api error %d", e.StatusCode)
	}
}

func (e *Error) HTTPStatus() int { return e.StatusCode }

func (e *Error) ServerMessage() string { return e.Message }

// Is lets callers match status classes with the common sentinels.
func (e *Error) Is(target error) bool {
	switch target {
	case common.ErrorUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case common.ErrorForbidden:
		return e.StatusCode == http.StatusForbidden
	case common.ErrorNotFound:
		return e.StatusCode == http.StatusNotFound
	case common.ErrorInternal:
		return e.StatusCode >= http.StatusInternalServerError
	}
	return false
}
