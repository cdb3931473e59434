package models

import (
	"fmt"
	"strings"
	"time"
)

// RequestStatus is the workflow state of a support request.
type RequestStatus string

const (
	StatusOpen       RequestStatus = "OPEN"
	StatusInProgress RequestStatus = "IN_PROGRESS"
	StatusResolved   RequestStatus = "RESOLVED"
	StatusClosed     RequestStatus = "CLOSED"
)

// AllStatuses lists the statuses in workflow order.
var AllStatuses = []RequestStatus{StatusOpen, StatusInProgress, StatusResolved, StatusClosed}

// Label is the human-readable status name.
func (s RequestStatus) Label() string {
	switch s {
	case StatusOpen:
		return "Open"
	case StatusInProgress:
		return "In Progress"
	case StatusResolved:
		return "Resolved"
	case StatusClosed:
		return "Closed"
	default:
		return string(s)
	}
}

// ParseStatus accepts the wire name in any case, with '-' or ' ' allowed in
// place of '_'.
func ParseStatus(s string) (RequestStatus, error) {
	norm := strings.ToUpper(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", "_", " ", "_").Replace(norm)
	for _, st := range AllStatuses {
		if string(st) == norm {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// SupportRequest is a ticket filed by a user.
type SupportRequest struct {
	ID           int64         `json:"id"`
	Title        string        `json:"title"`
	Description  string        `json:"description"`
	Status       RequestStatus `json:"status"`
	CreatedBy    UserSummary   `json:"createdBy"`
	AssignedTo   *UserSummary  `json:"assignedTo,omitempty"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
	CommentCount int           `json:"commentCount"`
}

// Comment belongs to exactly one request.
type Comment struct {
	ID        int64       `json:"id"`
	RequestID int64       `json:"requestId"`
	Author    UserSummary `json:"author"`
	Body      string      `json:"body"`
	CreatedAt time.Time   `json:"createdAt"`
}

// CreateRequest is the body of POST /requests.
type CreateRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// UpdateRequest is the body of PATCH /requests/{id}. Nil fields are left
// unchanged by the server.
type UpdateRequest struct {
	Status       *RequestStatus `json:"status,omitempty"`
	AssignedToID *int64         `json:"assignedToId,omitempty"`
}

// Page is a slice of a server-side paginated listing.
type Page[T any] struct {
	Content       []T `json:"content"`
	TotalElements int `json:"totalElements"`
	TotalPages    int `json:"totalPages"`
	Number        int `json:"number"`
	Size          int `json:"size"`
}
