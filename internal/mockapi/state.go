package mockapi

import (
	"cmp"
	"slices"
	"sync"
	"time"

	"github.com/dmitrijs2005/supportdesk/internal/client/models"
)

type userRecord struct {
	models.User
	passwordHash string
}

type attachmentRecord struct {
	models.Attachment
	scope models.AttachmentScope
	key   string
	// urlExpiresAt is when the upload URL of a PENDING row stops working.
	urlExpiresAt time.Time
}

// state is the whole mock database. Every handler locks mu for the duration
// of its read-modify-write.
type state struct {
	mu sync.Mutex

	users       map[int64]*userRecord
	requests    map[int64]*models.SupportRequest
	comments    map[int64]*models.Comment
	attachments map[int64]*attachmentRecord

	nextID int64
	now    func() time.Time
}

func newState() *state {
	return &state{
		users:       make(map[int64]*userRecord),
		requests:    make(map[int64]*models.SupportRequest),
		comments:    make(map[int64]*models.Comment),
		attachments: make(map[int64]*attachmentRecord),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *state) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *state) userByName(name string) *userRecord {
	for _, u := range s.users {
		if u.Username == name {
			return u
		}
	}
	return nil
}

func (s *state) usersWhere(keep func(*userRecord) bool) []models.User {
	out := []models.User{}
	for _, u := range s.users {
		if keep(u) {
			out = append(out, cloneUser(u.User))
		}
	}
	slices.SortFunc(out, func(a, b models.User) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// visible reports whether u may see r: owners see their own requests,
// TRIAGE and ADMIN see everything.
func visible(u models.User, r *models.SupportRequest) bool {
	return r.CreatedBy.ID == u.ID || u.HasRole(models.RoleTriage) || u.HasRole(models.RoleAdmin)
}

func (s *state) requestsFor(u models.User, status models.RequestStatus) []models.SupportRequest {
	out := []models.SupportRequest{}
	for _, r := range s.requests {
		if !visible(u, r) || (status != "" && r.Status != status) {
			continue
		}
		out = append(out, *r)
	}
	slices.SortFunc(out, func(a, b models.SupportRequest) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return out
}

func (s *state) commentsOf(requestID int64) []models.Comment {
	out := []models.Comment{}
	for _, c := range s.comments {
		if c.RequestID == requestID {
			out = append(out, *c)
		}
	}
	slices.SortFunc(out, func(a, b models.Comment) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

func (s *state) attachmentsIn(scope models.AttachmentScope) []*attachmentRecord {
	var out []*attachmentRecord
	for _, a := range s.attachments {
		if a.scope == scope {
			out = append(out, a)
		}
	}
	slices.SortFunc(out, func(a, b *attachmentRecord) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// countHeld counts the rows of scope that hold a slot: ACTIVE and PENDING.
func (s *state) countHeld(scope models.AttachmentScope) int {
	n := 0
	for _, a := range s.attachmentsIn(scope) {
		if a.State == models.AttachmentActive || a.State == models.AttachmentPending {
			n++
		}
	}
	return n
}

func (s *state) attachmentByKey(key string) *attachmentRecord {
	for _, a := range s.attachments {
		if a.key == key {
			return a
		}
	}
	return nil
}

// dropRequest removes r with its comments and every attachment under it and
// returns the object keys to delete.
func (s *state) dropRequest(id int64) []string {
	var keys []string
	for aid, a := range s.attachments {
		if a.scope.RequestID == id {
			keys = append(keys, a.key)
			delete(s.attachments, aid)
		}
	}
	for cid, c := range s.comments {
		if c.RequestID == id {
			delete(s.comments, cid)
		}
	}
	delete(s.requests, id)
	return keys
}

func (s *state) dropComment(c *models.Comment) []string {
	var keys []string
	scope := models.CommentScope(c.RequestID, c.ID)
	for aid, a := range s.attachments {
		if a.scope == scope {
			keys = append(keys, a.key)
			delete(s.attachments, aid)
		}
	}
	delete(s.comments, c.ID)
	if r, ok := s.requests[c.RequestID]; ok && r.CommentCount > 0 {
		r.CommentCount--
	}
	return keys
}

func cloneUser(u models.User) models.User {
	u.Roles = slices.Clone(u.Roles)
	return u
}

func paginate[T any](items []T, page, size int) models.Page[T] {
	if size <= 0 {
		size = 20
	}
	if page < 0 {
		page = 0
	}
	total := len(items)
	from := min(page*size, total)
	to := min(from+size, total)
	return models.Page[T]{
		Content:       items[from:to],
		TotalElements: total,
		TotalPages:    (total + size - 1) / size,
		Number:        page,
		Size:          size,
	}
}
