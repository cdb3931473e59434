// Package policy decides which mutating actions the current user may take.
// Every function is pure; the server still enforces the same rules.
package policy

import (
	"errors"
	"slices"

	"github.com/dmitrijs2005/supportdesk/internal/client/models"
)

var transitions = map[models.RequestStatus][]models.RequestStatus{
	models.StatusOpen:       {models.StatusInProgress, models.StatusClosed},
	models.StatusInProgress: {models.StatusResolved, models.StatusClosed},
	models.StatusResolved:   {models.StatusClosed},
	models.StatusClosed:     {},
}

func IsTriageOrAdmin(roles []models.Role) bool {
	return slices.Contains(roles, models.RoleTriage) || slices.Contains(roles, models.RoleAdmin)
}

// CanManage covers deleting a request, deleting any of its attachments and
// uploading new ones. Ownership is matched by username.
func CanManage(current *models.User, owner models.UserSummary, roles []models.Role) bool {
	if IsTriageOrAdmin(roles) {
		return true
	}
	return isSameUser(current, owner)
}

// CanDeleteComment applies the manage rule to the comment's author.
func CanDeleteComment(current *models.User, author models.UserSummary, roles []models.Role) bool {
	return CanManage(current, author, roles)
}

func CanChangeStatus(roles []models.Role) bool { return IsTriageOrAdmin(roles) }

func CanAssign(roles []models.Role) bool { return IsTriageOrAdmin(roles) }

// AllowedTransitions lists the forward moves from s. Unknown statuses have
// none.
func AllowedTransitions(s models.RequestStatus) []models.RequestStatus {
	return slices.Clone(transitions[s])
}

func CanTransition(roles []models.Role, from, to models.RequestStatus) bool {
	return CanChangeStatus(roles) && slices.Contains(transitions[from], to)
}

// Permissions is everything a request detail view needs to know.
type Permissions struct {
	ManageThread bool
	ChangeStatus bool
	Assign       bool
	Transitions  []models.RequestStatus
}

func PermissionsFor(current *models.User, req models.SupportRequest, roles []models.Role) Permissions {
	p := Permissions{
		ManageThread: CanManage(current, req.CreatedBy, roles),
		ChangeStatus: CanChangeStatus(roles),
		Assign:       CanAssign(roles),
	}
	if p.ChangeStatus {
		p.Transitions = AllowedTransitions(req.Status)
	}
	return p
}

func isSameUser(current *models.User, other models.UserSummary) bool {
	return current != nil && current.Username != "" && current.Username == other.Username
}

var (
	ErrLastRole        = errors.New("A user must have at least one role")
	ErrOwnAdminRemoval = errors.New("You cannot remove your own ADMIN role")
)

// ToggleRole flips role in selected for target and returns the new
// selection. It refuses to drop a user's last role and refuses an admin
// dropping their own ADMIN role.
func ToggleRole(current *models.User, target models.User, selected []models.Role, role models.Role) ([]models.Role, error) {
	if !slices.Contains(selected, role) {
		return append(slices.Clone(selected), role), nil
	}
	if len(selected) == 1 {
		return slices.Clone(selected), ErrLastRole
	}
	if role == models.RoleAdmin && isSameUser(current, target.Summary()) {
		return slices.Clone(selected), ErrOwnAdminRemoval
	}
	return slices.DeleteFunc(slices.Clone(selected), func(r models.Role) bool { return r == role }), nil
}

// SameRoles compares role sets ignoring order and duplicates.
func SameRoles(a, b []models.Role) bool {
	as, bs := slices.Clone(a), slices.Clone(b)
	slices.Sort(as)
	slices.Sort(bs)
	return slices.Equal(slices.Compact(as), slices.Compact(bs))
}
