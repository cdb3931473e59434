package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/supportdesk/internal/client/models"
)

var (
	userRoles   = []models.Role{models.RoleUser}
	triageRoles = []models.Role{models.RoleUser, models.RoleTriage}
	adminRoles  = []models.Role{models.RoleAdmin}

	alice = &models.User{ID: 1, Username: "alice", Roles: userRoles}
	bob   = models.UserSummary{ID: 2, Username: "bob"}
)

func TestCanManage(t *testing.T) {
	tests := []struct {
		name    string
		current *models.User
		owner   models.UserSummary
		roles   []models.Role
		want    bool
	}{
		{"owner", alice, alice.Summary(), userRoles, true},
		{"stranger", alice, bob, userRoles, false},
		{"triage on foreign request", alice, bob, triageRoles, true},
		{"admin on foreign request", alice, bob, adminRoles, true},
		{"anonymous", nil, bob, nil, false},
		{"empty username never matches", &models.User{}, models.UserSummary{}, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanManage(tt.current, tt.owner, tt.roles))
			assert.Equal(t, tt.want, CanDeleteComment(tt.current, tt.owner, tt.roles))
		})
	}
}

func TestStatusAndAssignIgnoreOwnership(t *testing.T) {
	assert.False(t, CanChangeStatus(userRoles))
	assert.False(t, CanAssign(userRoles))
	assert.True(t, CanChangeStatus(triageRoles))
	assert.True(t, CanAssign(adminRoles))
}

func TestAllowedTransitions(t *testing.T) {
	assert.Equal(t, []models.RequestStatus{models.StatusInProgress, models.StatusClosed}, AllowedTransitions(models.StatusOpen))
	assert.Equal(t, []models.RequestStatus{models.StatusResolved, models.StatusClosed}, AllowedTransitions(models.StatusInProgress))
	assert.Equal(t, []models.RequestStatus{models.StatusClosed}, AllowedTransitions(models.StatusResolved))
	assert.Empty(t, AllowedTransitions(models.StatusClosed))
	assert.Empty(t, AllowedTransitions("ARCHIVED"))

	got := AllowedTransitions(models.StatusOpen)
	got[0] = models.StatusClosed
	assert.Equal(t, models.StatusInProgress, AllowedTransitions(models.StatusOpen)[0], "callers get a copy")
}

func TestCanTransition_NoBackwardMoves(t *testing.T) {
	for _, from := range models.AllStatuses {
		for _, to := range models.AllStatuses {
			fi, ti := indexOf(from), indexOf(to)
			if ti <= fi {
				assert.False(t, CanTransition(adminRoles, from, to), "%s -> %s", from, to)
			}
		}
	}
	assert.True(t, CanTransition(triageRoles, models.StatusOpen, models.StatusClosed))
	assert.False(t, CanTransition(userRoles, models.StatusOpen, models.StatusInProgress))
	assert.False(t, CanTransition(adminRoles, models.StatusOpen, models.StatusResolved))
}

func indexOf(s models.RequestStatus) int {
	for i, st := range models.AllStatuses {
		if st == s {
			return i
		}
	}
	return -1
}

func TestPermissionsFor(t *testing.T) {
	req := models.SupportRequest{ID: 1, Status: models.StatusInProgress, CreatedBy: alice.Summary()}

	owner := PermissionsFor(alice, req, userRoles)
	assert.True(t, owner.ManageThread)
	assert.False(t, owner.ChangeStatus)
	assert.False(t, owner.Assign)
	assert.Empty(t, owner.Transitions)

	triager := &models.User{ID: 5, Username: "triage", Roles: triageRoles}
	p := PermissionsFor(triager, req, triageRoles)
	assert.True(t, p.ManageThread)
	assert.True(t, p.Assign)
	assert.Equal(t, []models.RequestStatus{models.StatusResolved, models.StatusClosed}, p.Transitions)
}

func TestToggleRole(t *testing.T) {
	admin := &models.User{ID: 9, Username: "admin", Roles: []models.Role{models.RoleUser, models.RoleAdmin}}
	other := models.User{ID: 3, Username: "carol"}

	got, err := ToggleRole(admin, other, []models.Role{models.RoleUser}, models.RoleTriage)
	require.NoError(t, err)
	assert.Equal(t, []models.Role{models.RoleUser, models.RoleTriage}, got)

	got, err = ToggleRole(admin, other, []models.Role{models.RoleUser, models.RoleTriage}, models.RoleUser)
	require.NoError(t, err)
	assert.Equal(t, []models.Role{models.RoleTriage}, got)

	_, err = ToggleRole(admin, other, []models.Role{models.RoleTriage}, models.RoleTriage)
	assert.ErrorIs(t, err, ErrLastRole)
	assert.EqualError(t, err, "A user must have at least one role")

	_, err = ToggleRole(admin, *admin, admin.Roles, models.RoleAdmin)
	assert.ErrorIs(t, err, ErrOwnAdminRemoval)

	got, err = ToggleRole(admin, *admin, admin.Roles, models.RoleUser)
	require.NoError(t, err)
	assert.Equal(t, []models.Role{models.RoleAdmin}, got)
}

func TestSameRoles(t *testing.T) {
	assert.True(t, SameRoles([]models.Role{"A", "B"}, []models.Role{"B", "A", "A"}))
	assert.False(t, SameRoles([]models.Role{"A"}, []models.Role{"A", "B"}))
	assert.True(t, SameRoles(nil, []models.Role{}))
}
