package mockapi

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/supportdesk/internal/client/models"
	"github.com/dmitrijs2005/supportdesk/internal/client/policy"
)

func (s *Server) listUsersByRole(c *gin.Context) {
	role, ok := models.ParseRole(c.Query("role"))
	if !ok {
		badRequest(c, "Unknown role")
		return
	}

	s.state.mu.Lock()
	users := s.state.usersWhere(func(u *userRecord) bool { return u.HasRole(role) })
	s.state.mu.Unlock()

	c.JSON(http.StatusOK, users)
}

func (s *Server) listAllUsers(c *gin.Context) {
	s.state.mu.Lock()
	users := s.state.usersWhere(func(*userRecord) bool { return true })
	s.state.mu.Unlock()

	c.JSON(http.StatusOK, users)
}

func (s *Server) listRoles(c *gin.Context) {
	c.JSON(http.StatusOK, models.AllRoles)
}

// updateRoles replaces a user's roles. The same guards as the client's role
// editor apply: at least one role, and no admin may drop their own ADMIN.
func (s *Server) updateRoles(c *gin.Context) {
	var in struct {
		Roles []string `json:"roles"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Malformed body")
		return
	}
	uid, ok := pathID(c, "uid")
	if !ok {
		return
	}

	var roles []models.Role
	for _, raw := range in.Roles {
		r, ok := models.ParseRole(raw)
		if !ok {
			badRequest(c, "Unknown role "+raw)
			return
		}
		if !slices.Contains(roles, r) {
			roles = append(roles, r)
		}
	}
	if len(roles) == 0 {
		badRequest(c, policy.ErrLastRole.Error())
		return
	}

	me := currentUser(c)
	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	target, found := s.state.users[uid]
	if !found {
		notFound(c, "User")
		return
	}
	if target.ID == me.ID && !slices.Contains(roles, models.RoleAdmin) {
		badRequest(c, policy.ErrOwnAdminRemoval.Error())
		return
	}
	target.Roles = roles
	c.JSON(http.StatusOK, cloneUser(target.User))
}
