package mockapi

import (
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/supportdesk/internal/client/models"
	"github.com/dmitrijs2005/supportdesk/internal/common"
	"github.com/dmitrijs2005/supportdesk/internal/mockapi/auth"
)

const userKey = "user"

func (s *Server) requestLogger(c *gin.Context) {
	start := time.Now()
	c.Next()
	s.log.Info(c.Request.Context(), "request",
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"status", c.Writer.Status(),
		"duration", time.Since(start))
}

// authenticate resolves the bearer token to a user. Tokens issued before the
// last RevokeSessions call are rejected.
func (s *Server) authenticate(c *gin.Context) {
	header := c.GetHeader(common.AuthorizationHeaderName)
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		abort(c, http.StatusUnauthorized, codeUnauthorized, "Missing bearer token")
		return
	}

	claims, err := auth.ParseToken(token, s.secret)
	if err != nil {
		msg := "Invalid token"
		if errors.Is(err, common.ErrTokenExpired) {
			msg = "Token expired"
		}
		abort(c, http.StatusUnauthorized, codeUnauthorized, msg)
		return
	}
	if claims.Epoch != int(s.epoch.Load()) {
		abort(c, http.StatusUnauthorized, codeUnauthorized, "Session revoked")
		return
	}

	s.state.mu.Lock()
	rec, found := s.state.users[claims.UserID]
	var u models.User
	if found {
		u = cloneUser(rec.User)
	}
	s.state.mu.Unlock()
	if !found {
		abort(c, http.StatusUnauthorized, codeUnauthorized, "Unknown user")
		return
	}

	c.Set(userKey, u)
	c.Next()
}

func requireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		u := currentUser(c)
		if !slices.ContainsFunc(roles, u.HasRole) {
			forbidden(c)
			return
		}
		c.Next()
	}
}

func currentUser(c *gin.Context) models.User {
	return c.MustGet(userKey).(models.User)
}
