package mockapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/supportdesk/internal/client/models"
	"github.com/dmitrijs2005/supportdesk/internal/cryptox"
	"github.com/dmitrijs2005/supportdesk/internal/mockapi/auth"
)

type loginBody struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) login(c *gin.Context) {
	var in loginBody
	if err := c.ShouldBindJSON(&in); err != nil || in.Username == "" {
		badRequest(c, "Username and password are required")
		return
	}

	s.state.mu.Lock()
	rec := s.state.userByName(in.Username)
	var (
		u    models.User
		hash string
	)
	if rec != nil {
		u, hash = cloneUser(rec.User), rec.passwordHash
	}
	s.state.mu.Unlock()

	if rec == nil {
		abort(c, http.StatusUnauthorized, codeUnauthorized, "Invalid username or password")
		return
	}
	ok, err := cryptox.VerifyPassword([]byte(in.Password), hash)
	if err != nil || !ok {
		abort(c, http.StatusUnauthorized, codeUnauthorized, "Invalid username or password")
		return
	}

	token, err := auth.GenerateToken(u.ID, u.Username, int(s.epoch.Load()), s.secret, s.cfg.TokenTTL)
	if err != nil {
		s.log.Error(c.Request.Context(), "token generation failed", "error", err)
		abort(c, http.StatusInternalServerError, codeInternal, "Could not issue token")
		return
	}

	c.JSON(http.StatusOK, models.AuthResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.cfg.TokenTTL.Seconds()),
		User:        u,
	})
}
