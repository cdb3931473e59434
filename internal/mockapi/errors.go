package mockapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error codes carried in the {"code","message"} body.
const (
	codeValidation   = "VALIDATION_ERROR"
	codeUnauthorized = "UNAUTHORIZED"
	codeForbidden    = "FORBIDDEN"
	codeNotFound     = "NOT_FOUND"
	codeConflict     = "CONFLICT"
	codeLimit        = "ATTACHMENT_LIMIT"
	codeInternal     = "INTERNAL_ERROR"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func abort(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, errorBody{Code: code, Message: msg})
}

func badRequest(c *gin.Context, msg string) {
	abort(c, http.StatusBadRequest, codeValidation, msg)
}

func forbidden(c *gin.Context) {
	abort(c, http.StatusForbidden, codeForbidden, "You do not have permission to perform this action")
}

func notFound(c *gin.Context, what string) {
	abort(c, http.StatusNotFound, codeNotFound, what+" not found")
}
