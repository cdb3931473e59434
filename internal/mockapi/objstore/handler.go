package objstore

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// maxObjectSize bounds a single PUT body.
const maxObjectSize = 64 << 20

// Register mounts the bucket routes on r. The group's prefix must match the
// base endpoint passed to the presign calls.
func (s *Store) Register(r gin.IRouter) {
	r.PUT("/:bucket/*key", s.handlePut)
	r.GET("/:bucket/*key", s.handleGet)
}

func (s *Store) objectKey(c *gin.Context) (string, bool) {
	if c.Param("bucket") != s.cfg.Bucket {
		writeError(c, http.StatusNotFound, "NoSuchBucket", "The specified bucket does not exist")
		return "", false
	}
	return strings.TrimPrefix(c.Param("key"), "/"), true
}

func (s *Store) handlePut(c *gin.Context) {
	key, ok := s.objectKey(c)
	if !ok {
		return
	}
	if st, fail := s.takeFailure(); fail {
		s.putRejected(key)
		writeError(c, st, "InjectedFailure", http.StatusText(st))
		return
	}
	if !s.authorize(c, http.MethodPut, key) {
		s.putRejected(key)
		return
	}

	data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxObjectSize+1))
	if err != nil {
		s.putRejected(key)
		writeError(c, http.StatusBadRequest, "IncompleteBody", err.Error())
		return
	}
	if len(data) > maxObjectSize {
		s.putRejected(key)
		writeError(c, http.StatusRequestEntityTooLarge, "EntityTooLarge", "Your proposed upload exceeds the maximum allowed size")
		return
	}

	s.Put(key, data, c.GetHeader("Content-Type"))
	c.Status(http.StatusOK)
}

func (s *Store) handleGet(c *gin.Context) {
	key, ok := s.objectKey(c)
	if !ok {
		return
	}
	if !s.authorize(c, http.MethodGet, key) {
		return
	}

	obj, err := s.Get(key)
	if err != nil {
		writeError(c, http.StatusNotFound, "NoSuchKey", "The specified key does not exist.")
		return
	}
	ct := obj.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	c.Data(http.StatusOK, ct, obj.Data)
}

func (s *Store) authorize(c *gin.Context, method, key string) bool {
	err := s.Authorize(method, key, c.Request.URL.Query())
	switch {
	case err == nil:
		return true
	case errors.Is(err, ErrExpired):
		writeError(c, http.StatusForbidden, "AccessDenied", "Request has expired")
	default:
		writeError(c, http.StatusForbidden, "SignatureDoesNotMatch", "The request signature we calculated does not match the signature you provided.")
	}
	return false
}

// writeError answers in S3's XML error shape.
func writeError(c *gin.Context, status int, code, msg string) {
	body := fmt.Sprintf("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n<Error><Code>%s</Code><Message>%s</Message></Error>", code, msg)
	c.Data(status, "application/xml", []byte(body))
	c.Abort()
}
