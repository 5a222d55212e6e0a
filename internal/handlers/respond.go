package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"rental-portal/internal/errorx"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// errorBody is the failure shape of every endpoint
func errorBody(kind errorx.Kind, msg string) gin.H {
	return gin.H{"error": gin.H{"kind": kind, "message": msg}}
}

// respondError renders err with its mapped status. Untagged errors are logged
// with request context and reported as internal.
func respondError(c *gin.Context, log *zap.Logger, err error) {
	kind, msg := errorx.Describe(err)
	status := errorx.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.String("client_ip", c.ClientIP()),
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
	}
	c.AbortWithStatusJSON(status, errorBody(kind, msg))
}

// badRequest renders a validation failure raised at the HTTP boundary
func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorBody(errorx.KindValidation, msg))
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		var ute *time.ParseError
		if errors.As(err, &ute) {
			badRequest(c, "invalid date: "+ute.Value)
			return false
		}
		badRequest(c, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func uintParam(c *gin.Context, name string) (uint, bool) {
	n, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || n == 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return uint(n), true
}

func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

func limitQuery(c *gin.Context, def, upper int) int {
	n, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(def)))
	if err != nil || n <= 0 {
		return def
	}
	if n > upper {
		return upper
	}
	return n
}

// parseDate accepts YYYY-MM-DD or RFC 3339
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
