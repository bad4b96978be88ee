package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/neuroforge/backend/internal/apperr"
	"github.com/neuroforge/backend/internal/logging"
)

// statusFor maps an error kind to its HTTP status.
func statusFor(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindInvalidOwnership:
		return http.StatusForbidden
	case apperr.KindInsufficient:
		return http.StatusPaymentRequired
	case apperr.KindTransient:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// respondError writes err as JSON. Unclassified errors are logged and
// reported without detail.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logging.Error("request failed",
			zap.String("method", c.Request.Method), zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}

	var ae *apperr.Error
	msg := err.Error()
	if errors.As(err, &ae) && ae.Msg != "" {
		msg = ae.Msg
	}
	c.JSON(status, gin.H{"error": msg, "kind": apperr.KindOf(err)})
}

// int64Param parses a positive integer path parameter.
func int64Param(c *gin.Context, name string) (int64, error) {
	v, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || v <= 0 {
		return 0, apperr.Validation("invalid %s", name)
	}
	return v, nil
}

func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		respondError(c, apperr.Validation("invalid request: %v", err))
		return false
	}
	return true
}
