package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"academy/internal/attendance"
	"academy/internal/httpmiddleware"
	"academy/internal/identity"
	"academy/internal/reports"
	"academy/internal/roster"
)

// httpError carries a status picked by the handler itself.
type httpError struct {
	status int
	msg    string
}

func (e *httpError) Error() string { return e.msg }

func badRequest(msg string) error { return &httpError{status: http.StatusBadRequest, msg: msg} }

var (
	errForbidden = &httpError{status: http.StatusForbidden, msg: "admin access required"}
	errThrottled = &httpError{status: http.StatusTooManyRequests, msg: "Too many login attempts. Try again later."}
	errNotFound  = &httpError{status: http.StatusNotFound, msg: "not found"}
)

var badRequestErrors = []error{
	identity.ErrDuplicateUsername,
	identity.ErrDuplicateEmail,
	identity.ErrWrongPassword,
	identity.ErrSamePassword,
	identity.ErrSelfDelete,
	identity.ErrInvalidRole,
	roster.ErrAlreadyEnrolled,
	roster.ErrClassFull,
	roster.ErrInvalidSchedule,
	attendance.ErrNotEnrolled,
	reports.ErrInvalidDate,
}

var notFoundErrors = []error{
	identity.ErrNotFound,
	roster.ErrStudentNotFound,
	roster.ErrClassNotFound,
	roster.ErrEnrollmentNotFound,
	attendance.ErrNotFound,
}

func isAny(err error, targets []error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}

// statusOf maps a service error to an HTTP status. Unknown errors are 500.
func statusOf(err error) int {
	var he *httpError
	var ve *roster.ValidationError
	switch {
	case errors.As(err, &he):
		return he.status
	case errors.As(err, &ve), identity.IsPolicyError(err), isAny(err, badRequestErrors):
		return http.StatusBadRequest
	case isAny(err, notFoundErrors):
		return http.StatusNotFound
	case errors.Is(err, identity.ErrInvalidCredentials):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// fail writes the error response. Internal errors are logged and answered with a generic message.
func (h *Handler) fail(c *gin.Context, err error) {
	status := statusOf(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		h.log.Error().Err(err).
			Str("method", c.Request.Method).
			Str("route", c.FullPath()).
			Str("request_id", httpmiddleware.GetRequestID(c)).
			Msg("request failed")
		msg = "internal server error"
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
