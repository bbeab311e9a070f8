package errors

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error     string            `json:"error"`   // error code (see codes.go)
	Message   string            `json:"message"` // operator-facing text
	Fields    map[string]string `json:"fields,omitempty"`
	Scope     string            `json:"scope,omitempty"`
	Retryable bool              `json:"retryable,omitempty"`
}

// RespondWithError writes a plain error response.
func RespondWithError(c *gin.Context, statusCode int, errorCode string, message string) {
	c.JSON(statusCode, ErrorResponse{
		Error:   errorCode,
		Message: message,
	})
}

// Respond renders any service error. Errors that are not *Error are
// classified first with entity and action.
func Respond(c *gin.Context, err error, entity, action string) {
	var appErr *Error
	if !errors.As(Wrap(err, entity, action), &appErr) {
		InternalError(c, "")
		return
	}

	code := appErr.Code
	if code == "" {
		code = InternalServerError
	}

	c.JSON(StatusFor(appErr.Kind), ErrorResponse{
		Error:     code,
		Message:   appErr.Message(),
		Fields:    appErr.Fields,
		Scope:     appErr.Scope,
		Retryable: appErr.Retryable(),
	})
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindTransient:
		return http.StatusServiceUnavailable
	default:
		// partial replace is a server-side failure; the distinct code and
		// the retryable flag separate it from a plain internal error
		return http.StatusInternalServerError
	}
}

// Shorthands for responses raised before a service is called

func Unauthorized(c *gin.Context, message string) {
	if message == "" {
		message = "authentication required"
	}
	RespondWithError(c, http.StatusUnauthorized, AuthUnauthorized, message)
}

func Forbidden(c *gin.Context, message string) {
	if message == "" {
		message = "access denied"
	}
	RespondWithError(c, http.StatusForbidden, AuthzForbidden, message)
}

func BadRequest(c *gin.Context, errorCode string, message string) {
	RespondWithError(c, http.StatusBadRequest, errorCode, message)
}

func NotFound(c *gin.Context, errorCode string, message string) {
	RespondWithError(c, http.StatusNotFound, errorCode, message)
}

func InternalError(c *gin.Context, message string) {
	if message == "" {
		message = "internal server error, please retry later"
	}
	RespondWithError(c, http.StatusInternalServerError, InternalServerError, message)
}

func RespondWithValidationError(c *gin.Context, fields map[string]string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   ValidationInvalidInput,
		Message: "invalid input",
		Fields:  fields,
	})
}
