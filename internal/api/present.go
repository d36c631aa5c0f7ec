package api

import (
	"net/http"

	"github.com/andy/invoicer/internal/auth"
	"github.com/andy/invoicer/internal/domain"
	"github.com/andy/invoicer/internal/reqctx"
	"github.com/andy/invoicer/internal/service"
	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
)

// StatusApplicationError is the status of every failed envelope
const StatusApplicationError = 460

// Error codes understood by the frontend
const (
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeObjectNotFound     = "OBJECT_NOT_FOUND_IN_DATABASE"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeTooManyAttempts    = "TOO_MANY_ATTEMPTS"
	CodeBearerToken        = "BEARER_TOKEN_ERROR"
	CodePacketNotAuthentic = "PACKET_NOT_AUTHENTIC"
	CodeUnhandled          = "UNHANDLED_ERROR"
)

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type envelope struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *apiError `json:"error,omitempty"`
}

func respond(c *gin.Context, data any) {
	c.JSON(http.StatusOK, envelope{Success: true, Data: data})
}

func fail(c *gin.Context, code, message string, details any) {
	c.AbortWithStatusJSON(StatusApplicationError, envelope{
		Error: &apiError{Code: code, Message: message, Details: details},
	})
}

// presentError writes the failure envelope matching err and reports whether it did
func presentError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}
	ctx := c.Request.Context()
	_ = c.Error(err)

	var lockout *service.LockoutError
	switch {
	case errors.As(err, &lockout):
		fail(c, CodeTooManyAttempts, "Account temporarily blocked. Please try again later.", lockout.RemainingMinutes())
	case errors.Is(err, auth.ErrPacketNotAuthentic):
		fail(c, CodePacketNotAuthentic, "Packet not authenticated", nil)
	case errors.Is(err, domain.TooManyAttemptsError):
		fail(c, CodeTooManyAttempts, err.Error(), nil)
	case errors.Is(err, domain.UnAuthorizedError):
		fail(c, CodeInvalidCredentials, "Invalid credentials", nil)
	case errors.Is(err, domain.NotFoundError):
		fail(c, CodeObjectNotFound, err.Error(), nil)
	case errors.Is(err, domain.BadParameterError), errors.Is(err, domain.ConflictError):
		fail(c, CodeInvalidRequest, err.Error(), nil)
	default:
		reqctx.Logger(ctx).ErrorContext(ctx, "unexpected error", "error", err.Error())
		fail(c, CodeUnhandled, "Unexpected error", nil)
	}
	return true
}

// bindData decodes the packet data into req, rejecting invalid payloads
func bindData(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		_ = c.Error(err)
		fail(c, CodeInvalidRequest, "Missing required fields", validationDetails(err))
		return false
	}
	return true
}
