package response

import (
	"net/http"

	"github.com/congregate/backend/pkg/apperr"
	"github.com/gin-gonic/gin"
)

// Response is the unified API response format.
type Response struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// statusFor maps a normalized error code to an HTTP status.
func statusFor(code apperr.Code) int {
	switch code {
	case apperr.CodeValidation, apperr.CodeWeakPassword:
		return http.StatusBadRequest
	case apperr.CodeInvalidCredentials, apperr.CodeSessionMissing:
		return http.StatusUnauthorized
	case apperr.CodePermissionDenied:
		return http.StatusForbidden
	case apperr.CodeNotFound:
		return http.StatusNotFound
	case apperr.CodeConflict, apperr.CodeUserExists:
		return http.StatusConflict
	case apperr.CodeRateLimit:
		return http.StatusTooManyRequests
	case apperr.CodeNetwork:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// --- Gin response helpers ---

// Success sends a 200 OK response with data.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    "OK",
		Message: "ok",
		Data:    data,
	})
}

// Created sends a 201 Created response with data.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    "OK",
		Message: "created",
		Data:    data,
	})
}

// Error normalizes err and sends the matching error response. Callers never
// need to inspect the error themselves; the taxonomy code decides the status.
func Error(c *gin.Context, err error) {
	appErr := apperr.Normalize(err)
	if appErr == nil {
		Success(c, nil)
		return
	}
	c.JSON(statusFor(appErr.Code), Response{
		Code:    string(appErr.Code),
		Message: appErr.Message,
	})
}

// BadRequest sends a 400 response with a validation code.
func BadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, Response{
		Code:    string(apperr.CodeValidation),
		Message: msg,
	})
}

// Unauthorized sends a 401 response with a missing-session code.
func Unauthorized(c *gin.Context, msg string) {
	c.JSON(http.StatusUnauthorized, Response{
		Code:    string(apperr.CodeSessionMissing),
		Message: msg,
	})
}

// Forbidden sends a 403 response with a permission-denied code.
func Forbidden(c *gin.Context, msg string) {
	c.JSON(http.StatusForbidden, Response{
		Code:    string(apperr.CodePermissionDenied),
		Message: msg,
	})
}

// NotFound sends a 404 response with a not-found code.
func NotFound(c *gin.Context, msg string) {
	c.JSON(http.StatusNotFound, Response{
		Code:    string(apperr.CodeNotFound),
		Message: msg,
	})
}
