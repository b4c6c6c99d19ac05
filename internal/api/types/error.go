package types

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Numeric error tags carried in the envelope's code field.
const (
	CodeValidation   = 1001
	CodeAuthFailed   = 1002
	CodeAuthRequired = 1003
	CodeNotFound     = 1004
	CodeDatabase     = 2001
	CodeNetwork      = 2002
	CodeRateLimit    = 3001
	CodeInternal     = 5001
)

// APIError pairs a numeric tag with an HTTP status and a user-facing
// message. Messages are shown verbatim in the admin UI and never leak
// internals.
type APIError struct {
	Code    int
	Status  int
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// ValidationError builds a 400 response for invalid input.
func ValidationError(message string) *APIError {
	return &APIError{Code: CodeValidation, Status: http.StatusBadRequest, Message: message}
}

// AuthFailedError builds a 401 response for a bad password.
func AuthFailedError() *APIError {
	return &APIError{Code: CodeAuthFailed, Status: http.StatusUnauthorized, Message: "密码错误"}
}

// AuthRequiredError builds a 401 response for a missing or invalid session.
func AuthRequiredError() *APIError {
	return &APIError{Code: CodeAuthRequired, Status: http.StatusUnauthorized, Message: "未授权访问，请先登录"}
}

// NotFoundError builds a 404 response for an unknown resource.
func NotFoundError(message string) *APIError {
	return &APIError{Code: CodeNotFound, Status: http.StatusNotFound, Message: message}
}

// DatabaseError builds a 500 response for a failed store operation.
func DatabaseError() *APIError {
	return &APIError{Code: CodeDatabase, Status: http.StatusInternalServerError, Message: "数据库操作失败"}
}

// RateLimitError builds a 429 response for exhausted login attempts.
func RateLimitError() *APIError {
	return &APIError{Code: CodeRateLimit, Status: http.StatusTooManyRequests, Message: "登录尝试次数过多，请稍后再试"}
}

// InternalError builds a 500 response for an uncaught failure.
func InternalError() *APIError {
	return &APIError{Code: CodeInternal, Status: http.StatusInternalServerError, Message: "服务器内部错误"}
}

// CSRFError builds a 403 response for a cross-origin state change.
func CSRFError() *APIError {
	return &APIError{Code: CodeValidation, Status: http.StatusForbidden, Message: "请求来源不合法"}
}

// Abort writes the error envelope and stops the handler chain.
func Abort(c *gin.Context, err *APIError) {
	c.AbortWithStatusJSON(err.Status, ErrorResponse(err))
}
