package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"

	"connectrpc.com/connect"

	"github.com/moolen/faultline/internal/models"
)

// ErrorResponse represents an error response for HTTP APIs
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ErrorCode represents error codes used in API responses
type ErrorCode string

const (
	// ErrorCodeInvalidRequest represents invalid request parameters
	ErrorCodeInvalidRequest ErrorCode = "INVALID_REQUEST"

	// ErrorCodeNotFound represents a not found error
	ErrorCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrorCodeInternalError represents an internal server error
	ErrorCodeInternalError ErrorCode = "INTERNAL_ERROR"

	// ErrorCodeUnavailable represents an unreachable upstream store
	ErrorCodeUnavailable ErrorCode = "UPSTREAM_UNAVAILABLE"

	// ErrorCodeCanceled represents a request abandoned by the client
	ErrorCodeCanceled ErrorCode = "CANCELED"
)

// APIError represents an API error with status code and message.
// It carries both the HTTP status and the matching Connect code so the same
// value can be rendered by HTTP handlers and MCP tools.
type APIError struct {
	Code        ErrorCode
	HTTPStatus  int
	ConnectCode connect.Code
	Message     string
}

// NewAPIError creates a new API error with HTTP and Connect codes
func NewAPIError(code ErrorCode, httpStatus int, connectCode connect.Code, message string) *APIError {
	return &APIError{
		Code:        code,
		HTTPStatus:  httpStatus,
		ConnectCode: connectCode,
		Message:     message,
	}
}

// Error returns the error message
func (e *APIError) Error() string {
	return e.Message
}

// GetHTTPResponse returns the HTTP error response
func (e *APIError) GetHTTPResponse() ErrorResponse {
	return ErrorResponse{
		Error:   string(e.Code),
		Message: e.Message,
	}
}

// GetConnectError returns a Connect error for RPC-style callers
func (e *APIError) GetConnectError() *connect.Error {
	return connect.NewError(e.ConnectCode, stderrors.New(e.Message))
}

// ConnectToHTTPCode maps Connect error codes to HTTP status codes
func ConnectToHTTPCode(code connect.Code) int {
	switch code {
	case connect.CodeInvalidArgument, connect.CodeFailedPrecondition, connect.CodeOutOfRange:
		return http.StatusBadRequest
	case connect.CodeNotFound:
		return http.StatusNotFound
	case connect.CodeUnavailable:
		return http.StatusServiceUnavailable
	case connect.CodeCanceled:
		return http.StatusRequestTimeout
	case connect.CodeDeadlineExceeded:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string, args ...interface{}) *APIError {
	return NewAPIError(ErrorCodeInvalidRequest, http.StatusBadRequest, connect.CodeInvalidArgument, fmt.Sprintf(message, args...))
}

// NewNotFoundError creates a not found error
func NewNotFoundError(message string, args ...interface{}) *APIError {
	return NewAPIError(ErrorCodeNotFound, http.StatusNotFound, connect.CodeNotFound, fmt.Sprintf(message, args...))
}

// NewInternalServerError creates an internal server error
func NewInternalServerError(message string, args ...interface{}) *APIError {
	return NewAPIError(ErrorCodeInternalError, http.StatusInternalServerError, connect.CodeInternal, fmt.Sprintf(message, args...))
}

// NewUnavailableError creates an upstream unavailable error
func NewUnavailableError(message string, args ...interface{}) *APIError {
	return NewAPIError(ErrorCodeUnavailable, http.StatusServiceUnavailable, connect.CodeUnavailable, fmt.Sprintf(message, args...))
}

// FromError translates a domain error into an APIError. Unknown errors
// become internal errors.
func FromError(err error) *APIError {
	var apiErr *APIError
	switch {
	case err == nil:
		return nil
	case stderrors.As(err, &apiErr):
		return apiErr
	case stderrors.Is(err, models.ErrNotFound):
		return NewNotFoundError("%v", err)
	case stderrors.Is(err, models.ErrInvalidArgument), models.IsValidationError(err):
		return NewInvalidRequestError("%v", err)
	case stderrors.Is(err, models.ErrUpstreamUnavailable):
		return NewUnavailableError("%v", err)
	case stderrors.Is(err, context.Canceled):
		return NewAPIError(ErrorCodeCanceled, ConnectToHTTPCode(connect.CodeCanceled), connect.CodeCanceled, "request canceled")
	case stderrors.Is(err, context.DeadlineExceeded):
		return NewAPIError(ErrorCodeUnavailable, ConnectToHTTPCode(connect.CodeDeadlineExceeded), connect.CodeDeadlineExceeded, "request timed out")
	default:
		return NewInternalServerError("Internal server error: %v", err)
	}
}
