package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	msgServerError        = "Server error"
	msgValidationFailed   = "Validation failed"
	msgInvalidCredentials = "Invalid credentials"
	msgUserExists         = "User already exists with this email"
	msgUserNotFound       = "User not found"
	msgTaskNotFound       = "Task not found"
	msgUnauthorized       = "Not authorized"
	msgTooManyRequests    = "Too many requests"
)

// apiError is rendered as {"message": ..., "error": ...}. Error carries
// details such as validation failures or the cause of a server error.
type apiError struct {
	Code    int    `json:"-"`
	Message string `json:"message"`
	Err     string `json:"error,omitempty"`
}

func newAPIError(code int, message string) apiError {
	return apiError{
		Code:    code,
		Message: message,
	}
}

func (e apiError) Error() string {
	return e.Message
}

func (e apiError) withCause(err error) apiError {
	if err != nil {
		e.Err = err.Error()
	}
	return e
}

func abort(c *gin.Context, err apiError) {
	c.AbortWithStatusJSON(err.Code, err)
}

func newServerError(err error) apiError {
	return newAPIError(http.StatusInternalServerError, msgServerError).withCause(err)
}

func newBadRequestError(message string) apiError {
	return newAPIError(http.StatusBadRequest, message)
}

func newValidationError(err error) apiError {
	return newBadRequestError(msgValidationFailed).withCause(err)
}

func newUnauthorizedError(message string) apiError {
	return newAPIError(http.StatusUnauthorized, message)
}

func newNotFoundError(message string) apiError {
	return newAPIError(http.StatusNotFound, message)
}
