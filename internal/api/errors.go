package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/npezzotti/dealchat/internal/chat"
)

type ApiError struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
	Err        error  `json:"-"`
}

func (e *ApiError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Err.Error())
	}

	return e.Message
}

func (e *ApiError) Unwrap() error {
	return e.Err
}

func lower(s string) string {
	return strings.ToLower(s)
}

func newApiError(code int, msg string) *ApiError {
	if msg == "" {
		msg = lower(http.StatusText(code))
	}
	return &ApiError{
		StatusCode: code,
		Message:    msg,
	}
}

// NewBadRequestError takes an optional message describing what was wrong with
// the request.
func NewBadRequestError(msg ...string) *ApiError {
	return newApiError(http.StatusBadRequest, strings.Join(msg, "; "))
}

func NewNotFoundError(msg ...string) *ApiError {
	return newApiError(http.StatusNotFound, strings.Join(msg, "; "))
}

func NewConflictError(msg ...string) *ApiError {
	return newApiError(http.StatusConflict, strings.Join(msg, "; "))
}

func NewInternalServerError(err error) *ApiError {
	e := newApiError(http.StatusInternalServerError, "")
	e.Err = err
	return e
}

func NewUnauthorizedError() *ApiError {
	return newApiError(http.StatusUnauthorized, "")
}

func NewForbiddenError(msg ...string) *ApiError {
	return newApiError(http.StatusForbidden, strings.Join(msg, "; "))
}

// errorFromChat maps the chat error taxonomy onto HTTP errors.
func errorFromChat(err error) *ApiError {
	switch {
	case errors.Is(err, chat.ErrValidation):
		return NewBadRequestError(err.Error())
	case errors.Is(err, chat.ErrNotFound):
		return NewNotFoundError(err.Error())
	case errors.Is(err, chat.ErrConflict):
		return NewConflictError(err.Error())
	default:
		return NewInternalServerError(err)
	}
}
