// Package common provides shared utilities used across all features
package common

import (
	"fmt"
	"net/http"
)

// StatusClientClosedRequest is used when the wallet owner refused to sign.
const StatusClientClosedRequest = 499

// HttpError represents an HTTP error with status code and message
type HttpError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *HttpError) Error() string {
	return fmt.Sprintf("HTTP error: %d %s %s", e.StatusCode, e.Code, e.Message)
}

func messageOrDefault(msg string, defaultMsg string) string {
	if msg != "" {
		return msg
	}
	return defaultMsg
}

func NewHttpError(status int, code string, msg string) *HttpError {
	return &HttpError{
		StatusCode: status,
		Code:       code,
		Message:    messageOrDefault(msg, http.StatusText(status)),
	}
}

func HTTPErrorBadRequest(msg string) *HttpError {
	return NewHttpError(http.StatusBadRequest, "BAD_REQUEST", msg)
}

func HTTPErrorNotFound(msg string) *HttpError {
	return NewHttpError(http.StatusNotFound, "NOT_FOUND", msg)
}

func HTTPErrorInternalError(msg string) *HttpError {
	return NewHttpError(http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", msg)
}

func HTTPErrorUnauthorized(msg string) *HttpError {
	return NewHttpError(http.StatusUnauthorized, "UNAUTHORIZED", msg)
}

func HTTPErrorResourceConflict(msg string) *HttpError {
	return NewHttpError(http.StatusConflict, "RESOURCE_CONFLICT", msg)
}
