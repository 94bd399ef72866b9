// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package errors defines the typed errors shared by the issuance tool and
// their mapping onto HTTP status codes.
package errors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/stacklok/toolhive-core/httperr"
)

// Error types
const (
	// ErrConfiguration is returned when service credentials or settings are missing
	ErrConfiguration = "configuration"

	// ErrUpstreamAuth is returned when the identity provider rejects a token request
	ErrUpstreamAuth = "upstream_auth"

	// ErrUpstreamIssuance is returned when the Request Service rejects every issuance attempt
	ErrUpstreamIssuance = "upstream_issuance"

	// ErrUpstream is returned when any other upstream API call fails
	ErrUpstream = "upstream"

	// ErrNotFound is returned when a request record is unknown or expired
	ErrNotFound = "not_found"

	// ErrInvalidArgument is returned when an invalid argument is provided
	ErrInvalidArgument = "invalid_argument"

	// ErrPermissions is returned when an upstream API denies access
	ErrPermissions = "permissions"

	// ErrUnauthenticated is returned when no operator session is present
	ErrUnauthenticated = "unauthenticated"

	// ErrInternal is returned when there is an internal error
	ErrInternal = "internal"
)

// Error represents an error in the application
type Error struct {
	// Type is the error type
	Type string

	// Message is the error message
	Message string

	// Cause is the underlying error
	Cause error

	// StatusCode is the upstream HTTP status, when the error came from an upstream call
	StatusCode int

	// Details carries upstream detail safe to show to the operator
	Details any
}

// Error returns the error message
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %s", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new error
func NewError(errorType, message string, cause error) *Error {
	return &Error{
		Type:    errorType,
		Message: message,
		Cause:   cause,
	}
}

// NewConfigurationError creates a new configuration error
func NewConfigurationError(message string, cause error) *Error {
	return NewError(ErrConfiguration, message, cause)
}

// NewUpstreamAuthError creates a new upstream auth error
func NewUpstreamAuthError(message string, cause error) *Error {
	return NewError(ErrUpstreamAuth, message, cause)
}

// NewUpstreamIssuanceError creates an issuance error that keeps the upstream status and detail.
func NewUpstreamIssuanceError(message string, statusCode int, details any, cause error) *Error {
	e := NewError(ErrUpstreamIssuance, message, cause)
	e.StatusCode = statusCode
	e.Details = details
	return e
}

// NewUpstreamError creates a generic upstream error
func NewUpstreamError(message string, statusCode int, cause error) *Error {
	e := NewError(ErrUpstream, message, cause)
	e.StatusCode = statusCode
	return e
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string, cause error) *Error {
	return NewError(ErrNotFound, message, cause)
}

// NewInvalidArgumentError creates a new invalid argument error
func NewInvalidArgumentError(message string, cause error) *Error {
	return NewError(ErrInvalidArgument, message, cause)
}

// NewPermissionsError creates a new permissions error
func NewPermissionsError(message string, details any, cause error) *Error {
	e := NewError(ErrPermissions, message, cause)
	e.Details = details
	return e
}

// NewUnauthenticatedError creates a new unauthenticated error
func NewUnauthenticatedError(message string) *Error {
	return NewError(ErrUnauthenticated, message, nil)
}

// NewInternalError creates a new internal error
func NewInternalError(message string, cause error) *Error {
	return NewError(ErrInternal, message, cause)
}

func isType(err error, errorType string) bool {
	var e *Error
	return errors.As(err, &e) && e.Type == errorType
}

// IsConfiguration checks if the error is a configuration error
func IsConfiguration(err error) bool {
	return isType(err, ErrConfiguration)
}

// IsUpstreamAuth checks if the error is an upstream auth error
func IsUpstreamAuth(err error) bool {
	return isType(err, ErrUpstreamAuth)
}

// IsUpstreamIssuance checks if the error is an upstream issuance error
func IsUpstreamIssuance(err error) bool {
	return isType(err, ErrUpstreamIssuance)
}

// IsNotFound checks if the error is a not found error
func IsNotFound(err error) bool {
	return isType(err, ErrNotFound)
}

// IsInvalidArgument checks if the error is an invalid argument error
func IsInvalidArgument(err error) bool {
	return isType(err, ErrInvalidArgument)
}

// IsPermissions checks if the error is a permissions error
func IsPermissions(err error) bool {
	return isType(err, ErrPermissions)
}

// Code returns the HTTP status code that should be reported for err.
// Errors that are not typed fall back to httperr.Code.
func Code(err error) int {
	var e *Error
	if !errors.As(err, &e) {
		return httperr.Code(err)
	}

	switch e.Type {
	case ErrNotFound:
		return http.StatusNotFound
	case ErrInvalidArgument:
		return http.StatusBadRequest
	case ErrPermissions:
		return http.StatusForbidden
	case ErrUnauthenticated:
		return http.StatusUnauthorized
	case ErrUpstreamAuth, ErrUpstream:
		return http.StatusBadGateway
	case ErrUpstreamIssuance:
		// Upstream client errors are relayed so the operator sees the provider's verdict.
		if e.StatusCode >= 400 && e.StatusCode < 500 {
			return e.StatusCode
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// DetailsOf returns the operator-facing detail attached to err, if any.
func DetailsOf(err error) any {
	var e *Error
	if errors.As(err, &e) {
		return e.Details
	}
	return nil
}
