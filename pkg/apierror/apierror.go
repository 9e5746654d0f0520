// Package apierror defines the failure kinds surfaced to API clients and
// how each one is written as an HTTP response.
package apierror

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	StoreError Kind = iota
	InvalidIdentifier
	ValidationFailed
	EmptyUpdate
	Unauthenticated
	NotFound
)

// GenericMessage is the only text a client sees for a StoreError.
const GenericMessage = "Internal server error"

func (k Kind) String() string {
	switch k {
	case InvalidIdentifier:
		return "InvalidIdentifier"
	case ValidationFailed:
		return "ValidationFailed"
	case EmptyUpdate:
		return "EmptyUpdate"
	case Unauthenticated:
		return "Unauthenticated"
	case NotFound:
		return "NotFound"
	default:
		return "StoreError"
	}
}

// Status maps a kind to its HTTP status code.
func (k Kind) Status() int {
	switch k {
	case InvalidIdentifier, ValidationFailed, EmptyUpdate:
		return http.StatusBadRequest
	case Unauthenticated:
		return http.StatusUnauthorized
	case NotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified failure. Message is safe to show to clients.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf classifies err. Anything unclassified is a StoreError.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return StoreError
}

type errorBody struct {
	Error string `json:"error"`
}

// Write sends err as {"error": ...} with the status of its kind.
// Store failures never expose their cause.
func Write(w http.ResponseWriter, err error) {
	kind := KindOf(err)
	message := GenericMessage

	var apiErr *Error
	if kind != StoreError && errors.As(err, &apiErr) {
		message = apiErr.Message
	}
	WriteJSON(w, kind.Status(), errorBody{Error: message})
}

func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
