package apperror

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// A Kind classifies an error by the action the user has to take.
type Kind int

// Error kinds.
const (
	KindUnknown Kind = iota
	// KindConnectivity is used when the remote store is unreachable.
	KindConnectivity
	// KindValidation is used for malformed or missing fields.
	KindValidation
	// KindPermission is used when a write or read is rejected by the access policy.
	KindPermission
	// KindPersistence is used when the local store fails to save.
	KindPersistence
	// KindNotFound is used when a record does not exist.
	KindNotFound
)

// Tags rendered in error bodies.
const (
	TagConnectivity      = "connectivity"
	TagInvalidOrExpired  = "invalid-or-expired"
	TagInvalidParameters = "invalid-parameters"
	TagPermissionDenied  = "permission-denied"
	TagInvalidAuth       = "invalid-auth"
	TagNotFound          = "not-found"
	TagSaveFailed        = "save-failed"
)

type (
	// An Error represents the error format rendered by the document server and understood by clients.
	Error struct {
		Kind       Kind  `json:"-"`
		HTTPCode   int   `json:"-"`
		FieldError field `json:"error"`
	}

	field struct {
		Tag     string `json:"tag,omitempty"`
		Message string `json:"message"`
	}
)

// New returns a new Error of the given kind.
func New(kind Kind, tag, message string) *Error {
	return &Error{
		Kind:       kind,
		HTTPCode:   codeFromKind(kind),
		FieldError: field{Tag: tag, Message: message},
	}
}

// Newf returns a new Error of the given kind with a formatted message.
func Newf(kind Kind, tag, format string, args ...any) *Error {
	return New(kind, tag, fmt.Sprintf(format, args...))
}

// NewWithTagCode returns a new Error with the given code, tag and message.
func NewWithTagCode(code int, tag, message string) *Error {
	return &Error{
		Kind:       kindFromCode(code),
		HTTPCode:   code,
		FieldError: field{Tag: tag, Message: message},
	}
}

// Connectivity wraps a transport error.
func Connectivity(err error) *Error {
	return New(KindConnectivity, TagConnectivity, err.Error())
}

// Error implements error interface.
func (e *Error) Error() string {
	return e.FieldError.Message
}

// Tag returns the error's tag.
func (e *Error) Tag() string {
	return e.FieldError.Tag
}

// StatusCode returns the HTTP status code.
func StatusCode(err error) int {
	if aerr, ok := errors.Cause(err).(*Error); ok && aerr.HTTPCode != 0 {
		return aerr.HTTPCode
	}
	return http.StatusInternalServerError
}

// KindOf returns the kind of the given error, KindUnknown for foreign errors.
func KindOf(err error) Kind {
	if aerr, ok := errors.Cause(err).(*Error); ok {
		return aerr.Kind
	}
	return KindUnknown
}

// Is returns true if err is an Error of the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// FromResponse rebuilds an error rendered by the document server.
func FromResponse(code int, tag, message string) *Error {
	e := NewWithTagCode(code, tag, message)
	if e.Kind == KindUnknown {
		e.Kind = kindFromTag(tag)
	}
	return e
}

func codeFromKind(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindPermission:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConnectivity:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func kindFromCode(code int) Kind {
	switch code {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return KindValidation
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindPermission
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return KindConnectivity
	default:
		return KindUnknown
	}
}

func kindFromTag(tag string) Kind {
	switch tag {
	case TagConnectivity:
		return KindConnectivity
	case TagInvalidOrExpired, TagInvalidParameters:
		return KindValidation
	case TagPermissionDenied, TagInvalidAuth:
		return KindPermission
	case TagNotFound:
		return KindNotFound
	case TagSaveFailed:
		return KindPersistence
	default:
		return KindUnknown
	}
}
