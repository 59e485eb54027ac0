package remote

import (
	"errors"
	"fmt"
)

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess         RetCode = iota // 0: Operation succeeded.
	RetCNotFound                       // 1: The object does not exist.
	RetCConflict                       // 2: The version precondition failed.
	RetCTransportError                 // 3: Network, auth, rate limit or server failure.
	RetCConfigError                    // 4: A required setting (e.g. the credential) is missing.
	RetCInvalidDocument                // 5: The document is not valid JSON or too large.
)

func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "Success"
	case RetCNotFound:
		return "NotFound"
	case RetCConflict:
		return "Conflict"
	case RetCTransportError:
		return "TransportError"
	case RetCConfigError:
		return "ConfigError"
	case RetCInvalidDocument:
		return "InvalidDocument"
	default:
		return "Unknown"
	}
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error wraps a return code with the affected path and, for transport errors,
// the HTTP status reported by the remote (0 if there was no response).
type Error struct {
	Code   RetCode
	Status int
	Path   string
	Msg    string
	Err    error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Msg
	if e.Err != nil {
		if msg == "" {
			msg = e.Err.Error()
		} else {
			msg = msg + ": " + e.Err.Error()
		}
	}
	if e.Status != 0 {
		return fmt.Sprintf("RemoteError (code %s, status %d) %s: %s", e.Code, e.Status, e.Path, msg)
	}
	return fmt.Sprintf("RemoteError (code %s) %s: %s", e.Code, e.Path, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new Error with the given code, path and message.
func NewError(code RetCode, path, msg string) *Error {
	return &Error{
		Code: code,
		Path: path,
		Msg:  msg,
	}
}

// NewTransportError creates a RetCTransportError carrying the http status and cause.
func NewTransportError(path string, status int, cause error) *Error {
	return &Error{
		Code:   RetCTransportError,
		Status: status,
		Path:   path,
		Err:    cause,
	}
}

// CodeOf returns the RetCode carried by err. Errors that are not a *Error are
// treated as transport errors, nil is RetCSuccess.
func CodeOf(err error) RetCode {
	if err == nil {
		return RetCSuccess
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return RetCTransportError
}

func IsNotFound(err error) bool  { return CodeOf(err) == RetCNotFound }
func IsConflict(err error) bool  { return CodeOf(err) == RetCConflict }
func IsTransport(err error) bool { return CodeOf(err) == RetCTransportError }
func IsConfig(err error) bool    { return CodeOf(err) == RetCConfigError }
