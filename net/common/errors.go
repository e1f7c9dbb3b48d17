package common

import (
	"errors"
	"fmt"
)

// --------------------------------------------------------------------------
// Error Codes
// --------------------------------------------------------------------------

// ErrCode identifies the configuration and protocol-usage failures an
// endpoint reports synchronously to its caller. Socket transience is absorbed
// inside the service loops and never surfaces as one of these.
type ErrCode uint64

const (
	ErrCUnknown                 ErrCode = iota
	ErrCInvalidPort                     // construction with a port outside [0,65535]
	ErrCAlreadyRunning                  // Start called twice
	ErrCRegistrationAfterStart          // RegisterValue called after Start
	ErrCTargetNotSpecified              // server PoseQuery without a target
	ErrCTargetUnavailable               // server PoseQuery to a dead or unknown peer
	ErrCTooManyPendingRequests          // all 256 correlation keys are live
	ErrCInvalidOperationForRole         // operation not valid for this endpoint role
	ErrCNotConnected                    // client operation without a live connection
)

func (c ErrCode) String() string {
	switch c {
	case ErrCInvalidPort:
		return "InvalidPort"
	case ErrCAlreadyRunning:
		return "AlreadyRunning"
	case ErrCRegistrationAfterStart:
		return "RegistrationAfterStart"
	case ErrCTargetNotSpecified:
		return "TargetNotSpecified"
	case ErrCTargetUnavailable:
		return "TargetUnavailable"
	case ErrCTooManyPendingRequests:
		return "TooManyPendingRequests"
	case ErrCInvalidOperationForRole:
		return "InvalidOperationForRole"
	case ErrCNotConnected:
		return "NotConnected"
	default:
		return "Unknown"
	}
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps an ErrCode and an error message.
type Error struct {
	Code ErrCode // The error code
	Msg  string  // The error message.
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("EndpointError (code %s): %s", e.Code, e.Msg)
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// CodeOf extracts the ErrCode from an error. The boolean return value
// indicates whether the error carries a code at all.
func CodeOf(err error) (ErrCode, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return ErrCUnknown, false
}
