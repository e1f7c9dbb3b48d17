package telemetry

import "fmt"

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// IStore is the generic interface for a collection of named telemetry values.
// It is the collaborator the transport layer reads to answer queries: Get and
// Snapshot honor access modes (write-only values are not readable), Lookup
// returns the raw NamedValue for callers that own it.
type IStore interface {
	// Register adds a value to the store. The store keeps the reference, so
	// later updates through the NamedValue are visible to readers.
	Register(v *NamedValue) error
	// Lookup returns the registered NamedValue for a name.
	Lookup(name string) (*NamedValue, bool)
	// Get returns the current value for a name. The boolean return value
	// indicates whether a readable value was found.
	Get(name string) (value any, loaded bool)
	// Names returns the names of all readable values.
	Names() []string
	// Snapshot returns a name -> current value map of all readable values.
	Snapshot() map[string]any
	// Len returns the number of registered values.
	Len() int
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode)
// and an error message.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message.
}

// Error implements the error interface.
func (e *Error) Error() string {
	errorCode := ""
	switch e.Code {
	case RetCDuplicateName:
		errorCode = "DuplicateName"
	case RetCReadOnly:
		errorCode = "ReadOnly"
	case RetCWriteOnly:
		errorCode = "WriteOnly"
	default:
		errorCode = "Unknown"
	}

	return fmt.Sprintf("TelemetryError (code %s): %s", errorCode, e.Msg)
}

// NewError creates a new telemetry Error with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess       RetCode = iota // 0: Operation executed successfully.
	RetCDuplicateName                // 1: A value with the same name is already registered.
	RetCReadOnly                     // 2: Write attempted on a read-only value.
	RetCWriteOnly                    // 3: Read attempted on a write-only value.
)
