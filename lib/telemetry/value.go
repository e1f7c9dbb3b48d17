package telemetry

import (
	"fmt"
	"sync"
)

// --------------------------------------------------------------------------
// Access Modes
// --------------------------------------------------------------------------

// Access controls how a NamedValue may be used through the checked Get/Set
// methods. The transport only reads, so a write-only value is never included
// in query responses or snapshots.
type Access uint8

const (
	AccessReadWrite Access = iota
	AccessRead             // readable only
	AccessWrite            // writable only
)

func (a Access) String() string {
	switch a {
	case AccessReadWrite:
		return "readwrite"
	case AccessRead:
		return "read"
	case AccessWrite:
		return "write"
	default:
		return "unknown"
	}
}

// Readable returns whether checked reads are permitted.
func (a Access) Readable() bool {
	return a == AccessRead || a == AccessReadWrite
}

// Writable returns whether checked writes are permitted.
func (a Access) Writable() bool {
	return a == AccessWrite || a == AccessReadWrite
}

// --------------------------------------------------------------------------
// NamedValue
// --------------------------------------------------------------------------

// NamedValue is a single caller-owned telemetry value. The zero value is not
// usable, use NewNamedValue. Values should be basic scalar types (numbers,
// strings, booleans) so they survive the wire codec unchanged.
type NamedValue struct {
	name   string
	access Access

	mu    sync.RWMutex
	value any
}

// NewNamedValue creates a read/write NamedValue.
func NewNamedValue(name string, value any) *NamedValue {
	return NewNamedValueWithAccess(name, value, AccessReadWrite)
}

// NewNamedValueWithAccess creates a NamedValue with an explicit access mode.
func NewNamedValueWithAccess(name string, value any, access Access) *NamedValue {
	return &NamedValue{
		name:   name,
		access: access,
		value:  value,
	}
}

// Name returns the identifier peers use to request this value.
func (v *NamedValue) Name() string {
	return v.name
}

// Access returns the access mode of the value.
func (v *NamedValue) Access() Access {
	return v.access
}

// Load returns the current value, ignoring the access mode.
func (v *NamedValue) Load() any {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.value
}

// Store sets the value, ignoring the access mode.
func (v *NamedValue) Store(value any) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.value = value
}

// Get returns the current value, enforcing the access mode.
func (v *NamedValue) Get() (any, error) {
	if !v.access.Readable() {
		return nil, NewError(RetCWriteOnly, fmt.Sprintf("value %q is write-only, cannot read from it", v.name))
	}
	return v.Load(), nil
}

// Set updates the value, enforcing the access mode.
func (v *NamedValue) Set(value any) error {
	if !v.access.Writable() {
		return NewError(RetCReadOnly, fmt.Sprintf("value %q is read-only, cannot write to it", v.name))
	}
	v.Store(value)
	return nil
}
