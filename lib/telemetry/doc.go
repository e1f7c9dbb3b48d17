// Package telemetry implements the named-value store that endpoints read to
// answer queries from their peers. Values are owned by the caller: the caller
// keeps the *NamedValue reference and may update it at any time, while the
// transport only ever reads through the store interface.
//
// Key Components:
//
//   - NamedValue: a single name/value pair with an access mode. Reads and
//     writes are safe from any goroutine.
//
//   - IStore: the read surface consumed by the transport (lookup by name plus
//     a full snapshot for total_data requests) and the registration entry
//     point used before an endpoint starts.
//
//   - NewRegistry: the default IStore implementation backed by a concurrent
//     map.
package telemetry
