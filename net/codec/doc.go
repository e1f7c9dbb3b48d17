// Package codec defines the wire message model of the telemetry protocol and
// the codec that converts messages to and from bytes.
//
// The wire carries three shapes, distinguished by structure rather than an
// explicit type field: a Query ({"requestKey":K,"query":[...]}), a Response
// (an object carrying a responseKey and the answered values), and the Close
// sentinel (the literal encoded string "closing"). Encoding is compact with
// no embedded whitespace to keep wire size minimal.
package codec
