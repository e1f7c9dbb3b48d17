// Package endpoint implements the peer-to-peer transport core: the Endpoint
// in its server or client role, the per-connection Peer service loops, the
// dispatcher that answers queries from the telemetry store, and the
// coordinated shutdown protocol.
//
// A server endpoint listens and owns any number of peers, keyed by the
// string form of the remote port; a client endpoint dials once and owns
// exactly one peer. Every peer runs one receive loop; outgoing messages go
// through a bounded per-peer outbox drained by a single writer goroutine, so
// a blocking write never stalls a receive loop.
//
// Message boundaries are delimited by time, not by framing bytes: bytes are
// accumulated until a receive window (the configured timeout) passes without
// data, then decoded as exactly one message. The protocol therefore cannot
// separate two messages that arrive within the same window; this is inherent
// to the wire format and left as is for compatibility.
package endpoint
