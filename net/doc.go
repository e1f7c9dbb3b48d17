// Package net contains the peer-to-peer telemetry transport. It is split
// into focused subpackages:
//
//   - common: endpoint configuration, error taxonomy and logging setup
//   - codec: the wire codec for the three message shapes (query, response,
//     close sentinel)
//   - pending: the correlation-key table for outstanding requests
//   - endpoint: the endpoint itself with its server and client roles, peer
//     service loops and dispatcher
//
// A typical server is created with endpoint.NewServerEndpoint, fed with
// telemetry.NamedValue registrations and started; clients connect with
// endpoint.NewClientEndpoint and converse through PoseQuery/GetResponse.
package net
