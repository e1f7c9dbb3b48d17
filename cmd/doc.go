// Package cmd implements the command-line interface for the dtnet telemetry
// transport. It provides a hierarchical command structure with operations for
// running a server endpoint and querying it as a client.
//
// The package is organized into several subpackages:
//
//   - serve: Commands for starting and configuring a server endpoint
//   - query: Commands for querying telemetry values from a server
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See dtnet -help for a list of all commands.
package cmd
