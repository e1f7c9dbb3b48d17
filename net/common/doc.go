// Package common holds the shared pieces of the transport layer: the endpoint
// configuration with its validation rules, the error taxonomy surfaced to
// callers, and the logging setup used by all transport packages.
package common
