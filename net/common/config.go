package common

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultTimeoutMillisecond is the bounded wait of a single receive
	// attempt. It also delimits message boundaries: a receive window that
	// yields no bytes ends the message accumulated so far.
	DefaultTimeoutMillisecond = 100

	// DefaultOutboxSize is the capacity of the per-peer outbound queue.
	DefaultOutboxSize = 64
)

// --------------------------------------------------------------------------
// Endpoint configuration struct
// --------------------------------------------------------------------------

// EndpointConfig holds all configuration parameters for a single endpoint,
// server or client role alike.
type EndpointConfig struct {
	// Address to listen on (server role) or connect to (client role)
	Host string
	Port int

	// Receive window / write deadline in milliseconds
	TimeoutMillisecond int64

	// Capacity of the per-peer outbound queue. A peer whose queue stays
	// full is torn down rather than allowed to stall its receive loop.
	OutboxSize int

	// TCP socket options, applied to every accepted or dialed connection
	TCPNoDelay      bool
	TCPKeepAliveSec int
	ReadBufferSize  int
	WriteBufferSize int

	// Logging configuration
	LogLevel string
}

// Validate checks the configuration and fills in defaults. It must be called
// before the config is handed to an endpoint.
func (c *EndpointConfig) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return NewError(ErrCInvalidPort, fmt.Sprintf("port %d outside [0,65535]", c.Port))
	}
	if c.TimeoutMillisecond <= 0 {
		c.TimeoutMillisecond = DefaultTimeoutMillisecond
	}
	if c.OutboxSize <= 0 {
		c.OutboxSize = DefaultOutboxSize
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	return nil
}

// Address returns the host:port string for net.Listen / net.Dial.
func (c *EndpointConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Timeout returns the receive window as a time.Duration.
func (c *EndpointConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMillisecond) * time.Millisecond
}

// UpgradeConnection applies the configured TCP socket options to an
// established connection. Non-TCP connections are left untouched.
func (c *EndpointConfig) UpgradeConnection(conn net.Conn) error {
	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		return nil // Not a TCP connection, nothing to upgrade
	}

	// Disable Nagle's algorithm if configured
	if err := tcpConn.SetNoDelay(c.TCPNoDelay); err != nil {
		return err
	}

	// Set socket write buffer size if configured
	if c.WriteBufferSize > 0 {
		if err := tcpConn.SetWriteBuffer(c.WriteBufferSize); err != nil {
			return err
		}
	}

	// Set socket read buffer size if configured
	if c.ReadBufferSize > 0 {
		if err := tcpConn.SetReadBuffer(c.ReadBufferSize); err != nil {
			return err
		}
	}

	// Enable TCP keep-alive if configured
	if c.TCPKeepAliveSec > 0 {
		if err := tcpConn.SetKeepAlive(true); err != nil {
			return err
		}
		if err := tcpConn.SetKeepAlivePeriod(time.Duration(c.TCPKeepAliveSec) * time.Second); err != nil {
			return err
		}
	}

	return nil
}

// String returns a formatted string representation of the configuration
func (c *EndpointConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Endpoint")
	addField("Address", c.Address())
	addField("Timeout", fmt.Sprintf("%d ms", c.TimeoutMillisecond))
	addField("Outbox Size", strconv.Itoa(c.OutboxSize))

	addSection("TCP Options")
	addField("No Delay", fmt.Sprintf("%t", c.TCPNoDelay))
	addField("Keep Alive", fmt.Sprintf("%d sec", c.TCPKeepAliveSec))
	addField("Read Buffer", fmt.Sprintf("%d bytes", c.ReadBufferSize))
	addField("Write Buffer", fmt.Sprintf("%d bytes", c.WriteBufferSize))

	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}
