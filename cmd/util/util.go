package util

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/telemetrylab/dtnet/lib/telemetry"
	"github.com/telemetrylab/dtnet/net/codec"
	"github.com/telemetrylab/dtnet/net/common"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		// Add the word
		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	// Add any remaining text
	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// SetupEndpointFlags adds the connection flags shared by all commands that
// create an endpoint
func SetupEndpointFlags(cmd *cobra.Command) {
	key := "host"
	cmd.PersistentFlags().String(key, "0.0.0.0", WrapString("The host to bind (server) or connect to (client)"))

	key = "port"
	cmd.PersistentFlags().Int(key, 8211, WrapString("The TCP port to bind (server) or connect to (client)"))

	key = "timeout-millisecond"
	cmd.PersistentFlags().Int(key, common.DefaultTimeoutMillisecond, WrapString("The receive window in milliseconds. A message is considered complete when no further bytes arrive within one window"))

	key = "outbox-size"
	cmd.PersistentFlags().Int(key, 64, WrapString("The number of outgoing messages buffered per peer before the connection is considered stuck"))

	key = "tcp-nodelay"
	cmd.PersistentFlags().Bool(key, true, WrapString("Whether to enable TCP_NODELAY on the connection"))

	key = "tcp-keepalive"
	cmd.PersistentFlags().Int(key, 0, WrapString("The keepalive interval for the connection (in seconds, 0 disables)"))

	key = "read-buffer"
	cmd.PersistentFlags().Int(key, 0, WrapString("The size of the socket read buffer (in KB, 0 keeps the OS default)"))

	key = "write-buffer"
	cmd.PersistentFlags().Int(key, 0, WrapString("The size of the socket write buffer (in KB, 0 keeps the OS default)"))

	key = "log-level"
	cmd.PersistentFlags().String(key, "info", WrapString("The level at which logs will be output (debug, info, warn, error)"))
}

// InitConfig initializes configuration from environment variables
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("dtnet")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// GetEndpointConfig reads the endpoint configuration from viper
func GetEndpointConfig() common.EndpointConfig {
	return common.EndpointConfig{
		Host:               viper.GetString("host"),
		Port:               viper.GetInt("port"),
		TimeoutMillisecond: viper.GetInt64("timeout-millisecond"),
		OutboxSize:         viper.GetInt("outbox-size"),
		TCPNoDelay:         viper.GetBool("tcp-nodelay"),
		TCPKeepAliveSec:    viper.GetInt("tcp-keepalive"),
		ReadBufferSize:     viper.GetInt("read-buffer") * 1024,
		WriteBufferSize:    viper.GetInt("write-buffer") * 1024,
		LogLevel:           viper.GetString("log-level"),
	}
}

// GetCodec creates a codec based on configuration
func GetCodec() (codec.ICodec, error) {
	switch viper.GetString("codec") {
	case "json":
		return codec.NewJSONCodec(), nil
	default:
		return nil, fmt.Errorf("invalid codec %s", viper.GetString("codec"))
	}
}

// ParseValues parses a comma-separated list of NAME=VALUE pairs into named
// values. Values are typed by inference: integers and floats become numbers,
// true/false become booleans, everything else stays a string.
func ParseValues(spec string) ([]*telemetry.NamedValue, error) {
	if strings.TrimSpace(spec) == "" {
		return nil, nil
	}

	var values []*telemetry.NamedValue
	for _, pair := range strings.Split(spec, ",") {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid value format: %s (expected NAME=VALUE)", pair)
		}

		name := strings.TrimSpace(parts[0])
		if name == "" {
			return nil, fmt.Errorf("invalid value format: %s (empty name)", pair)
		}

		values = append(values, telemetry.NewNamedValue(name, inferValue(strings.TrimSpace(parts[1]))))
	}
	return values, nil
}

func inferValue(raw string) any {
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	return raw
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}
