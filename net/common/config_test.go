package common

import (
	"testing"
)

func TestValidatePortRange(t *testing.T) {
	testCases := []struct {
		name    string
		port    int
		wantErr bool
	}{
		{name: "port 0 (ephemeral)", port: 0, wantErr: false},
		{name: "common port", port: 8080, wantErr: false},
		{name: "max port", port: 65535, wantErr: false},
		{name: "negative port", port: -1, wantErr: true},
		{name: "port too large", port: 65536, wantErr: true},
		{name: "port far too large", port: 1 << 20, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := EndpointConfig{Host: "127.0.0.1", Port: tc.port}
			err := cfg.Validate()

			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error but got none")
				}
				if code, ok := CodeOf(err); !ok || code != ErrCInvalidPort {
					t.Errorf("expected InvalidPort, got %v", err)
				}
			} else if err != nil {
				t.Errorf("did not expect error but got: %v", err)
			}
		})
	}
}

func TestValidateDefaults(t *testing.T) {
	cfg := EndpointConfig{Host: "127.0.0.1", Port: 9000}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	if cfg.TimeoutMillisecond != DefaultTimeoutMillisecond {
		t.Errorf("default timeout is %d, want %d", cfg.TimeoutMillisecond, DefaultTimeoutMillisecond)
	}
	if cfg.OutboxSize != DefaultOutboxSize {
		t.Errorf("default outbox size is %d, want %d", cfg.OutboxSize, DefaultOutboxSize)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("default log level is %q, want info", cfg.LogLevel)
	}
}

func TestAddress(t *testing.T) {
	cfg := EndpointConfig{Host: "10.0.0.1", Port: 4242}
	if got := cfg.Address(); got != "10.0.0.1:4242" {
		t.Errorf("Address returned %q", got)
	}
}
