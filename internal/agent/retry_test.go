package agent

import (
	"errors"
	"fmt"
	"testing"
)

func TestRetryableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"rate limit", errors.New("googleai: rate limit exceeded"), true},
		{"quota", errors.New("Quota Exceeded for project"), true},
		{"429", errors.New("HTTP 429 Too Many Requests"), true},
		{"500", errors.New("server error: 500"), true},
		{"503", errors.New("503 Service Unavailable"), true},
		{"unavailable", errors.New("model temporarily UNAVAILABLE"), true},
		{"timeout", errors.New("context deadline exceeded: timeout"), true},
		{"connection reset", errors.New("read tcp: connection reset by peer"), true},
		{"resource exhausted status", errors.New("rpc error: code = ResourceExhausted desc = RESOURCE_EXHAUSTED"), true},
		{"resource exhausted text", errors.New("googleapi: resource exhausted, try later"), true},
		{"overloaded", errors.New("the model is overloaded, please retry"), true},
		{"wrapped", fmt.Errorf("generate: %w", errors.New("502 bad gateway")), true},
		{"invalid argument", errors.New("invalid argument: bad schema"), false},
		{"auth", errors.New("permission denied"), false},
		{"not found", errors.New("model not found"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := retryableError(tt.err); got != tt.want {
				t.Errorf("retryableError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestDefaultRetryConfig(t *testing.T) {
	cfg := DefaultRetryConfig()
	if cfg.MaxRetries <= 0 {
		t.Error("MaxRetries should be positive")
	}
	if cfg.InitialInterval <= 0 || cfg.MaxInterval < cfg.InitialInterval {
		t.Errorf("bad intervals: initial=%v max=%v", cfg.InitialInterval, cfg.MaxInterval)
	}
}
