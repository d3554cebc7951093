package port

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.BaudRate != 9600 {
		t.Errorf("Expected BaudRate 9600, got %d", config.BaudRate)
	}

	if config.ReadTimeout != 100*time.Millisecond {
		t.Errorf("Expected ReadTimeout 100ms, got %v", config.ReadTimeout)
	}
}

func TestWithReadTimeout(t *testing.T) {
	tests := []struct {
		name    string
		timeout time.Duration
		wantErr bool
	}{
		{"0ms (non-blocking)", 0, false},
		{"100ms (valid)", 100 * time.Millisecond, false},
		{"1s (valid)", time.Second, false},
		{"25500ms (max)", 25500 * time.Millisecond, false},
		{"150ms (not multiple of 100ms)", 150 * time.Millisecond, true},
		{"25600ms (exceeds max)", 25600 * time.Millisecond, true},
		{"-100ms (negative)", -100 * time.Millisecond, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			err := WithReadTimeout(tt.timeout)(&config)
			if (err != nil) != tt.wantErr {
				t.Errorf("WithReadTimeout(%v) error = %v, wantErr %v", tt.timeout, err, tt.wantErr)
			}
			if err == nil && config.ReadTimeout != tt.timeout {
				t.Errorf("ReadTimeout = %v, want %v", config.ReadTimeout, tt.timeout)
			}
		})
	}
}

func TestReadTimeoutTenths(t *testing.T) {
	config := Config{ReadTimeout: 2500 * time.Millisecond}
	if got := config.readTimeoutTenths(); got != 25 {
		t.Errorf("readTimeoutTenths() = %d, want 25", got)
	}
}

func TestApplyOptionsStopsAtFirstError(t *testing.T) {
	_, err := applyOptions([]Option{
		WithReadTimeout(-time.Second),
		WithBaudRate(9600),
	})
	if err != ErrInvalidConfig {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
}
