package indicator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "/dev/ttyACM0", cfg.Port)
	assert.Equal(t, 9600, cfg.BaudRate)
	assert.Equal(t, time.Second, cfg.IOTimeout)
	assert.Equal(t, 3, cfg.MaxReconnectAttempts)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 60*time.Second, cfg.WatchdogTimeout)
	assert.Equal(t, ModeTwoState, cfg.Mode)
	assert.Equal(t, 2*time.Second, cfg.SettleDelay)
	assert.Equal(t, 3*time.Second, cfg.GreetingTimeout)
	assert.False(t, cfg.DebugLogging)
	require.NoError(t, cfg.Validate())
}

func TestOptions(t *testing.T) {
	tests := []struct {
		name    string
		opt     Option
		wantErr bool
		check   func(t *testing.T, c Config)
	}{
		{
			name: "port",
			opt:  WithPort("/dev/ttyUSB1"),
			check: func(t *testing.T, c Config) {
				assert.Equal(t, "/dev/ttyUSB1", c.Port)
			},
		},
		{name: "empty port", opt: WithPort(""), wantErr: true},
		{
			name: "baud rate",
			opt:  WithBaudRate(115200),
			check: func(t *testing.T, c Config) {
				assert.Equal(t, 115200, c.BaudRate)
			},
		},
		{name: "bad baud rate", opt: WithBaudRate(-1), wantErr: true},
		{name: "zero io timeout", opt: WithIOTimeout(0), wantErr: true},
		{name: "negative reconnects", opt: WithMaxReconnectAttempts(-1), wantErr: true},
		{name: "zero retries", opt: WithMaxRetries(0), wantErr: true},
		{name: "zero watchdog", opt: WithWatchdogTimeout(0), wantErr: true},
		{name: "unknown mode", opt: WithMode(Mode(7)), wantErr: true},
		{name: "negative settle", opt: WithTiming(-1, 0, 0, 0), wantErr: true},
		{name: "zero poll interval", opt: WithPollInterval(0, 0), wantErr: true},
		{name: "nil transport", opt: WithTransport(nil), wantErr: true},
		{
			name: "timing",
			opt:  WithTiming(time.Millisecond, 2*time.Millisecond, 3*time.Millisecond, 4*time.Millisecond),
			check: func(t *testing.T, c Config) {
				assert.Equal(t, time.Millisecond, c.SettleDelay)
				assert.Equal(t, 2*time.Millisecond, c.ReconnectDelay)
				assert.Equal(t, 3*time.Millisecond, c.RetryBackoff)
				assert.Equal(t, 4*time.Millisecond, c.CommandSettle)
			},
		},
		{
			name: "legacy mode",
			opt:  WithMode(ModeLegacy),
			check: func(t *testing.T, c Config) {
				assert.Equal(t, ModeLegacy, c.Mode)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			err := tt.opt(&cfg)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxRetries = 0
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg = DefaultConfig()
	cfg.ErrorBackoff = -time.Second
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg = DefaultConfig()
	cfg.BaudRate = 12345
	cfg.Transport = &mockTransport{}
	assert.NoError(t, cfg.Validate(), "custom transports pick their own rates")
}
