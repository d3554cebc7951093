package indicator

import (
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/allbin/go-indicator/internal/port"
)

// Config holds the configuration for a Controller
type Config struct {
	Port                 string        `mapstructure:"port"`
	BaudRate             int           `mapstructure:"baud_rate"`
	IOTimeout            time.Duration `mapstructure:"io_timeout"`
	MaxReconnectAttempts int           `mapstructure:"max_reconnect_attempts"`
	MaxRetries           int           `mapstructure:"max_retries"`
	WatchdogTimeout      time.Duration `mapstructure:"watchdog_timeout"`
	DebugLogging         bool          `mapstructure:"debug_logging"`
	Mode                 Mode          `mapstructure:"-"`

	// Timing of the connection lifecycle
	SettleDelay     time.Duration `mapstructure:"settle_delay"`     // wait after open for the board reset
	GreetingTimeout time.Duration `mapstructure:"greeting_timeout"` // max drain of the boot banner
	ReconnectDelay  time.Duration `mapstructure:"reconnect_delay"`
	RetryBackoff    time.Duration `mapstructure:"retry_backoff"`
	CommandSettle   time.Duration `mapstructure:"command_settle"` // wait after a successful write
	PollInterval    time.Duration `mapstructure:"poll_interval"`  // watchdog poll period
	ErrorBackoff    time.Duration `mapstructure:"error_backoff"`  // watchdog pause after an I/O error
	StopTimeout     time.Duration `mapstructure:"stop_timeout"`   // bounded watchdog join and port close on Disconnect

	Clock     clockwork.Clock   `mapstructure:"-"`
	Logger    *zerolog.Logger   `mapstructure:"-"`
	Transport Transport         `mapstructure:"-"`
	OnReply   func(line string) `mapstructure:"-"`
}

// Option is a functional option for configuring a Controller
type Option func(*Config) error

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() Config {
	return Config{
		Port:                 "/dev/ttyACM0",
		BaudRate:             9600,
		IOTimeout:            time.Second,
		MaxReconnectAttempts: 3,
		MaxRetries:           3,
		WatchdogTimeout:      60 * time.Second,
		Mode:                 ModeTwoState,
		SettleDelay:          2 * time.Second,
		GreetingTimeout:      3 * time.Second,
		ReconnectDelay:       time.Second,
		RetryBackoff:         500 * time.Millisecond,
		CommandSettle:        100 * time.Millisecond,
		PollInterval:         100 * time.Millisecond,
		ErrorBackoff:         time.Second,
		StopTimeout:          time.Second,
	}
}

// Validate checks a Config assembled outside the functional options,
// such as one decoded from a config file.
func (c Config) Validate() error {
	switch {
	case c.Port == "" && c.Transport == nil:
		return fmt.Errorf("%w: port is required", ErrInvalidConfig)
	case c.MaxReconnectAttempts < 0:
		return fmt.Errorf("%w: max reconnect attempts must not be negative", ErrInvalidConfig)
	case c.MaxRetries < 1:
		return fmt.Errorf("%w: max retries must be at least 1", ErrInvalidConfig)
	case c.IOTimeout <= 0:
		return fmt.Errorf("%w: io timeout must be positive", ErrInvalidConfig)
	case c.WatchdogTimeout <= 0:
		return fmt.Errorf("%w: watchdog timeout must be positive", ErrInvalidConfig)
	case c.PollInterval <= 0:
		return fmt.Errorf("%w: poll interval must be positive", ErrInvalidConfig)
	case c.Mode != ModeTwoState && c.Mode != ModeLegacy:
		return fmt.Errorf("%w: unknown mode %d", ErrInvalidConfig, c.Mode)
	}
	for _, d := range []time.Duration{
		c.SettleDelay, c.GreetingTimeout, c.ReconnectDelay, c.RetryBackoff,
		c.CommandSettle, c.ErrorBackoff, c.StopTimeout,
	} {
		if d < 0 {
			return fmt.Errorf("%w: negative duration %v", ErrInvalidConfig, d)
		}
	}
	if c.Transport == nil {
		if err := port.ValidateBaudRate(c.BaudRate); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	}
	return nil
}

// WithConfig replaces the whole configuration, e.g. one loaded by viper.
// Options applied after it still take effect.
func WithConfig(cfg Config) Option {
	return func(c *Config) error {
		*c = cfg
		return nil
	}
}

// WithPort sets the serial device path
func WithPort(path string) Option {
	return func(c *Config) error {
		if path == "" {
			return ErrInvalidConfig
		}
		c.Port = path
		return nil
	}
}

// WithBaudRate sets the baud rate
func WithBaudRate(rate int) Option {
	return func(c *Config) error {
		if err := port.ValidateBaudRate(rate); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
		c.BaudRate = rate
		return nil
	}
}

// WithIOTimeout sets how long a single read may block
func WithIOTimeout(timeout time.Duration) Option {
	return func(c *Config) error {
		if timeout <= 0 {
			return ErrInvalidConfig
		}
		c.IOTimeout = timeout
		return nil
	}
}

// WithMaxReconnectAttempts caps automatic reconnection before Failed
func WithMaxReconnectAttempts(n int) Option {
	return func(c *Config) error {
		if n < 0 {
			return ErrInvalidConfig
		}
		c.MaxReconnectAttempts = n
		return nil
	}
}

// WithMaxRetries sets how many writes a single command may attempt
func WithMaxRetries(n int) Option {
	return func(c *Config) error {
		if n < 1 {
			return ErrInvalidConfig
		}
		c.MaxRetries = n
		return nil
	}
}

// WithWatchdogTimeout sets how long the device may stay silent
func WithWatchdogTimeout(timeout time.Duration) Option {
	return func(c *Config) error {
		if timeout <= 0 {
			return ErrInvalidConfig
		}
		c.WatchdogTimeout = timeout
		return nil
	}
}

// WithDebugLogging logs every command and device reply
func WithDebugLogging(enabled bool) Option {
	return func(c *Config) error {
		c.DebugLogging = enabled
		return nil
	}
}

// WithMode selects two-state or legacy firmware commands
func WithMode(mode Mode) Option {
	return func(c *Config) error {
		if mode != ModeTwoState && mode != ModeLegacy {
			return ErrInvalidConfig
		}
		c.Mode = mode
		return nil
	}
}

// WithTiming overrides the lifecycle delays. Zero disables a wait.
func WithTiming(settle, reconnect, retryBackoff, commandSettle time.Duration) Option {
	return func(c *Config) error {
		if settle < 0 || reconnect < 0 || retryBackoff < 0 || commandSettle < 0 {
			return ErrInvalidConfig
		}
		c.SettleDelay = settle
		c.ReconnectDelay = reconnect
		c.RetryBackoff = retryBackoff
		c.CommandSettle = commandSettle
		return nil
	}
}

// WithGreetingTimeout bounds the boot banner drain after connect
func WithGreetingTimeout(timeout time.Duration) Option {
	return func(c *Config) error {
		if timeout < 0 {
			return ErrInvalidConfig
		}
		c.GreetingTimeout = timeout
		return nil
	}
}

// WithPollInterval sets the watchdog poll period and its error backoff
func WithPollInterval(interval, errorBackoff time.Duration) Option {
	return func(c *Config) error {
		if interval <= 0 || errorBackoff < 0 {
			return ErrInvalidConfig
		}
		c.PollInterval = interval
		c.ErrorBackoff = errorBackoff
		return nil
	}
}

// WithStopTimeout bounds how long Disconnect waits for the watchdog and
// for the port to close. Zero waits indefinitely.
func WithStopTimeout(timeout time.Duration) Option {
	return func(c *Config) error {
		if timeout < 0 {
			return ErrInvalidConfig
		}
		c.StopTimeout = timeout
		return nil
	}
}

// WithClock injects the clock used for every wait and timestamp
func WithClock(clock clockwork.Clock) Option {
	return func(c *Config) error {
		c.Clock = clock
		return nil
	}
}

// WithLogger sets the logger; the global zerolog logger is used otherwise
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Config) error {
		c.Logger = &logger
		return nil
	}
}

// WithTransport replaces the serial transport
func WithTransport(t Transport) Option {
	return func(c *Config) error {
		if t == nil {
			return ErrInvalidConfig
		}
		c.Transport = t
		return nil
	}
}

// WithReplyHandler receives every non-empty line the device sends.
// It runs on the watchdog goroutine and must not block.
func WithReplyHandler(fn func(line string)) Option {
	return func(c *Config) error {
		c.OnReply = fn
		return nil
	}
}
