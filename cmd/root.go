/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/allbin/go-indicator"
	"github.com/allbin/go-indicator/internal/logging"
)

var (
	cfgFile   string
	configErr error
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "indicator",
	Short: "Drive a serial LED indicator light",
	Long: `Drive an Arduino-style LED indicator over a serial port.

The indicator shows green when nothing is detected and red when objects
are present. Legacy firmware also understands orange and a pulse effect.

Configuration is read from indicator.yaml in the current directory or
$HOME/.config/indicator, from INDICATOR_* environment variables and from
flags, in increasing order of precedence.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configErr != nil {
			return configErr
		}
		level := viper.GetString("log.level")
		if viper.GetBool("debug_logging") {
			level = "debug"
		}
		_, err := logging.Setup(os.Stderr, level, logging.Format(viper.GetString("log.format")))
		if err != nil {
			return err
		}
		if f := viper.ConfigFileUsed(); f != "" {
			log.Debug().Str("file", f).Msg("using config file")
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: ./indicator.yaml or $HOME/.config/indicator/indicator.yaml)")
	pf.StringP("port", "p", "", "serial device (default: auto-detect)")
	pf.IntP("baud", "b", 9600, "baud rate")
	pf.StringP("mode", "m", "two-state", "firmware mode: two-state, legacy")
	pf.Bool("debug", false, "log every command and reply")
	pf.String("log-level", "info", "log level: debug, info, warn, error")
	pf.String("log-format", string(logging.FormatConsole), "log format: console, json")

	bindFlags(viper.GetViper(), pf)
	setDefaults(viper.GetViper())
}

// bindFlags maps persistent flags onto the config keys they override
func bindFlags(v *viper.Viper, pf *pflag.FlagSet) {
	for key, flag := range map[string]string{
		"port":          "port",
		"baud_rate":     "baud",
		"mode":          "mode",
		"debug_logging": "debug",
		"log.level":     "log-level",
		"log.format":    "log-format",
	} {
		_ = v.BindPFlag(key, pf.Lookup(flag))
	}
}

// setDefaults seeds every config key so that environment variables and
// Unmarshal see the full key set.
func setDefaults(v *viper.Viper) {
	d := indicator.DefaultConfig()
	v.SetDefault("port", "")
	v.SetDefault("baud_rate", d.BaudRate)
	v.SetDefault("mode", d.Mode.String())
	v.SetDefault("io_timeout", d.IOTimeout)
	v.SetDefault("max_reconnect_attempts", d.MaxReconnectAttempts)
	v.SetDefault("max_retries", d.MaxRetries)
	v.SetDefault("watchdog_timeout", d.WatchdogTimeout)
	v.SetDefault("debug_logging", d.DebugLogging)
	v.SetDefault("settle_delay", d.SettleDelay)
	v.SetDefault("greeting_timeout", d.GreetingTimeout)
	v.SetDefault("reconnect_delay", d.ReconnectDelay)
	v.SetDefault("retry_backoff", d.RetryBackoff)
	v.SetDefault("command_settle", d.CommandSettle)
	v.SetDefault("poll_interval", d.PollInterval)
	v.SetDefault("error_backoff", d.ErrorBackoff)
	v.SetDefault("stop_timeout", d.StopTimeout)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", string(logging.FormatConsole))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	configErr = readConfig(viper.GetViper(), cfgFile)
}

func readConfig(v *viper.Viper, file string) error {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "indicator"))
		}
		v.SetConfigName("indicator")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("INDICATOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	return nil
}

// loadConfig decodes the merged configuration. The port is left empty when
// nothing names one.
func loadConfig(v *viper.Viper) (indicator.Config, error) {
	cfg := indicator.DefaultConfig()
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to decode config: %w", err)
	}
	mode, err := indicator.ParseMode(v.GetString("mode"))
	if err != nil {
		return cfg, err
	}
	cfg.Mode = mode
	return cfg, nil
}

// resolvePort fills in an auto-detected port when none is configured
func resolvePort(cfg *indicator.Config) error {
	if cfg.Port != "" {
		return nil
	}
	port, err := indicator.DetectPort()
	if err != nil {
		return err
	}
	log.Info().Str("port", port).Msg("auto-detected indicator port")
	cfg.Port = port
	return nil
}

// newController builds a controller from the merged configuration.
// It does not connect.
func newController(opts ...indicator.Option) (*indicator.Controller, error) {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return nil, err
	}
	if err := resolvePort(&cfg); err != nil {
		return nil, err
	}
	return indicator.New(append([]indicator.Option{indicator.WithConfig(cfg)}, opts...)...)
}

// connectController builds a controller and opens the link
func connectController(opts ...indicator.Option) (*indicator.Controller, error) {
	ctrl, err := newController(opts...)
	if err != nil {
		return nil, err
	}
	if err := ctrl.Connect(); err != nil {
		ctrl.Disconnect()
		return nil, err
	}
	return ctrl, nil
}
