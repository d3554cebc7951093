/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/allbin/go-indicator"
)

// resetTarget picks the port to reset: the argument if given, otherwise
// the configured or auto-detected indicator port.
func resetTarget(v *viper.Viper, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	cfg, err := loadConfig(v)
	if err != nil {
		return "", err
	}
	if err := resolvePort(&cfg); err != nil {
		return "", err
	}
	return cfg.Port, nil
}

// resetCmd represents the reset command
var resetCmd = &cobra.Command{
	Use:   "reset [port] | --serial <sn>",
	Short: "Power-cycle a stuck indicator board over USB",
	Long: `Reset the indicator's USB device without unplugging it.

Use this when the light stops following commands: 'indicator run' logs that
it gave up reconnecting, 'indicator set' keeps failing, or 'indicator watch'
shows the link as failed. Opening the port normally reboots the board; a
board whose USB side has locked up needs this instead.

With no argument the configured port is reset, or the auto-detected one if
none is configured. The board comes back under a new device node if the old
one is still held open, so run 'indicator list' afterwards, or address it by
serial number.

Needs the usbreset utility (usbutils package) and root.

Examples:
  sudo indicator reset                       # configured or detected indicator
  sudo indicator reset /dev/ttyACM0
  sudo indicator reset --serial 95736323
  sudo indicator reset && indicator set green`,
	Args: func(cmd *cobra.Command, args []string) error {
		serialFlag, _ := cmd.Flags().GetString("serial")
		if serialFlag != "" && len(args) > 0 {
			return errors.New("give either a port or --serial, not both")
		}
		return cobra.MaximumNArgs(1)(cmd, args)
	},
	Run: func(cmd *cobra.Command, args []string) {
		if !indicator.IsUSBResetAvailable() {
			fmt.Fprintln(os.Stderr, "Error: usbreset utility not available")
			fmt.Fprintln(os.Stderr, "Install with: sudo apt-get install usbutils")
			os.Exit(1)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		serialFlag, _ := cmd.Flags().GetString("serial")

		var err error
		if serialFlag != "" {
			fmt.Printf("Resetting indicator with serial %s\n", serialFlag)
			err = indicator.ResetUSBDeviceBySerial(ctx, serialFlag)
		} else {
			var target string
			target, err = resetTarget(viper.GetViper(), args)
			if err == nil {
				fmt.Printf("Resetting indicator on %s\n", target)
				err = indicator.ResetUSBDevice(ctx, target)
			}
		}

		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			if errors.Is(err, indicator.ErrUSBInfoNotAvailable) {
				fmt.Fprintln(os.Stderr, "The port is not backed by a USB device; unplug the board instead")
			}
			os.Exit(1)
		}

		fmt.Println("Indicator board reset")
		fmt.Println("Run 'indicator list' if the port no longer answers")
	},
}

func init() {
	rootCmd.AddCommand(resetCmd)

	resetCmd.Flags().StringP("serial", "s", "", "Reset the board with this USB serial number")
}
