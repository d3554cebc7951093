/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/allbin/go-indicator"
)

// action is one thing the light can be told to do
type action struct {
	color indicator.Color
	pulse bool
}

func (a action) String() string {
	if a.pulse {
		return "pulse"
	}
	return a.color.String()
}

func (a action) apply(ctrl *indicator.Controller) error {
	if a.pulse {
		return ctrl.Pulse()
	}
	return ctrl.SetColor(a.color)
}

func parseAction(s string) (action, error) {
	if strings.EqualFold(strings.TrimSpace(s), "pulse") {
		return action{pulse: true}, nil
	}
	c, err := indicator.ParseColor(s)
	if err != nil {
		return action{}, fmt.Errorf("unknown action %q (valid: green, red, orange, pulse)", s)
	}
	return action{color: c}, nil
}

// setCmd represents the set command
var setCmd = &cobra.Command{
	Use:   "set <green|red|orange|pulse>",
	Short: "Set the indicator once and exit",
	Long: `Connect to the indicator, send a single command and disconnect.

Orange and pulse require --mode legacy.

Examples:
  indicator set red
  indicator set green --port /dev/ttyACM0
  indicator set pulse --mode legacy`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"green", "red", "orange", "pulse"},
	Run: func(cmd *cobra.Command, args []string) {
		act, err := parseAction(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		ctrl, err := connectController()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error connecting: %v\n", err)
			os.Exit(1)
		}
		defer ctrl.Disconnect()

		if err := act.apply(ctrl); err != nil {
			fmt.Fprintf(os.Stderr, "Error sending %s: %v\n", act, err)
			ctrl.Disconnect()
			os.Exit(1)
		}
		fmt.Printf("Indicator on %s set to %s\n", ctrl.Config().Port, act)
	},
}

func init() {
	rootCmd.AddCommand(setCmd)
}
