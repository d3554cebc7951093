/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/allbin/go-indicator"
)

// pulseLead is the pause between a colour and the pulse drawn over it
const pulseLead = 500 * time.Millisecond

// testStep is one command of a test sequence followed by a pause
type testStep struct {
	action
	wait time.Duration
}

// testSequence builds the named light test
func testSequence(name string, cycles int, delay time.Duration) ([]testStep, error) {
	green := action{color: indicator.Green}
	orange := action{color: indicator.Orange}
	red := action{color: indicator.Red}
	pulse := action{pulse: true}

	var steps []testStep
	switch name {
	case "basic":
		if cycles < 1 {
			return nil, fmt.Errorf("cycles must be at least 1, got %d", cycles)
		}
		for range cycles {
			steps = append(steps,
				testStep{green, delay},
				testStep{orange, delay},
				testStep{red, delay},
			)
		}
		steps = append(steps, testStep{green, 0})
	case "advanced":
		steps = []testStep{{green, delay}, {orange, delay}, {red, delay}, {green, delay}}
	case "pulse":
		for _, c := range []action{green, orange, red} {
			steps = append(steps, testStep{c, pulseLead}, testStep{pulse, delay})
		}
		steps = append(steps, testStep{green, 0})
	default:
		return nil, fmt.Errorf("unknown test mode %q (valid: basic, advanced, pulse)", name)
	}
	return steps, nil
}

// runSequence drives the light through steps. Commands the firmware mode
// cannot express are reported and skipped.
func runSequence(ctx context.Context, w io.Writer, apply func(action) error, steps []testStep) error {
	for i, step := range steps {
		fmt.Fprintf(w, "[%d/%d] %s\n", i+1, len(steps), step.action)
		if err := apply(step.action); err != nil {
			if !errors.Is(err, indicator.ErrUnsupportedCommand) {
				return fmt.Errorf("%s: %w", step.action, err)
			}
			fmt.Fprintf(w, "  skipped: %v\n", err)
			continue
		}
		if step.wait <= 0 {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(step.wait):
		}
	}
	return nil
}

// testCmd represents the test command
var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Cycle the indicator through its colours",
	Long: `Connect to the indicator and run a light test.

Modes:
  basic     green, orange, red repeated --cycles times, then green
  advanced  green, orange, red, green once
  pulse     each colour followed by the pulse effect, then green

Orange and pulse steps are skipped unless --mode legacy is set. The port
is auto-detected when --port is not given.

Examples:
  indicator test
  indicator test --test-mode pulse --mode legacy
  indicator test --cycles 5 --delay 500ms`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		name, _ := cmd.Flags().GetString("test-mode")
		cycles, _ := cmd.Flags().GetInt("cycles")
		delay, _ := cmd.Flags().GetDuration("delay")

		steps, err := testSequence(name, cycles, delay)
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

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Printf("Running %s test on %s (%s firmware)\n", name, ctrl.Config().Port, ctrl.Config().Mode)
		err = runSequence(ctx, os.Stdout, func(a action) error { return a.apply(ctrl) }, steps)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Test failed: %v\n", err)
			ctrl.Disconnect()
			os.Exit(1)
		}
		fmt.Println("Indicator test passed")
	},
}

func init() {
	rootCmd.AddCommand(testCmd)

	testCmd.Flags().String("test-mode", "basic", "Test sequence: basic, advanced, pulse")
	testCmd.Flags().Int("cycles", 3, "Colour cycles for the basic test")
	testCmd.Flags().Duration("delay", time.Second, "Pause between colours")
}
