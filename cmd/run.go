/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/allbin/go-indicator"
)

// parseDetectionLine reads one frame report: "<count>" or
// "<detected> <count>". A bare count implies detected when non-zero.
func parseDetectionLine(line string) (indicator.DetectionSignal, error) {
	fields := strings.Fields(line)
	switch len(fields) {
	case 1:
		n, err := strconv.ParseUint(fields[0], 10, 32)
		if err != nil {
			return indicator.DetectionSignal{}, fmt.Errorf("invalid object count %q", fields[0])
		}
		return indicator.DetectionSignal{Detected: n > 0, ObjectCount: uint(n)}, nil
	case 2:
		detected, err := strconv.ParseBool(fields[0])
		if err != nil {
			return indicator.DetectionSignal{}, fmt.Errorf("invalid detected flag %q", fields[0])
		}
		n, err := strconv.ParseUint(fields[1], 10, 32)
		if err != nil {
			return indicator.DetectionSignal{}, fmt.Errorf("invalid object count %q", fields[1])
		}
		return indicator.DetectionSignal{Detected: detected || n > 0, ObjectCount: uint(n)}, nil
	default:
		return indicator.DetectionSignal{}, fmt.Errorf("expected \"<count>\" or \"<detected> <count>\", got %q", line)
	}
}

// reportFrames feeds every frame read from r to ind until r ends or ctx is
// cancelled. Malformed lines and delivery failures are logged and skipped.
func reportFrames(ctx context.Context, r io.Reader, ind indicator.Indicator) (int, error) {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	frames := 0
	for {
		select {
		case <-ctx.Done():
			return frames, nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return frames, err
				default:
					return frames, nil
				}
			}
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			sig, err := parseDetectionLine(line)
			if err != nil {
				log.Warn().Err(err).Msg("skipping frame")
				continue
			}
			frames++
			if err := ind.Report(sig); err != nil {
				log.Warn().Err(err).
					Bool("detected", sig.Detected).
					Uint("objects", sig.ObjectCount).
					Msg("indicator update failed")
			}
		}
	}
}

// openIndicator connects to the device, falling back to a headless
// indicator unless the device is required.
func openIndicator(requireDevice bool) (indicator.Indicator, error) {
	ctrl, err := connectController()
	if err == nil {
		// start from the idle colour
		if err := ctrl.Report(indicator.DetectionSignal{}); err != nil {
			log.Warn().Err(err).Msg("failed to set initial colour")
		}
		return ctrl, nil
	}
	if requireDevice {
		return nil, err
	}
	log.Warn().Err(err).Msg("indicator unavailable, continuing without it")
	return indicator.Headless{}, nil
}

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Drive the indicator from detection results on stdin",
	Long: `Read one detection result per line from stdin and show it on the light.

Each line is either "<count>" or "<detected> <count>", where detected is a
boolean that is true when the detector saw anything at all. Any object turns
the light red, otherwise it is green. In legacy mode a detection with no
counted objects shows orange. Blank lines and lines starting with # are
ignored.

If the device cannot be reached the command keeps consuming input without
a light, unless --require-device is set.

Examples:
  detector | indicator run
  detector | indicator run --mode legacy --port /dev/ttyACM0`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		requireDevice, _ := cmd.Flags().GetBool("require-device")

		ind, err := openIndicator(requireDevice)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error connecting: %v\n", err)
			os.Exit(1)
		}
		defer ind.Disconnect()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		frames, err := reportFrames(ctx, os.Stdin, ind)
		log.Info().Int("frames", frames).Msg("input finished")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
			ind.Disconnect()
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Bool("require-device", false, "Exit if the indicator cannot be reached")
}
