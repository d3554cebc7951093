/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/allbin/go-indicator"
	"github.com/allbin/go-indicator/internal/logging"
	"github.com/allbin/go-indicator/internal/tui/models"
)

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Interactive view of the indicator link",
	Long: `Open a terminal view of the indicator connection.

Shows the link state, the last colour sent, reconnect attempts, the age of
the last reply and a log of commands and device output.

Keys:
  g/r     green/red
  o/p     orange/pulse (legacy mode)
  c       reconnect
  x       clear the log
  h       toggle hex view of replies
  ?       help
  q       quit`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runWatchTUI(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatchTUI() error {
	// the TUI owns the terminal
	logging.Discard()

	var p *tea.Program
	ctrl, err := newController(
		indicator.WithReplyHandler(func(line string) {
			p.Send(models.ReplyMsg{Timestamp: time.Now(), Line: line})
		}),
	)
	if err != nil {
		return err
	}
	defer ctrl.Disconnect()

	m := models.NewWatchModel(ctrl, ctrl.Config().Mode)
	p = tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())

	_, err = p.Run()
	return err
}
