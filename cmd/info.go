/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/allbin/go-indicator"
)

// infoCmd represents the info command
var infoCmd = &cobra.Command{
	Use:   "info <port>",
	Short: "Display detailed information about a serial port",
	Long: `Display detailed information about a serial port including USB metadata.

Examples:
  indicator info /dev/ttyACM0
  indicator info /dev/ttyUSB0

For USB devices, this displays vendor/product IDs, the serial number, the
board family and the bus/device numbers used by 'indicator reset'.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		info, err := indicator.GetPortInfo(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error getting port info: %v\n", err)
			os.Exit(1)
		}
		printPortInfo(os.Stdout, info)
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func printPortInfo(w io.Writer, info *indicator.PortInfo) {
	fmt.Fprintf(w, "Port Information: %s\n\n", info.Path)
	fmt.Fprintf(w, "  Name:        %s\n", info.Name)
	fmt.Fprintf(w, "  Description: %s\n", info.Description)

	if !info.IsUSB {
		return
	}

	fmt.Fprintln(w, "\nUSB Device Information:")
	fields := []struct{ label, value string }{
		{"Board", info.Board()},
		{"Vendor ID", info.VendorID},
		{"Product ID", info.ProductID},
		{"Serial", info.SerialNumber},
		{"Bus", info.BusNumber},
		{"Device", info.DeviceNumber},
		{"Manufacturer", info.Manufacturer},
		{"Product", info.Product},
	}
	for _, f := range fields {
		if f.value != "" {
			fmt.Fprintf(w, "  %-13s %s\n", f.label+":", f.value)
		}
	}
}
