/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/evertras/bubble-table/table"
	"github.com/spf13/cobra"

	"github.com/allbin/go-indicator"
	"github.com/allbin/go-indicator/internal/tui/colors"
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available serial ports",
	Long: `List serial ports that could host the indicator board.

USB ports are annotated with vendor and product IDs, the serial number and
the board family when the vendor is known (Arduino, CH340, FTDI, CP210x).

Examples:
  indicator list
  indicator list --filter arduino
  indicator list --table`,
	Run: func(cmd *cobra.Command, args []string) {
		filterType, _ := cmd.Flags().GetString("filter")
		tableFormat, _ := cmd.Flags().GetBool("table")

		filter, err := parseFilter(filterType)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		infos, err := indicator.ListPortInfo(filter)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error listing ports: %v\n", err)
			os.Exit(1)
		}

		if len(infos) == 0 {
			if filter != indicator.FilterAll {
				fmt.Printf("No serial ports found matching filter: %s\n", filter)
			} else {
				fmt.Println("No serial ports found")
			}
			return
		}

		if tableFormat {
			renderTable(os.Stdout, infos)
		} else {
			renderSimple(os.Stdout, infos)
		}
	},
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringP("filter", "f", "all", "Filter by port type: usb, arduino, all")
	listCmd.Flags().BoolP("table", "t", false, "Display output in a styled table format")
}

func parseFilter(s string) (indicator.PortFilter, error) {
	switch f := indicator.PortFilter(strings.ToLower(strings.TrimSpace(s))); f {
	case "", indicator.FilterAll:
		return indicator.FilterAll, nil
	case indicator.FilterUSB, indicator.FilterArduino:
		return f, nil
	default:
		return "", fmt.Errorf("unknown filter %q (valid: usb, arduino, all)", s)
	}
}

const (
	columnKeyPort    = "port"
	columnKeyType    = "type"
	columnKeyBoard   = "board"
	columnKeyID      = "id"
	columnKeySerial  = "serial"
	columnKeyProduct = "product"
)

func portTable(infos []indicator.PortInfo) table.Model {
	columns := []table.Column{
		table.NewColumn(columnKeyPort, "Port", 16),
		table.NewColumn(columnKeyType, "Type", 20),
		table.NewColumn(columnKeyBoard, "Board", 9),
		table.NewColumn(columnKeyID, "VID:PID", 11),
		table.NewColumn(columnKeySerial, "Serial", 22),
		table.NewColumn(columnKeyProduct, "Product", 28),
	}

	rows := make([]table.Row, 0, len(infos))
	for _, info := range infos {
		id := ""
		if info.VendorID != "" {
			id = info.VendorID + ":" + info.ProductID
		}
		row := table.NewRow(table.RowData{
			columnKeyPort:    info.Path,
			columnKeyType:    info.Description,
			columnKeyBoard:   info.Board(),
			columnKeyID:      id,
			columnKeySerial:  info.SerialNumber,
			columnKeyProduct: strings.TrimSpace(info.Manufacturer + " " + info.Product),
		})
		if info.IsArduino() {
			row = row.WithStyle(lipgloss.NewStyle().Foreground(colors.Green))
		}
		rows = append(rows, row)
	}

	return table.New(columns).
		WithRows(rows).
		HeaderStyle(lipgloss.NewStyle().Bold(true).Foreground(colors.Mauve)).
		WithBaseStyle(lipgloss.NewStyle().
			BorderForeground(colors.Surface2).
			Foreground(colors.Text).
			Align(lipgloss.Left)).
		BorderRounded()
}

// renderTable renders the port list as a static table
func renderTable(w io.Writer, infos []indicator.PortInfo) {
	fmt.Fprintf(w, "Found %d serial port(s):\n\n", len(infos))
	fmt.Fprintln(w, portTable(infos).View())
}

// renderSimple renders one port per line, marking known boards
func renderSimple(w io.Writer, infos []indicator.PortInfo) {
	for _, info := range infos {
		if board := info.Board(); board != "" {
			fmt.Fprintf(w, "%s\t%s\n", info.Path, board)
			continue
		}
		fmt.Fprintln(w, info.Path)
	}
}
