package indicator

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"go.bug.st/serial/enumerator"

	"github.com/allbin/go-indicator/internal/port"
)

// Overridable for tests
var (
	devDir        = "/dev"
	sysfsRoot     = "/sys"
	detailedPorts = enumerator.GetDetailedPortsList
)

// ErrNoPortFound is returned by DetectPort when no candidate exists
var ErrNoPortFound = errors.New("no serial port found")

// Boards the indicator firmware is known to run on, by USB vendor ID.
var boardVendors = map[string]string{
	"2341": "Arduino",
	"2a03": "Arduino",
	"1a86": "WCH (CH340)",
	"0403": "FTDI",
	"10c4": "Silicon Labs (CP210x)",
}

var (
	portPatterns = []*regexp.Regexp{
		regexp.MustCompile(`^ttyUSB\d+$`), // USB serial adapters
		regexp.MustCompile(`^ttyACM\d+$`), // USB CDC/ACM boards (Uno R3, Leonardo)
		regexp.MustCompile(`^ttyS\d+$`),
		regexp.MustCompile(`^ttyAMA\d+$`), // Raspberry Pi
		regexp.MustCompile(`^ttymxc\d+$`),
		regexp.MustCompile(`^ttyO\d+$`),
		regexp.MustCompile(`^ttySAC\d+$`),
		regexp.MustCompile(`^ttyTHS\d+$`),
		regexp.MustCompile(`^cu\.usb(modem|serial)\w*$`), // macOS
	}

	excludePatterns = []*regexp.Regexp{
		regexp.MustCompile(`^tty\d+$`), // virtual terminals
		regexp.MustCompile(`^console$`),
		regexp.MustCompile(`^ptmx$`),
		regexp.MustCompile(`^pty.*$`),
		regexp.MustCompile(`^pts/.*$`),
	}
)

func isSerialName(name string) bool {
	for _, p := range excludePatterns {
		if p.MatchString(name) {
			return false
		}
	}
	for _, p := range portPatterns {
		if p.MatchString(name) {
			return true
		}
	}
	return false
}

// ListPorts returns the serial devices on the system, sorted by path.
// Where /dev cannot be scanned the USB enumerator is used instead.
func ListPorts() ([]string, error) {
	entries, err := os.ReadDir(devDir)
	if err != nil {
		return listEnumeratedPorts()
	}

	var ports []string
	for _, entry := range entries {
		name := entry.Name()
		if !isSerialName(name) {
			continue
		}
		fullPath := filepath.Join(devDir, name)
		if isCharacterDevice(fullPath) {
			ports = append(ports, fullPath)
		}
	}

	sort.Strings(ports)
	return ports, nil
}

func listEnumeratedPorts() ([]string, error) {
	details, err := detailedPorts()
	if err != nil {
		return nil, err
	}
	ports := make([]string, 0, len(details))
	for _, d := range details {
		ports = append(ports, d.Name)
	}
	sort.Strings(ports)
	return ports, nil
}

func isCharacterDevice(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// PortInfo describes a serial port and, for USB devices, the board behind it
type PortInfo struct {
	Name         string
	Path         string
	Description  string
	IsUSB        bool
	VendorID     string
	ProductID    string
	SerialNumber string
	Manufacturer string
	Product      string
	BusNumber    string // USB bus, for ResetUSBDevice
	DeviceNumber string
}

// Board names the board family from the vendor ID, if known
func (p PortInfo) Board() string {
	return boardVendors[strings.ToLower(p.VendorID)]
}

// IsArduino reports whether the vendor ID is an Arduino one
func (p PortInfo) IsArduino() bool {
	return p.Board() == "Arduino"
}

// GetPortInfo returns what is known about a port
func GetPortInfo(portPath string) (*PortInfo, error) {
	if !isCharacterDevice(portPath) {
		return nil, port.ErrDeviceNotFound
	}

	name := filepath.Base(portPath)
	info := &PortInfo{
		Name:        name,
		Path:        portPath,
		Description: getPortDescription(name),
	}

	if strings.HasPrefix(name, "ttyUSB") || strings.HasPrefix(name, "ttyACM") {
		info.IsUSB = true
		enrichUSBInfo(info)
	}

	return info, nil
}

func getPortDescription(name string) string {
	switch {
	case strings.HasPrefix(name, "ttyUSB"):
		return "USB Serial Port"
	case strings.HasPrefix(name, "ttyACM"):
		return "USB CDC/ACM Device"
	case strings.HasPrefix(name, "ttyAMA"):
		return "ARM Serial Port"
	case strings.HasPrefix(name, "ttymxc"):
		return "i.MX Serial Port"
	case strings.HasPrefix(name, "ttySAC"):
		return "Samsung Serial Port"
	case strings.HasPrefix(name, "ttyTHS"):
		return "Tegra Serial Port"
	case strings.HasPrefix(name, "ttyO"):
		return "OMAP Serial Port"
	case strings.HasPrefix(name, "ttyS"):
		return "Standard Serial Port"
	default:
		return "Serial Port"
	}
}

// enrichUSBInfo fills USB metadata from the enumerator, then fills
// anything still missing, and the bus/device numbers, from sysfs.
func enrichUSBInfo(info *PortInfo) {
	if details, err := detailedPorts(); err == nil {
		for _, d := range details {
			if d.Name != info.Path || !d.IsUSB {
				continue
			}
			info.VendorID = strings.ToLower(d.VID)
			info.ProductID = strings.ToLower(d.PID)
			info.SerialNumber = d.SerialNumber
			info.Product = d.Product
			break
		}
	}

	usbDevicePath := findUSBDeviceDir(info.Name)
	if usbDevicePath == "" {
		return
	}

	fill := func(dst *string, file string) {
		if *dst == "" {
			*dst = readSysfsFile(filepath.Join(usbDevicePath, file))
		}
	}
	fill(&info.VendorID, "idVendor")
	fill(&info.ProductID, "idProduct")
	fill(&info.SerialNumber, "serial")
	fill(&info.Manufacturer, "manufacturer")
	fill(&info.Product, "product")
	fill(&info.BusNumber, "busnum")
	fill(&info.DeviceNumber, "devnum")
}

// findUSBDeviceDir walks up from the tty's sysfs node to the USB device
// directory, the first ancestor carrying busnum and devnum.
func findUSBDeviceDir(name string) string {
	link := filepath.Join(sysfsRoot, "class", "tty", name, "device")
	dir, err := filepath.EvalSymlinks(link)
	if err != nil {
		return ""
	}

	for range 4 {
		if readSysfsFile(filepath.Join(dir, "busnum")) != "" &&
			readSysfsFile(filepath.Join(dir, "devnum")) != "" {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

func readSysfsFile(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// PortFilter selects ports for listing
type PortFilter string

const (
	FilterAll     PortFilter = "all"
	FilterUSB     PortFilter = "usb"
	FilterArduino PortFilter = "arduino"
)

// Match reports whether info passes the filter
func (f PortFilter) Match(info PortInfo) bool {
	switch f {
	case FilterUSB:
		return info.IsUSB
	case FilterArduino:
		return info.IsArduino()
	default:
		return true
	}
}

// ListPortInfo lists ports with their metadata, keeping those that pass f
func ListPortInfo(f PortFilter) ([]PortInfo, error) {
	ports, err := ListPorts()
	if err != nil {
		return nil, err
	}

	infos := make([]PortInfo, 0, len(ports))
	for _, p := range ports {
		info, err := GetPortInfo(p)
		if err != nil {
			continue
		}
		if f.Match(*info) {
			infos = append(infos, *info)
		}
	}
	return infos, nil
}

// DetectPort picks the most likely indicator board: an Arduino by vendor
// ID, then any CDC/ACM device, then the first serial port.
func DetectPort() (string, error) {
	infos, err := ListPortInfo(FilterAll)
	if err != nil {
		return "", err
	}
	return choosePort(infos)
}

func choosePort(infos []PortInfo) (string, error) {
	if len(infos) == 0 {
		return "", ErrNoPortFound
	}
	for _, info := range infos {
		if info.IsArduino() {
			return info.Path, nil
		}
	}
	for _, info := range infos {
		if strings.HasPrefix(info.Name, "ttyACM") {
			return info.Path, nil
		}
	}
	for _, info := range infos {
		if info.IsUSB {
			return info.Path, nil
		}
	}
	return infos[0].Path, nil
}
