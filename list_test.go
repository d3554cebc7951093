package indicator

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial/enumerator"

	"github.com/allbin/go-indicator/internal/port"
)

func stubEnumerator(t *testing.T, details []*enumerator.PortDetails, err error) {
	t.Helper()
	orig := detailedPorts
	detailedPorts = func() ([]*enumerator.PortDetails, error) { return details, err }
	t.Cleanup(func() { detailedPorts = orig })
}

func TestListPorts(t *testing.T) {
	stubEnumerator(t, nil, nil)

	ports, err := ListPorts()
	require.NoError(t, err)

	for _, p := range ports {
		assert.True(t, strings.HasPrefix(p, "/dev/"), "port path %s", p)
		assert.True(t, isCharacterDevice(p), "not a character device: %s", p)
	}
	for i := 1; i < len(ports); i++ {
		assert.LessOrEqual(t, ports[i-1], ports[i], "ports are not sorted")
	}
}

func TestListPortsFallsBackToEnumerator(t *testing.T) {
	orig := devDir
	devDir = filepath.Join(t.TempDir(), "missing")
	t.Cleanup(func() { devDir = orig })

	stubEnumerator(t, []*enumerator.PortDetails{
		{Name: "COM4"},
		{Name: "COM3"},
	}, nil)

	ports, err := ListPorts()
	require.NoError(t, err)
	assert.Equal(t, []string{"COM3", "COM4"}, ports)
}

func TestIsCharacterDevice(t *testing.T) {
	tests := []struct {
		path     string
		expected bool
	}{
		{"/dev/null", true},
		{"/dev/zero", true},
		{"/tmp", false},
		{"/nonexistent", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, isCharacterDevice(tt.path), tt.path)
	}
}

func TestIsSerialName(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"ttyUSB0", true},
		{"ttyUSB1", true},
		{"ttyACM0", true},
		{"ttyS0", true},
		{"ttyAMA0", true},
		{"cu.usbmodem14101", true},
		{"tty1", false},
		{"tty2", false},
		{"console", false},
		{"ptmx", false},
		{"ptyp0", false},
		{"random", false},
		{"urandom", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isSerialName(tt.name))
		})
	}
}

func TestGetPortDescription(t *testing.T) {
	tests := []struct {
		name     string
		expected string
	}{
		{"ttyUSB0", "USB Serial Port"},
		{"ttyACM0", "USB CDC/ACM Device"},
		{"ttyS0", "Standard Serial Port"},
		{"ttyAMA0", "ARM Serial Port"},
		{"ttymxc0", "i.MX Serial Port"},
		{"ttyO0", "OMAP Serial Port"},
		{"ttySAC0", "Samsung Serial Port"},
		{"ttyTHS0", "Tegra Serial Port"},
		{"unknown", "Serial Port"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, getPortDescription(tt.name), tt.name)
	}
}

func TestGetPortInfo(t *testing.T) {
	info, err := GetPortInfo("/dev/null")
	require.NoError(t, err)
	assert.Equal(t, "null", info.Name)
	assert.Equal(t, "/dev/null", info.Path)
	assert.NotEmpty(t, info.Description)
	assert.False(t, info.IsUSB)

	_, err = GetPortInfo("/dev/nonexistent")
	assert.ErrorIs(t, err, port.ErrDeviceNotFound)
}

func TestReadSysfsFile(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name     string
		content  *string
		expected string
	}{
		{"normal file", ptr("1234\n"), "1234"},
		{"file with spaces", ptr("  test value  \n"), "test value"},
		{"nonexistent file", nil, ""},
		{"empty file", ptr(""), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name)
			if tt.content != nil {
				require.NoError(t, os.WriteFile(path, []byte(*tt.content), 0o644))
			}
			assert.Equal(t, tt.expected, readSysfsFile(path))
		})
	}
}

func ptr(s string) *string { return &s }

// fakeSysfs builds class/tty/<name>/device pointing into a USB device
// directory holding the given attribute files.
func fakeSysfs(t *testing.T, name string, attrs map[string]string) {
	t.Helper()

	root := t.TempDir()
	devicePath := filepath.Join(root, "devices", "usb1", "1-1.2")
	ttyPath := filepath.Join(devicePath, "1-1.2:1.0", "tty", name)
	classPath := filepath.Join(root, "class", "tty", name)

	require.NoError(t, os.MkdirAll(ttyPath, 0o755))
	require.NoError(t, os.MkdirAll(classPath, 0o755))
	for file, content := range attrs {
		require.NoError(t, os.WriteFile(filepath.Join(devicePath, file), []byte(content+"\n"), 0o644))
	}
	require.NoError(t, os.Symlink(filepath.Dir(filepath.Dir(ttyPath)), filepath.Join(classPath, "device")))

	orig := sysfsRoot
	sysfsRoot = root
	t.Cleanup(func() { sysfsRoot = orig })
}

func TestEnrichUSBInfoFromSysfs(t *testing.T) {
	stubEnumerator(t, nil, errors.New("enumeration unsupported"))
	fakeSysfs(t, "ttyACM0", map[string]string{
		"idVendor":     "2341",
		"idProduct":    "0043",
		"serial":       "85735313932351F0A1B2",
		"manufacturer": "Arduino (www.arduino.cc)",
		"product":      "Arduino Uno",
		"busnum":       "1",
		"devnum":       "7",
	})

	info := &PortInfo{Name: "ttyACM0", Path: "/dev/ttyACM0", IsUSB: true}
	enrichUSBInfo(info)

	assert.Equal(t, "2341", info.VendorID)
	assert.Equal(t, "0043", info.ProductID)
	assert.Equal(t, "85735313932351F0A1B2", info.SerialNumber)
	assert.Equal(t, "Arduino (www.arduino.cc)", info.Manufacturer)
	assert.Equal(t, "Arduino Uno", info.Product)
	assert.Equal(t, "1", info.BusNumber)
	assert.Equal(t, "7", info.DeviceNumber)
	assert.True(t, info.IsArduino())
}

func TestEnrichUSBInfoPrefersEnumerator(t *testing.T) {
	stubEnumerator(t, []*enumerator.PortDetails{
		{Name: "/dev/ttyUSB0", IsUSB: true, VID: "1A86", PID: "7523", SerialNumber: "", Product: "USB Serial"},
	}, nil)
	fakeSysfs(t, "ttyUSB0", map[string]string{
		"idVendor": "ffff",
		"serial":   "CH340-01",
		"busnum":   "3",
		"devnum":   "12",
	})

	info := &PortInfo{Name: "ttyUSB0", Path: "/dev/ttyUSB0", IsUSB: true}
	enrichUSBInfo(info)

	assert.Equal(t, "1a86", info.VendorID)
	assert.Equal(t, "7523", info.ProductID)
	assert.Equal(t, "CH340-01", info.SerialNumber, "missing fields come from sysfs")
	assert.Equal(t, "USB Serial", info.Product)
	assert.Equal(t, "3", info.BusNumber)
	assert.Equal(t, "WCH (CH340)", info.Board())
}

func TestEnrichUSBInfoGracefulFailure(t *testing.T) {
	stubEnumerator(t, nil, nil)
	orig := sysfsRoot
	sysfsRoot = t.TempDir()
	t.Cleanup(func() { sysfsRoot = orig })

	info := &PortInfo{Name: "ttyUSB999", Path: "/dev/ttyUSB999"}
	enrichUSBInfo(info)

	assert.Empty(t, info.VendorID)
	assert.Empty(t, info.ProductID)
	assert.Empty(t, info.SerialNumber)
	assert.Empty(t, info.BusNumber)
}

func TestPortFilter(t *testing.T) {
	uno := PortInfo{Name: "ttyACM0", IsUSB: true, VendorID: "2341"}
	ftdi := PortInfo{Name: "ttyUSB0", IsUSB: true, VendorID: "0403"}
	uart := PortInfo{Name: "ttyS0"}

	assert.True(t, FilterAll.Match(uart))
	assert.True(t, FilterUSB.Match(ftdi))
	assert.False(t, FilterUSB.Match(uart))
	assert.True(t, FilterArduino.Match(uno))
	assert.False(t, FilterArduino.Match(ftdi))
}

func TestChoosePort(t *testing.T) {
	tests := []struct {
		name    string
		infos   []PortInfo
		want    string
		wantErr error
	}{
		{name: "none", wantErr: ErrNoPortFound},
		{
			name: "arduino wins",
			infos: []PortInfo{
				{Name: "ttyACM0", Path: "/dev/ttyACM0", IsUSB: true, VendorID: "0483"},
				{Name: "ttyUSB0", Path: "/dev/ttyUSB0", IsUSB: true, VendorID: "2341"},
			},
			want: "/dev/ttyUSB0",
		},
		{
			name: "acm before other usb",
			infos: []PortInfo{
				{Name: "ttyS0", Path: "/dev/ttyS0"},
				{Name: "ttyUSB0", Path: "/dev/ttyUSB0", IsUSB: true},
				{Name: "ttyACM1", Path: "/dev/ttyACM1", IsUSB: true},
			},
			want: "/dev/ttyACM1",
		},
		{
			name:  "first port otherwise",
			infos: []PortInfo{{Name: "ttyS0", Path: "/dev/ttyS0"}, {Name: "ttyS1", Path: "/dev/ttyS1"}},
			want:  "/dev/ttyS0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := choosePort(tt.infos)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// TestListPortsIntegration needs real hardware to say anything useful
func TestListPortsIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	infos, err := ListPortInfo(FilterAll)
	require.NoError(t, err)

	t.Logf("Found %d serial ports:", len(infos))
	for i, info := range infos {
		t.Logf("  %d. %s (%s) %s:%s %s", i+1, info.Path, info.Description, info.VendorID, info.ProductID, info.Board())
	}
}

func BenchmarkListPorts(b *testing.B) {
	for b.Loop() {
		if _, err := ListPorts(); err != nil {
			b.Errorf("ListPorts failed: %v", err)
		}
	}
}
