package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResetTarget(t *testing.T) {
	tests := []struct {
		name       string
		configured string
		args       []string
		want       string
	}{
		{"argument wins", "/dev/ttyACM3", []string{"/dev/ttyUSB0"}, "/dev/ttyUSB0"},
		{"configured port", "/dev/ttyACM3", nil, "/dev/ttyACM3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := isolate(t)
			v.Set("port", tt.configured)

			got, err := resetTarget(v, tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResetTargetBadConfig(t *testing.T) {
	v := isolate(t)
	v.Set("port", "/dev/ttyACM0")
	v.Set("mode", "blinking")

	_, err := resetTarget(v, nil)
	assert.Error(t, err)
}

func TestResetArgs(t *testing.T) {
	tests := []struct {
		name    string
		serial  string
		args    []string
		wantErr bool
	}{
		{"no target", "", nil, false},
		{"port", "", []string{"/dev/ttyACM0"}, false},
		{"serial", "95736323", nil, false},
		{"port and serial", "95736323", []string{"/dev/ttyACM0"}, true},
		{"two ports", "", []string{"/dev/ttyACM0", "/dev/ttyACM1"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, resetCmd.Flags().Set("serial", tt.serial))
			t.Cleanup(func() { _ = resetCmd.Flags().Set("serial", "") })

			err := resetCmd.Args(resetCmd, tt.args)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
