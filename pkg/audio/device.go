package audio

import (
	"fmt"
	"strings"
)

// Device describes one entry in the host's audio device table.
type Device struct {
	Index             int
	Name              string
	MaxInputChannels  int
	MaxOutputChannels int
	DefaultSampleRate float64
}

func (d Device) usable(input bool) bool {
	if input {
		return d.MaxInputChannels >= Channels
	}
	return d.MaxOutputChannels >= Channels
}

// DeviceTable renders the device list for log output and error
// messages.
func DeviceTable(devices []Device) string {
	var b strings.Builder
	for _, d := range devices {
		fmt.Fprintf(&b, "%3d: %s (in=%d out=%d rate=%.0f)\n",
			d.Index, d.Name, d.MaxInputChannels, d.MaxOutputChannels, d.DefaultSampleRate)
	}
	return b.String()
}

// selectDevice resolves the device to use for one direction. A
// non-negative requested index must exist and carry the needed
// channels. With no request the device literally named "default" wins;
// failing that, the first device with the needed channels.
func selectDevice(devices []Device, requested int, input bool) (Device, error) {
	if requested >= 0 {
		for _, d := range devices {
			if d.Index == requested {
				if !d.usable(input) {
					return Device{}, fmt.Errorf("%w: index %d (%q) has no %s channels\n%s",
						ErrBadDevice, requested, d.Name, direction(input), DeviceTable(devices))
				}
				return d, nil
			}
		}
		return Device{}, fmt.Errorf("%w: index %d is out of range\n%s",
			ErrBadDevice, requested, DeviceTable(devices))
	}

	for _, d := range devices {
		if strings.ToLower(d.Name) == "default" && d.usable(input) {
			return d, nil
		}
	}
	for _, d := range devices {
		if d.usable(input) {
			return d, nil
		}
	}
	return Device{}, fmt.Errorf("%w for %s\n%s", ErrNoDevice, direction(input), DeviceTable(devices))
}

func direction(input bool) string {
	if input {
		return "input"
	}
	return "output"
}
