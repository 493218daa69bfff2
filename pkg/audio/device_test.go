package audio

import (
	"errors"
	"strings"
	"testing"
)

var testDevices = []Device{
	{Index: 0, Name: "HDMI Output", MaxInputChannels: 0, MaxOutputChannels: 2, DefaultSampleRate: 44100},
	{Index: 1, Name: "USB Microphone", MaxInputChannels: 1, MaxOutputChannels: 0, DefaultSampleRate: 48000},
	{Index: 2, Name: "default", MaxInputChannels: 2, MaxOutputChannels: 2, DefaultSampleRate: 44100},
}

func TestSelectDevice_ExplicitIndex(t *testing.T) {
	t.Parallel()
	d, err := selectDevice(testDevices, 1, true)
	if err != nil {
		t.Fatalf("selectDevice: %v", err)
	}
	if d.Name != "USB Microphone" {
		t.Errorf("got %q, want USB Microphone", d.Name)
	}
}

func TestSelectDevice_ExplicitIndexWrongDirection(t *testing.T) {
	t.Parallel()
	_, err := selectDevice(testDevices, 0, true)
	if !errors.Is(err, ErrBadDevice) {
		t.Fatalf("got %v, want ErrBadDevice", err)
	}
	if !strings.Contains(err.Error(), "USB Microphone") {
		t.Error("error must include the device table")
	}
}

func TestSelectDevice_IndexOutOfRange(t *testing.T) {
	t.Parallel()
	if _, err := selectDevice(testDevices, 99, false); !errors.Is(err, ErrBadDevice) {
		t.Fatalf("got %v, want ErrBadDevice", err)
	}
}

func TestSelectDevice_PrefersNamedDefault(t *testing.T) {
	t.Parallel()
	d, err := selectDevice(testDevices, -1, false)
	if err != nil {
		t.Fatalf("selectDevice: %v", err)
	}
	if d.Index != 2 {
		t.Errorf("got index %d, want the device named default", d.Index)
	}
}

func TestSelectDevice_FallsBackToFirstUsable(t *testing.T) {
	t.Parallel()
	devices := testDevices[:2] // no "default" entry
	d, err := selectDevice(devices, -1, true)
	if err != nil {
		t.Fatalf("selectDevice: %v", err)
	}
	if d.Index != 1 {
		t.Errorf("got index %d, want 1", d.Index)
	}
}

func TestSelectDevice_NoUsableDevice(t *testing.T) {
	t.Parallel()
	devices := []Device{{Index: 0, Name: "HDMI Output", MaxOutputChannels: 2}}
	if _, err := selectDevice(devices, -1, true); !errors.Is(err, ErrNoDevice) {
		t.Fatalf("got %v, want ErrNoDevice", err)
	}
}
