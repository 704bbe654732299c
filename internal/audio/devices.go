// Package audio discovers microphones and records questions as staged WAV files.
package audio

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

// Device describes one Pulse input source.
type Device struct {
	ID          string
	Description string
	State       string
	Available   bool
	Muted       bool
	Default     bool
}

// Selection is the resolved capture source and an optional fallback warning.
type Selection struct {
	Device   Device
	Warning  string
	Fallback bool
}

func newPulseClient() (*pulse.Client, error) {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName("secondeye"),
		pulse.ClientApplicationIconName("audio-input-microphone"),
	)
	if err != nil {
		return nil, fmt.Errorf("connect pulse server: %w", err)
	}
	return client, nil
}

// ListDevices returns Pulse input sources with default/availability metadata.
func ListDevices(_ context.Context) ([]Device, error) {
	client, err := newPulseClient()
	if err != nil {
		return nil, err
	}
	defer client.Close()

	defaultSource, err := client.DefaultSource()
	if err != nil {
		return nil, fmt.Errorf("read default source: %w", err)
	}

	var infos pulseproto.GetSourceInfoListReply
	if err := client.RawRequest(&pulseproto.GetSourceInfoList{}, &infos); err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}

	devices := make([]Device, 0, len(infos))
	for _, info := range infos {
		if info == nil || isMonitorSource(info.SourceName) {
			continue
		}
		devices = append(devices, Device{
			ID:          info.SourceName,
			Description: info.Device,
			State:       sourceStateString(info.State),
			Available:   sourceAvailable(info),
			Muted:       info.Mute,
			Default:     info.SourceName == defaultSource.ID(),
		})
	}
	return devices, nil
}

// SelectDevice resolves audio.input/audio.fallback against live devices.
func SelectDevice(ctx context.Context, input string, fallback string) (Selection, error) {
	devices, err := ListDevices(ctx)
	if err != nil {
		return Selection{}, err
	}
	return selectFrom(devices, input, fallback)
}

// selectFrom picks the preferred input, falling back when it is muted or unplugged.
func selectFrom(devices []Device, input string, fallback string) (Selection, error) {
	if len(devices) == 0 {
		return Selection{}, errors.New("no microphone found")
	}

	input = normalizeTerm(input)
	fallback = normalizeTerm(fallback)

	defaultDevice := findDevice(devices, func(d Device) bool { return d.Default })

	primary := defaultDevice
	if input != "" {
		primary = findDevice(devices, func(d Device) bool { return deviceMatches(d, input) })
		if primary == nil {
			return Selection{}, fmt.Errorf("audio.input %q did not match any device", input)
		}
	}
	if primary == nil {
		return Selection{}, errors.New("default audio source is unavailable")
	}
	if usable(*primary) {
		return Selection{Device: *primary}, nil
	}

	reason := "unavailable"
	if primary.Muted {
		reason = "muted"
	}

	alternate := defaultDevice
	if fallback != "" {
		alternate = findDevice(devices, func(d Device) bool { return deviceMatches(d, fallback) })
		if alternate == nil {
			return Selection{}, fmt.Errorf("microphone %q is %s and fallback %q not found", primary.ID, reason, fallback)
		}
	}
	if alternate == nil {
		return Selection{}, fmt.Errorf("microphone %q is %s and no default source exists", primary.ID, reason)
	}
	if !alternate.Available {
		return Selection{}, fmt.Errorf("fallback microphone %q is not available", alternate.ID)
	}
	if alternate.Muted {
		return Selection{}, fmt.Errorf("fallback microphone %q is muted", alternate.ID)
	}

	return Selection{
		Device:   *alternate,
		Warning:  fmt.Sprintf("microphone %q is %s; using %q", primary.ID, reason, alternate.ID),
		Fallback: alternate.ID != primary.ID,
	}, nil
}

func normalizeTerm(term string) string {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "default" {
		return ""
	}
	return term
}

func findDevice(devices []Device, match func(Device) bool) *Device {
	for i := range devices {
		if match(devices[i]) {
			return &devices[i]
		}
	}
	return nil
}

func usable(d Device) bool {
	return d.Available && !d.Muted
}

// deviceMatches reports whether term is contained in the device id or description.
func deviceMatches(device Device, term string) bool {
	if term == "" {
		return false
	}
	return strings.Contains(strings.ToLower(device.ID), term) ||
		strings.Contains(strings.ToLower(device.Description), term)
}

// isMonitorSource filters the loopback sources Pulse creates for every sink.
func isMonitorSource(name string) bool {
	return strings.HasSuffix(name, ".monitor")
}

func sourceStateString(state uint32) string {
	switch state {
	case 0:
		return "running"
	case 1:
		return "idle"
	case 2:
		return "suspended"
	default:
		return fmt.Sprintf("unknown(%d)", state)
	}
}

func sourceAvailable(source *pulseproto.GetSourceInfoReply) bool {
	if source == nil {
		return false
	}
	for _, port := range source.Ports {
		if port.Name != source.ActivePortName {
			continue
		}
		// PulseAudio values: unknown=0, no=1, yes=2.
		return port.Available != 1
	}
	return true
}
