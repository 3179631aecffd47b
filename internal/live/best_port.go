package live

import (
	"fmt"
	"regexp"
	"slices"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

var (
	badPortsRE = regexp.MustCompile(`\bMidi Through\b|\bPipeWire-System\b|\bPipeWire-RT-Event\b`)
	usbPortsRE = regexp.MustCompile(`\bUSB|\bUM-`)
	// Synthesizers have input ports too, but nobody plays on them.
	softSynthPortsRE = regexp.MustCompile(`\bFLUID\b|\bSynth\b|\bTiMidity\b`)
)

// pickPort returns the index of the best input port by name.
// A pattern restricts the candidates, then an exact preferred name, then all usable ports.
func pickPort(names []string, pattern, preferred string) (int, error) {
	var good []int
	if pattern != "" {
		portRE, err := regexp.Compile(pattern)
		if err != nil {
			return -1, fmt.Errorf("failed to compile port RE %v: %w", pattern, err)
		}
		for i, name := range names {
			if portRE.MatchString(name) {
				good = append(good, i)
			}
		}
	}
	if len(good) == 0 && preferred != "" {
		for i, name := range names {
			if name == preferred {
				good = append(good, i)
			}
		}
	}
	if len(good) == 0 {
		for i, name := range names {
			if !badPortsRE.MatchString(name) && !softSynthPortsRE.MatchString(name) {
				good = append(good, i)
			}
		}
	}
	if len(good) == 0 {
		return -1, fmt.Errorf("no selected input port found")
	}
	return slices.MinFunc(good, func(a, b int) int {
		aUSB := usbPortsRE.MatchString(names[a])
		bUSB := usbPortsRE.MatchString(names[b])
		if aUSB != bUSB {
			// Keyboards are usually on USB.
			if aUSB {
				return -1
			}
			return 1
		}
		return a - b
	}), nil
}

// FindBestInPort picks the input port to record from.
func FindBestInPort(pattern, preferred string) (drivers.In, error) {
	ports := midi.GetInPorts()
	names := make([]string, len(ports))
	for i, p := range ports {
		names[i] = p.String()
	}
	i, err := pickPort(names, pattern, preferred)
	if err != nil {
		return nil, err
	}
	return ports[i], nil
}
