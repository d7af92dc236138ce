// Package device selects the compute device a model is bound to.
package device

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ekisa-team/some/internal/envvar"
)

// Kind is the device family.
type Kind string

const (
	KindCPU  Kind = "cpu"
	KindCUDA Kind = "cuda"
)

// Device is a compute target. The zero value is not valid; use CPU or Parse.
type Device struct {
	Kind  Kind
	Index int
}

// CPU is the fallback device.
var CPU = Device{Kind: KindCPU}

// String renders the device the way Parse accepts it.
func (d Device) String() string {
	if d.Kind == KindCUDA && d.Index > 0 {
		return fmt.Sprintf("%s:%d", d.Kind, d.Index)
	}
	return string(d.Kind)
}

// IsAccelerator reports whether d is not the CPU.
func (d Device) IsAccelerator() bool {
	return d.Kind != KindCPU
}

// Parse parses "cpu", "cuda" or "cuda:N".
func Parse(s string) (Device, error) {
	name, idx, hasIdx := strings.Cut(strings.ToLower(strings.TrimSpace(s)), ":")
	switch Kind(name) {
	case KindCPU:
		if hasIdx {
			return Device{}, fmt.Errorf("device: cpu takes no index: %q", s)
		}
		return CPU, nil
	case KindCUDA:
		d := Device{Kind: KindCUDA}
		if hasIdx {
			n, err := strconv.Atoi(idx)
			if err != nil || n < 0 {
				return Device{}, fmt.Errorf("device: invalid index in %q", s)
			}
			d.Index = n
		}
		return d, nil
	default:
		return Device{}, fmt.Errorf("device: unknown device %q", s)
	}
}

// probePaths are checked by Probe for an accelerator driver.
var probePaths = []string{"/dev/nvidia0", "/dev/nvidiactl"}

// Probe reports the best device available at runtime.
func Probe() Device {
	if v := os.Getenv(envvar.SomeForceAccelerator); v != "" {
		if on, err := strconv.ParseBool(v); err == nil {
			if on {
				return Device{Kind: KindCUDA}
			}
			return CPU
		}
	}

	for _, p := range probePaths {
		if _, err := os.Stat(p); err == nil {
			return Device{Kind: KindCUDA}
		}
	}
	return CPU
}

// Resolve returns the explicitly requested device, or the probed one when
// explicit is empty.
func Resolve(explicit string) (Device, error) {
	if explicit == "" {
		return Probe(), nil
	}
	return Parse(explicit)
}
