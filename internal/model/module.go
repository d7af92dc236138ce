// Package model builds ready-to-run model instances from a configuration and
// a checkpoint.
package model

import (
	"github.com/ekisa-team/some/internal/config"
	"github.com/ekisa-team/some/internal/device"
	"github.com/ekisa-team/some/internal/registry"
	"github.com/ekisa-team/some/internal/tensor"
)

// Module is a neural network architecture.
type Module interface {
	// Parameters returns the module's parameter storage by name. The tensors
	// are the module's own; LoadStateDict writes into them.
	Parameters() tensor.Map

	// Forward runs the network on named inputs and returns named outputs.
	Forward(inputs tensor.Map) (tensor.Map, error)

	// Eval switches the module to inference mode.
	Eval()

	// Training reports whether the module is in training mode.
	Training() bool

	// To binds the module to a device.
	To(d device.Device)

	// Device returns the device the module is bound to.
	Device() device.Device
}

// Constructor builds an architecture from the full configuration. Modules
// register a Constructor with the registry under their class name.
type Constructor func(cfg *config.Config) (Module, error)

// Base implements the mode and placement part of Module. Architectures embed
// it. New modules start in training mode on the CPU.
type Base struct {
	eval   bool
	device device.Device
}

// Eval implements Module.
func (b *Base) Eval() {
	b.eval = true
}

// Training implements Module.
func (b *Base) Training() bool {
	return !b.eval
}

// To implements Module.
func (b *Base) To(d device.Device) {
	b.device = d
}

// Device implements Module.
func (b *Base) Device() device.Device {
	if b.device.Kind == "" {
		return device.CPU
	}
	return b.device
}

// Register makes an architecture resolvable by class name.
func Register(className string, ctor Constructor) {
	registry.Register(className, ctor)
}
