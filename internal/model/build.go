package model

import (
	"fmt"
	"log/slog"

	"github.com/ekisa-team/some/internal/checkpoint"
	"github.com/ekisa-team/some/internal/config"
	"github.com/ekisa-team/some/internal/device"
	"github.com/ekisa-team/some/internal/registry"
)

// Build constructs the architecture named by the configuration's model_cls,
// puts it in inference mode on dev, and loads the checkpoint at path into it.
func Build(cfg *config.Config, path string, dev device.Device) (Module, error) {
	className := cfg.ModelClass()

	ctor, err := registry.Resolve[Constructor](className)
	if err != nil {
		return nil, fmt.Errorf("model: %w", err)
	}

	m, err := ctor(cfg)
	if err != nil {
		return nil, fmt.Errorf("model: construct %s: %w", className, err)
	}
	m.Eval()
	m.To(dev)

	params, err := checkpoint.Load(path)
	if err != nil {
		return nil, err
	}

	if err := LoadStateDict(m, params); err != nil {
		return nil, err
	}

	slog.Info("Loaded model weights",
		"path", path,
		"class", className,
		"device", dev.String(),
		"params", params.Numel(),
	)
	return m, nil
}
