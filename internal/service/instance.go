package service

import (
	"time"

	"github.com/ekisa-team/some/internal/pipeline"
)

// Status is the loading status of the served pipeline.
type Status string

const (
	// StatusUnloaded indicates that nothing has been loaded yet.
	StatusUnloaded Status = "unloaded"

	// StatusLoading indicates that a pipeline is being built.
	StatusLoading Status = "loading"

	// StatusLoaded indicates that a pipeline is serving requests.
	StatusLoaded Status = "loaded"

	// StatusFailed indicates that the last load failed. A previously loaded
	// pipeline, if any, keeps serving.
	StatusFailed Status = "failed"
)

// Instance describes one loaded pipeline.
type Instance struct {
	ID         string     `json:"id"`
	ModelPath  string     `json:"model_path"`
	ModelClass string     `json:"model_cls"`
	TaskID     string     `json:"task_cls"`
	Device     string     `json:"device"`
	Timestep   float64    `json:"timestep"`
	LoadedAt   *time.Time `json:"loaded_at,omitempty"`

	pipeline *pipeline.Pipeline
}

// State is a point-in-time view of the manager.
type State struct {
	Status   Status    `json:"status"`
	Error    string    `json:"error,omitempty"`
	Reloads  int       `json:"reloads"`
	Instance *Instance `json:"instance,omitempty"`
}
