package source

import (
	"bytes"
	"context"
	"os/exec"
)

// CommandRunner runs external commands.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) (output []byte, err error)
}

// ExecCommandRunner uses os/exec.
type ExecCommandRunner struct{}

// Run runs a command and returns its combined output.
func (ExecCommandRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	return out.Bytes(), err
}
