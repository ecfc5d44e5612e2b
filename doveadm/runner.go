// Package doveadm invokes Dovecot's doveadm tool to list and expunge messages.
package doveadm

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Runner runs doveadm with args and returns what it printed on stdout.
type Runner interface {
	Run(ctx context.Context, args ...string) ([]byte, error)
}

// ExecRunner runs the doveadm binary as a child process.
type ExecRunner struct {
	Path string
}

// NewExecRunner returns a runner for the binary at path, or "doveadm" from PATH.
func NewExecRunner(path string) *ExecRunner {
	if path == "" {
		path = "doveadm"
	}
	return &ExecRunner{Path: path}
}

// Run captures stdout. When the command fails, the error carries its stderr
// and the stdout captured so far is still returned.
func (r *ExecRunner) Run(ctx context.Context, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, r.Path, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return stdout.Bytes(), fmt.Errorf("%s %s: %w: %s", r.Path, firstArg(args), err, msg)
		}
		return stdout.Bytes(), fmt.Errorf("%s %s: %w", r.Path, firstArg(args), err)
	}
	return stdout.Bytes(), nil
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
