// Package terminal runs one-shot commands on the local machine.
package terminal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// NoOutput is returned in place of an empty result.
const NoOutput = "(command succeeded with no output)"

var ErrEmptyCommand = errors.New("command is empty")

// Result is the combined outcome of a command.
type Result struct {
	Output   string `json:"output"`
	ExitCode int    `json:"exit_code"`
}

// Run executes command through the platform shell and returns stdout
// followed by stderr. A non-zero exit is not an error; it is reported in
// ExitCode. ctx bounds the run time.
func Run(ctx context.Context, command string) (Result, error) {
	command = strings.TrimSpace(command)
	if command == "" {
		return Result{}, ErrEmptyCommand
	}

	name, args := shellCommand(command)
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// Grandchildren may keep the pipes open after a kill.
	cmd.WaitDelay = time.Second

	err := cmd.Run()
	res := Result{Output: combine(stdout.String(), stderr.String())}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return res, fmt.Errorf("run command: %w", ctxErr)
		}
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return res, fmt.Errorf("run command: %w", err)
		}
		res.ExitCode = exitErr.ExitCode()
	}
	return res, nil
}

func combine(stdout, stderr string) string {
	out := strings.TrimRight(stdout, "\r\n")
	if errOut := strings.TrimRight(stderr, "\r\n"); errOut != "" {
		if out != "" {
			out += "\n"
		}
		out += errOut
	}
	if out == "" {
		return NoOutput
	}
	return out
}
