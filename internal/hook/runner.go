// Package hook runs the post-processing command on a finished dump.
package hook

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Runner abstracts post command execution for testability.
type Runner interface {
	Run(ctx context.Context, command, dir string) (output string, err error)
}

// ShellRunner executes the post command through a shell.
type ShellRunner struct {
	Shell   string   // Shell binary, optionally with leading flags ("zsh -i"); empty = sh
	Args    []string // Flags placed before the command string (empty = -c)
	WorkDir string   // Working directory for the command (empty = current dir)
}

// NewShellRunner creates a Runner that executes real shell commands.
func NewShellRunner(shell, workDir string, args ...string) *ShellRunner {
	return &ShellRunner{Shell: shell, Args: args, WorkDir: workDir}
}

// shellArgv splits Shell into the binary and its own flags and appends Args.
func (r *ShellRunner) shellArgv() (string, []string) {
	fields := strings.Fields(r.Shell)
	if len(fields) == 0 {
		fields = []string{"sh"}
	}
	args := append([]string(nil), fields[1:]...)
	if len(r.Args) == 0 {
		return fields[0], append(args, "-c")
	}
	return fields[0], append(args, r.Args...)
}

// Run executes `<shell> <args> '<command> "$1"' planflat <dir>` and returns
// combined stdout/stderr. With the default args that is `sh -c`. dir
// reaches the command as a positional parameter, so it is never re-parsed
// by the shell.
func (r *ShellRunner) Run(ctx context.Context, command, dir string) (string, error) {
	if strings.TrimSpace(command) == "" {
		return "", errors.New("empty post command")
	}

	shell, args := r.shellArgv()
	args = append(args, command+` "$1"`, "planflat", dir)

	cmd := exec.CommandContext(ctx, shell, args...)
	if r.WorkDir != "" {
		cmd.Dir = r.WorkDir
	}
	// Children that outlive a cancelled shell must not hold Wait open.
	cmd.WaitDelay = time.Second

	output, err := cmd.CombinedOutput()
	if err != nil {
		return string(output), &CommandError{Command: command, Dir: dir, Err: err}
	}
	return string(output), nil
}

// CommandError reports a post command that could not start or exited non-zero.
type CommandError struct {
	Command string
	Dir     string
	Err     error
}

func (e *CommandError) Error() string {
	var exitErr *exec.ExitError
	if errors.As(e.Err, &exitErr) {
		return fmt.Sprintf("post command %q exited with status %d", e.Command, exitErr.ExitCode())
	}
	return fmt.Sprintf("post command %q failed: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ExitCode returns the command's exit status, or -1 when it never ran to completion.
func (e *CommandError) ExitCode() int {
	var exitErr *exec.ExitError
	if errors.As(e.Err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
