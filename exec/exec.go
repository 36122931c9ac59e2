package exec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	osexec "os/exec"
	"strings"
	"time"

	"github.com/flanksource/commons/logger"
)

// Process is a single invocation of an external binary. Output is captured
// rather than streamed so it can be reported as a diagnostic.
type Process struct {
	Cmd     string
	Args    []string
	Env     map[string]string
	Cwd     string
	Log     logger.Logger
	Stdout  bytes.Buffer
	Stderr  bytes.Buffer
	Started *time.Time
	Elapsed time.Duration
	Err     error

	cmd *osexec.Cmd
}

func Command(name string, args ...string) *Process {
	return &Process{Cmd: name, Args: args}
}

func (p *Process) WithEnv(env map[string]string) *Process {
	p.Env = env
	return p
}

func (p *Process) WithCwd(cwd string) *Process {
	p.Cwd = cwd
	return p
}

func (p *Process) WithLogger(log logger.Logger) *Process {
	p.Log = log
	return p
}

func (p *Process) Name() string {
	return p.Cmd
}

// Out returns stderr followed by stdout.
func (p *Process) Out() string {
	return p.Stderr.String() + p.Stdout.String()
}

// Run executes the process and waits for it. The process is killed when ctx
// is done. A non-zero exit is returned as *ExitError.
func (p *Process) Run(ctx context.Context) error {
	cmd := osexec.CommandContext(ctx, p.Cmd, p.Args...)
	cmd.Dir = p.Cwd
	cmd.Stdout = &p.Stdout
	cmd.Stderr = &p.Stderr
	if len(p.Env) > 0 {
		cmd.Env = os.Environ()
		for k, v := range p.Env {
			cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
		}
	}
	p.cmd = cmd

	now := time.Now()
	p.Started = &now
	if p.Log != nil {
		p.Log.Debugf("exec: %s %s", p.Cmd, strings.Join(p.Args, " "))
	}

	err := cmd.Run()
	p.Elapsed = time.Since(now)

	var exitErr *osexec.ExitError
	switch {
	case err == nil:
	case ctx.Err() != nil:
		err = fmt.Errorf("%s: %w", p.Cmd, ctx.Err())
	case errors.As(err, &exitErr):
		err = &ExitError{Cmd: p.Cmd, Code: exitErr.ExitCode(), Stderr: p.Stderr.String()}
	default:
		err = fmt.Errorf("%s: %w", p.Cmd, err)
	}
	p.Err = err
	return err
}

func (p *Process) IsOK() bool {
	return p.Err == nil && p.cmd != nil && p.cmd.ProcessState != nil && p.cmd.ProcessState.Success()
}

// ExitError reports a process that ran but exited non-zero.
type ExitError struct {
	Cmd    string
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with status %d", e.Cmd, e.Code)
}

// Diagnostic returns the captured stderr.
func (e *ExitError) Diagnostic() string {
	return strings.TrimSpace(e.Stderr)
}

// LookPath resolves a binary name against PATH; absolute or relative paths
// are checked directly.
func LookPath(name string) (string, error) {
	return osexec.LookPath(name)
}
