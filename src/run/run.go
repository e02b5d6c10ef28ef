// Package run executes external tools (docker, gcloud, git) behind a small
// Runner interface. Everything the pipeline shells out to goes through a
// Runner, so tests can record invocations and script outcomes without any
// of the tools installed.
package run

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// Command describes a single external invocation.
type Command struct {
	Name   string
	Args   []string
	Dir    string
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Line renders the invocation for trace output.
func (c Command) Line() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Runner executes commands. The process implementation is ExecRunner;
// tests substitute recording fakes.
type Runner interface {
	Run(ctx context.Context, cmd Command) error
}

// ExecRunner runs commands as real subprocesses.
type ExecRunner struct {
	Verbose bool
	Trace   io.Writer // verbose "exec: …" lines, defaults to stderr
}

// NewExecRunner creates a process-backed runner.
func NewExecRunner(verbose bool) *ExecRunner {
	return &ExecRunner{
		Verbose: verbose,
		Trace:   os.Stderr,
	}
}

// Run executes the command, wiring the writers from cmd. Cancellation of ctx
// kills the child process.
func (r *ExecRunner) Run(ctx context.Context, c Command) error {
	if c.Name == "" {
		return errors.New("run: command name is empty")
	}

	if r.Verbose {
		trace := r.Trace
		if trace == nil {
			trace = os.Stderr
		}
		fmt.Fprintf(trace, "exec: %s\n", c.Line())
	}

	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	cmd.Stdin = c.Stdin
	cmd.Stdout = c.Stdout
	cmd.Stderr = c.Stderr

	return cmd.Run()
}
