package build

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"

	"github.com/moorline/stevedore/src/run"
)

// builderState is the outcome of probing for a named buildx builder.
type builderState int

const (
	builderPresent builderState = iota
	builderAbsent
	builderProbeError
)

func (s builderState) String() string {
	switch s {
	case builderPresent:
		return "present"
	case builderAbsent:
		return "absent"
	default:
		return "probe failed"
	}
}

// classifyProbe maps a probe invocation error to a builder state. A clean
// non-zero exit means buildx ran and found no builder with that name; any
// other failure is a probe error.
func classifyProbe(err error) builderState {
	switch {
	case err == nil:
		return builderPresent
	case errors.As(err, new(*exec.ExitError)):
		return builderAbsent
	default:
		return builderProbeError
	}
}

// probeBuilder checks whether the named builder exists.
func (bx *Buildx) probeBuilder(ctx context.Context, name string) builderState {
	cmd := run.Command{
		Name:   "docker",
		Args:   []string{"buildx", "inspect", name},
		Stdout: io.Discard,
		Stderr: io.Discard,
	}
	return classifyProbe(bx.Runner.Run(ctx, cmd))
}

// EnsureBuilder makes sure the named buildx builder exists, creating and
// activating it when the probe does not find one. A probe error is treated
// the same as absence: creation is attempted and its failure is the one
// that surfaces. The probe-then-create sequence is not atomic against
// concurrent runs; docker arbitrates when two create the same name.
// Returns whether a builder was created.
func (bx *Buildx) EnsureBuilder(ctx context.Context, name string) (bool, error) {
	state := bx.probeBuilder(ctx, name)
	if state == builderPresent {
		return false, nil
	}

	if bx.Verbose {
		fmt.Fprintf(bx.Stderr, "builder %q %s, creating\n", name, state)
	}

	create := run.Command{
		Name:   "docker",
		Args:   []string{"buildx", "create", "--use", "--name", name},
		Stdout: bx.Stderr,
		Stderr: bx.Stderr,
	}
	if err := bx.Runner.Run(ctx, create); err != nil {
		return false, fmt.Errorf("creating buildx builder %s: %w", name, err)
	}
	return true, nil
}
