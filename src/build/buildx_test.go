package build

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
	"reflect"
	"strings"
	"testing"

	"github.com/moorline/stevedore/src/run"
)

// fakeRunner records every command instead of executing it. Outcomes are
// scripted per argv prefix; unmatched commands succeed.
type fakeRunner struct {
	calls  []run.Command
	stderr map[string]string // argv prefix -> text written to the command's stderr
	errs   map[string]error  // argv prefix -> returned error
}

func (f *fakeRunner) Run(_ context.Context, cmd run.Command) error {
	f.calls = append(f.calls, cmd)
	line := cmd.Line()
	for prefix, text := range f.stderr {
		if strings.HasPrefix(line, prefix) && cmd.Stderr != nil {
			io.WriteString(cmd.Stderr, text)
		}
	}
	for prefix, err := range f.errs {
		if strings.HasPrefix(line, prefix) {
			return err
		}
	}
	return nil
}

func (f *fakeRunner) lines() []string {
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = c.Line()
	}
	return out
}

func newTestBuildx(f *fakeRunner) *Buildx {
	return &Buildx{
		Runner: f,
		Stdout: io.Discard,
		Stderr: io.Discard,
	}
}

func TestBuildArgs(t *testing.T) {
	cases := []struct {
		name string
		step Step
		want []string
	}{
		{
			name: "local load",
			step: Step{
				Tags:      []string{"ghcr.io/moorline/app:latest"},
				BuildArgs: map[string]string{"VERSION": "latest"},
				Load:      true,
			},
			want: []string{"buildx", "build",
				"--build-arg", "VERSION=latest",
				"--tag", "ghcr.io/moorline/app:latest",
				"--load", "."},
		},
		{
			name: "multi-platform push",
			step: Step{
				Dockerfile: "build/Dockerfile",
				Context:    "srv",
				Platforms:  []string{"linux/amd64", "linux/arm64"},
				Tags:       []string{"ghcr.io/moorline/app:v1.0.0"},
				BuildArgs:  map[string]string{"VERSION": "v1.0.0", "COMMIT": "abc1234"},
				Push:       true,
			},
			want: []string{"buildx", "build",
				"--file", "build/Dockerfile",
				"--platform", "linux/amd64,linux/arm64",
				"--build-arg", "COMMIT=abc1234",
				"--build-arg", "VERSION=v1.0.0",
				"--tag", "ghcr.io/moorline/app:v1.0.0",
				"--push", "srv"},
		},
		{
			name: "no output mode",
			step: Step{
				Platforms: []string{"linux/amd64", "linux/arm64"},
				Tags:      []string{"ghcr.io/moorline/app:latest"},
			},
			want: []string{"buildx", "build",
				"--platform", "linux/amd64,linux/arm64",
				"--tag", "ghcr.io/moorline/app:latest",
				"."},
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := buildArgs(c.step); !reflect.DeepEqual(got, c.want) {
				t.Errorf("buildArgs:\n got %v\nwant %v", got, c.want)
			}
		})
	}
}

func TestBuildArgsPushWinsOverLoad(t *testing.T) {
	args := buildArgs(Step{Tags: []string{"a:b"}, Push: true, Load: true})
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "--push") || strings.Contains(joined, "--load") {
		t.Errorf("argv = %q, want --push without --load", joined)
	}
}

func TestPushPerReference(t *testing.T) {
	fr := &fakeRunner{}
	bx := newTestBuildx(fr)

	refs := []string{"ghcr.io/moorline/app:v1.2.3", "ghcr.io/moorline/app:latest"}
	if err := bx.Push(context.Background(), refs); err != nil {
		t.Fatalf("Push: %v", err)
	}

	want := []string{
		"docker push ghcr.io/moorline/app:v1.2.3",
		"docker push ghcr.io/moorline/app:latest",
	}
	if got := fr.lines(); !reflect.DeepEqual(got, want) {
		t.Errorf("calls = %v, want %v", got, want)
	}
}

func TestPushStopsOnFailure(t *testing.T) {
	fr := &fakeRunner{errs: map[string]error{
		"docker push ghcr.io/moorline/app:v1.2.3": errors.New("denied"),
	}}
	bx := newTestBuildx(fr)

	err := bx.Push(context.Background(), []string{
		"ghcr.io/moorline/app:v1.2.3",
		"ghcr.io/moorline/app:latest",
	})
	if err == nil {
		t.Fatal("expected push error")
	}
	if len(fr.calls) != 1 {
		t.Errorf("expected fail-fast after first push, got %d calls", len(fr.calls))
	}
}

func TestRemoveMissingImage(t *testing.T) {
	fr := &fakeRunner{
		errs:   map[string]error{"docker rmi": errors.New("exit status 1")},
		stderr: map[string]string{"docker rmi": "Error response from daemon: No such image: ghcr.io/moorline/app:latest\n"},
	}
	bx := newTestBuildx(fr)

	if err := bx.Remove(context.Background(), "ghcr.io/moorline/app:latest"); err != nil {
		t.Fatalf("Remove of missing image must succeed, got %v", err)
	}
}

func TestRemoveOtherFailure(t *testing.T) {
	fr := &fakeRunner{
		errs:   map[string]error{"docker rmi": errors.New("exit status 1")},
		stderr: map[string]string{"docker rmi": "Error response from daemon: conflict: image is being used\n"},
	}
	bx := newTestBuildx(fr)

	err := bx.Remove(context.Background(), "ghcr.io/moorline/app:latest")
	if err == nil {
		t.Fatal("expected error for non-missing rmi failure")
	}
	if !strings.Contains(err.Error(), "conflict") {
		t.Errorf("error should carry the tool output, got %v", err)
	}
}

func TestClassifyProbe(t *testing.T) {
	if got := classifyProbe(nil); got != builderPresent {
		t.Errorf("nil error = %v, want present", got)
	}
	if got := classifyProbe(&exec.ExitError{}); got != builderAbsent {
		t.Errorf("exit error = %v, want absent", got)
	}
	if got := classifyProbe(exec.ErrNotFound); got != builderProbeError {
		t.Errorf("not-found error = %v, want probe error", got)
	}
	if got := classifyProbe(errors.New("boom")); got != builderProbeError {
		t.Errorf("generic error = %v, want probe error", got)
	}
}

func TestBuilderStateString(t *testing.T) {
	if builderPresent.String() != "present" || builderAbsent.String() != "absent" || builderProbeError.String() != "probe failed" {
		t.Error("builderState strings changed")
	}
}

func TestEnsureBuilderPresent(t *testing.T) {
	fr := &fakeRunner{}
	bx := newTestBuildx(fr)

	created, err := bx.EnsureBuilder(context.Background(), "stevedore")
	if err != nil {
		t.Fatalf("EnsureBuilder: %v", err)
	}
	if created {
		t.Error("created = true for existing builder")
	}
	want := []string{"docker buildx inspect stevedore"}
	if got := fr.lines(); !reflect.DeepEqual(got, want) {
		t.Errorf("calls = %v, want probe only", got)
	}
}

func TestEnsureBuilderAbsent(t *testing.T) {
	fr := &fakeRunner{errs: map[string]error{
		"docker buildx inspect": &exec.ExitError{},
	}}
	bx := newTestBuildx(fr)

	created, err := bx.EnsureBuilder(context.Background(), "stevedore")
	if err != nil {
		t.Fatalf("EnsureBuilder: %v", err)
	}
	if !created {
		t.Error("created = false, want true")
	}
	want := []string{
		"docker buildx inspect stevedore",
		"docker buildx create --use --name stevedore",
	}
	if got := fr.lines(); !reflect.DeepEqual(got, want) {
		t.Errorf("calls = %v, want %v", got, want)
	}
}

func TestEnsureBuilderProbeErrorStillCreates(t *testing.T) {
	// A broken probe tool conflates with absence: creation is attempted
	// and its own failure is the one that surfaces.
	fr := &fakeRunner{errs: map[string]error{
		"docker buildx inspect": exec.ErrNotFound,
	}}
	bx := newTestBuildx(fr)
	bx.Verbose = true
	var trace bytes.Buffer
	bx.Stderr = &trace

	created, err := bx.EnsureBuilder(context.Background(), "stevedore")
	if err != nil {
		t.Fatalf("EnsureBuilder: %v", err)
	}
	if !created {
		t.Error("created = false, want true")
	}
	if !strings.Contains(trace.String(), "probe failed") {
		t.Errorf("trace = %q, want probe state", trace.String())
	}
}

func TestEnsureBuilderCreateFails(t *testing.T) {
	fr := &fakeRunner{errs: map[string]error{
		"docker buildx inspect": &exec.ExitError{},
		"docker buildx create":  errors.New("exit status 125"),
	}}
	bx := newTestBuildx(fr)

	if _, err := bx.EnsureBuilder(context.Background(), "stevedore"); err == nil {
		t.Fatal("expected creation failure to surface")
	}
}
