package build

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"

	"github.com/moorline/stevedore/src/config"
	"github.com/moorline/stevedore/src/registry"
)

func testTarget() *config.Target {
	return &config.Target{
		Registry:  "ghcr",
		Host:      "ghcr.io",
		Namespace: "moorline",
		Image:     "app",
		Tag:       "v1.0.0",
		Version:   "v1.0.0",
		Platforms: []string{"linux/amd64", "linux/arm64"},
		Secret:    "ghp_secret",
	}
}

func testPipeline(t *config.Target, fr *fakeRunner) *Pipeline {
	p := NewPipeline(t, registry.NewGHCR(fr, t.Secret), newTestBuildx(fr), config.BuildConfig{
		Context: ".",
		Builder: "stevedore",
	})
	return p
}

func TestBuildPushMissingSecretAbortsBeforeAnySubprocess(t *testing.T) {
	fr := &fakeRunner{}
	target := testTarget()
	target.Secret = ""

	gateRan := false
	p := testPipeline(target, fr)
	p.Gate = func(context.Context) error {
		gateRan = true
		return nil
	}

	err := p.Run(context.Background(), ModeBuildPush)
	if !errors.Is(err, registry.ErrTokenRequired) {
		t.Fatalf("expected ErrTokenRequired, got %v", err)
	}
	if len(fr.calls) != 0 {
		t.Errorf("expected zero subprocess calls, got %v", fr.lines())
	}
	if gateRan {
		t.Error("gate must not run when the credential precondition fails")
	}
}

func TestBuildPushStageOrder(t *testing.T) {
	// Builder absent: the full sequence is gate, probe, create, login,
	// then one combined build-and-push invocation.
	fr := &fakeRunner{errs: map[string]error{
		"docker buildx inspect": &exec.ExitError{},
	}}
	p := testPipeline(testTarget(), fr)

	gateRan := false
	p.Gate = func(context.Context) error {
		gateRan = true
		return nil
	}

	if err := p.Run(context.Background(), ModeBuildPush); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !gateRan {
		t.Error("gate did not run")
	}

	lines := fr.lines()
	if len(lines) != 4 {
		t.Fatalf("got %d calls, want 4: %v", len(lines), lines)
	}
	wantPrefixes := []string{
		"docker buildx inspect stevedore",
		"docker buildx create --use --name stevedore",
		"docker login ghcr.io -u moorline --password-stdin",
		"docker buildx build",
	}
	for i, prefix := range wantPrefixes {
		if !strings.HasPrefix(lines[i], prefix) {
			t.Errorf("call %d = %q, want prefix %q", i, lines[i], prefix)
		}
	}

	buildLine := lines[3]
	for _, frag := range []string{
		"--platform linux/amd64,linux/arm64",
		"--build-arg VERSION=v1.0.0",
		"--tag ghcr.io/moorline/app:v1.0.0",
		"--push",
	} {
		if !strings.Contains(buildLine, frag) {
			t.Errorf("build argv %q missing %q", buildLine, frag)
		}
	}
}

func TestBuildPushBuilderPresentSkipsCreate(t *testing.T) {
	fr := &fakeRunner{}
	p := testPipeline(testTarget(), fr)

	if err := p.Run(context.Background(), ModeBuildPush); err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, line := range fr.lines() {
		if strings.HasPrefix(line, "docker buildx create") {
			t.Errorf("create invoked although the probe found the builder: %v", fr.lines())
		}
	}
}

func TestBuilderEnsuredOncePerPipeline(t *testing.T) {
	fr := &fakeRunner{errs: map[string]error{
		"docker buildx inspect": &exec.ExitError{},
	}}
	p := testPipeline(testTarget(), fr)

	if err := p.Run(context.Background(), ModeMultiBuild); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := p.Run(context.Background(), ModeBuildPush); err != nil {
		t.Fatalf("second run: %v", err)
	}

	var creates int
	for _, line := range fr.lines() {
		if strings.HasPrefix(line, "docker buildx create") {
			creates++
		}
	}
	if creates != 1 {
		t.Errorf("builder created %d times, want once: %v", creates, fr.lines())
	}
}

func TestBuildPushGateFailureAborts(t *testing.T) {
	fr := &fakeRunner{}
	p := testPipeline(testTarget(), fr)
	p.Gate = func(context.Context) error {
		return errors.New("leak found")
	}

	if err := p.Run(context.Background(), ModeBuildPush); err == nil {
		t.Fatal("expected gate failure to abort")
	}
	if len(fr.calls) != 0 {
		t.Errorf("expected no subprocess after gate failure, got %v", fr.lines())
	}
}

func TestBuildPushLoginFailureAbortsBeforeBuild(t *testing.T) {
	fr := &fakeRunner{errs: map[string]error{
		"docker login": errors.New("exit status 1"),
	}}
	p := testPipeline(testTarget(), fr)

	if err := p.Run(context.Background(), ModeBuildPush); err == nil {
		t.Fatal("expected login failure to surface")
	}
	for _, line := range fr.lines() {
		if strings.HasPrefix(line, "docker buildx build") {
			t.Errorf("build ran after failed login: %v", fr.lines())
		}
	}
}

func TestLocalBuildSkipsGuardAndAuth(t *testing.T) {
	fr := &fakeRunner{}
	target := testTarget()
	target.Secret = "" // local build needs no credential
	p := testPipeline(target, fr)

	if err := p.Run(context.Background(), ModeBuild); err != nil {
		t.Fatalf("Run: %v", err)
	}

	lines := fr.lines()
	if len(lines) != 1 {
		t.Fatalf("got %d calls, want only the build: %v", len(lines), lines)
	}
	line := lines[0]
	if !strings.HasPrefix(line, "docker buildx build") {
		t.Fatalf("call = %q", line)
	}
	if strings.Contains(line, "--platform") {
		t.Error("local build must not pin platforms")
	}
	if !strings.Contains(line, "--load") || strings.Contains(line, "--push") {
		t.Errorf("local build argv = %q, want --load without --push", line)
	}
}

func TestMultiBuildNoLoadNoPush(t *testing.T) {
	fr := &fakeRunner{}
	p := testPipeline(testTarget(), fr)

	if err := p.Run(context.Background(), ModeMultiBuild); err != nil {
		t.Fatalf("Run: %v", err)
	}

	lines := fr.lines()
	last := lines[len(lines)-1]
	if !strings.Contains(last, "--platform linux/amd64,linux/arm64") {
		t.Errorf("argv = %q, missing platform set", last)
	}
	if strings.Contains(last, "--load") || strings.Contains(last, "--push") {
		t.Errorf("argv = %q, want neither --load nor --push", last)
	}
	for _, line := range lines {
		if strings.HasPrefix(line, "docker login") || strings.HasPrefix(line, "gcloud") {
			t.Errorf("auth ran for a local-only multi build: %v", lines)
		}
	}
}

func TestPushModeAssumesPriorAuth(t *testing.T) {
	fr := &fakeRunner{}
	target := testTarget()
	target.Secret = ""
	p := testPipeline(target, fr)

	if err := p.Run(context.Background(), ModePush); err != nil {
		t.Fatalf("Run: %v", err)
	}

	lines := fr.lines()
	if len(lines) != 1 || lines[0] != "docker push ghcr.io/moorline/app:v1.0.0" {
		t.Errorf("calls = %v, want a single docker push", lines)
	}
}

func TestCleanMissingImageSucceeds(t *testing.T) {
	fr := &fakeRunner{
		errs:   map[string]error{"docker rmi": errors.New("exit status 1")},
		stderr: map[string]string{"docker rmi": "Error: No such image: ghcr.io/moorline/app:v1.0.0\n"},
	}
	p := testPipeline(testTarget(), fr)

	if err := p.Run(context.Background(), ModeClean); err != nil {
		t.Fatalf("clean of a missing image must succeed, got %v", err)
	}
}

func TestCleanOtherFailureWarnsButSucceeds(t *testing.T) {
	fr := &fakeRunner{
		errs:   map[string]error{"docker rmi": errors.New("exit status 1")},
		stderr: map[string]string{"docker rmi": "conflict: unable to remove\n"},
	}
	p := testPipeline(testTarget(), fr)
	var warnings bytes.Buffer
	p.Buildx.Stderr = &warnings

	if err := p.Run(context.Background(), ModeClean); err != nil {
		t.Fatalf("clean is advisory and must not fail, got %v", err)
	}
	if !strings.Contains(warnings.String(), "warning:") {
		t.Errorf("expected a warning, got %q", warnings.String())
	}
}

func TestGARBuildPushNeedsNoSecret(t *testing.T) {
	fr := &fakeRunner{}
	target := &config.Target{
		Registry:   "gar",
		Host:       "us-docker.pkg.dev",
		Namespace:  "moorline-infra",
		Repository: "containers",
		Image:      "app",
		Tag:        "latest",
		Version:    "latest",
		Platforms:  []string{"linux/amd64", "linux/arm64"},
	}
	p := NewPipeline(target, registry.NewGAR(fr), newTestBuildx(fr), config.BuildConfig{Builder: "stevedore"})

	if err := p.Run(context.Background(), ModeBuildPush); err != nil {
		t.Fatalf("Run: %v", err)
	}

	lines := fr.lines()
	var sawConfigure, sawPush bool
	for _, line := range lines {
		if line == "gcloud auth configure-docker us-docker.pkg.dev --quiet" {
			sawConfigure = true
		}
		if strings.HasPrefix(line, "docker buildx build") &&
			strings.Contains(line, "--tag us-docker.pkg.dev/moorline-infra/containers/app:latest") &&
			strings.Contains(line, "--push") {
			sawPush = true
		}
		if strings.HasPrefix(line, "docker login") {
			t.Errorf("gar run must not docker login: %v", lines)
		}
	}
	if !sawConfigure || !sawPush {
		t.Errorf("calls = %v, want gcloud configure-docker and a push build", lines)
	}
}

func TestRollingReferencesAllTagged(t *testing.T) {
	fr := &fakeRunner{}
	target := testTarget()
	target.Tag = "v1.2.3"
	target.Version = "v1.2.3"
	target.Rolling = true
	p := testPipeline(target, fr)

	if err := p.Run(context.Background(), ModeBuildPush); err != nil {
		t.Fatalf("Run: %v", err)
	}
	last := fr.lines()[len(fr.calls)-1]
	for _, ref := range []string{
		"--tag ghcr.io/moorline/app:v1.2.3",
		"--tag ghcr.io/moorline/app:v1.2",
		"--tag ghcr.io/moorline/app:v1",
		"--tag ghcr.io/moorline/app:latest",
	} {
		if !strings.Contains(last, ref) {
			t.Errorf("argv %q missing %q", last, ref)
		}
	}
}
