// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package container runs Rscript either directly on the host or inside an
// image that has R and OpenSpecy installed, using docker or podman.
package container

import (
	"context"
	"fmt"
	"io"
	"os/exec"

	"github.com/pdiddy/openspecy-automation/pkg/types"
)

const (
	binDocker  = "docker"
	binPodman  = "podman"
	binRscript = "Rscript"

	// mountPoint is where the work directory appears inside a container.
	mountPoint = "/work"
)

// RunSpec describes one Rscript invocation. Script paths are relative to
// WorkDir, which is the working directory on the host and is mounted at the
// same relative position inside a container.
type RunSpec struct {
	// Image is the container image; ignored by the host runtime.
	Image string

	// WorkDir is the host directory holding the script and its inputs.
	WorkDir string

	// Args are passed to Rscript, e.g. ["match.R"].
	Args []string

	Stdout io.Writer
	Stderr io.Writer
}

// Runtime runs Rscript somewhere: on the host or in a container.
type Runtime interface {
	// Name returns the runtime name ("host", "docker" or "podman").
	Name() string

	// Available reports whether the runtime binary exists on PATH and
	// responds to a probe command.
	Available() bool

	// ImageExists checks whether the named image exists locally.
	// Returns nil when the image is found, or an error describing the failure.
	// The host runtime has no images and always returns nil.
	ImageExists(image string) error

	// Run executes Rscript per spec and waits for it to exit.
	Run(ctx context.Context, spec RunSpec) error
}

// executor abstracts command execution for testing.
type executor interface {
	LookPath(file string) (string, error)
	RunSilent(name string, args ...string) error
	RunIn(ctx context.Context, dir, name string, args []string, stdout, stderr io.Writer) error
}

// osExecutor is the production executor backed by os/exec.
type osExecutor struct{}

func (o *osExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (o *osExecutor) RunSilent(name string, args ...string) error {
	return exec.Command(name, args...).Run()
}

func (o *osExecutor) RunIn(ctx context.Context, dir, name string, args []string, stdout, stderr io.Writer) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	return cmd.Run()
}

// runtime implements Runtime for a specific container binary. Both Docker
// and Podman share the same logic; they differ only in binary name and the
// subcommand used to check image existence.
type runtime struct {
	bin           string
	imageCheckCmd []string // e.g. ["image", "inspect"] for docker
	exec          executor
}

func (r *runtime) Name() string { return r.bin }

func (r *runtime) Available() bool {
	if _, err := r.exec.LookPath(r.bin); err != nil {
		return false
	}
	return r.exec.RunSilent(r.bin, "info") == nil
}

func (r *runtime) ImageExists(image string) error {
	args := make([]string, 0, len(r.imageCheckCmd)+1)
	args = append(args, r.imageCheckCmd...)
	args = append(args, image)

	if err := r.exec.RunSilent(r.bin, args...); err != nil {
		return fmt.Errorf("image %s not found in %s: %w", image, r.bin, err)
	}
	return nil
}

func (r *runtime) Run(ctx context.Context, spec RunSpec) error {
	args := []string{
		"run", "--rm",
		"-v", spec.WorkDir + ":" + mountPoint,
		"-w", mountPoint,
		spec.Image, binRscript,
	}
	args = append(args, spec.Args...)
	if err := r.exec.RunIn(ctx, spec.WorkDir, r.bin, args, spec.Stdout, spec.Stderr); err != nil {
		return fmt.Errorf("running %s container %s: %w", r.bin, spec.Image, err)
	}
	return nil
}

func newDockerRuntime(exec executor) *runtime {
	return &runtime{
		bin:           binDocker,
		imageCheckCmd: []string{"image", "inspect"},
		exec:          exec,
	}
}

func newPodmanRuntime(exec executor) *runtime {
	return &runtime{
		bin:           binPodman,
		imageCheckCmd: []string{"image", "exists"},
		exec:          exec,
	}
}

// hostRuntime runs Rscript from PATH (or a configured path) in WorkDir.
type hostRuntime struct {
	rscript string
	exec    executor
}

func (h *hostRuntime) Name() string { return string(types.BackendHost) }

func (h *hostRuntime) Available() bool {
	if _, err := h.exec.LookPath(h.rscript); err != nil {
		return false
	}
	return h.exec.RunSilent(h.rscript, "--version") == nil
}

func (h *hostRuntime) ImageExists(string) error { return nil }

func (h *hostRuntime) Run(ctx context.Context, spec RunSpec) error {
	if err := h.exec.RunIn(ctx, spec.WorkDir, h.rscript, spec.Args, spec.Stdout, spec.Stderr); err != nil {
		return fmt.Errorf("running %s: %w", h.rscript, err)
	}
	return nil
}

func newHostRuntime(exec executor, rscript string) *hostRuntime {
	if rscript == "" {
		rscript = binRscript
	}
	return &hostRuntime{rscript: rscript, exec: exec}
}

var defaultExec = &osExecutor{}

// DetectRuntime returns the runtime selected by backend. BackendAuto tries
// docker first and falls back to podman. rscript is only used by the host
// backend. Returns an error if the selected runtime is not available.
func DetectRuntime(backend types.Backend, rscript string) (Runtime, error) {
	return detectRuntime(defaultExec, backend, rscript)
}

func detectRuntime(exec executor, backend types.Backend, rscript string) (Runtime, error) {
	var candidates []Runtime
	switch backend {
	case types.BackendHost:
		candidates = []Runtime{newHostRuntime(exec, rscript)}
	case types.BackendDocker:
		candidates = []Runtime{newDockerRuntime(exec)}
	case types.BackendPodman:
		candidates = []Runtime{newPodmanRuntime(exec)}
	case types.BackendAuto, "":
		candidates = []Runtime{newDockerRuntime(exec), newPodmanRuntime(exec)}
	default:
		return nil, fmt.Errorf("unknown backend %q: want auto, host, docker, or podman", backend)
	}

	for _, rt := range candidates {
		if rt.Available() {
			return rt, nil
		}
	}

	if backend == types.BackendAuto || backend == "" {
		return nil, fmt.Errorf(
			"no container runtime available: neither %s nor %s found or operational",
			binDocker, binPodman,
		)
	}
	return nil, fmt.Errorf("%s runtime not available", candidates[0].Name())
}
