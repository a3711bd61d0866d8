// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package container

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/pdiddy/openspecy-automation/pkg/types"
)

// mockExecutor records calls and returns configured responses.
type mockExecutor struct {
	availableBins map[string]bool // binary -> whether LookPath succeeds
	runnableCmds  map[string]bool // "bin arg1 arg2" -> whether RunSilent succeeds
	runInFunc     func(dir, name string, args []string, stdout io.Writer) error
}

func (m *mockExecutor) LookPath(file string) (string, error) {
	if m.availableBins[file] {
		return "/usr/bin/" + file, nil
	}
	return "", errors.New("not found: " + file)
}

func (m *mockExecutor) RunSilent(name string, args ...string) error {
	key := name + " " + strings.Join(args, " ")
	if m.runnableCmds[key] {
		return nil
	}
	return errors.New("command failed: " + key)
}

func (m *mockExecutor) RunIn(_ context.Context, dir, name string, args []string, stdout, _ io.Writer) error {
	if m.runInFunc != nil {
		return m.runInFunc(dir, name, args, stdout)
	}
	return nil
}

func TestDetectRuntime(t *testing.T) {
	tests := []struct {
		name     string
		backend  types.Backend
		exec     *mockExecutor
		wantName string
		wantErr  string
	}{
		{
			name:    "docker available",
			backend: types.BackendAuto,
			exec: &mockExecutor{
				availableBins: map[string]bool{"docker": true},
				runnableCmds:  map[string]bool{"docker info": true},
			},
			wantName: "docker",
		},
		{
			name:    "podman fallback when docker missing",
			backend: types.BackendAuto,
			exec: &mockExecutor{
				availableBins: map[string]bool{"podman": true},
				runnableCmds:  map[string]bool{"podman info": true},
			},
			wantName: "podman",
		},
		{
			name:    "neither available",
			backend: types.BackendAuto,
			exec: &mockExecutor{
				availableBins: map[string]bool{},
				runnableCmds:  map[string]bool{},
			},
			wantErr: "no container runtime available",
		},
		{
			name:    "docker on PATH but info fails, podman works",
			backend: "",
			exec: &mockExecutor{
				availableBins: map[string]bool{"docker": true, "podman": true},
				runnableCmds:  map[string]bool{"podman info": true},
			},
			wantName: "podman",
		},
		{
			name:    "both available, docker preferred",
			backend: types.BackendAuto,
			exec: &mockExecutor{
				availableBins: map[string]bool{"docker": true, "podman": true},
				runnableCmds:  map[string]bool{"docker info": true, "podman info": true},
			},
			wantName: "docker",
		},
		{
			name:    "explicit podman",
			backend: types.BackendPodman,
			exec: &mockExecutor{
				availableBins: map[string]bool{"docker": true, "podman": true},
				runnableCmds:  map[string]bool{"docker info": true, "podman info": true},
			},
			wantName: "podman",
		},
		{
			name:    "explicit docker unavailable",
			backend: types.BackendDocker,
			exec: &mockExecutor{
				availableBins: map[string]bool{"podman": true},
				runnableCmds:  map[string]bool{"podman info": true},
			},
			wantErr: "docker runtime not available",
		},
		{
			name:    "host Rscript",
			backend: types.BackendHost,
			exec: &mockExecutor{
				availableBins: map[string]bool{"Rscript": true},
				runnableCmds:  map[string]bool{"Rscript --version": true},
			},
			wantName: "host",
		},
		{
			name:    "host Rscript missing",
			backend: types.BackendHost,
			exec:    &mockExecutor{},
			wantErr: "host runtime not available",
		},
		{
			name:    "unknown backend",
			backend: "kubernetes",
			exec:    &mockExecutor{},
			wantErr: "unknown backend",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt, err := detectRuntime(tt.exec, tt.backend, "")
			if tt.wantErr != "" {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("error should contain %q, got: %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rt.Name() != tt.wantName {
				t.Errorf("got runtime %q, want %q", rt.Name(), tt.wantName)
			}
		})
	}
}

func TestImageExists(t *testing.T) {
	tests := []struct {
		name    string
		mkRT    func(*mockExecutor) Runtime
		image   string
		cmds    map[string]bool
		wantErr bool
	}{
		{
			name:  "docker image exists",
			mkRT:  func(e *mockExecutor) Runtime { return newDockerRuntime(e) },
			image: "openspecy:latest",
			cmds:  map[string]bool{"docker image inspect openspecy:latest": true},
		},
		{
			name:    "docker image not found",
			mkRT:    func(e *mockExecutor) Runtime { return newDockerRuntime(e) },
			image:   "openspecy:latest",
			cmds:    map[string]bool{},
			wantErr: true,
		},
		{
			name:  "podman image exists",
			mkRT:  func(e *mockExecutor) Runtime { return newPodmanRuntime(e) },
			image: "openspecy:latest",
			cmds:  map[string]bool{"podman image exists openspecy:latest": true},
		},
		{
			name:    "podman image not found",
			mkRT:    func(e *mockExecutor) Runtime { return newPodmanRuntime(e) },
			image:   "openspecy:latest",
			cmds:    map[string]bool{},
			wantErr: true,
		},
		{
			name:  "host has no images",
			mkRT:  func(e *mockExecutor) Runtime { return newHostRuntime(e, "") },
			image: "openspecy:latest",
			cmds:  map[string]bool{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := &mockExecutor{runnableCmds: tt.cmds}
			rt := tt.mkRT(exec)
			err := rt.ImageExists(tt.image)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !strings.Contains(err.Error(), tt.image) {
					t.Errorf("error should mention image name, got: %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestRun(t *testing.T) {
	tests := []struct {
		name     string
		mkRT     func(*mockExecutor) Runtime
		wantBin  string
		wantArgs string
		runErr   error
		wantErr  bool
	}{
		{
			name:     "docker mounts the work dir",
			mkRT:     func(e *mockExecutor) Runtime { return newDockerRuntime(e) },
			wantBin:  "docker",
			wantArgs: "run --rm -v /tmp/run1:/work -w /work openspecy:latest Rscript match.R",
		},
		{
			name:     "podman mounts the work dir",
			mkRT:     func(e *mockExecutor) Runtime { return newPodmanRuntime(e) },
			wantBin:  "podman",
			wantArgs: "run --rm -v /tmp/run1:/work -w /work openspecy:latest Rscript match.R",
		},
		{
			name:     "host runs the configured Rscript",
			mkRT:     func(e *mockExecutor) Runtime { return newHostRuntime(e, "/opt/R/bin/Rscript") },
			wantBin:  "/opt/R/bin/Rscript",
			wantArgs: "match.R",
		},
		{
			name:    "run failure returns wrapped error",
			mkRT:    func(e *mockExecutor) Runtime { return newDockerRuntime(e) },
			wantBin: "docker",
			runErr:  errors.New("container exited with code 1"),
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotDir, gotBin string
			var gotArgs []string
			exec := &mockExecutor{runInFunc: func(dir, name string, args []string, stdout io.Writer) error {
				gotDir, gotBin, gotArgs = dir, name, args
				_, _ = stdout.Write([]byte("done"))
				return tt.runErr
			}}
			rt := tt.mkRT(exec)

			var out bytes.Buffer
			err := rt.Run(context.Background(), RunSpec{
				Image:   "openspecy:latest",
				WorkDir: "/tmp/run1",
				Args:    []string{"match.R"},
				Stdout:  &out,
			})
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !errors.Is(err, tt.runErr) {
					t.Errorf("error should wrap the executor error, got: %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if gotBin != tt.wantBin {
				t.Errorf("binary = %q, want %q", gotBin, tt.wantBin)
			}
			if got := strings.Join(gotArgs, " "); got != tt.wantArgs {
				t.Errorf("args = %q, want %q", got, tt.wantArgs)
			}
			if gotDir != "/tmp/run1" {
				t.Errorf("dir = %q, want /tmp/run1", gotDir)
			}
			if out.String() != "done" {
				t.Errorf("stdout = %q, want %q", out.String(), "done")
			}
		})
	}
}

func TestRuntimeName(t *testing.T) {
	exec := &mockExecutor{}
	docker := newDockerRuntime(exec)
	if docker.Name() != "docker" {
		t.Errorf("docker runtime name = %q, want %q", docker.Name(), "docker")
	}
	podman := newPodmanRuntime(exec)
	if podman.Name() != "podman" {
		t.Errorf("podman runtime name = %q, want %q", podman.Name(), "podman")
	}
	host := newHostRuntime(exec, "")
	if host.Name() != "host" {
		t.Errorf("host runtime name = %q, want %q", host.Name(), "host")
	}
}
