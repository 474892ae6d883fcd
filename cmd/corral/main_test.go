package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jbweber/corral/internal/process"
)

// runnerFunc adapts a function to the vm.Runner interface.
type runnerFunc func(ctx context.Context, cmd process.Command, pred process.Predicate, timeout time.Duration) (process.Status, error)

func (f runnerFunc) Run(ctx context.Context, cmd process.Command, pred process.Predicate, timeout time.Duration) (process.Status, error) {
	return f(ctx, cmd, pred, timeout)
}

// harness runs corral commands against a private state database.
type harness struct {
	t      *testing.T
	db     string
	runner runnerFunc
	calls  []string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))

	h := &harness{t: t, db: filepath.Join(dir, "state.db")}
	// Exit 0 everywhere unless a test says otherwise.
	h.runner = func(ctx context.Context, cmd process.Command, pred process.Predicate, timeout time.Duration) (process.Status, error) {
		code := 0
		return pred("", &code), nil
	}
	return h
}

func (h *harness) run(args ...string) (string, error) {
	h.t.Helper()
	a := newApp()
	a.runner = runnerFunc(func(ctx context.Context, cmd process.Command, pred process.Predicate, timeout time.Duration) (process.Status, error) {
		h.calls = append(h.calls, cmd.String())
		return h.runner(ctx, cmd, pred, timeout)
	})

	root := a.rootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--state-db", h.db}, args...))

	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	out, err := h.run(args...)
	if err != nil {
		h.t.Fatalf("corral %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

func TestLifecycle(t *testing.T) {
	h := newHarness(t)
	box := t.TempDir()

	out := h.mustRun("register", "--name", "web", "--dir", box)
	if !strings.Contains(out, "Registered web (Stopped)") {
		t.Errorf("register output = %q", out)
	}

	h.mustRun("up", "web")
	out = h.mustRun("get", "web", "--no-headers")
	if fields := strings.Fields(out); len(fields) < 4 || fields[1] != "Running" || fields[2] != "True" || fields[3] != "SUCCESS" {
		t.Errorf("get after up = %q", out)
	}

	// Already running: nothing runs.
	h.mustRun("up", "web")
	if len(h.calls) != 1 {
		t.Errorf("calls = %v, want only vagrant up", h.calls)
	}

	h.mustRun("halt", "web")
	h.mustRun("destroy", "web")

	out = h.mustRun("get", "web", "-o", "yaml")
	if !strings.Contains(out, "state: Destroyed") {
		t.Errorf("get yaml = %q", out)
	}

	if _, err := h.run("up", "web"); err == nil {
		t.Error("expected error starting a destroyed machine")
	}

	want := []string{"vagrant up", "vagrant halt", "vagrant destroy -f"}
	if strings.Join(h.calls, ",") != strings.Join(want, ",") {
		t.Errorf("calls = %v, want %v", h.calls, want)
	}

	h.mustRun("forget", "web")
	out = h.mustRun("list")
	if !strings.Contains(out, "No machines found") {
		t.Errorf("list after forget = %q", out)
	}
}

func TestUp_Failure(t *testing.T) {
	h := newHarness(t)
	h.runner = func(ctx context.Context, cmd process.Command, pred process.Predicate, timeout time.Duration) (process.Status, error) {
		return process.StatusTimeout, nil
	}

	h.mustRun("register", "--name", "web", "--dir", t.TempDir())
	out, err := h.run("up", "web")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(out, "TIMEOUT") {
		t.Errorf("expected machine summary with TIMEOUT, got %q", out)
	}

	out = h.mustRun("get", "web", "--no-headers")
	if fields := strings.Fields(out); len(fields) < 2 || fields[1] != "Stopped" {
		t.Errorf("state after timeout = %q", out)
	}
}

func TestUp_TimeoutFlag(t *testing.T) {
	h := newHarness(t)
	var got time.Duration
	h.runner = func(ctx context.Context, cmd process.Command, pred process.Predicate, timeout time.Duration) (process.Status, error) {
		got = timeout
		return process.StatusSuccess, nil
	}

	h.mustRun("register", "--name", "web", "--dir", t.TempDir(), "--timeout", "2m")
	h.mustRun("up", "web")
	if got != 2*time.Minute {
		t.Errorf("timeout from registration = %v, want 2m", got)
	}

	h.mustRun("halt", "web", "--timeout", "30s")
	if got != 30*time.Second {
		t.Errorf("timeout from flag = %v, want 30s", got)
	}
}

func TestRegister_Manifest(t *testing.T) {
	h := newHarness(t)
	dir := t.TempDir()
	manifest := filepath.Join(dir, "web.yaml")
	content := `apiVersion: corral.cofront.xyz/v1alpha1
kind: VagrantMachine
metadata:
  name: web
spec:
  workingDir: ./box
`
	if err := os.WriteFile(manifest, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	h.mustRun("register", manifest, "--state", "running")

	out := h.mustRun("list", "--no-headers")
	fields := strings.Fields(out)
	if len(fields) < 5 || fields[0] != "web" || fields[1] != "Running" || fields[4] != filepath.Join(dir, "box") {
		t.Errorf("list = %q", out)
	}

	if _, err := h.run("register", manifest); err == nil {
		t.Error("expected duplicate registration to fail")
	}
}

func TestRegister_InvalidInput(t *testing.T) {
	h := newHarness(t)

	tests := [][]string{
		{"register"},
		{"register", "--name", "web"},
		{"register", "--name", "web", "--dir", t.TempDir(), "--state", "paused"},
		{"register", "missing.yaml", "--name", "web"},
	}
	for _, args := range tests {
		if _, err := h.run(args...); err == nil {
			t.Errorf("corral %s: expected error", strings.Join(args, " "))
		}
	}
}

func TestGlobalFlags_Invalid(t *testing.T) {
	h := newHarness(t)

	if _, err := h.run("list", "-o", "xml"); err == nil {
		t.Error("expected error for invalid output format")
	}
	if _, err := h.run("list", "--log-level", "loud"); err == nil {
		t.Error("expected error for invalid log level")
	}
	if _, err := h.run("get", "ghost"); err == nil {
		t.Error("expected error for unknown machine")
	}
}

func TestUp_ZeroTimeoutDisablesDeadline(t *testing.T) {
	tests := []struct {
		name     string
		env      string
		register []string
		want     time.Duration
	}{
		{
			name: "global default",
			want: 15 * time.Minute,
		},
		{
			name: "global zero",
			env:  "0",
			want: 0,
		},
		{
			name:     "machine zero overrides global",
			register: []string{"--timeout", "0"},
			want:     0,
		},
		{
			name:     "machine timeout with global zero",
			env:      "0",
			register: []string{"--timeout", "45s"},
			want:     45 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			if tt.env != "" {
				t.Setenv("CORRAL_TIMEOUT_MILLIS", tt.env)
			}
			got := time.Duration(-1)
			h.runner = func(ctx context.Context, cmd process.Command, pred process.Predicate, timeout time.Duration) (process.Status, error) {
				got = timeout
				return process.StatusSuccess, nil
			}

			h.mustRun(append([]string{"register", "--name", "web", "--dir", t.TempDir()}, tt.register...)...)
			h.mustRun("up", "web")
			if got != tt.want {
				t.Errorf("timeout = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExport_RegisterRoundTrip(t *testing.T) {
	h := newHarness(t)
	box := t.TempDir()
	manifest := filepath.Join(t.TempDir(), "web.yaml")

	h.mustRun("register", "--name", "web", "--dir", box, "--timeout", "0")
	h.mustRun("up", "web")
	out := h.mustRun("export", "web", manifest)
	if !strings.Contains(out, "Exported web") {
		t.Errorf("export output = %q", out)
	}

	data, err := os.ReadFile(manifest)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"kind: VagrantMachine", "workingDir: " + box, "timeoutMillis: 0", "state: Running"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("manifest missing %q:\n%s", want, data)
		}
	}
	if strings.Contains(string(data), "lastProcessStatus") {
		t.Errorf("manifest kept operation history:\n%s", data)
	}

	h.mustRun("forget", "web")
	h.mustRun("register", manifest)
	out = h.mustRun("get", "web", "--no-headers")
	if fields := strings.Fields(out); len(fields) < 2 || fields[1] != "Running" {
		t.Errorf("get after re-register = %q", out)
	}

	if _, err := h.run("export", "ghost", manifest); err == nil {
		t.Error("expected error exporting an unknown machine")
	}
}
