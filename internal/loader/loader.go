// Package loader provides functions for loading VagrantMachine resources
// from YAML files.
package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/containerd/errdefs"
	"gopkg.in/yaml.v3"

	"github.com/jbweber/corral/api/v1alpha1"
)

var namePattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9_-]*[a-z0-9])?$`)

// LoadFromFile loads a VagrantMachine resource from a YAML file.
// A relative spec.workingDir is resolved against the file's directory.
func LoadFromFile(path string) (*v1alpha1.VagrantMachine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}

	return load(data, filepath.Dir(path))
}

// LoadFromYAML loads a VagrantMachine resource from YAML bytes.
// A relative spec.workingDir is resolved against the current directory.
func LoadFromYAML(data []byte) (*v1alpha1.VagrantMachine, error) {
	return load(data, "")
}

func load(data []byte, baseDir string) (*v1alpha1.VagrantMachine, error) {
	var m v1alpha1.VagrantMachine
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %v: %w", err, errdefs.ErrInvalidArgument)
	}

	if m.APIVersion == "" {
		return nil, fmt.Errorf("missing required field: apiVersion: %w", errdefs.ErrInvalidArgument)
	}
	if m.Kind == "" {
		return nil, fmt.Errorf("missing required field: kind: %w", errdefs.ErrInvalidArgument)
	}

	expectedAPIVersion := v1alpha1.GroupName + "/" + v1alpha1.Version
	if m.APIVersion != expectedAPIVersion {
		return nil, fmt.Errorf("unsupported apiVersion: %s (expected: %s): %w", m.APIVersion, expectedAPIVersion, errdefs.ErrInvalidArgument)
	}
	if m.Kind != v1alpha1.VagrantMachineKind {
		return nil, fmt.Errorf("unsupported kind: %s (expected: %s): %w", m.Kind, v1alpha1.VagrantMachineKind, errdefs.ErrInvalidArgument)
	}

	if err := applyDefaults(&m, baseDir); err != nil {
		return nil, err
	}

	if err := validateSpec(&m); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return &m, nil
}

// SaveToFile saves a VagrantMachine resource to a YAML file.
func SaveToFile(m *v1alpha1.VagrantMachine, path string) error {
	v1alpha1.SetDefaultAPIVersion(m)

	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal machine to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write file %s: %w", path, err)
	}

	return nil
}

// applyDefaults normalizes user input and resolves the working directory.
func applyDefaults(m *v1alpha1.VagrantMachine, baseDir string) error {
	m.Normalize()

	if m.Status.State != "" {
		m.Status.State = v1alpha1.ParseRunState(string(m.Status.State))
	}

	dir := m.Spec.WorkingDir
	if dir == "" {
		return nil
	}
	if strings.HasPrefix(dir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to resolve home directory: %w", err)
		}
		dir = filepath.Join(home, dir[2:])
	}
	if !filepath.IsAbs(dir) && baseDir != "" {
		dir = filepath.Join(baseDir, dir)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("failed to resolve spec.workingDir %q: %w", m.Spec.WorkingDir, err)
	}
	m.Spec.WorkingDir = abs
	return nil
}

// validateSpec validates required fields and consistency.
func validateSpec(m *v1alpha1.VagrantMachine) error {
	if m.Name == "" {
		return fmt.Errorf("metadata.name is required: %w", errdefs.ErrInvalidArgument)
	}
	if !namePattern.MatchString(m.Name) {
		return fmt.Errorf("metadata.name must start and end with alphanumeric characters and contain only alphanumeric, hyphens, or underscores, got %q: %w", m.Name, errdefs.ErrInvalidArgument)
	}

	if m.Spec.WorkingDir == "" {
		return fmt.Errorf("spec.workingDir is required: %w", errdefs.ErrInvalidArgument)
	}

	if m.Status.State == v1alpha1.RunStateUnknown {
		return fmt.Errorf("status.state must be one of Stopped, Running, Destroyed: %w", errdefs.ErrInvalidArgument)
	}

	return nil
}
