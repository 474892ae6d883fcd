package output

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/jbweber/corral/api/v1alpha1"
)

// YAMLFormatter formats machines as YAML documents.
type YAMLFormatter struct{}

// FormatMachine formats a single machine as YAML.
func (f *YAMLFormatter) FormatMachine(m *v1alpha1.VagrantMachine) (string, error) {
	return f.FormatMachineList([]*v1alpha1.VagrantMachine{m})
}

// FormatMachineList formats machines as a YAML stream, one document per
// machine.
func (f *YAMLFormatter) FormatMachineList(ms []*v1alpha1.VagrantMachine) (string, error) {
	if len(ms) == 0 {
		return "", nil
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)

	for _, m := range ms {
		v1alpha1.SetDefaultAPIVersion(m)
		if err := enc.Encode(m); err != nil {
			return "", fmt.Errorf("failed to marshal machine %s to YAML: %w", m.Name, err)
		}
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("failed to finish YAML stream: %w", err)
	}
	return buf.String(), nil
}
