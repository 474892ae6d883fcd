package output

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/jbweber/corral/api/v1alpha1"
)

// JSONFormatter formats machines as indented JSON.
type JSONFormatter struct{}

// machineList mirrors the Kubernetes List envelope.
type machineList struct {
	APIVersion string                     `json:"apiVersion"`
	Kind       string                     `json:"kind"`
	Items      []*v1alpha1.VagrantMachine `json:"items"`
}

// FormatMachine formats a single machine as JSON.
func (f *JSONFormatter) FormatMachine(m *v1alpha1.VagrantMachine) (string, error) {
	v1alpha1.SetDefaultAPIVersion(m)
	return encode(m)
}

// FormatMachineList formats machines as a VagrantMachineList object.
func (f *JSONFormatter) FormatMachineList(ms []*v1alpha1.VagrantMachine) (string, error) {
	items := make([]*v1alpha1.VagrantMachine, 0, len(ms))
	for _, m := range ms {
		v1alpha1.SetDefaultAPIVersion(m)
		items = append(items, m)
	}

	return encode(machineList{
		APIVersion: v1alpha1.GroupName + "/" + v1alpha1.Version,
		Kind:       v1alpha1.VagrantMachineKind + "List",
		Items:      items,
	})
}

func encode(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return buf.String(), nil
}
