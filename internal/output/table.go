package output

import (
	"bytes"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/jbweber/corral/api/v1alpha1"
	"github.com/jbweber/corral/internal/status"
)

// TableFormatter formats machines as an aligned table.
type TableFormatter struct {
	// NoHeaders omits the header row.
	NoHeaders bool
	// Wide adds the UID and the last state change.
	Wide bool
}

// FormatMachine formats a single machine as a table row.
func (f *TableFormatter) FormatMachine(m *v1alpha1.VagrantMachine) (string, error) {
	return f.FormatMachineList([]*v1alpha1.VagrantMachine{m})
}

// FormatMachineList formats machines as a table.
func (f *TableFormatter) FormatMachineList(ms []*v1alpha1.VagrantMachine) (string, error) {
	if len(ms) == 0 {
		return "No machines found\n", nil
	}

	headers := []string{"NAME", "STATE", "READY", "LAST-STATUS", "WORKDIR", "AGE"}
	if f.Wide {
		headers = append(headers, "CHANGED", "UID")
	}

	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	if !f.NoHeaders {
		_, _ = fmt.Fprintln(w, strings.Join(headers, "\t"))
	}

	now := time.Now()
	for _, m := range ms {
		row := []string{
			m.Name,
			string(m.GetState()),
			ready(m),
			orDash(m.Status.LastProcessStatus),
			orDash(m.Spec.WorkingDir),
			since(now, m.CreationTimestamp),
		}
		if f.Wide {
			row = append(row, since(now, m.Status.LastTransitionTime), orDash(m.UID))
		}
		_, _ = fmt.Fprintln(w, strings.Join(row, "\t"))
	}

	_ = w.Flush()
	return buf.String(), nil
}

func ready(m *v1alpha1.VagrantMachine) string {
	c := status.GetCondition(m, v1alpha1.ConditionReady)
	if c == nil {
		return "-"
	}
	return string(c.Status)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func since(now time.Time, t v1alpha1.Time) string {
	if t.IsZero() {
		return "-"
	}
	return formatAge(now.Sub(t.Time))
}

// formatAge renders a duration in the largest whole unit: 5s, 2m, 3h, 4d,
// 2w, or 1y. Ages between eight weeks and a year stay in days.
func formatAge(d time.Duration) string {
	if d < 0 {
		return "unknown"
	}

	const (
		day  = 24 * time.Hour
		week = 7 * day
		year = 365 * day
	)

	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d/time.Second))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d/time.Minute))
	case d < day:
		return fmt.Sprintf("%dh", int(d/time.Hour))
	case d < week:
		return fmt.Sprintf("%dd", int(d/day))
	case d < 8*week:
		return fmt.Sprintf("%dw", int(d/week))
	case d < year:
		return fmt.Sprintf("%dd", int(d/day))
	default:
		return fmt.Sprintf("%dy", int(d/year))
	}
}
