package enums

import "fmt"

// RunStatus describes the allowed values for the engine_runs status column.
type RunStatus string

const (
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

var validRunStatuses = []RunStatus{
	RunStatusCompleted,
	RunStatusFailed,
}

// IsValid reports whether the value matches the canonical run status enum.
func (r RunStatus) IsValid() bool {
	for _, candidate := range validRunStatuses {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRunStatus converts the raw string to RunStatus.
func ParseRunStatus(value string) (RunStatus, error) {
	for _, candidate := range validRunStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid run status %q", value)
}
