package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

// Error implements the error interface for ValidationError.
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:\n", len(e))
	for i, err := range e {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

// ValidLogLevels returns the accepted log.level values.
func ValidLogLevels() []string {
	return []string{"trace", "debug", "info", "warn", "error"}
}

// ValidLogFormats returns the accepted log.format values.
func ValidLogFormats() []string {
	return []string{"text", "json"}
}

// Validate checks the Config and returns every problem found.
func (c *Config) Validate() []ValidationError {
	var errs []ValidationError

	if strings.TrimSpace(c.Vagrant.Binary) == "" {
		errs = append(errs, ValidationError{
			Field:   "vagrant.binary",
			Value:   c.Vagrant.Binary,
			Message: "must not be empty",
		})
	}
	if strings.TrimSpace(c.StateDB) == "" {
		errs = append(errs, ValidationError{
			Field:   "state_db",
			Value:   c.StateDB,
			Message: "must not be empty",
		})
	}
	if !slices.Contains(ValidLogLevels(), c.Log.Level) {
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Value:   c.Log.Level,
			Message: fmt.Sprintf("must be one of %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}
	if !slices.Contains(ValidLogFormats(), c.Log.Format) {
		errs = append(errs, ValidationError{
			Field:   "log.format",
			Value:   c.Log.Format,
			Message: fmt.Sprintf("must be one of %s", strings.Join(ValidLogFormats(), ", ")),
		})
	}

	return errs
}
