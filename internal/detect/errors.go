package detect

import "fmt"

// The engine distinguishes three failure classes. A DataAccessError or
// FormatError fails the detector run it occurred in; sibling detectors
// are unaffected. A ConfigurationError is surfaced at construction or
// lookup time and indicates an operator mistake, never bad input data.

// DataAccessError wraps a case store failure during a detector's read phase.
type DataAccessError struct {
	Op  string
	Err error
}

func (e *DataAccessError) Error() string {
	return fmt.Sprintf("data access failed during %s: %v", e.Op, e.Err)
}

func (e *DataAccessError) Unwrap() error { return e.Err }

// ConfigurationError reports invalid or missing detection configuration.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid detection config %s: %s", e.Field, e.Reason)
}

// FormatError reports a detection result that cannot be rendered into
// an alert. The whole batch is dropped rather than writing a malformed
// alert row.
type FormatError struct {
	AlertType string
	Reason    string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("cannot format %s alert: %s", e.AlertType, e.Reason)
}
