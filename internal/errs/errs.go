// Package errs defines the error kinds reported by the census pipeline.
//
// Every fatal condition is one of four kinds:
//
//	ConfigurationError  rejected before any input is read
//	InputError          unreadable or unparseable input, unwritable output
//	EstimationError     not enough signal to produce a genome size
//	SearchAdapterError  the external homology search failed
//
// Callers match kinds with errors.As.
package errs

import "fmt"

// CensusError is implemented by every error kind in this package.
type CensusError interface {
	error
	IsCensusError()
}

// ConfigurationError reports an invalid or unsupported setting.
type ConfigurationError struct {
	Field  string
	Value  interface{}
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return "configuration: " + e.Reason
	}
	return fmt.Sprintf("configuration: invalid %s %v: %s", e.Field, e.Value, e.Reason)
}
func (e *ConfigurationError) IsCensusError() {}

// Configf builds a ConfigurationError for field.
func Configf(field string, value interface{}, format string, args ...interface{}) error {
	return &ConfigurationError{Field: field, Value: value, Reason: fmt.Sprintf(format, args...)}
}

// InputError reports a problem with an input or output file.
type InputError struct {
	Path string
	Err  error
}

func (e *InputError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("input: %v", e.Err)
	}
	return fmt.Sprintf("input %s: %v", e.Path, e.Err)
}
func (e *InputError) Unwrap() error  { return e.Err }
func (e *InputError) IsCensusError() {}

// Input wraps err as an InputError for path. A nil err stays nil.
func Input(path string, err error) error {
	if err == nil {
		return nil
	}
	return &InputError{Path: path, Err: err}
}

// EstimationError reports that no genome size can be computed.
type EstimationError struct {
	Reason string
}

func (e *EstimationError) Error() string {
	return "estimation: " + e.Reason
}
func (e *EstimationError) IsCensusError() {}

// Estimationf builds an EstimationError.
func Estimationf(format string, args ...interface{}) error {
	return &EstimationError{Reason: fmt.Sprintf(format, args...)}
}

// SearchAdapterError reports a failed or malformed homology search.
type SearchAdapterError struct {
	Op  string
	Err error
}

func (e *SearchAdapterError) Error() string {
	return fmt.Sprintf("search %s: %v", e.Op, e.Err)
}
func (e *SearchAdapterError) Unwrap() error  { return e.Err }
func (e *SearchAdapterError) IsCensusError() {}

// Search wraps err as a SearchAdapterError. A nil err stays nil.
func Search(op string, err error) error {
	if err == nil {
		return nil
	}
	return &SearchAdapterError{Op: op, Err: err}
}
