package preprocess

import "fmt"

// ConfigError indicates the fitted preprocessor artifact is missing,
// unreadable, or inconsistent with the compiled schema. It is raised
// once at startup, never per record.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ConfigError struct {
	Path  string
	cause error
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("preprocessor artifact unavailable at %s (run 'fraudctl fit' to create it)", e.Path)
	if e.cause != nil {
		msg = msg + ": " + e.cause.Error()
	}
	return msg
}

func (e *ConfigError) Unwrap() error { return e.cause }

// TransformError indicates a record value typed incompatibly with its
// declared numeric or categorical role.
type TransformError struct {
	Field string
	Value any
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("field %q: value %v (%T) cannot be coerced to schema", e.Field, e.Value, e.Value)
}
