package actorcritic

import "fmt"

// ConfigError describes an invalid hyperparameter discovered when
// constructing an algorithm. Configuration errors indicate caller
// misuse and are never retried.
type ConfigError struct {
	Field  string
	Value  interface{}
	Reason string
}

// Error satisfies the error interface
func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: invalid %v (%v): %v", e.Field, e.Value,
		e.Reason)
}

// IsConfigError returns whether or not an error reports an invalid
// hyperparameter.
func IsConfigError(err error) bool {
	_, ok := err.(*ConfigError)
	return ok
}

// ShapeError describes inputs whose dimensions do not match what the
// algorithm was constructed with. Like a ConfigError, it indicates
// caller misuse; model parameters from prior successful updates are
// left intact.
type ShapeError struct {
	Op   string
	Want int
	Have int
}

// Error satisfies the error interface
func (e *ShapeError) Error() string {
	return fmt.Sprintf("%v: dimension mismatch \n\twant(%v)\n\thave(%v)",
		e.Op, e.Want, e.Have)
}

// IsShapeMismatch returns whether or not an error reports mismatched
// input dimensions.
func IsShapeMismatch(err error) bool {
	_, ok := err.(*ShapeError)
	return ok
}

// NumericError describes a numerical instability: a probability
// distribution that fails to normalize, contains negative entries, or
// is otherwise unusable for sampling.
type NumericError struct {
	Op     string
	Reason string
}

// Error satisfies the error interface
func (e *NumericError) Error() string {
	return e.Op + ": " + e.Reason
}

// IsNumericError returns whether or not an error reports a numerical
// instability.
func IsNumericError(err error) bool {
	_, ok := err.(*NumericError)
	return ok
}
