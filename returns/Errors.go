package returns

import "fmt"

// ShapeError describes sequences of mismatched length passed across a
// component boundary. It indicates caller misuse rather than a
// recoverable runtime condition.
type ShapeError struct {
	Op   string
	Want int
	Have int
}

// Error satisfies the error interface
func (e *ShapeError) Error() string {
	return fmt.Sprintf("%v: sequence length mismatch \n\twant(%v)"+
		"\n\thave(%v)", e.Op, e.Want, e.Have)
}

// IsShapeMismatch returns whether or not an error reports that two
// sequences passed across a component boundary differ in length.
func IsShapeMismatch(err error) bool {
	_, ok := err.(*ShapeError)
	return ok
}
