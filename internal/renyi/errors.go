package renyi

import "errors"

// Errors returned by the bound. Callers match them with errors.Is; the
// returned errors wrap them with the offending shapes or values.
var (
	ErrShapeMismatch       = errors.New("shape mismatch")
	ErrUnsupportedStrategy = errors.New("unsupported strategy")
	ErrInvalidSampleCount  = errors.New("invalid importance sample count")
)
