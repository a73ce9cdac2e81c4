package ops

import "github.com/born-ml/vrbound/internal/tensor"

// ExpOp represents the exponential operation: y = exp(x).
//
// Backward: d(exp(x))/dx = exp(x) = y, so grad_x = grad_y * y.
type ExpOp struct{ base }

// NewExpOp creates a new ExpOp.
func NewExpOp(input, output *tensor.RawTensor) *ExpOp {
	return &ExpOp{base{inputs: []*tensor.RawTensor{input}, output: output}}
}

// Backward computes the input gradient for exp.
func (op *ExpOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.Mul(outputGrad, op.output)}
}

// LogOp represents the natural logarithm: y = log(x).
//
// Backward: grad_x = grad_y / x. Assumes x > 0; callers that may feed zeros
// add an epsilon before the log.
type LogOp struct{ base }

// NewLogOp creates a new LogOp.
func NewLogOp(input, output *tensor.RawTensor) *LogOp {
	return &LogOp{base{inputs: []*tensor.RawTensor{input}, output: output}}
}

// Backward computes the input gradient for log.
func (op *LogOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.Div(outputGrad, op.inputs[0])}
}

// TanhOp represents y = tanh(x).
//
// Backward: grad_x = grad_y * (1 - y²).
type TanhOp struct{ base }

// NewTanhOp creates a new TanhOp.
func NewTanhOp(input, output *tensor.RawTensor) *TanhOp {
	return &TanhOp{base{inputs: []*tensor.RawTensor{input}, output: output}}
}

// Backward computes the input gradient for tanh.
func (op *TanhOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	y := op.output
	return []*tensor.RawTensor{backend.Mul(outputGrad, oneMinus(backend.Mul(y, y), backend))}
}

// SigmoidOp represents y = 1 / (1 + exp(-x)).
//
// Backward: grad_x = grad_y * y * (1 - y).
type SigmoidOp struct{ base }

// NewSigmoidOp creates a new SigmoidOp.
func NewSigmoidOp(input, output *tensor.RawTensor) *SigmoidOp {
	return &SigmoidOp{base{inputs: []*tensor.RawTensor{input}, output: output}}
}

// Backward computes the input gradient for sigmoid.
func (op *SigmoidOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	y := op.output
	return []*tensor.RawTensor{backend.Mul(outputGrad, backend.Mul(y, oneMinus(y, backend)))}
}
