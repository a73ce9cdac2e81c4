package ops

import "github.com/born-ml/vrbound/internal/tensor"

// SumDimOp represents a sum along a dimension: y = sum(x, dim).
//
// Backward: every input element contributes 1 to its output, so grad_y is
// broadcast back over the reduced dimension.
type SumDimOp struct {
	base
	dim     int
	keepDim bool
}

// NewSumDimOp creates a new SumDimOp.
func NewSumDimOp(x, output *tensor.RawTensor, dim int, keepDim bool) *SumDimOp {
	return &SumDimOp{
		base:    base{inputs: []*tensor.RawTensor{x}, output: output},
		dim:     x.Shape().NormalizeDim(dim),
		keepDim: keepDim,
	}
}

// Backward broadcasts the output gradient to the input shape.
func (op *SumDimOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	x := op.inputs[0]
	grad := outputGrad
	if !op.keepDim {
		grad = backend.Reshape(grad, x.Shape().Reduced(op.dim, true))
	}
	return []*tensor.RawTensor{expandTo(grad, x.Shape(), backend)}
}

// MaxDimOp represents a maximum along a dimension: y = max(x, dim).
//
// Backward: the gradient is routed to the first position that attains the
// maximum; every other position gets zero.
type MaxDimOp struct {
	base
	dim     int
	keepDim bool
}

// NewMaxDimOp creates a new MaxDimOp.
func NewMaxDimOp(x, output *tensor.RawTensor, dim int, keepDim bool) *MaxDimOp {
	return &MaxDimOp{
		base:    base{inputs: []*tensor.RawTensor{x}, output: output},
		dim:     x.Shape().NormalizeDim(dim),
		keepDim: keepDim,
	}
}

// Backward routes the output gradient to the arg-max positions.
func (op *MaxDimOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	x := op.inputs[0]
	dtype := checkFloat("MaxDimOp", x, op.output, outputGrad)
	outer, size, inner := x.Shape().Split(op.dim)
	grad := tensor.MustNewRaw(x.Shape(), dtype, x.Device())

	switch dtype {
	case tensor.Float32:
		routeMax(grad.AsFloat32(), x.AsFloat32(), op.output.AsFloat32(), outputGrad.AsFloat32(), outer, size, inner)
	case tensor.Float64:
		routeMax(grad.AsFloat64(), x.AsFloat64(), op.output.AsFloat64(), outputGrad.AsFloat64(), outer, size, inner)
	}
	return []*tensor.RawTensor{grad}
}

func routeMax[T float32 | float64](grad, x, maxVals, outGrad []T, outer, size, inner int) {
	for o := 0; o < outer; o++ {
		for i := 0; i < inner; i++ {
			m := maxVals[o*inner+i]
			for k := 0; k < size; k++ {
				pos := (o*size+k)*inner + i
				if x[pos] == m {
					grad[pos] = outGrad[o*inner+i]
					break
				}
			}
		}
	}
}
