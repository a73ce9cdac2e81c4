package ops

import (
	"fmt"

	"github.com/born-ml/vrbound/internal/tensor"
)

// reduceBroadcast sums grad over the dimensions that broadcasting expanded,
// returning a gradient with the given shape.
//
//	grad [3, 5], shape [1, 5] → sum over dim 0 (keepDim)
//	grad [3, 5], shape [5]    → sum over leading dim 0
func reduceBroadcast(grad *tensor.RawTensor, shape tensor.Shape, backend tensor.Backend) *tensor.RawTensor {
	if grad.Shape().Equal(shape) {
		return grad
	}

	out := grad
	for len(out.Shape()) > len(shape) {
		out = backend.SumDim(out, 0, false)
	}
	for d, size := range shape {
		if size == 1 && out.Shape()[d] != 1 {
			out = backend.SumDim(out, d, true)
		}
	}
	return backend.Reshape(out, shape)
}

// expandTo broadcasts grad to shape.
func expandTo(grad *tensor.RawTensor, shape tensor.Shape, backend tensor.Backend) *tensor.RawTensor {
	if grad.Shape().Equal(shape) {
		return grad
	}
	zeros := tensor.MustNewRaw(shape, grad.DType(), grad.Device())
	return backend.Add(zeros, grad)
}

// oneMinus returns 1 - x.
func oneMinus(x *tensor.RawTensor, backend tensor.Backend) *tensor.RawTensor {
	return backend.AddScalar(backend.MulScalar(x, -1), 1)
}

// checkFloat panics unless every tensor has the same floating-point dtype.
func checkFloat(name string, ts ...*tensor.RawTensor) tensor.DataType {
	dtype := ts[0].DType()
	if dtype != tensor.Float32 && dtype != tensor.Float64 {
		panic(fmt.Sprintf("%s: backward only supports float32 and float64, got %s", name, dtype))
	}
	for _, t := range ts[1:] {
		if t.DType() != dtype {
			panic(fmt.Sprintf("%s: dtype mismatch %s vs %s", name, dtype, t.DType()))
		}
	}
	return dtype
}
