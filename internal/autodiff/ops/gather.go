package ops

import "github.com/born-ml/vrbound/internal/tensor"

// GatherOp represents out = x.gather(dim, index).
//
// Backward: the output gradient is scatter-added into a zero tensor shaped
// like x at the gathered positions. The index itself is not differentiable
// and is not listed among the inputs.
type GatherOp struct {
	base
	dim   int
	index *tensor.RawTensor
}

// NewGatherOp creates a new GatherOp.
func NewGatherOp(x, index, output *tensor.RawTensor, dim int) *GatherOp {
	return &GatherOp{
		base:  base{inputs: []*tensor.RawTensor{x}, output: output},
		dim:   x.Shape().NormalizeDim(dim),
		index: index,
	}
}

// Backward scatter-adds the output gradient.
func (op *GatherOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	x := op.inputs[0]
	dtype := checkFloat("GatherOp", x, outputGrad)
	outer, size, inner := x.Shape().Split(op.dim)
	m := op.index.Shape()[op.dim]
	grad := tensor.MustNewRaw(x.Shape(), dtype, x.Device())
	idx := op.index.AsInt32()

	switch dtype {
	case tensor.Float32:
		scatterAdd(grad.AsFloat32(), outputGrad.AsFloat32(), idx, outer, size, m, inner)
	case tensor.Float64:
		scatterAdd(grad.AsFloat64(), outputGrad.AsFloat64(), idx, outer, size, m, inner)
	}
	return []*tensor.RawTensor{grad}
}

func scatterAdd[T float32 | float64](dst, src []T, idx []int32, outer, size, m, inner int) {
	for o := 0; o < outer; o++ {
		for j := 0; j < m; j++ {
			for i := 0; i < inner; i++ {
				pos := (o*m+j)*inner + i
				dst[(o*size+int(idx[pos]))*inner+i] += src[pos]
			}
		}
	}
}
