package cpu

import (
	"fmt"

	"github.com/born-ml/vrbound/internal/tensor"
)

// Gather selects elements from x along dim using an int32 index tensor.
// The index must have x's rank and match x in every dimension except dim;
// the result takes the index's shape.
//
//	out[o, j, i] = x[o, index[o, j, i], i]
func (cpu *CPUBackend) Gather(x *tensor.RawTensor, dim int, index *tensor.RawTensor) *tensor.RawTensor {
	xShape, idxShape := x.Shape(), index.Shape()
	dim = xShape.NormalizeDim(dim)
	if index.DType() != tensor.Int32 {
		panic(fmt.Sprintf("gather: index must be int32, got %s", index.DType()))
	}
	if len(idxShape) != len(xShape) {
		panic(fmt.Sprintf("gather: index rank %d != input rank %d", len(idxShape), len(xShape)))
	}
	for i := range xShape {
		if i != dim && xShape[i] != idxShape[i] {
			panic(fmt.Sprintf("gather: index shape %v incompatible with input %v at dim %d", idxShape, xShape, i))
		}
	}

	outer, size, inner := xShape.Split(dim)
	m := idxShape[dim]
	result := tensor.MustNewRaw(idxShape, x.DType(), cpu.device)
	idx := index.AsInt32()

	switch x.DType() {
	case tensor.Float32:
		gatherKernel(result.AsFloat32(), x.AsFloat32(), idx, outer, size, m, inner)
	case tensor.Float64:
		gatherKernel(result.AsFloat64(), x.AsFloat64(), idx, outer, size, m, inner)
	default:
		panic(fmt.Sprintf("gather: unsupported dtype %s", x.DType()))
	}
	return result
}

func gatherKernel[T float32 | float64](dst, src []T, idx []int32, outer, size, m, inner int) {
	for o := 0; o < outer; o++ {
		for j := 0; j < m; j++ {
			for i := 0; i < inner; i++ {
				pos := (o*m+j)*inner + i
				k := int(idx[pos])
				if k < 0 || k >= size {
					panic(fmt.Sprintf("gather: index %d out of range [0, %d)", k, size))
				}
				dst[pos] = src[(o*size+k)*inner+i]
			}
		}
	}
}
