package cpu

import (
	"fmt"
	"math"

	"github.com/born-ml/vrbound/internal/tensor"
)

// SumDim sums along dim.
//
//	x: [[1, 2, 3], [4, 5, 6]]
//	SumDim(x, 1, false) → [6, 15]
//	SumDim(x, 1, true)  → [[6], [15]]
func (cpu *CPUBackend) SumDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	return cpu.reduce("sum_dim", x, dim, keepDim, 0, func(acc, v float64) float64 { return acc + v })
}

// MaxDim takes the maximum along dim. NaN propagates.
func (cpu *CPUBackend) MaxDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	return cpu.reduce("max_dim", x, dim, keepDim, math.Inf(-1), math.Max)
}

func (cpu *CPUBackend) reduce(
	name string,
	x *tensor.RawTensor,
	dim int,
	keepDim bool,
	init float64,
	combine func(acc, v float64) float64,
) *tensor.RawTensor {
	shape := x.Shape()
	dim = shape.NormalizeDim(dim)
	outer, size, inner := shape.Split(dim)

	result := tensor.MustNewRaw(shape.Reduced(dim, keepDim), x.DType(), cpu.device)

	switch x.DType() {
	case tensor.Float32:
		reduceKernel(result.AsFloat32(), x.AsFloat32(), outer, size, inner, init, combine)
	case tensor.Float64:
		reduceKernel(result.AsFloat64(), x.AsFloat64(), outer, size, inner, init, combine)
	default:
		panic(fmt.Sprintf("%s: unsupported dtype %s", name, x.DType()))
	}
	return result
}

func reduceKernel[T float32 | float64](dst, src []T, outer, size, inner int, init float64, combine func(acc, v float64) float64) {
	for o := 0; o < outer; o++ {
		for i := 0; i < inner; i++ {
			acc := init
			for k := 0; k < size; k++ {
				acc = combine(acc, float64(src[(o*size+k)*inner+i]))
			}
			dst[o*inner+i] = T(acc)
		}
	}
}
