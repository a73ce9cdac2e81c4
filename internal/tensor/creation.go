package tensor

import (
	"fmt"
	"math/rand"
)

// Zeros creates a tensor filled with zeros.
func Zeros[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	var dummy T
	raw, err := NewRaw(shape, inferDataType(dummy), b.Device())
	if err != nil {
		panic(fmt.Sprintf("Zeros: %v", err))
	}
	return New[T](raw, b)
}

// ZerosLike creates a zero tensor with the shape of t.
func ZerosLike[T DType, B Backend](t *Tensor[T, B]) *Tensor[T, B] {
	return Zeros[T](t.Shape(), t.Backend())
}

// Ones creates a tensor filled with ones.
func Ones[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	return Full[T](shape, T(1), b)
}

// Full creates a tensor filled with value.
func Full[T DType, B Backend](shape Shape, value T, b B) *Tensor[T, B] {
	t := Zeros[T](shape, b)
	data := t.Data()
	for i := range data {
		data[i] = value
	}
	return t
}

// Randn creates a tensor with standard normal samples drawn from rng.
func Randn[T Float, B Backend](shape Shape, rng *rand.Rand, b B) *Tensor[T, B] {
	t := Zeros[T](shape, b)
	data := t.Data()
	for i := range data {
		data[i] = T(rng.NormFloat64())
	}
	return t
}

// RepeatRows replicates every row of a 2-D tensor k times in place order:
// row i of the input becomes rows i*k ... i*k+k-1 of the output. The result
// is a fresh leaf and does not carry gradients back to t.
func RepeatRows[T DType, B Backend](t *Tensor[T, B], k int) *Tensor[T, B] {
	shape := t.Shape()
	if len(shape) != 2 {
		panic(fmt.Sprintf("RepeatRows: expected 2D tensor, got shape %v", shape))
	}
	rows, cols := shape[0], shape[1]
	out := Zeros[T](Shape{rows * k, cols}, t.Backend())
	src, dst := t.Data(), out.Data()
	for i := 0; i < rows; i++ {
		row := src[i*cols : (i+1)*cols]
		for j := 0; j < k; j++ {
			copy(dst[(i*k+j)*cols:], row)
		}
	}
	return out
}
