// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides type-safe tensors whose operations are dispatched
// to a pluggable backend.
//
//	backend := cpu.New()
//	x := tensor.Zeros[float64](tensor.Shape{2, 3}, backend)
//	y := x.AddScalar(1).Log()
package tensor

import (
	"math/rand"

	"github.com/born-ml/vrbound/internal/tensor"
)

// DType constrains tensor element types.
type DType = tensor.DType

// Float constrains differentiable element types.
type Float = tensor.Float

// DataType is runtime dtype information.
type DataType = tensor.DataType

// Data types.
const (
	Float32 = tensor.Float32
	Float64 = tensor.Float64
	Int32   = tensor.Int32
)

// Device identifies a compute device.
type Device = tensor.Device

// CPU is the only device the bundled backend runs on.
const CPU = tensor.CPU

// Shape holds tensor dimensions.
type Shape = tensor.Shape

// RawTensor is the untyped tensor representation used by backends.
type RawTensor = tensor.RawTensor

// Backend is implemented by compute backends.
type Backend = tensor.Backend

// Tensor is a typed tensor bound to a backend.
type Tensor[T DType, B Backend] = tensor.Tensor[T, B]

// Zeros creates a zero tensor.
func Zeros[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	return tensor.Zeros[T](shape, b)
}

// Ones creates a tensor of ones.
func Ones[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	return tensor.Ones[T](shape, b)
}

// Full creates a tensor filled with value.
func Full[T DType, B Backend](shape Shape, value T, b B) *Tensor[T, B] {
	return tensor.Full(shape, value, b)
}

// Randn creates a tensor of standard normal samples drawn from rng.
func Randn[T Float, B Backend](shape Shape, rng *rand.Rand, b B) *Tensor[T, B] {
	return tensor.Randn[T](shape, rng, b)
}

// FromSlice copies data into a new tensor.
func FromSlice[T DType, B Backend](data []T, shape Shape, b B) (*Tensor[T, B], error) {
	return tensor.FromSlice(data, shape, b)
}

// RepeatRows replicates each row of a 2-D tensor k times.
func RepeatRows[T DType, B Backend](t *Tensor[T, B], k int) *Tensor[T, B] {
	return tensor.RepeatRows(t, k)
}
