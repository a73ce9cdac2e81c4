// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package autodiff provides reverse-mode automatic differentiation by
// wrapping any backend with a gradient tape.
//
//	backend := autodiff.New(cpu.New())
//	backend.Tape().StartRecording()
//	bound, _ := renyi.VRBound(cfg, decoder, samples, mus, logSigmas)
//	grads := autodiff.Backward(bound, backend)
package autodiff

import (
	"github.com/born-ml/vrbound/internal/autodiff"
	"github.com/born-ml/vrbound/tensor"
)

// Backend is the autodiff-enabled backend.
type Backend[B tensor.Backend] = autodiff.AutodiffBackend[B]

// New creates a new autodiff backend wrapping the given backend.
func New[B tensor.Backend](backend B) *Backend[B] {
	return autodiff.New(backend)
}

// GradientTape records operations for automatic differentiation.
type GradientTape = autodiff.GradientTape

// BackwardCapable is implemented by backends that own a tape.
type BackwardCapable = autodiff.BackwardCapable

// Backward computes gradients of t with respect to every recorded input.
func Backward[T tensor.Float, B BackwardCapable](t *tensor.Tensor[T, B], backend B) map[*tensor.RawTensor]*tensor.RawTensor {
	return autodiff.Backward(t, backend)
}

// GradOf looks up the gradient of x in a Backward result.
func GradOf[T tensor.Float, B tensor.Backend](grads map[*tensor.RawTensor]*tensor.RawTensor, x *tensor.Tensor[T, B]) (*tensor.Tensor[T, B], error) {
	return autodiff.GradOf(grads, x)
}
