// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package renyi computes the variational Rényi bound for hierarchical VAEs.
//
// The bound consumes the samples and Gaussian parameters produced by an
// encoder together with a decoder whose units report tagged distribution
// parameters. With α = 1 it is the ELBO; otherwise it is reduced per
// observation with the full log-mean-exp, an importance-resampled entry or
// the maximum (VR-max).
package renyi

import (
	"github.com/born-ml/vrbound/internal/renyi"
	"github.com/born-ml/vrbound/tensor"
)

// Errors.
var (
	ErrShapeMismatch       = renyi.ErrShapeMismatch
	ErrUnsupportedStrategy = renyi.ErrUnsupportedStrategy
	ErrInvalidSampleCount  = renyi.ErrInvalidSampleCount
)

// Strategy selects the per-observation reduction.
type Strategy = renyi.Strategy

// Reduction strategies.
const (
	FullBound = renyi.FullBound
	Sample    = renyi.Sample
	Max       = renyi.Max
)

// ParseStrategy maps "full_bound", "sample" or "max" to a Strategy.
func ParseStrategy(name string) (Strategy, error) {
	return renyi.ParseStrategy(name)
}

// Config holds α, K, the strategy and the source for sample draws.
type Config = renyi.Config

// DefaultConfig returns α = 0.5, K = 5, FullBound and fresh randomness.
func DefaultConfig() Config {
	return renyi.DefaultConfig()
}

// Kind tags a decoder unit's distribution.
type Kind = renyi.Kind

// Distribution kinds.
const (
	Deterministic = renyi.Deterministic
	Gaussian      = renyi.Gaussian
	Bernoulli     = renyi.Bernoulli
)

// Params is a tagged distribution emitted by a decoder unit.
type Params[T tensor.Float, B tensor.Backend] = renyi.Params[T, B]

// Unit is one step of a decoder layer.
type Unit[T tensor.Float, B tensor.Backend] = renyi.Unit[T, B]

// Decoder exposes ordered decoder layers.
type Decoder[T tensor.Float, B tensor.Backend] = renyi.Decoder[T, B]

// GaussianParams tags a diagonal Gaussian.
func GaussianParams[T tensor.Float, B tensor.Backend](mean, logScale *tensor.Tensor[T, B]) Params[T, B] {
	return renyi.GaussianParams(mean, logScale)
}

// BernoulliParams tags independent Bernoulli dimensions.
func BernoulliParams[T tensor.Float, B tensor.Backend](theta *tensor.Tensor[T, B]) Params[T, B] {
	return renyi.BernoulliParams(theta)
}

// DeterministicParams tags a unit without a distribution.
func DeterministicParams[T tensor.Float, B tensor.Backend]() Params[T, B] {
	return renyi.DeterministicParams[T, B]()
}

// SampleCounter is implemented by encoders with a default K.
type SampleCounter = renyi.SampleCounter

// ResolveK returns k if positive, else the encoder's default.
func ResolveK(k int, encoder SampleCounter) int {
	return renyi.ResolveK(k, encoder)
}

// GaussianLogLikelihood returns per-row diagonal Gaussian log-densities.
func GaussianLogLikelihood[T tensor.Float, B tensor.Backend](sample, mean, logScale *tensor.Tensor[T, B]) (*tensor.Tensor[T, B], error) {
	return renyi.GaussianLogLikelihood(sample, mean, logScale)
}

// BernoulliLogLikelihood returns per-row Bernoulli log-probabilities.
func BernoulliLogLikelihood[T tensor.Float, B tensor.Backend](sample, theta *tensor.Tensor[T, B]) (*tensor.Tensor[T, B], error) {
	return renyi.BernoulliLogLikelihood(sample, theta)
}

// LogRatio returns the per-row log p/q ratio.
func LogRatio[T tensor.Float, B tensor.Backend](decoder Decoder[T, B], qSamples, qMu, qLogSigma []*tensor.Tensor[T, B]) (*tensor.Tensor[T, B], error) {
	return renyi.LogRatio(decoder, qSamples, qMu, qLogSigma)
}

// Reduce turns a per-row log ratio into the scalar bound.
func Reduce[T tensor.Float, B tensor.Backend](logRatio *tensor.Tensor[T, B], cfg Config) (*tensor.Tensor[T, B], error) {
	return renyi.Reduce(logRatio, cfg)
}

// VRBound computes the scalar VR bound.
func VRBound[T tensor.Float, B tensor.Backend](cfg Config, decoder Decoder[T, B], qSamples, qMu, qLogSigma []*tensor.Tensor[T, B]) (*tensor.Tensor[T, B], error) {
	return renyi.VRBound(cfg, decoder, qSamples, qMu, qLogSigma)
}
