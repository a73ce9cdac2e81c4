// Package vae provides a reference hierarchical variational autoencoder
// whose decoder satisfies renyi.Decoder and whose encoder produces the
// samples and parameters the bound consumes.
package vae

import (
	"math/rand"

	"github.com/born-ml/vrbound/internal/nn"
	"github.com/born-ml/vrbound/internal/renyi"
	"github.com/born-ml/vrbound/internal/tensor"
)

// Unit is a decoder unit that also exposes its parameters.
type Unit[T tensor.Float, B tensor.Backend] interface {
	renyi.Unit[T, B]
	Parameters() []*nn.Parameter[T, B]
}

// DenseUnit is a deterministic Linear + Tanh step.
type DenseUnit[T tensor.Float, B tensor.Backend] struct {
	net *nn.Sequential[T, B]
}

// NewDenseUnit creates a DenseUnit mapping in features to out features.
func NewDenseUnit[T tensor.Float, B tensor.Backend](in, out int, rng *rand.Rand, backend B) *DenseUnit[T, B] {
	return &DenseUnit[T, B]{net: nn.NewSequential[T, B](
		nn.NewLinear[T](in, out, rng, backend),
		nn.NewTanh[T, B](),
	)}
}

// Forward applies tanh(x @ W.T + b).
func (u *DenseUnit[T, B]) Forward(x *tensor.Tensor[T, B]) (*tensor.Tensor[T, B], renyi.Params[T, B]) {
	return u.net.Forward(x), renyi.DeterministicParams[T, B]()
}

// Parameters returns the layer weights.
func (u *DenseUnit[T, B]) Parameters() []*nn.Parameter[T, B] {
	return u.net.Parameters()
}

// GaussianUnit emits a diagonal Gaussian from two linear heads.
// Its output activation is the mean.
type GaussianUnit[T tensor.Float, B tensor.Backend] struct {
	mean     *nn.Linear[T, B]
	logScale *nn.Linear[T, B]
}

// NewGaussianUnit creates a GaussianUnit with in inputs and out latent dims.
func NewGaussianUnit[T tensor.Float, B tensor.Backend](in, out int, rng *rand.Rand, backend B) *GaussianUnit[T, B] {
	return &GaussianUnit[T, B]{
		mean:     nn.NewLinear[T](in, out, rng, backend),
		logScale: nn.NewLinear[T](in, out, rng, backend),
	}
}

// Forward returns the mean and the Gaussian parameters.
func (u *GaussianUnit[T, B]) Forward(x *tensor.Tensor[T, B]) (*tensor.Tensor[T, B], renyi.Params[T, B]) {
	mean := u.mean.Forward(x)
	return mean, renyi.GaussianParams(mean, u.logScale.Forward(x))
}

// Parameters returns both heads' weights.
func (u *GaussianUnit[T, B]) Parameters() []*nn.Parameter[T, B] {
	return append(u.mean.Parameters(), u.logScale.Parameters()...)
}

// BernoulliUnit emits per-dimension success probabilities via a sigmoid.
type BernoulliUnit[T tensor.Float, B tensor.Backend] struct {
	net *nn.Sequential[T, B]
}

// NewBernoulliUnit creates a BernoulliUnit with in inputs and out data dims.
func NewBernoulliUnit[T tensor.Float, B tensor.Backend](in, out int, rng *rand.Rand, backend B) *BernoulliUnit[T, B] {
	return &BernoulliUnit[T, B]{net: nn.NewSequential[T, B](
		nn.NewLinear[T](in, out, rng, backend),
		nn.NewSigmoid[T, B](),
	)}
}

// Forward returns θ = sigmoid(x @ W.T + b) and its Bernoulli parameters.
func (u *BernoulliUnit[T, B]) Forward(x *tensor.Tensor[T, B]) (*tensor.Tensor[T, B], renyi.Params[T, B]) {
	theta := u.net.Forward(x)
	return theta, renyi.BernoulliParams(theta)
}

// Parameters returns the logit layer weights.
func (u *BernoulliUnit[T, B]) Parameters() []*nn.Parameter[T, B] {
	return u.net.Parameters()
}
