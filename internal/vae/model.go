package vae

import (
	"fmt"
	"math/rand"

	"github.com/born-ml/vrbound/internal/nn"
	"github.com/born-ml/vrbound/internal/renyi"
	"github.com/born-ml/vrbound/internal/tensor"
)

// Architecture describes a hierarchical VAE.
type Architecture struct {
	DataDim    int   // width of the binary observations
	HiddenDim  int   // width of every deterministic unit
	LatentDims []int // stochastic layer widths, shallow to deep
	K          int   // default importance samples per observation
}

// Validate checks that every width is positive.
func (a Architecture) Validate() error {
	if a.DataDim <= 0 || a.HiddenDim <= 0 {
		return fmt.Errorf("architecture: data and hidden widths must be positive, got %d and %d", a.DataDim, a.HiddenDim)
	}
	if len(a.LatentDims) == 0 {
		return fmt.Errorf("architecture: at least one latent layer required")
	}
	for i, d := range a.LatentDims {
		if d <= 0 {
			return fmt.Errorf("architecture: latent layer %d has width %d", i, d)
		}
	}
	if a.K <= 0 {
		return fmt.Errorf("architecture: K must be positive, got %d", a.K)
	}
	return nil
}

// Encoder maps data to latent samples through reparameterised Gaussian
// layers.
type Encoder[T tensor.Float, B tensor.Backend] struct {
	k      int
	layers [][]Unit[T, B] // each ends in a GaussianUnit
}

// K returns the default number of importance samples.
func (e *Encoder[T, B]) K() int {
	return e.k
}

// Forward replicates every row of x k times and samples each stochastic
// layer with h = μ + exp(logσ)·ε, ε ~ N(0, I) drawn from rng.
//
// It returns the samples (replicated data first, deepest latent last) with
// the means and log-scales that produced samples[1:].
func (e *Encoder[T, B]) Forward(x *tensor.Tensor[T, B], k int, rng *rand.Rand) (
	samples, mus, logSigmas []*tensor.Tensor[T, B],
	err error,
) {
	if len(x.Shape()) != 2 {
		return nil, nil, nil, fmt.Errorf("encoder: expected [batch, features], got %v", x.Shape())
	}
	if k <= 0 {
		return nil, nil, nil, fmt.Errorf("encoder: k=%d: %w", k, renyi.ErrInvalidSampleCount)
	}

	h := tensor.RepeatRows(x, k)
	samples = append(samples, h)
	for _, layer := range e.layers {
		out := h
		var params renyi.Params[T, B]
		for _, unit := range layer {
			out, params = unit.Forward(out)
		}
		if params.Kind != renyi.Gaussian {
			return nil, nil, nil, fmt.Errorf("encoder: layer ends in %s unit, want gaussian", params.Kind)
		}

		eps := tensor.Randn[T](params.Mean.Shape(), rng, x.Backend())
		h = params.Mean.Add(params.LogScale.Exp().Mul(eps))

		samples = append(samples, h)
		mus = append(mus, params.Mean)
		logSigmas = append(logSigmas, params.LogScale)
	}
	return samples, mus, logSigmas, nil
}

// Parameters returns every encoder parameter.
func (e *Encoder[T, B]) Parameters() []*nn.Parameter[T, B] {
	return collect(e.layers)
}

// Decoder maps the deepest latent back to data. It implements renyi.Decoder.
type Decoder[T tensor.Float, B tensor.Backend] struct {
	layers [][]Unit[T, B] // deepest latent first, data layer last
}

// Layers returns the decoder layers as renyi units.
func (d *Decoder[T, B]) Layers() [][]renyi.Unit[T, B] {
	out := make([][]renyi.Unit[T, B], len(d.layers))
	for i, layer := range d.layers {
		out[i] = make([]renyi.Unit[T, B], len(layer))
		for j, u := range layer {
			out[i][j] = u
		}
	}
	return out
}

// Parameters returns every decoder parameter.
func (d *Decoder[T, B]) Parameters() []*nn.Parameter[T, B] {
	return collect(d.layers)
}

// Model pairs an encoder and a decoder.
type Model[T tensor.Float, B tensor.Backend] struct {
	Arch    Architecture
	Encoder *Encoder[T, B]
	Decoder *Decoder[T, B]
}

// New builds a model with weights drawn from rng.
//
// Encoder layer i maps width w_i to latent i (w_0 = DataDim) through a
// DenseUnit and a GaussianUnit. Decoder layers mirror it: every layer but
// the last ends in a GaussianUnit over the next shallower latent, the last
// ends in a BernoulliUnit over the data.
func New[T tensor.Float, B tensor.Backend](arch Architecture, rng *rand.Rand, backend B) (*Model[T, B], error) {
	if err := arch.Validate(); err != nil {
		return nil, err
	}

	widths := append([]int{arch.DataDim}, arch.LatentDims...)
	depth := len(arch.LatentDims)

	enc := &Encoder[T, B]{k: arch.K}
	for i := 0; i < depth; i++ {
		enc.layers = append(enc.layers, []Unit[T, B]{
			NewDenseUnit[T](widths[i], arch.HiddenDim, rng, backend),
			NewGaussianUnit[T](arch.HiddenDim, widths[i+1], rng, backend),
		})
	}

	dec := &Decoder[T, B]{}
	for i := depth; i > 0; i-- {
		var head Unit[T, B]
		if i == 1 {
			head = NewBernoulliUnit[T](arch.HiddenDim, widths[0], rng, backend)
		} else {
			head = NewGaussianUnit[T](arch.HiddenDim, widths[i-1], rng, backend)
		}
		dec.layers = append(dec.layers, []Unit[T, B]{
			NewDenseUnit[T](widths[i], arch.HiddenDim, rng, backend),
			head,
		})
	}

	return &Model[T, B]{Arch: arch, Encoder: enc, Decoder: dec}, nil
}

// Bound encodes x and evaluates the VR bound. A non-positive cfg.K falls
// back to the encoder default.
func (m *Model[T, B]) Bound(cfg renyi.Config, x *tensor.Tensor[T, B], rng *rand.Rand) (*tensor.Tensor[T, B], error) {
	cfg.K = renyi.ResolveK(cfg.K, m.Encoder)

	samples, mus, logSigmas, err := m.Encoder.Forward(x, cfg.K, rng)
	if err != nil {
		return nil, err
	}
	return renyi.VRBound(cfg, renyi.Decoder[T, B](m.Decoder), samples, mus, logSigmas)
}

// Parameters returns encoder then decoder parameters.
func (m *Model[T, B]) Parameters() []*nn.Parameter[T, B] {
	return append(m.Encoder.Parameters(), m.Decoder.Parameters()...)
}

func collect[T tensor.Float, B tensor.Backend](layers [][]Unit[T, B]) []*nn.Parameter[T, B] {
	var params []*nn.Parameter[T, B]
	for _, layer := range layers {
		for _, u := range layer {
			params = append(params, u.Parameters()...)
		}
	}
	return params
}
