package renyi

import "github.com/born-ml/vrbound/internal/tensor"

// Kind tags the distribution a decoder unit parameterises.
type Kind int

// Distribution kinds. Deterministic is the zero value, so a layer with no
// units contributes nothing to the bound.
const (
	Deterministic Kind = iota
	Gaussian
	Bernoulli
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case Deterministic:
		return "deterministic"
	case Gaussian:
		return "gaussian"
	case Bernoulli:
		return "bernoulli"
	default:
		return "unknown"
	}
}

// Params is the distribution emitted by a decoder unit.
type Params[T tensor.Float, B tensor.Backend] struct {
	Kind     Kind
	Mean     *tensor.Tensor[T, B] // Gaussian
	LogScale *tensor.Tensor[T, B] // Gaussian
	Theta    *tensor.Tensor[T, B] // Bernoulli
}

// GaussianParams tags a diagonal Gaussian with mean and log standard deviation.
func GaussianParams[T tensor.Float, B tensor.Backend](mean, logScale *tensor.Tensor[T, B]) Params[T, B] {
	return Params[T, B]{Kind: Gaussian, Mean: mean, LogScale: logScale}
}

// BernoulliParams tags independent Bernoulli dimensions with success probability theta.
func BernoulliParams[T tensor.Float, B tensor.Backend](theta *tensor.Tensor[T, B]) Params[T, B] {
	return Params[T, B]{Kind: Bernoulli, Theta: theta}
}

// DeterministicParams tags a unit without a distribution.
func DeterministicParams[T tensor.Float, B tensor.Backend]() Params[T, B] {
	return Params[T, B]{Kind: Deterministic}
}

// Unit is one step of a decoder layer.
type Unit[T tensor.Float, B tensor.Backend] interface {
	// Forward maps an activation to the next activation and the distribution
	// the unit parameterises.
	Forward(x *tensor.Tensor[T, B]) (*tensor.Tensor[T, B], Params[T, B])
}

// Decoder exposes the generative network as ordered layers of units, from
// the layer fed by the deepest latent to the layer that emits the data.
type Decoder[T tensor.Float, B tensor.Backend] interface {
	Layers() [][]Unit[T, B]
}

// SampleCounter is implemented by encoders that carry a default number of
// importance samples.
type SampleCounter interface {
	K() int
}

// ResolveK returns k when it is positive and the encoder's default otherwise.
func ResolveK(k int, encoder SampleCounter) int {
	if k > 0 {
		return k
	}
	return encoder.K()
}
