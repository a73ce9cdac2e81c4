package nn

import "github.com/born-ml/vrbound/internal/tensor"

// Tanh applies the hyperbolic tangent element-wise.
type Tanh[T tensor.Float, B tensor.Backend] struct{}

// NewTanh creates a Tanh activation.
func NewTanh[T tensor.Float, B tensor.Backend]() *Tanh[T, B] {
	return &Tanh[T, B]{}
}

// Forward applies tanh.
func (a *Tanh[T, B]) Forward(input *tensor.Tensor[T, B]) *tensor.Tensor[T, B] {
	return input.Tanh()
}

// Parameters returns nil.
func (a *Tanh[T, B]) Parameters() []*Parameter[T, B] {
	return nil
}

// Sigmoid applies the logistic function element-wise.
type Sigmoid[T tensor.Float, B tensor.Backend] struct{}

// NewSigmoid creates a Sigmoid activation.
func NewSigmoid[T tensor.Float, B tensor.Backend]() *Sigmoid[T, B] {
	return &Sigmoid[T, B]{}
}

// Forward applies sigmoid.
func (a *Sigmoid[T, B]) Forward(input *tensor.Tensor[T, B]) *tensor.Tensor[T, B] {
	return input.Sigmoid()
}

// Parameters returns nil.
func (a *Sigmoid[T, B]) Parameters() []*Parameter[T, B] {
	return nil
}
