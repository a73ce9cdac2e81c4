package nn

import "github.com/born-ml/vrbound/internal/tensor"

// Parameter represents a trainable tensor.
//
//	weight := nn.NewParameter("encoder.0.weight", weightTensor)
//	grads := autodiff.Backward(loss, backend)
//	weight.SetGrad(grads[weight.Tensor().Raw()])
type Parameter[T tensor.Float, B tensor.Backend] struct {
	name   string
	tensor *tensor.Tensor[T, B]
	grad   *tensor.RawTensor // nil until the first backward pass
}

// NewParameter creates a new trainable parameter.
func NewParameter[T tensor.Float, B tensor.Backend](name string, t *tensor.Tensor[T, B]) *Parameter[T, B] {
	return &Parameter[T, B]{
		name:   name,
		tensor: t,
	}
}

// Name returns the parameter name.
func (p *Parameter[T, B]) Name() string {
	return p.name
}

// Tensor returns the parameter tensor.
func (p *Parameter[T, B]) Tensor() *tensor.Tensor[T, B] {
	return p.tensor
}

// Grad returns the gradient, or nil before a backward pass.
func (p *Parameter[T, B]) Grad() *tensor.Tensor[T, B] {
	if p.grad == nil {
		return nil
	}
	return tensor.New[T](p.grad, p.tensor.Backend())
}

// SetGrad sets the gradient tensor.
func (p *Parameter[T, B]) SetGrad(grad *tensor.RawTensor) {
	p.grad = grad
}

// ZeroGrad clears the gradient.
func (p *Parameter[T, B]) ZeroGrad() {
	p.grad = nil
}

// CollectGrads copies gradients from a Backward result onto params.
// Parameters that did not take part in the computation get a nil gradient.
// It returns the number of parameters that received a gradient.
func CollectGrads[T tensor.Float, B tensor.Backend](
	params []*Parameter[T, B],
	grads map[*tensor.RawTensor]*tensor.RawTensor,
) int {
	n := 0
	for _, p := range params {
		g, ok := grads[p.tensor.Raw()]
		if !ok {
			p.ZeroGrad()
			continue
		}
		p.SetGrad(g)
		n++
	}
	return n
}
