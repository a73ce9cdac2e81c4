package nn

import "github.com/born-ml/vrbound/internal/tensor"

// Sequential chains modules so that each output feeds the next module.
type Sequential[T tensor.Float, B tensor.Backend] struct {
	modules []Module[T, B]
}

// NewSequential creates a new Sequential container.
func NewSequential[T tensor.Float, B tensor.Backend](modules ...Module[T, B]) *Sequential[T, B] {
	return &Sequential[T, B]{
		modules: modules,
	}
}

// Forward applies all modules in order.
func (s *Sequential[T, B]) Forward(input *tensor.Tensor[T, B]) *tensor.Tensor[T, B] {
	output := input
	for _, module := range s.modules {
		output = module.Forward(output)
	}
	return output
}

// Parameters returns the parameters of every module in order.
func (s *Sequential[T, B]) Parameters() []*Parameter[T, B] {
	var params []*Parameter[T, B]
	for _, module := range s.modules {
		params = append(params, module.Parameters()...)
	}
	return params
}

// Len returns the number of modules.
func (s *Sequential[T, B]) Len() int {
	return len(s.modules)
}
