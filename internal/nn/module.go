// Package nn implements the neural network building blocks used by the
// reference VAE: trainable parameters, dense layers, activations and a
// sequential container.
package nn

import "github.com/born-ml/vrbound/internal/tensor"

// Module is the base interface for all neural network components.
//
//	mlp := nn.NewSequential[float64, *cpu.CPUBackend](
//	    nn.NewLinear[float64](784, 128, rng, backend),
//	    nn.NewTanh[float64, *cpu.CPUBackend](),
//	)
type Module[T tensor.Float, B tensor.Backend] interface {
	// Forward computes the output of the module given an input tensor.
	Forward(input *tensor.Tensor[T, B]) *tensor.Tensor[T, B]

	// Parameters returns all trainable parameters of this module, including
	// those of nested modules. Activations return nil.
	Parameters() []*Parameter[T, B]
}
