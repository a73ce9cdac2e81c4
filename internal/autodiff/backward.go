package autodiff

import (
	"fmt"

	"github.com/born-ml/vrbound/internal/tensor"
)

// BackwardCapable is implemented by backends that own a gradient tape.
type BackwardCapable interface {
	tensor.Backend
	GetTape() *GradientTape
}

// GetTape returns the gradient tape (implements BackwardCapable).
func (b *AutodiffBackend[B]) GetTape() *GradientTape {
	return b.tape
}

// Backward computes gradients of t, seeded with ones, using the backend's
// tape. It returns a map from RawTensor to its gradient.
//
//	backend := autodiff.New(cpu.New())
//	backend.Tape().StartRecording()
//	loss := model.Loss(batch)
//	grads := autodiff.Backward(loss, backend)
//	g := grads[param.Tensor().Raw()]
func Backward[T tensor.Float, B BackwardCapable](t *tensor.Tensor[T, B], backend B) map[*tensor.RawTensor]*tensor.RawTensor {
	tape := backend.GetTape()
	if tape.NumOps() == 0 {
		panic("backward: no operations recorded (did you forget to call Tape().StartRecording()?)")
	}

	outputGrad := tensor.Ones[T](t.Shape(), backend)
	return tape.Backward(t.Raw(), outputGrad.Raw(), backend)
}

// GradOf returns the gradient for x from a Backward result, or an error if
// no gradient reached it.
func GradOf[T tensor.Float, B tensor.Backend](
	grads map[*tensor.RawTensor]*tensor.RawTensor,
	x *tensor.Tensor[T, B],
) (*tensor.Tensor[T, B], error) {
	g, ok := grads[x.Raw()]
	if !ok {
		return nil, fmt.Errorf("no gradient for %s", x)
	}
	return tensor.New[T](g, x.Backend()), nil
}
