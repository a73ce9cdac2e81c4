package nn

import (
	"fmt"
	"math/rand"

	"github.com/born-ml/vrbound/internal/tensor"
)

// Linear implements a fully connected layer: y = x @ W.T + b.
//
//   - x: [batch_size, in_features]
//   - W: [out_features, in_features], Xavier initialized
//   - b: [out_features], zero initialized
type Linear[T tensor.Float, B tensor.Backend] struct {
	inFeatures  int
	outFeatures int
	weight      *Parameter[T, B]
	bias        *Parameter[T, B]
}

// NewLinear creates a new Linear layer with weights drawn from rng.
func NewLinear[T tensor.Float, B tensor.Backend](inFeatures, outFeatures int, rng *rand.Rand, backend B) *Linear[T, B] {
	weight := Xavier[T](inFeatures, outFeatures, tensor.Shape{outFeatures, inFeatures}, rng, backend)
	bias := tensor.Zeros[T](tensor.Shape{outFeatures}, backend)

	return &Linear[T, B]{
		inFeatures:  inFeatures,
		outFeatures: outFeatures,
		weight:      NewParameter("weight", weight),
		bias:        NewParameter("bias", bias),
	}
}

// Forward computes x @ W.T + b.
func (l *Linear[T, B]) Forward(input *tensor.Tensor[T, B]) *tensor.Tensor[T, B] {
	inputShape := input.Shape()
	if len(inputShape) != 2 {
		panic(fmt.Sprintf("Linear.Forward: expected 2D input [batch, features], got shape %v", inputShape))
	}
	if inputShape[1] != l.inFeatures {
		panic(fmt.Sprintf("Linear.Forward: expected input with %d features, got %d", l.inFeatures, inputShape[1]))
	}

	output := input.MatMul(l.weight.Tensor().T())
	// [out] broadcasts over the batch dimension.
	return output.Add(l.bias.Tensor())
}

// Parameters returns [weight, bias].
func (l *Linear[T, B]) Parameters() []*Parameter[T, B] {
	return []*Parameter[T, B]{l.weight, l.bias}
}

// Weight returns the weight parameter.
func (l *Linear[T, B]) Weight() *Parameter[T, B] {
	return l.weight
}

// Bias returns the bias parameter.
func (l *Linear[T, B]) Bias() *Parameter[T, B] {
	return l.bias
}

// InFeatures returns the input width.
func (l *Linear[T, B]) InFeatures() int {
	return l.inFeatures
}

// OutFeatures returns the output width.
func (l *Linear[T, B]) OutFeatures() int {
	return l.outFeatures
}
