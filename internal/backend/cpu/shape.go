package cpu

import (
	"fmt"

	"github.com/born-ml/vrbound/internal/tensor"
)

// Reshape returns a view of t with a new shape. At most one dimension may
// be -1, in which case it is inferred from the element count.
func (cpu *CPUBackend) Reshape(t *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	resolved, err := resolveShape(newShape, t.NumElements())
	if err != nil {
		panic(fmt.Sprintf("reshape: %v", err))
	}
	view, err := t.View(resolved)
	if err != nil {
		panic(fmt.Sprintf("reshape: %v", err))
	}
	return view
}

func resolveShape(shape tensor.Shape, numElements int) (tensor.Shape, error) {
	out := shape.Clone()
	inferred := -1
	known := 1
	for i, d := range out {
		switch {
		case d == -1 && inferred >= 0:
			return nil, fmt.Errorf("only one dimension can be -1, got %v", shape)
		case d == -1:
			inferred = i
		default:
			known *= d
		}
	}
	if inferred >= 0 {
		if known <= 0 || numElements%known != 0 {
			return nil, fmt.Errorf("cannot infer dimension of %v for %d elements", shape, numElements)
		}
		out[inferred] = numElements / known
	}
	return out, nil
}
