package nn

import (
	"math"
	"math/rand"

	"github.com/born-ml/vrbound/internal/tensor"
)

// Xavier creates a tensor with Xavier/Glorot uniform initialization:
// values drawn from [-sqrt(6/(fan_in+fan_out)), +sqrt(6/(fan_in+fan_out))].
func Xavier[T tensor.Float, B tensor.Backend](fanIn, fanOut int, shape tensor.Shape, rng *rand.Rand, backend B) *tensor.Tensor[T, B] {
	bound := math.Sqrt(6.0 / float64(fanIn+fanOut))

	t := tensor.Zeros[T](shape, backend)
	data := t.Data()
	for i := range data {
		data[i] = T((rng.Float64()*2.0 - 1.0) * bound)
	}
	return t
}
