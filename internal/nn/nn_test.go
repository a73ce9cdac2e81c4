package nn

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/vrbound/internal/autodiff"
	"github.com/born-ml/vrbound/internal/backend/cpu"
	"github.com/born-ml/vrbound/internal/tensor"
)

type Backend = *autodiff.AutodiffBackend[*cpu.CPUBackend]

func TestXavier_Bounds(t *testing.T) {
	backend := cpu.New()
	rng := rand.New(rand.NewSource(1))

	w := Xavier[float64](10, 20, tensor.Shape{20, 10}, rng, backend)

	bound := math.Sqrt(6.0 / 30.0)
	for _, v := range w.Data() {
		assert.LessOrEqual(t, math.Abs(v), bound)
	}
}

func TestLinear_Forward(t *testing.T) {
	backend := autodiff.New(cpu.New())
	layer := NewLinear[float64](3, 2, rand.New(rand.NewSource(1)), backend)

	copy(layer.Weight().Tensor().Data(), []float64{1, 0, -1, 0.5, 0.5, 0.5})
	copy(layer.Bias().Tensor().Data(), []float64{0.1, -0.1})

	x, err := tensor.FromSlice([]float64{1, 2, 3, 0, 0, 0}, tensor.Shape{2, 3}, backend)
	require.NoError(t, err)

	y := layer.Forward(x)

	assert.Equal(t, tensor.Shape{2, 2}, y.Shape())
	assert.InDeltaSlice(t, []float64{-1.9, 2.9, 0.1, -0.1}, y.Data(), 1e-12)
	assert.Equal(t, 3, layer.InFeatures())
	assert.Equal(t, 2, layer.OutFeatures())
}

func TestLinear_BadInputPanics(t *testing.T) {
	backend := autodiff.New(cpu.New())
	layer := NewLinear[float64](3, 2, rand.New(rand.NewSource(1)), backend)

	assert.Panics(t, func() { layer.Forward(tensor.Zeros[float64](tensor.Shape{2, 4}, backend)) })
	assert.Panics(t, func() { layer.Forward(tensor.Zeros[float64](tensor.Shape{3}, backend)) })
}

func TestSequential_ParametersAndGrads(t *testing.T) {
	backend := autodiff.New(cpu.New())
	rng := rand.New(rand.NewSource(3))

	net := NewSequential[float64, Backend](
		NewLinear[float64](4, 3, rng, backend),
		NewTanh[float64, Backend](),
		NewLinear[float64](3, 2, rng, backend),
		NewSigmoid[float64, Backend](),
	)
	assert.Equal(t, 4, net.Len())

	params := net.Parameters()
	require.Len(t, params, 4)
	assert.Equal(t, "weight", params[0].Name())
	assert.Equal(t, "bias", params[1].Name())

	x := tensor.Randn[float64](tensor.Shape{5, 4}, rng, backend)
	backend.Tape().StartRecording()
	y := net.Forward(x)
	for _, v := range y.Data() {
		assert.Greater(t, v, 0.0)
		assert.Less(t, v, 1.0)
	}

	grads := autodiff.Backward(y.Sum(), backend)
	assert.Equal(t, 4, CollectGrads(params, grads))
	for _, p := range params {
		require.NotNil(t, p.Grad(), p.Name())
		assert.Equal(t, p.Tensor().Shape(), p.Grad().Shape())
	}

	params[0].ZeroGrad()
	assert.Nil(t, params[0].Grad())
}

func TestCollectGrads_Unused(t *testing.T) {
	backend := autodiff.New(cpu.New())
	rng := rand.New(rand.NewSource(3))
	used := NewLinear[float64](2, 2, rng, backend)
	unused := NewLinear[float64](2, 2, rng, backend)

	backend.Tape().StartRecording()
	x := tensor.Ones[float64](tensor.Shape{1, 2}, backend)
	grads := autodiff.Backward(used.Forward(x).Sum(), backend)

	params := append(used.Parameters(), unused.Parameters()...)
	assert.Equal(t, 2, CollectGrads(params, grads))
	assert.Nil(t, unused.Weight().Grad())
}
