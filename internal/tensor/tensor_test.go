package tensor_test

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/vrbound/internal/backend/cpu"
	"github.com/born-ml/vrbound/internal/tensor"
)

func TestBroadcastShapes(t *testing.T) {
	tests := []struct {
		name      string
		a, b      tensor.Shape
		want      tensor.Shape
		broadcast bool
		wantErr   bool
	}{
		{"equal", tensor.Shape{3, 5}, tensor.Shape{3, 5}, tensor.Shape{3, 5}, false, false},
		{"column", tensor.Shape{3, 1}, tensor.Shape{3, 5}, tensor.Shape{3, 5}, true, false},
		{"bias", tensor.Shape{4, 2}, tensor.Shape{2}, tensor.Shape{4, 2}, true, false},
		{"scalar", tensor.Shape{}, tensor.Shape{2, 2}, tensor.Shape{2, 2}, true, false},
		{"incompatible", tensor.Shape{3, 4}, tensor.Shape{3, 5}, nil, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, broadcast, err := tensor.BroadcastShapes(tt.a, tt.b)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.broadcast, broadcast)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("BroadcastShapes() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestShape_Split(t *testing.T) {
	outer, size, inner := tensor.Shape{2, 3, 4}.Split(1)
	assert.Equal(t, 2, outer)
	assert.Equal(t, 3, size)
	assert.Equal(t, 4, inner)
}

func TestShape_Reduced(t *testing.T) {
	s := tensor.Shape{2, 3, 4}
	assert.Equal(t, tensor.Shape{2, 4}, s.Reduced(1, false))
	assert.Equal(t, tensor.Shape{2, 1, 4}, s.Reduced(1, true))
	assert.Equal(t, tensor.Shape{}, tensor.Shape{5}.Reduced(0, false))
}

func TestShape_NormalizeDim(t *testing.T) {
	s := tensor.Shape{2, 3}
	assert.Equal(t, 1, s.NormalizeDim(-1))
	assert.Equal(t, 0, s.NormalizeDim(0))
	assert.Panics(t, func() { s.NormalizeDim(2) })
}

func TestShape_BroadcastStrides(t *testing.T) {
	assert.Equal(t, []int{0, 1}, tensor.Shape{3}.BroadcastStrides(tensor.Shape{2, 3}))
	assert.Equal(t, []int{1, 0}, tensor.Shape{2, 1}.BroadcastStrides(tensor.Shape{2, 3}))
}

func TestFromSlice(t *testing.T) {
	backend := cpu.New()

	x, err := tensor.FromSlice([]float64{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}, backend)
	require.NoError(t, err)
	assert.Equal(t, tensor.Float64, x.DType())
	assert.Equal(t, 6.0, x.At(1, 2))
	assert.Equal(t, 2.0, x.At(0, 1))

	_, err = tensor.FromSlice([]float64{1, 2, 3}, tensor.Shape{2, 2}, backend)
	require.Error(t, err)
}

func TestClone_IsIndependent(t *testing.T) {
	backend := cpu.New()
	x := tensor.Ones[float32](tensor.Shape{2, 2}, backend)

	c := x.Clone()
	c.Data()[0] = 7

	assert.Equal(t, float32(1), x.Data()[0])
	assert.Equal(t, float32(7), c.Data()[0])
}

func TestRepeatRows(t *testing.T) {
	backend := cpu.New()
	x, err := tensor.FromSlice([]float64{1, 2, 3, 4}, tensor.Shape{2, 2}, backend)
	require.NoError(t, err)

	r := tensor.RepeatRows(x, 3)

	assert.Equal(t, tensor.Shape{6, 2}, r.Shape())
	want := []float64{1, 2, 1, 2, 1, 2, 3, 4, 3, 4, 3, 4}
	if diff := cmp.Diff(want, r.Data()); diff != "" {
		t.Errorf("RepeatRows() mismatch (-want +got):\n%s", diff)
	}
}

func TestRandn_Reproducible(t *testing.T) {
	backend := cpu.New()
	a := tensor.Randn[float64](tensor.Shape{4, 3}, rand.New(rand.NewSource(7)), backend)
	b := tensor.Randn[float64](tensor.Shape{4, 3}, rand.New(rand.NewSource(7)), backend)
	assert.Equal(t, a.Data(), b.Data())
}

func TestSum_Scalar(t *testing.T) {
	backend := cpu.New()
	x, err := tensor.FromSlice([]float64{1, 2, 3, 4}, tensor.Shape{2, 2}, backend)
	require.NoError(t, err)

	s := x.Sum()

	assert.Empty(t, s.Shape())
	assert.Equal(t, 10.0, s.Item())
}

func TestItem_PanicsOnMultipleElements(t *testing.T) {
	x := tensor.Zeros[float64](tensor.Shape{2}, cpu.New())
	assert.Panics(t, func() { x.Item() })
}
