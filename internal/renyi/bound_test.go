package renyi

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"

	"github.com/born-ml/vrbound/internal/autodiff"
	"github.com/born-ml/vrbound/internal/backend/cpu"
	"github.com/born-ml/vrbound/internal/tensor"
)

// scaleUnit maps x to scale·x and reports the distribution kind on top of it.
type scaleUnit[B tensor.Backend] struct {
	scale    float64
	logScale float64
	kind     Kind
}

func (u scaleUnit[B]) Forward(x *tensor.Tensor[float64, B]) (*tensor.Tensor[float64, B], Params[float64, B]) {
	out := x.MulScalar(u.scale)
	switch u.kind {
	case Gaussian:
		ls := tensor.Full(out.Shape(), u.logScale, x.Backend())
		return out, GaussianParams(out, ls)
	case Bernoulli:
		theta := out.Sigmoid()
		return theta, BernoulliParams(theta)
	default:
		return out, DeterministicParams[float64, B]()
	}
}

type stubDecoder[B tensor.Backend] [][]Unit[float64, B]

func (d stubDecoder[B]) Layers() [][]Unit[float64, B] { return d }

// problem is a depth-1 bound input: data x, one latent h with the encoder
// parameters that produced it, and a single-unit decoder layer.
type problem struct {
	n, k, d int
	x, h    []float64
	mu, ls  []float64
	kind    Kind
}

const (
	decoderScale    = 0.5
	decoderLogScale = 0.1
)

func newProblem(seed int64, n, k, d int, kind Kind) problem {
	rng := rand.New(rand.NewSource(seed))
	rows := n * k
	p := problem{
		n: n, k: k, d: d,
		h:    randSlice(rng, rows*d, 1),
		mu:   randSlice(rng, rows*d, 0.5),
		ls:   randSlice(rng, rows*d, 0.3),
		kind: kind,
	}
	// Rows of the same observation share x.
	x := randSlice(rng, n*d, 1)
	if kind == Bernoulli {
		for i := range x {
			x[i] = 0
			if rng.Float64() < 0.5 {
				x[i] = 1
			}
		}
	}
	for r := 0; r < rows; r++ {
		obs := r / k
		p.x = append(p.x, x[obs*d:(obs+1)*d]...)
	}
	return p
}

func inputs[B tensor.Backend](p problem, b B) (Decoder[float64, B], []*tensor.Tensor[float64, B], []*tensor.Tensor[float64, B], []*tensor.Tensor[float64, B]) {
	shape := tensor.Shape{p.n * p.k, p.d}
	mk := func(data []float64) *tensor.Tensor[float64, B] {
		t, err := tensor.FromSlice(data, shape, b)
		if err != nil {
			panic(err)
		}
		return t
	}
	dec := stubDecoder[B]{{scaleUnit[B]{scale: decoderScale, logScale: decoderLogScale, kind: p.kind}}}
	return dec,
		[]*tensor.Tensor[float64, B]{mk(p.x), mk(p.h)},
		[]*tensor.Tensor[float64, B]{mk(p.mu)},
		[]*tensor.Tensor[float64, B]{mk(p.ls)}
}

// refRatio computes the per-row log p/q ratio in plain Go.
func (p problem) refRatio() []float64 {
	rows := p.n * p.k
	zeros := make([]float64, p.d)
	decLS := make([]float64, p.d)
	for i := range decLS {
		decLS[i] = decoderLogScale
	}

	out := make([]float64, rows)
	for r := 0; r < rows; r++ {
		x := p.x[r*p.d : (r+1)*p.d]
		h := p.h[r*p.d : (r+1)*p.d]
		mean := make([]float64, p.d)
		floats.ScaleTo(mean, decoderScale, h)

		var logP float64
		switch p.kind {
		case Gaussian:
			logP = refGaussian(x, mean, decLS)
		case Bernoulli:
			theta := make([]float64, p.d)
			for i, v := range mean {
				theta[i] = 1 / (1 + math.Exp(-v))
			}
			logP = refBernoulli(x, theta)
		}
		out[r] = refGaussian(h, zeros, zeros) + logP - refGaussian(h, p.mu[r*p.d:(r+1)*p.d], p.ls[r*p.d:(r+1)*p.d])
	}
	return out
}

// refReduce reduces per-row ratios the way the bound defines each strategy.
func refReduce(ratio []float64, k int, alpha float64, strategy Strategy) float64 {
	if IsELBO(alpha) {
		return floats.Sum(ratio) / float64(k)
	}
	scale := 1 - alpha
	var total float64
	for start := 0; start < len(ratio); start += k {
		row := make([]float64, k)
		floats.ScaleTo(row, scale, ratio[start:start+k])
		switch strategy {
		case FullBound:
			total += floats.LogSumExp(row) - math.Log(float64(k))
		case Max:
			total += floats.Max(row)
		}
	}
	return total / scale
}

func TestVRBound_MatchesReference(t *testing.T) {
	b := cpu.New()

	for _, kind := range []Kind{Gaussian, Bernoulli} {
		p := newProblem(5, 3, 4, 2, kind)
		ratio := p.refRatio()

		for _, alpha := range []float64{0.5, 0, -1, 2, 1} {
			for _, strategy := range []Strategy{FullBound, Max} {
				name := kind.String() + "/" + strategy.String()
				dec, samples, mus, logSigmas := inputs(p, b)

				cfg := Config{Alpha: alpha, K: p.k, Strategy: strategy}
				bound, err := VRBound(cfg, dec, samples, mus, logSigmas)
				require.NoError(t, err, name)

				assert.Empty(t, bound.Shape(), name)
				assert.InDelta(t, refReduce(ratio, p.k, alpha, strategy), bound.Item(), 1e-5, "%s alpha=%v", name, alpha)
			}
		}
	}
}

func TestLogRatio_MatchesReference(t *testing.T) {
	b := cpu.New()
	p := newProblem(9, 2, 3, 4, Gaussian)
	dec, samples, mus, logSigmas := inputs(p, b)

	ratio, err := LogRatio(dec, samples, mus, logSigmas)
	require.NoError(t, err)

	assert.Equal(t, tensor.Shape{6}, ratio.Shape())
	assert.InDeltaSlice(t, p.refRatio(), ratio.Data(), 1e-9)
}

func TestLogRatio_DeterministicLayerIsSkipped(t *testing.T) {
	b := cpu.New()
	p := newProblem(9, 2, 3, 2, Deterministic)
	_, samples, mus, logSigmas := inputs(p, b)
	dec := stubDecoder[CPU]{{scaleUnit[CPU]{scale: 1, kind: Deterministic}}}

	ratio, err := LogRatio[float64, CPU](dec, samples, mus, logSigmas)
	require.NoError(t, err)

	zeros := make([]float64, p.d)
	for r, v := range ratio.Data() {
		assert.InDelta(t, refGaussian(p.h[r*p.d:(r+1)*p.d], zeros, zeros), v, 1e-12)
	}
}

func TestLogRatio_LastUnitDecidesKind(t *testing.T) {
	b := cpu.New()
	p := newProblem(4, 2, 2, 3, Gaussian)
	_, samples, mus, logSigmas := inputs(p, b)

	// A deterministic identity in front of the Gaussian unit leaves the
	// result unchanged.
	dec := stubDecoder[CPU]{{
		scaleUnit[CPU]{scale: 1, kind: Deterministic},
		scaleUnit[CPU]{scale: decoderScale, logScale: decoderLogScale, kind: Gaussian},
	}}

	ratio, err := LogRatio[float64, CPU](dec, samples, mus, logSigmas)
	require.NoError(t, err)
	assert.InDeltaSlice(t, p.refRatio(), ratio.Data(), 1e-9)
}

func TestReduce_ELBOIgnoresStrategy(t *testing.T) {
	b := cpu.New()
	data := []float64{-3, -1, -2, -4, 0.5, -0.5}
	ratio := mustTensor(t, data, tensor.Shape{6}, b)

	for _, alpha := range []float64{1, 1 + 5e-4, 1 - 9e-4, 1 + 1e-3} {
		for _, s := range Strategies() {
			out, err := Reduce(ratio, Config{Alpha: alpha, K: 3, Strategy: s})
			require.NoError(t, err)
			assert.InDelta(t, floats.Sum(data)/3, out.Item(), 1e-12, "alpha=%v %s", alpha, s)
		}
	}
}

func TestReduce_ELBOBoundary(t *testing.T) {
	// |0.999 - 1| rounds to 0.0010000000000000009 in float64.
	assert.False(t, IsELBO(1-1e-3))
	assert.True(t, IsELBO(1+1e-3))

	b := cpu.New()
	data := []float64{-3, -1, -2, -4, 0.5, -0.5}
	ratio := mustTensor(t, data, tensor.Shape{6}, b)

	out, err := Reduce(ratio, Config{Alpha: 1 - 1e-3, K: 3, Strategy: Max})
	require.NoError(t, err)
	assert.InDelta(t, refReduce(data, 3, 1-1e-3, Max), out.Item(), 1e-9)
	assert.InDelta(t, -1.0+0.5, out.Item(), 1e-9)
}

func TestReduce_FullBoundAtMostMax(t *testing.T) {
	b := cpu.New()
	rng := rand.New(rand.NewSource(2))

	for _, k := range []int{1, 5, 20} {
		data := randSlice(rng, 3*k, 4)
		ratio := mustTensor(t, data, tensor.Shape{3 * k}, b)

		full, err := Reduce(ratio, Config{Alpha: 0.5, K: k, Strategy: FullBound})
		require.NoError(t, err)
		vrMax, err := Reduce(ratio, Config{Alpha: 0.5, K: k, Strategy: Max})
		require.NoError(t, err)

		assert.LessOrEqual(t, full.Item(), vrMax.Item()+1e-12, "K=%d", k)
		if k == 1 {
			assert.InDelta(t, vrMax.Item(), full.Item(), 1e-12)
		}
	}
}

func TestReduce_MaxIsSumOfRowMaxima(t *testing.T) {
	b := cpu.New()
	data := []float64{1, 4, 2, -3, -1, -2}
	ratio := mustTensor(t, data, tensor.Shape{6}, b)

	out, err := Reduce(ratio, Config{Alpha: 0, K: 3, Strategy: Max})
	require.NoError(t, err)
	assert.InDelta(t, 4.0+(-1.0), out.Item(), 1e-12)
}

func TestReduce_FullBoundIsStable(t *testing.T) {
	b := cpu.New()
	ratio := mustTensor(t, []float64{-2000, -2001, 1500, 1499}, tensor.Shape{4}, b)

	out, err := Reduce(ratio, Config{Alpha: 0, K: 2, Strategy: FullBound})
	require.NoError(t, err)
	assert.False(t, math.IsNaN(out.Item()) || math.IsInf(out.Item(), 0))
	want := floats.LogSumExp([]float64{-2000, -2001}) + floats.LogSumExp([]float64{1500, 1499}) - 2*math.Log(2)
	assert.InDelta(t, want, out.Item(), 1e-9)
}

func TestReduce_FullBoundMatchesNaive(t *testing.T) {
	b := cpu.New()
	rng := rand.New(rand.NewSource(13))
	const n, k = 4, 6
	data := randSlice(rng, n*k, 2)
	ratio := mustTensor(t, data, tensor.Shape{n * k}, b)

	for _, alpha := range []float64{0.5, 0, -1, 2} {
		scale := 1 - alpha
		var want float64
		for r := 0; r < n; r++ {
			var mean float64
			for _, v := range data[r*k : (r+1)*k] {
				mean += math.Exp(scale * v)
			}
			want += math.Log(mean/k) / scale
		}

		out, err := Reduce(ratio, Config{Alpha: alpha, K: k, Strategy: FullBound})
		require.NoError(t, err)
		assert.InDelta(t, want, out.Item(), 1e-9, "alpha=%v", alpha)
	}
}

func TestReduce_DeterministicStrategies(t *testing.T) {
	b := cpu.New()
	p := newProblem(21, 4, 5, 3, Bernoulli)

	for _, s := range []Strategy{FullBound, Max} {
		cfg := Config{Alpha: 0.3, K: p.k, Strategy: s}

		dec, samples, mus, logSigmas := inputs(p, b)
		first, err := VRBound(cfg, dec, samples, mus, logSigmas)
		require.NoError(t, err)
		second, err := VRBound(cfg, dec, samples, mus, logSigmas)
		require.NoError(t, err)

		assert.Equal(t, first.Item(), second.Item(), s.String())
	}
}

func TestReduce_Sample(t *testing.T) {
	b := cpu.New()
	const n, k = 3, 4
	row := []float64{0, 0.1, 0.2, 0.3}
	var data []float64
	for i := 0; i < n; i++ {
		data = append(data, row...)
	}
	ratio := mustTensor(t, data, tensor.Shape{n * k}, b)

	t.Run("reproducible with seed", func(t *testing.T) {
		first, err := Reduce(ratio, Config{Alpha: 0.5, K: k, Strategy: Sample, Rand: rand.New(rand.NewSource(42))})
		require.NoError(t, err)
		for i := 0; i < 5; i++ {
			again, err := Reduce(ratio, Config{Alpha: 0.5, K: k, Strategy: Sample, Rand: rand.New(rand.NewSource(42))})
			require.NoError(t, err)
			assert.Equal(t, first.Item(), again.Item())
		}
	})

	t.Run("picks one entry per row", func(t *testing.T) {
		for seed := int64(0); seed < 20; seed++ {
			out, err := Reduce(ratio, Config{Alpha: 0.5, K: k, Strategy: Sample, Rand: rand.New(rand.NewSource(seed))})
			require.NoError(t, err)

			v := out.Item()
			assert.GreaterOrEqual(t, v, n*floats.Min(row)-1e-12)
			assert.LessOrEqual(t, v, n*floats.Max(row)+1e-12)
			steps := v / 0.1
			assert.InDelta(t, math.Round(steps), steps, 1e-6, "sum of picked entries must be a multiple of 0.1")
		}
	})

	t.Run("varies without a source", func(t *testing.T) {
		seen := map[float64]bool{}
		for i := 0; i < 50; i++ {
			// Zero-value randomness: no Rand given.
			out, err := Reduce(ratio, Config{Alpha: 0.5, K: k, Strategy: Sample})
			require.NoError(t, err)
			seen[math.Round(out.Item()*1e6)] = true
		}
		assert.Greater(t, len(seen), 1)
	})

	t.Run("follows dominant weight", func(t *testing.T) {
		peaked := mustTensor(t, []float64{0, 0, 1000, 0, 1000, 0, 0, 0}, tensor.Shape{8}, b)
		out, err := Reduce(peaked, Config{Alpha: 0, K: 4, Strategy: Sample})
		require.NoError(t, err)
		assert.InDelta(t, 2000.0, out.Item(), 1e-9)
	})
}

// maxSource always yields the largest Float64 below 1.
type maxSource struct{}

func (maxSource) Int63() int64 { return 1<<63 - 1024 }
func (maxSource) Seed(int64)   {}

func TestCategorical(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 20; i++ {
		assert.Equal(t, 1, categorical([]float64{0, 1, 0}, rng))
	}

	// Probabilities that sum short of 1 fall back to the last non-zero index.
	top := rand.New(maxSource{})
	assert.Equal(t, 2, categorical([]float64{0.3, 0.3, 0.3, 0}, top))
}

func TestVRBound_Errors(t *testing.T) {
	b := cpu.New()
	p := newProblem(3, 3, 4, 2, Gaussian)

	t.Run("unsupported strategy", func(t *testing.T) {
		dec, samples, mus, logSigmas := inputs(p, b)
		for _, alpha := range []float64{0.5, 1} {
			_, err := VRBound(Config{Alpha: alpha, K: 4, Strategy: Strategy(7)}, dec, samples, mus, logSigmas)
			assert.ErrorIs(t, err, ErrUnsupportedStrategy)
		}
	})

	t.Run("non-positive K", func(t *testing.T) {
		dec, samples, mus, logSigmas := inputs(p, b)
		_, err := VRBound(Config{Alpha: 0.5, K: 0}, dec, samples, mus, logSigmas)
		assert.ErrorIs(t, err, ErrInvalidSampleCount)
	})

	t.Run("K does not divide batch", func(t *testing.T) {
		dec, samples, mus, logSigmas := inputs(p, b)
		_, err := VRBound(Config{Alpha: 0.5, K: 5}, dec, samples, mus, logSigmas)
		assert.ErrorIs(t, err, ErrInvalidSampleCount)
	})

	t.Run("misaligned layers", func(t *testing.T) {
		_, samples, mus, logSigmas := inputs(p, b)
		dec := stubDecoder[CPU]{}
		_, err := VRBound[float64, CPU](Config{Alpha: 0.5, K: 4}, dec, samples, mus, logSigmas)
		assert.ErrorIs(t, err, ErrShapeMismatch)
	})

	t.Run("missing encoder params", func(t *testing.T) {
		dec, samples, mus, _ := inputs(p, b)
		_, err := VRBound(Config{Alpha: 0.5, K: 4}, dec, samples, mus, nil)
		assert.ErrorIs(t, err, ErrShapeMismatch)
	})

	t.Run("no samples", func(t *testing.T) {
		_, err := VRBound[float64, CPU](Config{Alpha: 0.5, K: 4}, stubDecoder[CPU]{}, nil, nil, nil)
		assert.ErrorIs(t, err, ErrShapeMismatch)
	})

	t.Run("batch mismatch", func(t *testing.T) {
		dec, samples, mus, logSigmas := inputs(p, b)
		samples[1] = tensor.Zeros[float64](tensor.Shape{8, 2}, b)
		_, err := VRBound(Config{Alpha: 0.5, K: 4}, dec, samples, mus, logSigmas)
		assert.ErrorIs(t, err, ErrInvalidSampleCount)
	})

	t.Run("encoder shape mismatch", func(t *testing.T) {
		dec, samples, mus, logSigmas := inputs(p, b)
		mus[0] = tensor.Zeros[float64](tensor.Shape{12, 3}, b)
		_, err := VRBound(Config{Alpha: 0.5, K: 4}, dec, samples, mus, logSigmas)
		assert.ErrorIs(t, err, ErrShapeMismatch)
	})

	t.Run("rank", func(t *testing.T) {
		dec, samples, mus, logSigmas := inputs(p, b)
		samples[0] = tensor.Zeros[float64](tensor.Shape{24}, b)
		_, err := VRBound(Config{Alpha: 0.5, K: 4}, dec, samples, mus, logSigmas)
		assert.ErrorIs(t, err, ErrShapeMismatch)
	})

	t.Run("reduce rank", func(t *testing.T) {
		_, err := Reduce(tensor.Zeros[float64](tensor.Shape{2, 2}, b), Config{Alpha: 0.5, K: 2})
		assert.ErrorIs(t, err, ErrShapeMismatch)
	})
}

// TestVRBound_Gradient checks the tape gradient with respect to the encoder
// means against finite differences for every deterministic strategy.
func TestVRBound_Gradient(t *testing.T) {
	p := newProblem(8, 2, 3, 2, Bernoulli)

	for _, tc := range []struct {
		alpha    float64
		strategy Strategy
	}{
		{0.5, FullBound},
		{1, FullBound},
		{-0.5, Max},
	} {
		cfg := Config{Alpha: tc.alpha, K: p.k, Strategy: tc.strategy}
		eval := func(mu []float64) float64 {
			q := p
			q.mu = mu
			dec, samples, mus, logSigmas := inputs(q, autodiff.New(cpu.New()))
			bound, err := VRBound(cfg, dec, samples, mus, logSigmas)
			if err != nil {
				panic(err)
			}
			return bound.Item()
		}

		backend := autodiff.New(cpu.New())
		dec, samples, mus, logSigmas := inputs(p, backend)
		backend.Tape().StartRecording()
		bound, err := VRBound(cfg, dec, samples, mus, logSigmas)
		require.NoError(t, err)

		grads := autodiff.Backward(bound, backend)
		got, err := autodiff.GradOf(grads, mus[0])
		require.NoError(t, err)

		want := fd.Gradient(nil, eval, p.mu, &fd.Settings{Formula: fd.Central})
		assert.InDeltaSlice(t, want, got.Data(), 1e-5, "alpha=%v %s", tc.alpha, tc.strategy)

		_, err = autodiff.GradOf(grads, logSigmas[0])
		require.NoError(t, err)
		_, err = autodiff.GradOf(grads, samples[1])
		require.NoError(t, err)
	}
}

func TestVRBound_SampleGradientReachesInputs(t *testing.T) {
	p := newProblem(8, 2, 3, 2, Gaussian)
	backend := autodiff.New(cpu.New())
	dec, samples, mus, logSigmas := inputs(p, backend)

	backend.Tape().StartRecording()
	bound, err := VRBound(Config{Alpha: 0.5, K: p.k, Strategy: Sample, Rand: rand.New(rand.NewSource(3))}, dec, samples, mus, logSigmas)
	require.NoError(t, err)

	grads := autodiff.Backward(bound, backend)
	g, err := autodiff.GradOf(grads, mus[0])
	require.NoError(t, err)

	// Only the picked importance sample of each observation gets gradient.
	nonZeroRows := 0
	for r := 0; r < p.n*p.k; r++ {
		if floats.Norm(g.Data()[r*p.d:(r+1)*p.d], 2) > 0 {
			nonZeroRows++
		}
	}
	assert.Equal(t, p.n, nonZeroRows)
}
