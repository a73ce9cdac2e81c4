// Package renyi computes the variational Rényi (VR) bound used to train
// hierarchical variational autoencoders.
//
// The bound is estimated from K importance samples per observation. For
// α = 1 it reduces to the ELBO; otherwise the (1-α)-scaled log ratios are
// reduced per observation by a Strategy. Every step is built from backend
// tensor operations, so running it on an autodiff backend makes the result
// differentiable with respect to the encoder and decoder parameters.
//
//	cfg := renyi.Config{Alpha: 0.5, K: 5, Strategy: renyi.FullBound}
//	bound, err := renyi.VRBound(cfg, model.Decoder, samples, mus, logSigmas)
package renyi

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"

	"github.com/born-ml/vrbound/internal/tensor"
)

// ELBOTolerance is the distance from α = 1 within which the bound is
// computed as the ELBO. The comparison is |α-1| <= ELBOTolerance in float64,
// so α = 1 - 1e-3 (|α-1| = 0.0010000000000000009) falls just outside it,
// while α = 1 + 1e-3 and anything strictly closer to 1 is inside.
const ELBOTolerance = 1e-3

// Config holds the per-call bound settings.
type Config struct {
	// Alpha selects the Rényi divergence. Values within ELBOTolerance of 1
	// give the ELBO.
	Alpha float64

	// K is the number of importance samples per observation. It must be
	// positive; use ResolveK to fall back to the encoder default.
	K int

	// Strategy reduces the K samples of each observation.
	Strategy Strategy

	// Rand drives the Sample strategy. Nil draws a freshly seeded source on
	// every call; pass a seeded source for reproducible draws.
	Rand *rand.Rand
}

// DefaultConfig returns α = 0.5, K = 5, FullBound and fresh randomness.
func DefaultConfig() Config {
	return Config{
		Alpha:    0.5,
		K:        5,
		Strategy: FullBound,
	}
}

// IsELBO reports whether alpha is close enough to 1 to use the ELBO.
func IsELBO(alpha float64) bool {
	return math.Abs(alpha-1) <= ELBOTolerance
}

// VRBound returns the Monte-Carlo VR bound as a scalar tensor.
//
// qSamples holds the replicated data followed by one sample per stochastic
// layer, shallow to deep; qMu and qLogSigma hold the encoder parameters that
// produced qSamples[1:]. The decoder layers run from the deepest latent to
// the data. See LogRatio and Reduce for the two stages.
func VRBound[T tensor.Float, B tensor.Backend](
	cfg Config,
	decoder Decoder[T, B],
	qSamples, qMu, qLogSigma []*tensor.Tensor[T, B],
) (*tensor.Tensor[T, B], error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	logRatio, err := LogRatio(decoder, qSamples, qMu, qLogSigma)
	if err != nil {
		return nil, err
	}
	return Reduce(logRatio, cfg)
}

// LogRatio returns log p(x, h) - log q(h | x) for every row of the samples,
// as a [N·K] tensor.
//
// It starts from the log-density of the deepest latent under a standard
// normal prior and, for each pair (qSamples[i], qSamples[i+1]), adds
// log p(qSamples[i] | qSamples[i+1]) from decoder layer L-1-i minus
// log q(qSamples[i+1] | qSamples[i]) from qMu[i] and qLogSigma[i]. The kind
// of the last unit in a decoder layer decides its likelihood; deterministic
// layers contribute nothing.
func LogRatio[T tensor.Float, B tensor.Backend](
	decoder Decoder[T, B],
	qSamples, qMu, qLogSigma []*tensor.Tensor[T, B],
) (*tensor.Tensor[T, B], error) {
	layers := decoder.Layers()
	if err := checkAlignment(len(qSamples), len(qMu), len(qLogSigma), len(layers)); err != nil {
		return nil, err
	}
	if err := checkBatch(qSamples); err != nil {
		return nil, err
	}

	deepest := qSamples[len(qSamples)-1]
	prior := tensor.ZerosLike(deepest)
	ratio, err := GaussianLogLikelihood(deepest, prior, prior)
	if err != nil {
		return nil, fmt.Errorf("prior: %w", err)
	}

	depth := len(layers)
	for i := 0; i < depth; i++ {
		current, next := qSamples[i], qSamples[i+1]

		out := next
		var params Params[T, B]
		for _, unit := range layers[depth-1-i] {
			out, params = unit.Forward(out)
		}
		slog.Debug("vr bound layer", "layer", i, "kind", params.Kind)

		var logP *tensor.Tensor[T, B]
		switch params.Kind {
		case Gaussian:
			logP, err = GaussianLogLikelihood(current, params.Mean, params.LogScale)
		case Bernoulli:
			logP, err = BernoulliLogLikelihood(current, params.Theta)
		case Deterministic:
			continue
		default:
			return nil, fmt.Errorf("layer %d: unknown distribution kind %d", i, params.Kind)
		}
		if err != nil {
			return nil, fmt.Errorf("layer %d decoder: %w", i, err)
		}

		logQ, err := GaussianLogLikelihood(next, qMu[i], qLogSigma[i])
		if err != nil {
			return nil, fmt.Errorf("layer %d encoder: %w", i, err)
		}
		ratio = ratio.Add(logP.Sub(logQ))
	}

	return ratio, nil
}

// Reduce turns a [N·K] log ratio into the scalar bound.
//
// For α within ELBOTolerance of 1 it returns sum(logRatio)/K whatever the
// strategy. Otherwise the ratio is viewed as [N, K], scaled by (1-α),
// reduced per row by cfg.Strategy, summed over rows and divided by (1-α).
func Reduce[T tensor.Float, B tensor.Backend](logRatio *tensor.Tensor[T, B], cfg Config) (*tensor.Tensor[T, B], error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	shape := logRatio.Shape()
	if len(shape) != 1 {
		return nil, fmt.Errorf("log ratio must be 1D, got %v: %w", shape, ErrShapeMismatch)
	}
	if shape[0]%cfg.K != 0 {
		return nil, fmt.Errorf("batch of %d rows is not a multiple of K=%d: %w", shape[0], cfg.K, ErrInvalidSampleCount)
	}

	slog.Debug("vr bound reduce", "alpha", cfg.Alpha, "k", cfg.K, "strategy", cfg.Strategy, "elbo", IsELBO(cfg.Alpha))
	if IsELBO(cfg.Alpha) {
		return logRatio.Sum().MulScalar(1 / float64(cfg.K)), nil
	}

	scale := 1 - cfg.Alpha
	weighted := logRatio.Reshape(-1, cfg.K).MulScalar(scale)

	var perRow *tensor.Tensor[T, B]
	switch cfg.Strategy {
	case FullBound:
		perRow = logMeanExp(weighted)
	case Sample:
		perRow = sampleRows(weighted, cfg.rng())
	case Max:
		perRow = weighted.MaxDim(1, false)
	}

	return perRow.Sum().MulScalar(1 / scale), nil
}

func (c Config) validate() error {
	if c.K <= 0 {
		return fmt.Errorf("K=%d: %w", c.K, ErrInvalidSampleCount)
	}
	if !c.Strategy.Valid() {
		return fmt.Errorf("%v: %w", c.Strategy, ErrUnsupportedStrategy)
	}
	return nil
}

// logMeanExp computes log(mean(exp(x), dim 1)) for x [N, K] with the row
// maximum subtracted before exponentiating. Returns [N, 1].
func logMeanExp[T tensor.Float, B tensor.Backend](x *tensor.Tensor[T, B]) *tensor.Tensor[T, B] {
	k := x.Shape()[1]
	m := x.MaxDim(1, true)
	mean := x.Sub(m).Exp().SumDim(1, true).MulScalar(1 / float64(k))
	return mean.Log().Add(m)
}

// sampleRows draws one column per row of x [N, K] with probability
// softmax(row) and gathers it, returning [N, 1]. The draw itself is not
// differentiable; gradients flow through the gathered entries.
func sampleRows[T tensor.Float, B tensor.Backend](x *tensor.Tensor[T, B], rng *rand.Rand) *tensor.Tensor[T, B] {
	rows, k := x.Shape()[0], x.Shape()[1]
	data := x.Raw().Float64s()

	picks := make([]int32, rows)
	probs := make([]float64, k)
	for r := 0; r < rows; r++ {
		row := data[r*k : (r+1)*k]
		lse := floats.LogSumExp(row)
		for j, v := range row {
			probs[j] = math.Exp(v - lse)
		}
		picks[r] = int32(categorical(probs, rng))
	}

	index, err := tensor.FromSlice(picks, tensor.Shape{rows, 1}, x.Backend())
	if err != nil {
		panic(fmt.Sprintf("sample: %v", err))
	}
	return x.Gather(1, index)
}

// categorical draws an index with probability probs[i]. Rounding leftovers
// fall on the last index with non-zero probability.
func categorical(probs []float64, rng *rand.Rand) int {
	u := rng.Float64()
	last := len(probs) - 1
	var cum float64
	for i, p := range probs {
		if p > 0 {
			last = i
		}
		cum += p
		if u < cum {
			return i
		}
	}
	return last
}

func (c Config) rng() *rand.Rand {
	if c.Rand != nil {
		return c.Rand
	}
	return rand.New(rand.NewSource(rand.Int63())) //nolint:gosec // Fresh seed per call
}

// checkAlignment validates that samples, encoder parameters and decoder
// layers line up one-to-one.
func checkAlignment(samples, mus, logSigmas, layers int) error {
	if samples == 0 {
		return fmt.Errorf("no samples: %w", ErrShapeMismatch)
	}
	depth := samples - 1
	if mus != depth || logSigmas != depth || layers != depth {
		return fmt.Errorf("%d samples need %d encoder means, log-scales and decoder layers, got %d, %d and %d: %w",
			samples, depth, mus, logSigmas, layers, ErrShapeMismatch)
	}
	return nil
}

// checkBatch validates that every sample is [N·K, D] with the same N·K.
func checkBatch[T tensor.Float, B tensor.Backend](samples []*tensor.Tensor[T, B]) error {
	var batch int
	for i, s := range samples {
		if s == nil {
			return fmt.Errorf("sample %d is nil: %w", i, ErrShapeMismatch)
		}
		shape := s.Shape()
		if len(shape) != 2 {
			return fmt.Errorf("sample %d: expected [batch, features], got %v: %w", i, shape, ErrShapeMismatch)
		}
		if i == 0 {
			batch = shape[0]
			continue
		}
		if shape[0] != batch {
			return fmt.Errorf("sample %d has %d rows, sample 0 has %d: %w", i, shape[0], batch, ErrInvalidSampleCount)
		}
	}
	return nil
}
