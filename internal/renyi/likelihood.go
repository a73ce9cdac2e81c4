package renyi

import (
	"fmt"
	"math"

	"github.com/born-ml/vrbound/internal/tensor"
)

// BernoulliEpsilon keeps log(θ) and log(1-θ) finite when θ saturates.
const BernoulliEpsilon = 1e-19

var logTwoPi = math.Log(2 * math.Pi)

// GaussianLogLikelihood returns the per-row log-density of sample under a
// diagonal Gaussian with the given mean and log standard deviation:
//
//	-0.5·D·log(2π) - Σ_d logScale_d - 0.5·Σ_d ((sample_d - mean_d) / exp(logScale_d))²
//
// All three tensors must be [batch, D]; the result is [batch]. There is no
// clamping of logScale, so a non-finite scale yields NaN or Inf.
func GaussianLogLikelihood[T tensor.Float, B tensor.Backend](
	sample, mean, logScale *tensor.Tensor[T, B],
) (*tensor.Tensor[T, B], error) {
	if err := checkSameShape("gaussian log-likelihood", sample, mean, logScale); err != nil {
		return nil, err
	}
	d := sample.Shape()[1]

	z := sample.Sub(mean).Div(logScale.Exp())
	quad := z.Square().SumDim(1, false).MulScalar(-0.5)
	return quad.Sub(logScale.SumDim(1, false)).AddScalar(-0.5 * float64(d) * logTwoPi), nil
}

// BernoulliLogLikelihood returns the per-row log-probability of sample under
// independent Bernoulli dimensions with success probability theta:
//
//	Σ_d (1 - sample_d)·log(1 - theta_d + ε) + sample_d·log(theta_d + ε)
//
// sample may be a soft target in [0, 1]. Both tensors must be [batch, D];
// the result is [batch].
func BernoulliLogLikelihood[T tensor.Float, B tensor.Backend](
	sample, theta *tensor.Tensor[T, B],
) (*tensor.Tensor[T, B], error) {
	if err := checkSameShape("bernoulli log-likelihood", sample, theta); err != nil {
		return nil, err
	}

	// (1-θ) is formed before ε is added; folding ε into the constant would
	// round it away and leave log(0) at θ = 1.
	logOff := theta.Neg().AddScalar(1).AddScalar(BernoulliEpsilon).Log()
	logOn := theta.AddScalar(BernoulliEpsilon).Log()

	off := sample.Neg().AddScalar(1).Mul(logOff)
	return off.Add(sample.Mul(logOn)).SumDim(1, false), nil
}

func checkSameShape[T tensor.Float, B tensor.Backend](what string, ts ...*tensor.Tensor[T, B]) error {
	for i, t := range ts {
		if t == nil {
			return fmt.Errorf("%s: argument %d is nil: %w", what, i, ErrShapeMismatch)
		}
	}
	ref := ts[0].Shape()
	if len(ref) != 2 {
		return fmt.Errorf("%s: expected [batch, features], got %v: %w", what, ref, ErrShapeMismatch)
	}
	for i, t := range ts[1:] {
		if !t.Shape().Equal(ref) {
			return fmt.Errorf("%s: argument %d has shape %v, want %v: %w", what, i+1, t.Shape(), ref, ErrShapeMismatch)
		}
	}
	return nil
}
