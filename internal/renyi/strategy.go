package renyi

import "fmt"

// Strategy selects how the per-sample log ratios of one observation are
// reduced when α ≠ 1.
type Strategy int

// Reduction strategies.
const (
	// FullBound takes the log-mean-exp over the K importance samples.
	FullBound Strategy = iota
	// Sample draws one importance sample per observation with probability
	// proportional to its α-weight.
	Sample
	// Max keeps the largest weighted ratio per observation (VR-max).
	Max
)

var strategyNames = map[Strategy]string{
	FullBound: "full_bound",
	Sample:    "sample",
	Max:       "max",
}

// String returns the strategy name used on the command line and in
// VRBOUND_STRATEGY.
func (s Strategy) String() string {
	if name, ok := strategyNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Strategy(%d)", int(s))
}

// Valid reports whether s is one of the defined strategies.
func (s Strategy) Valid() bool {
	_, ok := strategyNames[s]
	return ok
}

// Strategies returns every strategy in declaration order.
func Strategies() []Strategy {
	return []Strategy{FullBound, Sample, Max}
}

// ParseStrategy maps a strategy name to its Strategy.
func ParseStrategy(name string) (Strategy, error) {
	for _, s := range Strategies() {
		if strategyNames[s] == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("%q (want full_bound, sample or max): %w", name, ErrUnsupportedStrategy)
}
