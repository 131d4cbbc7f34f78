package region

import (
	"fmt"
	"math"

	"github.com/starford/nomenclature/internal/codelist"
)

// StrategyKind enumerates the supported aggregation strategies.
type StrategyKind int

const (
	Sum StrategyKind = iota
	Mean
	Min
	Max
	WeightedMean
)

func (k StrategyKind) String() string {
	switch k {
	case Sum:
		return "sum"
	case Mean:
		return "mean"
	case Min:
		return "min"
	case Max:
		return "max"
	case WeightedMean:
		return "weighted-mean"
	}
	return fmt.Sprintf("StrategyKind(%d)", int(k))
}

// Strategy is how constituent values are combined into a common region value.
// Weight and DropNegativeWeights apply to WeightedMean only.
type Strategy struct {
	Kind                StrategyKind
	Weight              string
	DropNegativeWeights bool
}

// StrategyFor selects the strategy declared by a variable. A weight always
// means a weighted mean; otherwise the method applies, defaulting to sum.
func StrategyFor(args codelist.AggregationArgs) Strategy {
	if args.Weight != "" {
		return Strategy{Kind: WeightedMean, Weight: args.Weight, DropNegativeWeights: args.DropNegativeWeights}
	}
	switch args.Method {
	case codelist.MethodMean:
		return Strategy{Kind: Mean}
	case codelist.MethodMin:
		return Strategy{Kind: Min}
	case codelist.MethodMax:
		return Strategy{Kind: Max}
	}
	return Strategy{Kind: Sum}
}

// Aggregate combines values. weights is read for WeightedMean only and must
// have the same length as values. ok is false when no value can be produced,
// e.g. when all weights were dropped or sum to zero.
func (s Strategy) Aggregate(values, weights []float64) (v float64, ok bool) {
	if len(values) == 0 {
		return 0, false
	}
	switch s.Kind {
	case Sum:
		for _, x := range values {
			v += x
		}
		return v, true
	case Mean:
		for _, x := range values {
			v += x
		}
		return v / float64(len(values)), true
	case Min:
		v = math.Inf(1)
		for _, x := range values {
			v = math.Min(v, x)
		}
		return v, true
	case Max:
		v = math.Inf(-1)
		for _, x := range values {
			v = math.Max(v, x)
		}
		return v, true
	case WeightedMean:
		var num, den float64
		for i, x := range values {
			w := weights[i]
			if w < 0 && s.DropNegativeWeights {
				continue
			}
			num += x * w
			den += w
		}
		if den == 0 {
			return 0, false
		}
		return num / den, true
	}
	panic(fmt.Sprintf("region: unhandled strategy %s", s.Kind))
}
