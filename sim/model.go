// Package sim turns the per-lane template samples collected by the
// streaming pass into batches of simulated ("tandem") reads. Each simulated
// read borrows a sampled template's length, qualities and edit transcript,
// takes its bases from a random reference window, and encodes its true
// origin into the read name so the next parsing round can label it.
package sim

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/tandembio/bio/tandem"
)

// GrowthFunc selects how the simulated-read budget grows with the
// estimated reference size.
type GrowthFunc int

const (
	// FuncSqrt scales the budget with the square root of the reference
	// base count.
	FuncSqrt GrowthFunc = iota
	// FuncLinear scales the budget linearly with the base count.
	FuncLinear
	// FuncConst ignores the base count; the factor is the budget.
	FuncConst
)

// ParseGrowthFunc parses the command-line spelling of a GrowthFunc.
func ParseGrowthFunc(s string) (GrowthFunc, error) {
	switch s {
	case "sqrt":
		return FuncSqrt, nil
	case "linear":
		return FuncLinear, nil
	case "const":
		return FuncConst, nil
	}
	return 0, fmt.Errorf("unknown growth function %q (want sqrt, linear or const)", s)
}

// Reads returns the simulated-read budget for a reference of the given
// size, before per-lane minimums are applied.
func (f GrowthFunc) Reads(factor float64, bases int64) int64 {
	switch f {
	case FuncSqrt:
		return int64(factor * math.Sqrt(float64(bases)))
	case FuncLinear:
		return int64(factor * float64(bases))
	default:
		return int64(factor)
	}
}

// Opts sizes a simulation batch.
type Opts struct {
	Factor   float64
	Function GrowthFunc
	// Per-lane minimum read counts.
	UnpMin    int
	BadEndMin int
	ConcMin   int
	DiscMin   int
}

// DefaultOpts are the values used when a flag is left unset.
var DefaultOpts = Opts{
	Factor:    30.0,
	Function:  FuncSqrt,
	UnpMin:    30000,
	BadEndMin: 10000,
	ConcMin:   30000,
	DiscMin:   10000,
}

func (o Opts) target(min int, bases int64) int64 {
	n := o.Function.Reads(o.Factor, bases)
	if n < int64(min) {
		n = int64(min)
	}
	return n
}

// InputModelUnpaired wraps the unpaired (or bad-end) template sample of one
// lane. FractionEven and LowScoreBias are carried but do not yet affect
// draws; all templates are drawn uniformly.
type InputModelUnpaired struct {
	templates    []tandem.TemplateUnpaired
	seen         int64
	fractionEven float64
	lowScoreBias float64
}

// NewInputModelUnpaired builds a model from a lane's reservoir contents and
// the total number of templates the reservoir saw.
func NewInputModelUnpaired(templates []tandem.TemplateUnpaired, seen int64, fractionEven, lowScoreBias float64) *InputModelUnpaired {
	return &InputModelUnpaired{
		templates:    templates,
		seen:         seen,
		fractionEven: fractionEven,
		lowScoreBias: lowScoreBias,
	}
}

// Empty reports whether the model has no templates to draw from.
func (m *InputModelUnpaired) Empty() bool { return m == nil || len(m.templates) == 0 }

// Draw returns a uniformly sampled template.
func (m *InputModelUnpaired) Draw(rnd *rand.Rand) tandem.TemplateUnpaired {
	return m.templates[rnd.Intn(len(m.templates))]
}

// InputModelPaired is the paired-lane counterpart of InputModelUnpaired.
type InputModelPaired struct {
	templates    []tandem.TemplatePaired
	seen         int64
	fractionEven float64
	lowScoreBias float64
}

// NewInputModelPaired builds a model from a paired lane's reservoir
// contents.
func NewInputModelPaired(templates []tandem.TemplatePaired, seen int64, fractionEven, lowScoreBias float64) *InputModelPaired {
	return &InputModelPaired{
		templates:    templates,
		seen:         seen,
		fractionEven: fractionEven,
		lowScoreBias: lowScoreBias,
	}
}

// Empty reports whether the model has no templates to draw from.
func (m *InputModelPaired) Empty() bool { return m == nil || len(m.templates) == 0 }

// Draw returns a uniformly sampled template.
func (m *InputModelPaired) Draw(rnd *rand.Rand) tandem.TemplatePaired {
	return m.templates[rnd.Intn(len(m.templates))]
}
