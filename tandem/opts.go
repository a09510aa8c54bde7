package tandem

// Opts controls the streaming pass.
type Opts struct {
	// Wiggle is the positional tolerance, in bases, for the correctness
	// oracle. A reported position exactly Wiggle away from the true
	// origin is not correct.
	Wiggle int
	// MaxFragLen caps the CIGAR-derived fragment length of a mate pair.
	MaxFragLen int
	// InputModelSize is the per-lane template reservoir capacity;
	// <= 0 keeps every eligible template.
	InputModelSize int
	// FractionEven and LowScoreBias shape how the simulator draws from
	// the sampled templates. Accepted but not yet implemented; they are
	// carried through to the input models unchanged.
	FractionEven float64
	LowScoreBias float64
}

// DefaultOpts are the values used when a flag is left unset.
var DefaultOpts = Opts{
	Wiggle:         30,
	MaxFragLen:     50000,
	InputModelSize: 0,
	FractionEven:   1.0,
	LowScoreBias:   1.0,
}
