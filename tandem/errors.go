package tandem

import "fmt"

// FormatErrorKind discriminates the fatal input-format violations that can
// abort a run. A FormatError is never recoverable: skipping a malformed
// record would bias both the training set and the simulator templates.
type FormatErrorKind int

const (
	// BadField is a mandatory SAM column that failed to parse.
	BadField FormatErrorKind = iota
	// BadCigar is a CIGAR string that failed to parse, or clip geometry
	// that leaves no aligned bases.
	BadCigar
	// BadMDZ is an MD:Z value containing a byte outside the
	// digit/letter/'^' vocabulary.
	BadMDZ
	// CigarMDZMismatch means the CIGAR and MD:Z run lists could not be
	// reconciled into a single edit transcript.
	CigarMDZMismatch
	// UnsupportedCigarOp is a CIGAR op that is illegal in the active
	// transcript-construction path (M/P with an extended CIGAR, P/=/X in
	// the MD:Z reconciliation path).
	UnsupportedCigarOp
	// NoTranscriptSource means a record has neither an extended CIGAR nor
	// an MD:Z field, so no edit transcript can be built.
	NoTranscriptSource
	// MissingZTZ is an aligned record without the ZT:Z field.
	MissingZTZ
	// MatePairOrder means two consecutive paired-end records claimed the
	// same mate role; mates must appear as adjacent primary alignments.
	MatePairOrder
)

func (k FormatErrorKind) String() string {
	switch k {
	case BadField:
		return "bad field"
	case BadCigar:
		return "bad CIGAR"
	case BadMDZ:
		return "bad MD:Z"
	case CigarMDZMismatch:
		return "CIGAR/MD:Z mismatch"
	case UnsupportedCigarOp:
		return "unsupported CIGAR op"
	case NoTranscriptSource:
		return "no transcript source"
	case MissingZTZ:
		return "missing ZT:Z"
	case MatePairOrder:
		return "mate pairing order"
	}
	return "unknown"
}

// FormatError reports a fatal violation of the input contract, with the
// 1-based source line it was detected on.
type FormatError struct {
	Kind   FormatErrorKind
	Line   int64
	Detail string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("line %d: %s: %s", e.Line, e.Kind, e.Detail)
}

func formatErrorf(kind FormatErrorKind, line int64, format string, args ...interface{}) error {
	return &FormatError{Kind: kind, Line: line, Detail: fmt.Sprintf(format, args...)}
}
