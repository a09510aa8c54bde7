package tandem

import (
	"math"
	"strconv"
	"strings"

	"github.com/grailbio/hts/sam"
)

// clippedQualSentinel is reported as the clipped-base quality average when a
// record has at most one soft-clipped base. A one-base average is
// statistically meaningless, so the clip is folded into the aligned region
// instead.
const clippedQualSentinel = 100.0

// Alignment is one parsed SAM record. Records are double-buffered by the
// streaming pass: two slots alternate so that a paired-end record survives
// long enough to be bound to its mate on the next eligible line. All string
// fields are owned copies independent of the input buffer.
type Alignment struct {
	Name  string
	Flags sam.Flags
	// Line is the 1-based source line, used to order paired output
	// deterministically.
	Line int64

	// tail is the raw remainder of the line starting at the RNAME column.
	// Fields past the flag column are only tokenized on demand: an
	// unaligned record, or the unaligned mate of a bad-end pair, is never
	// fully parsed.
	tail string

	// simType is the simulated-type tag embedded in scheme-(a) read names
	// ("u", "b1", "b2", "c", "d"), or empty.
	simType string

	Ref     string
	Pos     int // 1-based leftmost mapping position
	MapQ    int
	Cigar   sam.Cigar
	MateRef string
	MatePos int
	Seq     string
	Qual    string

	mdz    string
	hasMDZ bool
	// extended is set when the CIGAR uses the =/X alphabet, in which case
	// the transcript comes straight from the CIGAR and MD:Z is ignored.
	extended bool

	// ZTZ holds the comma-separated numeric auxiliary fields from the
	// ZT:Z tag. BestScore is the integer value of the first field.
	ZTZ       []float64
	BestScore int

	LeftClip    int
	RightClip   int
	AlignedQual int // summed base quality (q-33) outside the clipped region
	ClippedQual int // summed base quality (q-33) inside the clipped region

	AvgAlignedQual float64
	AvgClippedQual float64

	Transcript EditTranscript

	Correct Correctness

	// pending marks a paired-end record still awaiting its mate.
	pending bool
}

func (al *Alignment) reset() {
	*al = Alignment{Correct: CorrectnessUnknown}
}

// IsAligned reports whether the record aligned (flag 0x4 unset).
func (al *Alignment) IsAligned() bool { return al.Flags&sam.Unmapped == 0 }

// IsForward reports whether the record aligned to the forward strand.
func (al *Alignment) IsForward() bool { return al.Flags&sam.Reverse == 0 }

// IsConcordant reports whether the aligner marked the pair concordant
// (flag 0x2).
func (al *Alignment) IsConcordant() bool { return al.Flags&sam.ProperPair != 0 }

// MateFlag returns '1' or '2' for the two ends of a pair, or '0' for a
// record with neither mate-role bit set.
func (al *Alignment) MateFlag() byte {
	if al.Flags&sam.Read1 != 0 {
		return '1'
	}
	if al.Flags&sam.Read2 != 0 {
		return '2'
	}
	return '0'
}

// ReadLen returns the read length.
func (al *Alignment) ReadLen() int { return len(al.Seq) }

// TotalClip returns the summed soft-clip length after any sentinel folding.
func (al *Alignment) TotalClip() int { return al.LeftClip + al.RightClip }

// leftRefPos is the leftmost reference position involved in the alignment,
// counting soft-clipped bases as part of the alignment.
func (al *Alignment) leftRefPos() int { return al.Pos - al.LeftClip }

// rightRefPos is the rightmost reference position involved in the alignment,
// counting soft-clipped bases as part of the alignment. Derived from the
// transcript: every op right of the leading clip that consumes reference
// (including the trailing clip) moves the right edge.
func (al *Alignment) rightRefPos() int {
	xs := al.Transcript
	i := 0
	for i < len(xs) && xs[i] == 'S' {
		i++
	}
	span := 0
	for ; i < len(xs); i++ {
		switch xs[i] {
		case '=', 'X', 'D', 'N', 'S':
			span++
		}
	}
	return al.Pos + span - 1
}

// FragmentLength infers the fragment length of a mate pair from positions
// and CIGAR-derived spans, never from the TLEN column (which is ambiguous
// about soft clips). The result is capped at max; geometry that places the
// downstream mate's right edge left of the upstream mate's left edge is
// treated as exceeding the cap.
func FragmentLength(al1, al2 *Alignment, max int) int {
	up, dn := al1, al2
	if al2.Pos < al1.Pos {
		up, dn = al2, al1
	}
	f := dn.rightRefPos() - up.leftRefPos() + 1
	if f < 0 || f > max {
		return max
	}
	return f
}

var cigarOpTypes = map[byte]sam.CigarOpType{
	'M': sam.CigarMatch,
	'I': sam.CigarInsertion,
	'D': sam.CigarDeletion,
	'N': sam.CigarSkipped,
	'S': sam.CigarSoftClipped,
	'H': sam.CigarHardClipped,
	'P': sam.CigarPadded,
	'=': sam.CigarEqual,
	'X': sam.CigarMismatch,
}

// parseCigar fills Cigar, the clip lengths, and the extended-alphabet flag.
func (al *Alignment) parseCigar(s string) error {
	if s == "" || s == "*" {
		return formatErrorf(BadCigar, al.Line, "aligned record %q has no CIGAR", al.Name)
	}
	i := 0
	for i < len(s) {
		run := 0
		start := i
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			run = run*10 + int(s[i]-'0')
			i++
		}
		if i == start || i == len(s) {
			return formatErrorf(BadCigar, al.Line, "malformed CIGAR %q", s)
		}
		typ, ok := cigarOpTypes[s[i]]
		if !ok {
			return formatErrorf(BadCigar, al.Line, "unknown CIGAR op %q in %q", s[i], s)
		}
		if typ == sam.CigarSoftClipped {
			if len(al.Cigar) == 0 {
				al.LeftClip = run
			} else if i+1 >= len(s) {
				al.RightClip = run
			}
		}
		if typ == sam.CigarEqual || typ == sam.CigarMismatch {
			al.extended = true
		}
		al.Cigar = append(al.Cigar, sam.NewCigarOp(typ, run))
		i++
	}
	return nil
}

// calcQualAverages sums base qualities inside and outside the clipped
// region. When at most one base is clipped, the clipped average is pinned to
// the sentinel and the clip lengths are zeroed, folding the clip into the
// aligned region.
func (al *Alignment) calcQualAverages() error {
	n := len(al.Qual)
	if n == 0 || n != len(al.Seq) {
		return formatErrorf(BadField, al.Line, "record %q: quality length %d does not match sequence length %d",
			al.Name, n, len(al.Seq))
	}
	nclipped := al.LeftClip + al.RightClip
	if nclipped >= n {
		return formatErrorf(BadCigar, al.Line, "record %q: %d soft-clipped bases cover the %d-base read",
			al.Name, nclipped, n)
	}
	al.AlignedQual = 0
	al.ClippedQual = 0
	for i := 0; i < n; i++ {
		q := int(al.Qual[i]) - 33
		if i < al.LeftClip || i >= n-al.RightClip {
			al.ClippedQual += q
		} else {
			al.AlignedQual += q
		}
	}
	al.AvgAlignedQual = float64(al.AlignedQual) / float64(n-nclipped)
	if nclipped > 1 {
		al.AvgClippedQual = float64(al.ClippedQual) / float64(nclipped)
	} else {
		al.AvgClippedQual = clippedQualSentinel
		al.ClippedQual = 0
		al.LeftClip = 0
		al.RightClip = 0
	}
	return nil
}

// parseZTZ parses the comma-separated ZT:Z value. "NA" becomes NaN; a token
// containing '.' takes the float path, everything else parses as a signed
// integer.
func (al *Alignment) parseZTZ(s string) error {
	for len(s) > 0 {
		tok := s
		if j := strings.IndexByte(s, ','); j >= 0 {
			tok, s = s[:j], s[j+1:]
		} else {
			s = ""
		}
		switch {
		case tok == "NA":
			al.ZTZ = append(al.ZTZ, math.NaN())
		case strings.IndexByte(tok, '.') >= 0:
			v, err := strconv.ParseFloat(tok, 64)
			if err != nil {
				return formatErrorf(BadField, al.Line, "bad ZT:Z value %q", tok)
			}
			al.ZTZ = append(al.ZTZ, v)
		default:
			v, err := strconv.Atoi(tok)
			if err != nil {
				return formatErrorf(BadField, al.Line, "bad ZT:Z value %q", tok)
			}
			al.ZTZ = append(al.ZTZ, float64(v))
		}
	}
	if len(al.ZTZ) == 0 {
		return formatErrorf(BadField, al.Line, "empty ZT:Z value")
	}
	if v := al.ZTZ[0]; !math.IsNaN(v) {
		al.BestScore = int(v)
	}
	return nil
}

func nextField(s string) (field, rest string, ok bool) {
	if s == "" {
		return "", "", false
	}
	if j := strings.IndexByte(s, '\t'); j >= 0 {
		return s[:j], s[j+1:], true
	}
	return s, "", true
}

// parseTail tokenizes the record from the RNAME column on and computes all
// derived quantities, including the edit transcript. It is only invoked for
// records that will be emitted; see Pass.
func (al *Alignment) parseTail() error {
	rest := al.tail
	var fields [9]string
	for i := 0; i < len(fields); i++ {
		f, r, ok := nextField(rest)
		if !ok {
			return formatErrorf(BadField, al.Line, "record %q: truncated line (%d of 11 mandatory columns)",
				al.Name, i+2)
		}
		fields[i], rest = f, r
	}
	al.Ref = fields[0]
	pos, err := strconv.Atoi(fields[1])
	if err != nil {
		return formatErrorf(BadField, al.Line, "bad POS %q", fields[1])
	}
	al.Pos = pos
	mapq, err := strconv.Atoi(fields[2])
	if err != nil || mapq < 0 || mapq > 255 {
		return formatErrorf(BadField, al.Line, "bad MAPQ %q", fields[2])
	}
	al.MapQ = mapq
	if err := al.parseCigar(fields[3]); err != nil {
		return err
	}
	al.MateRef = fields[4]
	if al.MatePos, err = strconv.Atoi(fields[5]); err != nil {
		return formatErrorf(BadField, al.Line, "bad PNEXT %q", fields[5])
	}
	// fields[6] is TLEN, deliberately ignored.
	al.Seq = fields[7]
	al.Qual = fields[8]
	if err := al.calcQualAverages(); err != nil {
		return err
	}

	foundZTZ := false
	for rest != "" {
		var tag string
		tag, rest, _ = nextField(rest)
		switch {
		case strings.HasPrefix(tag, "MD:Z:"):
			al.mdz = tag[5:]
			al.hasMDZ = true
		case strings.HasPrefix(tag, "ZT:Z:"):
			if err := al.parseZTZ(tag[5:]); err != nil {
				return err
			}
			foundZTZ = true
		}
	}
	if !foundZTZ {
		return formatErrorf(MissingZTZ, al.Line,
			"record %q has no ZT:Z field; run an aligner version that emits the model fields", al.Name)
	}
	return al.buildTranscript()
}

// buildTranscript constructs the edit transcript by exactly one of the two
// source paths.
func (al *Alignment) buildTranscript() error {
	if al.extended {
		xs, err := transcriptFromExtendedCigar(al.Cigar, al.Line)
		if err != nil {
			return err
		}
		al.Transcript = xs
		return nil
	}
	if al.hasMDZ {
		runs, chars, err := parseMDZ(al.mdz, al.Line)
		if err != nil {
			return err
		}
		xs, err := reconcileTranscript(al.Cigar, runs, chars, al.Line)
		if err != nil {
			return err
		}
		al.Transcript = xs
		return nil
	}
	return formatErrorf(NoTranscriptSource, al.Line,
		"record %q has neither an extended CIGAR (=/X in place of M) nor an MD:Z field; one or the other is required",
		al.Name)
}

// StackedAlignment materializes the reference and read rows of the
// alignment as parallel gap-filled character sequences. Used to reconstruct
// reference context for simulation.
func (al *Alignment) StackedAlignment() (ref, read []byte, err error) {
	if !al.hasMDZ {
		return nil, nil, formatErrorf(NoTranscriptSource, al.Line,
			"record %q has no MD:Z field; cannot stack the alignment", al.Name)
	}
	runs, chars, err := parseMDZ(al.mdz, al.Line)
	if err != nil {
		return nil, nil, err
	}
	return stackedAlignment(al.Cigar, runs, chars, al.Seq, al.Line)
}

// ztzCountFromTail counts the comma-separated values of the ZT:Z tag by
// scanning the raw line remainder, without tokenizing the record. Called
// once per lane, on the lane's first emitted record; the count sizes every
// later record and the metadata header.
func ztzCountFromTail(tail string) int {
	j := strings.Index(tail, "\tZT:Z:")
	if j < 0 {
		return 1
	}
	n := 1
	for i := j + 6; i < len(tail) && tail[i] != '\t'; i++ {
		if tail[i] == ',' {
			n++
		}
	}
	return n
}

// readLenFromTail extracts the sequence length of a record by column
// position alone, for unaligned mates that never get fully parsed.
//
// Hard input contract: the eleven mandatory SAM columns must appear in
// standard order, so the sequence is the eighth tab-separated field of the
// tail (which starts at RNAME).
func readLenFromTail(tail string) int {
	tabs := 0
	start := -1
	for i := 0; i < len(tail); i++ {
		if tail[i] != '\t' {
			continue
		}
		tabs++
		if tabs == 7 {
			start = i + 1
		} else if tabs == 8 {
			return i - start
		}
	}
	if start >= 0 {
		return len(tail) - start
	}
	return 0
}
