package tandem

import (
	"github.com/grailbio/hts/sam"
)

// EditTranscript is the canonical per-base edit sequence of an alignment,
// over the alphabet {'=' match, 'X' mismatch, 'I' insertion, 'D' deletion,
// 'N' reference skip, 'S' soft clip}. Hard clips are dropped. A transcript
// is built exactly once per record, either straight from an extended CIGAR
// or by reconciling a plain CIGAR with the MD:Z run list, never both.
type EditTranscript []byte

func (t EditTranscript) String() string { return string(t) }

// ReadLen returns the number of read bases the transcript covers
// ('=', 'X', 'I', 'S').
func (t EditTranscript) ReadLen() int {
	n := 0
	for _, c := range t {
		switch c {
		case '=', 'X', 'I', 'S':
			n++
		}
	}
	return n
}

// RefSpan returns the number of reference bases the aligned portion of the
// transcript covers ('=', 'X', 'D', 'N').
func (t EditTranscript) RefSpan() int {
	n := 0
	for _, c := range t {
		switch c {
		case '=', 'X', 'D', 'N':
			n++
		}
	}
	return n
}

func appendRun(xs EditTranscript, c byte, n int) EditTranscript {
	for i := 0; i < n; i++ {
		xs = append(xs, c)
	}
	return xs
}

// transcriptFromExtendedCigar expands a CIGAR that already uses the =/X
// alphabet. M and P must not appear; hard clips are dropped.
func transcriptFromExtendedCigar(cigar sam.Cigar, line int64) (EditTranscript, error) {
	xs := make(EditTranscript, 0, 64)
	for _, op := range cigar {
		switch op.Type() {
		case sam.CigarEqual:
			xs = appendRun(xs, '=', op.Len())
		case sam.CigarMismatch:
			xs = appendRun(xs, 'X', op.Len())
		case sam.CigarInsertion:
			xs = appendRun(xs, 'I', op.Len())
		case sam.CigarDeletion:
			xs = appendRun(xs, 'D', op.Len())
		case sam.CigarSkipped:
			xs = appendRun(xs, 'N', op.Len())
		case sam.CigarSoftClipped:
			xs = appendRun(xs, 'S', op.Len())
		case sam.CigarHardClipped:
			// dropped
		default:
			return nil, formatErrorf(UnsupportedCigarOp, line,
				"op %v is illegal in an extended CIGAR", op.Type())
		}
	}
	return xs, nil
}

// reconcileTranscript merges a plain CIGAR with the MD:Z run list. The two
// lists are walked with independent cursors: each CIGAR M run consumes MD:Z
// match/mismatch runs until exhausted, splitting a match run that is longer
// than the remaining M budget. Mismatch runs must fit entirely within the
// current M run, and a CIGAR D run must line up 1:1 with an MD:Z deletion
// run of equal length. The MD:Z cursor must be fully consumed at the end.
func reconcileTranscript(cigar sam.Cigar, runs []mdzRun, chars []byte, line int64) (EditTranscript, error) {
	xs := make(EditTranscript, 0, 64)
	mdo := 0    // index of the current MD:Z run
	within := 0 // bases already consumed from runs[mdo]
	for _, op := range cigar {
		switch op.Type() {
		case sam.CigarMatch:
			runLeft := op.Len()
			for runLeft > 0 {
				if mdo >= len(runs) {
					return nil, formatErrorf(CigarMDZMismatch, line,
						"MD:Z runs exhausted with %d bases of an M run outstanding", runLeft)
				}
				r := runs[mdo]
				switch r.kind {
				case mdzMatch:
					n := r.run - within
					if n > runLeft {
						n = runLeft
					}
					xs = appendRun(xs, '=', n)
					runLeft -= n
					within += n
				case mdzMismatch:
					if within != 0 || r.run > runLeft {
						return nil, formatErrorf(CigarMDZMismatch, line,
							"MD:Z mismatch run of %d bases does not fit the remaining %d bases of an M run", r.run, runLeft)
					}
					xs = appendRun(xs, 'X', r.run)
					runLeft -= r.run
					within = r.run
				case mdzDeletion:
					return nil, formatErrorf(CigarMDZMismatch, line,
						"MD:Z deletion run found inside a CIGAR M run")
				}
				if within == runs[mdo].run {
					mdo++
					within = 0
				}
			}
		case sam.CigarInsertion:
			xs = appendRun(xs, 'I', op.Len())
		case sam.CigarDeletion:
			if mdo >= len(runs) || within != 0 || runs[mdo].kind != mdzDeletion {
				return nil, formatErrorf(CigarMDZMismatch, line,
					"CIGAR D run has no matching MD:Z deletion run")
			}
			if runs[mdo].run != op.Len() {
				return nil, formatErrorf(CigarMDZMismatch, line,
					"CIGAR D run of %d bases vs MD:Z deletion run of %d bases", op.Len(), runs[mdo].run)
			}
			xs = appendRun(xs, 'D', op.Len())
			mdo++
		case sam.CigarSkipped:
			xs = appendRun(xs, 'N', op.Len())
		case sam.CigarSoftClipped:
			// Advances the read, not the MD:Z cursor.
			xs = appendRun(xs, 'S', op.Len())
		case sam.CigarHardClipped:
			// dropped
		default:
			return nil, formatErrorf(UnsupportedCigarOp, line,
				"op %v is illegal when reconciling against MD:Z", op.Type())
		}
	}
	if mdo != len(runs) || within != 0 {
		return nil, formatErrorf(CigarMDZMismatch, line,
			"%d MD:Z runs left unconsumed after the CIGAR walk", len(runs)-mdo)
	}
	return xs, nil
}

// stackedAlignment runs the same CIGAR/MD:Z reconciliation but emits two
// parallel character rows: the reference and the read, with '-' filling
// gaps. Soft-clipped read bases are not represented.
func stackedAlignment(cigar sam.Cigar, runs []mdzRun, chars []byte, seq string, line int64) (ref, read []byte, err error) {
	mdo := 0
	within := 0
	rdoff := 0
	for _, op := range cigar {
		switch op.Type() {
		case sam.CigarMatch:
			runLeft := op.Len()
			for runLeft > 0 {
				if mdo >= len(runs) {
					return nil, nil, formatErrorf(CigarMDZMismatch, line,
						"MD:Z runs exhausted with %d bases of an M run outstanding", runLeft)
				}
				r := runs[mdo]
				var n int
				switch r.kind {
				case mdzMatch:
					n = r.run - within
					if n > runLeft {
						n = runLeft
					}
					if rdoff+n > len(seq) {
						return nil, nil, formatErrorf(CigarMDZMismatch, line,
							"CIGAR extends past the %d-base sequence", len(seq))
					}
					read = append(read, seq[rdoff:rdoff+n]...)
					ref = append(ref, seq[rdoff:rdoff+n]...)
				case mdzMismatch:
					if within != 0 || r.run > runLeft {
						return nil, nil, formatErrorf(CigarMDZMismatch, line,
							"MD:Z mismatch run of %d bases does not fit the remaining %d bases of an M run", r.run, runLeft)
					}
					n = r.run
					if rdoff+n > len(seq) {
						return nil, nil, formatErrorf(CigarMDZMismatch, line,
							"CIGAR extends past the %d-base sequence", len(seq))
					}
					read = append(read, seq[rdoff:rdoff+n]...)
					ref = append(ref, chars[r.off:r.off+n]...)
				case mdzDeletion:
					return nil, nil, formatErrorf(CigarMDZMismatch, line,
						"MD:Z deletion run found inside a CIGAR M run")
				}
				runLeft -= n
				within += n
				rdoff += n
				if within == runs[mdo].run {
					mdo++
					within = 0
				}
			}
		case sam.CigarInsertion:
			if rdoff+op.Len() > len(seq) {
				return nil, nil, formatErrorf(CigarMDZMismatch, line,
					"CIGAR extends past the %d-base sequence", len(seq))
			}
			for j := 0; j < op.Len(); j++ {
				read = append(read, seq[rdoff+j])
				ref = append(ref, '-')
			}
			rdoff += op.Len()
		case sam.CigarDeletion:
			if mdo >= len(runs) || within != 0 || runs[mdo].kind != mdzDeletion || runs[mdo].run != op.Len() {
				return nil, nil, formatErrorf(CigarMDZMismatch, line,
					"CIGAR D run has no matching MD:Z deletion run")
			}
			r := runs[mdo]
			for j := 0; j < r.run; j++ {
				read = append(read, '-')
				ref = append(ref, chars[r.off+j])
			}
			mdo++
		case sam.CigarSkipped:
			for j := 0; j < op.Len(); j++ {
				read = append(read, '-')
				ref = append(ref, '-')
			}
		case sam.CigarSoftClipped:
			rdoff += op.Len()
		case sam.CigarHardClipped:
			// dropped
		default:
			return nil, nil, formatErrorf(UnsupportedCigarOp, line,
				"op %v is illegal when reconciling against MD:Z", op.Type())
		}
	}
	if mdo != len(runs) || within != 0 {
		return nil, nil, formatErrorf(CigarMDZMismatch, line,
			"%d MD:Z runs left unconsumed after the CIGAR walk", len(runs)-mdo)
	}
	return ref, read, nil
}
