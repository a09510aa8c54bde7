package tandem

import (
	"bufio"
	"io"
	"strconv"

	"github.com/grailbio/hts/sam"
)

// SAM lines can run long with long-read data; qualities and sequences
// dominate.
const maxLineBytes = 16 << 20

// Pass is the single-threaded streaming pass over one or more SAM streams:
// records are parsed, paired, classified into lanes and emitted strictly
// one line at a time. Exactly two record slots alternate, so memory is
// O(1) in record count; the design assumes a mate pair's records appear as
// adjacent primary alignments.
//
// A Pass may Run over several inputs in sequence; line ids keep counting
// across them. Finish writes the deferred per-lane metadata.
type Pass struct {
	opts  Opts
	lanes *Lanes
	stats Stats

	slots [2]Alignment
	cur   int
	line  int64

	// rowBuf is reused scratch for assembling feature rows; the Pass is
	// single-threaded by contract.
	rowBuf []float64
}

// NewPass returns a Pass emitting into lanes.
func NewPass(opts Opts, lanes *Lanes) *Pass {
	p := &Pass{opts: opts, lanes: lanes}
	p.slots[0].reset()
	p.slots[1].reset()
	return p
}

// Stats returns a copy of the accumulated counters.
func (p *Pass) Stats() Stats { return p.stats }

// Run consumes one SAM stream. Any returned error is fatal to the run;
// partial lane output must be treated as invalid.
func (p *Pass) Run(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		if err := p.processLine(scanner.Text()); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// Finish writes each emitting lane's metadata line. Call once, after the
// last Run.
func (p *Pass) Finish() error {
	for i := range p.slots {
		if p.slots[i].pending {
			return formatErrorf(MatePairOrder, p.line,
				"paired-end record %q was never bound to a mate", p.slots[i].Name)
		}
	}
	for _, l := range p.lanes.all() {
		if err := l.writeMeta(); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pass) processLine(line string) error {
	p.line++
	p.stats.Lines++
	if line == "" {
		return nil
	}
	if line[0] == '@' {
		p.stats.Headers++
		return nil
	}
	name, rest, ok := nextField(line)
	flagStr, tail, okFlag := nextField(rest)
	if !ok || !okFlag {
		return formatErrorf(BadField, p.line, "truncated SAM line")
	}
	flagVal, err := strconv.Atoi(flagStr)
	if err != nil {
		return formatErrorf(BadField, p.line, "bad FLAG %q", flagStr)
	}
	flags := sam.Flags(flagVal)
	if flags&sam.Secondary != 0 {
		p.stats.Secondary++
		return nil
	}
	if flags&sam.Supplementary != 0 {
		p.stats.Supplementary++
		return nil
	}

	cur := &p.slots[p.cur]
	prev := &p.slots[1-p.cur]
	p.cur = 1 - p.cur
	if cur.pending {
		return formatErrorf(MatePairOrder, p.line,
			"paired-end record %q was never bound to a mate", cur.Name)
	}
	cur.reset()
	cur.Name = name
	cur.Flags = flags
	cur.Line = p.line
	cur.tail = tail
	cur.simType = simTypeFromName(name)

	// Bind adjacent mates.
	var mate1, mate2 *Alignment
	if cur.MateFlag() != '0' && prev.pending {
		if cur.MateFlag() == '1' {
			if prev.MateFlag() != '2' {
				return formatErrorf(MatePairOrder, p.line,
					"consecutive paired-end records %q and %q are not from opposite ends", prev.Name, cur.Name)
			}
			mate1, mate2 = cur, prev
		} else {
			if prev.MateFlag() != '1' {
				return formatErrorf(MatePairOrder, p.line,
					"consecutive paired-end records %q and %q are not from opposite ends", prev.Name, cur.Name)
			}
			mate1, mate2 = prev, cur
		}
		prev.pending = false
		p.stats.Pairs++
	}

	switch {
	case cur.MateFlag() == '0':
		p.stats.Unpaired++
		if !cur.IsAligned() {
			p.stats.UnpairedUnaligned++
			return nil
		}
		if cur.simType == "" || cur.simType[0] == 'u' {
			p.stats.UnpairedAligned++
			return p.emitUnpaired(cur, 0, &p.lanes.Unpaired)
		}
		p.stats.TypeMismatch++

	case mate1 != nil:
		aligned1, aligned2 := mate1.IsAligned(), mate2.IsAligned()
		switch {
		case !aligned1 && !aligned2:
			p.stats.PairsUnaligned++

		case aligned1 != aligned2:
			alm, other := mate1, mate2
			if !aligned1 {
				alm, other = mate2, mate1
			}
			if alm.simType == "" ||
				(len(alm.simType) >= 2 && alm.simType[0] == 'b' && alm.simType[1] == alm.MateFlag()) {
				p.stats.BadEnd++
				// The unaligned mate contributes only its read length,
				// extracted without tokenizing the record.
				return p.emitUnpaired(alm, readLenFromTail(other.tail), &p.lanes.BadEnd)
			}
			p.stats.TypeMismatch++

		default:
			if mate1.IsConcordant() != mate2.IsConcordant() {
				return formatErrorf(BadField, p.line,
					"mates of %q disagree on the concordant flag", mate1.Name)
			}
			if mate1.IsConcordant() {
				if mate1.simType == "" || mate1.simType[0] == 'c' {
					p.stats.Concordant++
					return p.emitPaired(mate1, mate2, &p.lanes.Concordant)
				}
				p.stats.TypeMismatch++
			} else {
				if mate1.simType == "" || mate1.simType[0] == 'd' {
					p.stats.Discordant++
					return p.emitPaired(mate1, mate2, &p.lanes.Discordant)
				}
				p.stats.TypeMismatch++
			}
		}

	default:
		// Paired-end record whose mate has not appeared yet; at most one
		// record is ever pending.
		cur.pending = true
	}
	return nil
}
