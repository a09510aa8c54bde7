package tandem

import "github.com/grailbio/base/errors"

// emitUnpaired fully parses an aligned record, labels it, and writes it to
// an unpaired-style lane (unpaired-aligned or bad-end). oppositeLen is the
// unaligned mate's read length on the bad-end lane, 0 otherwise.
func (p *Pass) emitUnpaired(al *Alignment, oppositeLen int, l *Lane) error {
	if l.records == 0 && l.Features != nil {
		l.nztz = ztzCountFromTail(al.tail)
	}
	if err := al.parseTail(); err != nil {
		return err
	}
	al.setCorrectness(p.opts.Wiggle)
	if err := l.checkZTZCount(al); err != nil {
		return err
	}

	t := newTemplateUnpaired(al, oppositeLen)
	if l.Model != nil {
		if err := t.writeCSV(l.Model); err != nil {
			return errors.E(err, "writing template-model row to lane "+l.Name)
		}
	}
	if l.Templates != nil {
		l.Templates.Add(t)
	}

	if l.Features != nil {
		row := p.rowBuf[:0]
		row = append(row,
			float64(al.Line),
			float64(al.ReadLen()),
			float64(al.TotalClip()),
			float64(al.AlignedQual),
			float64(al.ClippedQual),
			float64(oppositeLen))
		row = append(row, al.ZTZ...)
		row = append(row, float64(al.MapQ), float64(al.Correct))
		p.rowBuf = row
		if err := l.writeFeatures(row); err != nil {
			return err
		}
	}
	l.records++
	return nil
}

// emitPaired parses both mates of a bound pair and writes them to a paired
// lane. The feature stream gets two records per pair, centered on the
// first-seen mate and then on the other, flushed together as one write;
// "other" fields always describe the opposite mate.
func (p *Pass) emitPaired(mate1, mate2 *Alignment, l *Lane) error {
	if l.records == 0 && l.Features != nil {
		l.nztz = ztzCountFromTail(mate1.tail)
	}
	a1, a2 := mate1, mate2
	if a2.Line < a1.Line {
		a1, a2 = a2, a1
	}
	if err := a1.parseTail(); err != nil {
		return err
	}
	if err := a2.parseTail(); err != nil {
		return err
	}
	a1.setCorrectness(p.opts.Wiggle)
	a2.setCorrectness(p.opts.Wiggle)
	if err := l.checkZTZCount(a1); err != nil {
		return err
	}
	if err := l.checkZTZCount(a2); err != nil {
		return err
	}
	fragLen := FragmentLength(a1, a2, p.opts.MaxFragLen)

	t := newTemplatePaired(a1, a2, fragLen)
	if l.Model != nil {
		if err := t.writeCSV(l.Model); err != nil {
			return errors.E(err, "writing template-model row to lane "+l.Name)
		}
	}
	if l.PairTemplates != nil {
		l.PairTemplates.Add(t)
	}

	if l.Features != nil {
		row := p.rowBuf[:0]
		row = appendPairedRow(row, a1, a2, fragLen)
		row = appendPairedRow(row, a2, a1, fragLen)
		p.rowBuf = row
		if err := l.writeFeatures(row); err != nil {
			return err
		}
	}
	l.records++
	return nil
}

// appendPairedRow appends one own-centric paired feature record: the own
// mate's id/len/clip/quals/ZT:Z fields, the other mate's mirror block with
// the shared fragment length, then the own MAPQ and correctness label.
func appendPairedRow(row []float64, own, other *Alignment, fragLen int) []float64 {
	row = append(row,
		float64(own.Line),
		float64(own.ReadLen()),
		float64(own.TotalClip()),
		float64(own.AlignedQual),
		float64(own.ClippedQual))
	row = append(row, own.ZTZ...)
	row = append(row,
		float64(other.ReadLen()),
		float64(other.TotalClip()),
		float64(other.AlignedQual),
		float64(other.ClippedQual),
		float64(fragLen))
	row = append(row, other.ZTZ...)
	row = append(row, float64(own.MapQ), float64(own.Correct))
	return row
}
