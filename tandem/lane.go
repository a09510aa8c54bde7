package tandem

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/grailbio/base/errors"
)

// Lane is one of the four mutually exclusive output classes. Each lane owns
// a binary feature stream, a metadata stream, a template-model text stream
// and a template reservoir; any of them may be nil, in which case that
// output is skipped. A record or pair belongs to exactly one lane.
type Lane struct {
	Name   string
	Paired bool

	// Features receives the flat float64 records; Meta receives the
	// single header/row-count line at end of stream; Model receives one
	// CSV row per emitted unit.
	Features io.Writer
	Meta     io.Writer
	Model    io.Writer

	// Exactly one of these is non-nil when templates are kept for
	// simulation: Templates on unpaired-style lanes, PairTemplates on
	// paired lanes.
	Templates     *UnpairedReservoir
	PairTemplates *PairedReservoir

	// nztz is the auxiliary-field count inferred from the lane's first
	// emitted record; it sizes every later record and the header.
	nztz    int
	records int64
}

// Lanes groups the four lanes.
type Lanes struct {
	Unpaired   Lane
	BadEnd     Lane
	Concordant Lane
	Discordant Lane
}

func (ls *Lanes) all() []*Lane {
	return []*Lane{&ls.Unpaired, &ls.BadEnd, &ls.Concordant, &ls.Discordant}
}

// Records returns the number of units (records or pairs) emitted to the
// lane.
func (l *Lane) Records() int64 { return l.records }

// writeFeatures flushes one emission event (a record, or both rows of a
// pair) as a single bulk write of little-endian float64 values. A short
// write is fatal.
func (l *Lane) writeFeatures(vals []float64) error {
	if err := binary.Write(l.Features, binary.LittleEndian, vals); err != nil {
		return errors.E(err, fmt.Sprintf("writing %d feature values to lane %s after %d records",
			len(vals), l.Name, l.records))
	}
	return nil
}

func (l *Lane) checkZTZCount(al *Alignment) error {
	if l.Features != nil && len(al.ZTZ) != l.nztz {
		return formatErrorf(BadField, al.Line, "record %q has %d ZT:Z fields; lane %s is sized for %d",
			al.Name, len(al.ZTZ), l.Name, l.nztz)
	}
	return nil
}

// writeMeta writes the lane's metadata line: comma-separated column names
// matching the binary layout, then the total row count. Deferred to end of
// stream because the row count is only known after the full pass.
func (l *Lane) writeMeta() error {
	if l.Meta == nil || l.Features == nil || l.records == 0 {
		return nil
	}
	var err error
	if l.Paired {
		err = writePairedMeta(l.Meta, l.nztz, l.records*2)
	} else {
		err = writeUnpairedMeta(l.Meta, l.nztz, l.records)
	}
	if err != nil {
		return errors.E(err, "writing metadata for lane "+l.Name)
	}
	return nil
}

func writeUnpairedMeta(w io.Writer, nztz int, rows int64) error {
	if _, err := io.WriteString(w, "id,len,clip,alqual,clipqual,olen"); err != nil {
		return err
	}
	for i := 0; i < nztz; i++ {
		if _, err := fmt.Fprintf(w, ",ztz%d", i); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, ",mapq,correct,%d\n", rows)
	return err
}

func writePairedMeta(w io.Writer, nztz int, rows int64) error {
	if _, err := io.WriteString(w, "id,len,clip,alqual,clipqual"); err != nil {
		return err
	}
	for i := 0; i < nztz; i++ {
		if _, err := fmt.Fprintf(w, ",ztz_%d", i); err != nil {
			return err
		}
	}
	if _, err := io.WriteString(w, ",olen,oclip,oalqual,oclipqual,fraglen"); err != nil {
		return err
	}
	for i := 0; i < nztz; i++ {
		if _, err := fmt.Fprintf(w, ",oztz_%d", i); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, ",mapq,correct,%d\n", rows)
	return err
}
