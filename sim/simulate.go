package sim

import (
	"fmt"
	"io"
	"math/rand"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/tandembio/bio/encoding/fasta"
	"github.com/tandembio/bio/encoding/fastq"
	"github.com/tandembio/bio/tandem"
)

// Models groups the four lanes' input models.
type Models struct {
	Unpaired   *InputModelUnpaired
	BadEnd     *InputModelUnpaired
	Concordant *InputModelPaired
	Discordant *InputModelPaired
}

// Outputs are the per-lane FASTQ destinations. The unpaired lane writes a
// single file; the three pair-shaped lanes (bad-end included) write mate-1
// and mate-2 files.
type Outputs struct {
	Unpaired                 io.Writer
	BadEnd1, BadEnd2         io.Writer
	Concordant1, Concordant2 io.Writer
	Discordant1, Discordant2 io.Writer
}

// Simulator draws templates from the input models and streams simulated
// reads against a loaded reference.
type Simulator struct {
	ref    fasta.Fasta
	names  []string
	starts []int64 // cumulative start of each sequence in the concatenated space
	total  int64

	models Models

	unp              *fastq.Writer
	badEnd1, badEnd2 *fastq.Writer
	conc1, conc2     *fastq.Writer
	disc1, disc2     *fastq.Writer

	rnd *rand.Rand
}

// NewSimulator builds a Simulator over the given reference. The caller
// injects the random source; the simulator itself never seeds one.
func NewSimulator(ref fasta.Fasta, models Models, out Outputs, rnd *rand.Rand) (*Simulator, error) {
	s := &Simulator{
		ref:     ref,
		models:  models,
		unp:     fastq.NewWriter(out.Unpaired),
		badEnd1: fastq.NewWriter(out.BadEnd1),
		badEnd2: fastq.NewWriter(out.BadEnd2),
		conc1:   fastq.NewWriter(out.Concordant1),
		conc2:   fastq.NewWriter(out.Concordant2),
		disc1:   fastq.NewWriter(out.Discordant1),
		disc2:   fastq.NewWriter(out.Discordant2),
		rnd:     rnd,
	}
	s.names = ref.SeqNames()
	for _, name := range s.names {
		n, err := ref.Len(name)
		if err != nil {
			return nil, err
		}
		s.starts = append(s.starts, s.total)
		s.total += int64(n)
	}
	if s.total == 0 {
		return nil, errors.E("reference has no bases")
	}
	return s, nil
}

// NumEstimatedBases returns the total reference size used to scale
// simulation batches.
func (s *Simulator) NumEstimatedBases() int64 { return s.total }

// SimulateBatch generates reads for every lane whose model is non-empty.
// Lane sizes follow opts' growth function with per-lane minimums.
func (s *Simulator) SimulateBatch(opts Opts) error {
	lanes := []struct {
		name string
		min  int
		run  func() error
	}{
		{"unpaired", opts.UnpMin, s.simulateUnpairedRead},
		{"bad-end", opts.BadEndMin, s.simulateBadEndPair},
		{"concordant", opts.ConcMin, s.simulateConcordantPair},
		{"discordant", opts.DiscMin, s.simulateDiscordantPair},
	}
	for _, lane := range lanes {
		n := opts.target(lane.min, s.total)
		generated := int64(0)
		for i := int64(0); i < n; i++ {
			err := lane.run()
			if err == errEmptyModel {
				break
			}
			if err != nil {
				return errors.E(err, "simulating "+lane.name+" reads")
			}
			generated++
		}
		if generated > 0 {
			log.Printf("  simulated %d %s reads", generated, lane.name)
		}
	}
	return nil
}

var errEmptyModel = fmt.Errorf("empty input model")

const bases = "ACGT"

func (s *Simulator) randBase() byte { return bases[s.rnd.Intn(4)] }

// substBase returns a uniformly random base other than c.
func (s *Simulator) substBase(c byte) byte {
	if c >= 'a' && c <= 'z' {
		c -= 'a' - 'A'
	}
	for {
		if b := s.randBase(); b != c {
			return b
		}
	}
}

var complement = map[byte]byte{
	'A': 'T', 'C': 'G', 'G': 'C', 'T': 'A', 'N': 'N',
	'a': 't', 'c': 'g', 'g': 'c', 't': 'a', 'n': 'n',
}

func revComp(seq []byte) {
	for i, j := 0, len(seq)-1; i < j; i, j = i+1, j-1 {
		seq[i], seq[j] = seq[j], seq[i]
	}
	for i, c := range seq {
		if rc, ok := complement[c]; ok {
			seq[i] = rc
		}
	}
}

// refSpan is the number of reference bases a transcript's window must
// cover, counting soft clips as flanking context.
func refSpan(transcript string) int {
	n := 0
	for i := 0; i < len(transcript); i++ {
		switch transcript[i] {
		case '=', 'X', 'D', 'N', 'S':
			n++
		}
	}
	return n
}

func leadingClip(transcript string) int {
	n := 0
	for n < len(transcript) && transcript[n] == 'S' {
		n++
	}
	return n
}

// drawWindow picks a uniformly random reference window of the given span,
// weighting sequences by length. Returns the sequence name, the window's
// 0-based start, and its bases.
func (s *Simulator) drawWindow(span int) (string, int, string, error) {
	if span <= 0 || int64(span) > s.total {
		return "", 0, "", fmt.Errorf("cannot place a %d-base window on a %d-base reference", span, s.total)
	}
	for attempt := 0; attempt < 16; attempt++ {
		v := s.rnd.Int63n(s.total)
		idx := 0
		for idx+1 < len(s.starts) && s.starts[idx+1] <= v {
			idx++
		}
		name := s.names[idx]
		n, err := s.ref.Len(name)
		if err != nil {
			return "", 0, "", err
		}
		if n < span {
			continue
		}
		start := s.rnd.Intn(n - span + 1)
		window, err := s.ref.Get(name, start, start+span)
		if err != nil {
			return "", 0, "", err
		}
		return name, start, window, nil
	}
	return "", 0, "", fmt.Errorf("no reference sequence can hold a %d-base window", span)
}

// applyTranscript synthesizes read bases from a reference window by walking
// an edit transcript: matches and clips copy the window, mismatches
// substitute, insertions invent a base, deletions and skips consume
// reference only.
func (s *Simulator) applyTranscript(transcript, window string) []byte {
	read := make([]byte, 0, len(transcript))
	ri := 0
	for i := 0; i < len(transcript); i++ {
		switch transcript[i] {
		case '=', 'S':
			read = append(read, window[ri])
			ri++
		case 'X':
			read = append(read, s.substBase(window[ri]))
			ri++
		case 'I':
			read = append(read, s.randBase())
		case 'D', 'N':
			ri++
		}
	}
	return read
}

func strandChar(forward bool) byte {
	if forward {
		return '+'
	}
	return '-'
}

// unpairedName encodes the ground truth of a simulated unpaired read so the
// correctness oracle can label its next alignment.
func unpairedName(ref string, forward bool, refoff, score int, typ string) string {
	return fmt.Sprintf("%s!%s!%c!%d!%d!%s",
		tandem.SimReadPrefix, ref, strandChar(forward), refoff, score, typ)
}

// pairedName carries one truth block per mate, then the simulated type.
func pairedName(ref1 string, fw1 bool, off1, score1 int,
	ref2 string, fw2 bool, off2, score2 int, typ string) string {
	return fmt.Sprintf("%s!%s!%c!%d!%d!%s!%c!%d!%d!%s",
		tandem.SimReadPrefix,
		ref1, strandChar(fw1), off1, score1,
		ref2, strandChar(fw2), off2, score2, typ)
}

// simulateOne materializes one read from an unpaired-style template at a
// fresh reference window and returns it along with its truth fields.
func (s *Simulator) simulateOne(t tandem.TemplateUnpaired) (chrom string, refoff int, seq string, err error) {
	span := refSpan(t.Transcript)
	chrom, start, window, err := s.drawWindow(span)
	if err != nil {
		return "", 0, "", err
	}
	read := s.applyTranscript(t.Transcript, window)
	if !t.Forward {
		revComp(read)
	}
	return chrom, start + leadingClip(t.Transcript), string(read), nil
}

func (s *Simulator) simulateUnpairedRead() error {
	if s.models.Unpaired.Empty() {
		return errEmptyModel
	}
	t := s.models.Unpaired.Draw(s.rnd)
	chrom, refoff, seq, err := s.simulateOne(t)
	if err != nil {
		return err
	}
	return s.unp.Write(&fastq.Read{
		ID:   "@" + unpairedName(chrom, t.Forward, refoff, t.Score, "u"),
		Seq:  seq,
		Unk:  "+",
		Qual: t.Qual,
	})
}

// simulateBadEndPair writes the aligned-mate read from the template plus an
// opposite mate of random bases, which is expected not to align.
func (s *Simulator) simulateBadEndPair() error {
	if s.models.BadEnd.Empty() {
		return errEmptyModel
	}
	t := s.models.BadEnd.Draw(s.rnd)
	chrom, refoff, seq, err := s.simulateOne(t)
	if err != nil {
		return err
	}
	// The truth block must sit in the aligned mate's slot so the oracle
	// reads it back by mate role.
	typ := "b" + string(t.MateFlag)
	var name string
	if t.MateFlag == '2' {
		name = pairedName(chrom, !t.Forward, refoff, 0, chrom, t.Forward, refoff, t.Score, typ)
	} else {
		name = pairedName(chrom, t.Forward, refoff, t.Score, chrom, !t.Forward, refoff, 0, typ)
	}

	opp := make([]byte, t.OppositeLen)
	oppQual := make([]byte, t.OppositeLen)
	for i := range opp {
		opp[i] = s.randBase()
		oppQual[i] = 'I'
	}
	aligned := &fastq.Read{ID: "@" + name, Seq: seq, Unk: "+", Qual: t.Qual}
	other := &fastq.Read{ID: "@" + name, Seq: string(opp), Unk: "+", Qual: string(oppQual)}

	w1, w2 := s.badEnd1, s.badEnd2
	r1, r2 := aligned, other
	if t.MateFlag == '2' {
		r1, r2 = other, aligned
	}
	if err := w1.Write(r1); err != nil {
		return err
	}
	return w2.Write(r2)
}

func (s *Simulator) simulateConcordantPair() error {
	if s.models.Concordant.Empty() {
		return errEmptyModel
	}
	return s.simulatePair(s.models.Concordant.Draw(s.rnd), "c", s.conc1, s.conc2)
}

func (s *Simulator) simulateDiscordantPair() error {
	if s.models.Discordant.Empty() {
		return errEmptyModel
	}
	return s.simulatePair(s.models.Discordant.Draw(s.rnd), "d", s.disc1, s.disc2)
}

// simulatePair places both mates on one fragment-length window: the
// upstream mate at the left edge and the downstream mate ending at the
// right edge, as the original fragment geometry dictated.
func (s *Simulator) simulatePair(t tandem.TemplatePaired, typ string, w1, w2 *fastq.Writer) error {
	span1 := refSpan(t.Transcript1)
	span2 := refSpan(t.Transcript2)
	frag := t.FragLen
	if frag < span1 {
		frag = span1
	}
	if frag < span2 {
		frag = span2
	}
	chrom, start, window, err := s.drawWindow(frag)
	if err != nil {
		return err
	}
	// start1/start2 position mate 1 and mate 2 within the fragment. The
	// upstream mate sits at the left edge, the other ends at the right edge.
	start1, start2 := 0, frag-span2
	if !t.Mate1Upstream {
		start1, start2 = frag-span1, 0
	}
	read1 := s.applyTranscript(t.Transcript1, window[start1:start1+span1])
	read2 := s.applyTranscript(t.Transcript2, window[start2:start2+span2])
	if !t.Forward1 {
		revComp(read1)
	}
	if !t.Forward2 {
		revComp(read2)
	}
	off1 := start + start1 + leadingClip(t.Transcript1)
	off2 := start + start2 + leadingClip(t.Transcript2)
	name := pairedName(chrom, t.Forward1, off1, t.Score1, chrom, t.Forward2, off2, t.Score2, typ)
	if err := w1.Write(&fastq.Read{ID: "@" + name, Seq: string(read1), Unk: "+", Qual: t.Qual1}); err != nil {
		return err
	}
	return w2.Write(&fastq.Read{ID: "@" + name, Seq: string(read2), Unk: "+", Qual: t.Qual2})
}
