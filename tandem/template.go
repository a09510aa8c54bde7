package tandem

import (
	"fmt"
	"io"
)

// TemplateUnpaired is a snapshot of a single aligned read, sampled to
// parameterize the read simulator. Snapshots own their strings: the source
// record's buffer slot is reused for later lines.
type TemplateUnpaired struct {
	Score       int
	Forward     bool
	Qual        string
	Len         int
	MateFlag    byte // '0' unpaired, '1'/'2' the aligned end of a bad-end pair
	OppositeLen int  // the unaligned mate's read length, 0 when unpaired
	Transcript  string
}

func newTemplateUnpaired(al *Alignment, oppositeLen int) TemplateUnpaired {
	return TemplateUnpaired{
		Score:       al.BestScore,
		Forward:     al.IsForward(),
		Qual:        al.Qual,
		Len:         al.ReadLen(),
		MateFlag:    al.MateFlag(),
		OppositeLen: oppositeLen,
		Transcript:  al.Transcript.String(),
	}
}

// TemplatePaired is a snapshot of a concordant or discordant mate pair.
type TemplatePaired struct {
	Score int // Score1 + Score2

	Score1      int
	Len1        int
	Forward1    bool
	Qual1       string
	Transcript1 string

	Score2      int
	Len2        int
	Forward2    bool
	Qual2       string
	Transcript2 string

	// Mate1Upstream reports which mate is positionally upstream on the
	// reference.
	Mate1Upstream bool
	FragLen       int
}

func newTemplatePaired(al1, al2 *Alignment, fragLen int) TemplatePaired {
	return TemplatePaired{
		Score:         al1.BestScore + al2.BestScore,
		Score1:        al1.BestScore,
		Len1:          al1.ReadLen(),
		Forward1:      al1.IsForward(),
		Qual1:         al1.Qual,
		Transcript1:   al1.Transcript.String(),
		Score2:        al2.BestScore,
		Len2:          al2.ReadLen(),
		Forward2:      al2.IsForward(),
		Qual2:         al2.Qual,
		Transcript2:   al2.Transcript.String(),
		Mate1Upstream: al1.Pos < al2.Pos,
		FragLen:       fragLen,
	}
}

func tf(b bool) byte {
	if b {
		return 'T'
	}
	return 'F'
}

// writeCSV writes the unpaired template-model row: best score, forward
// flag, quality string, read length, mate flag, opposite-mate read length,
// edit transcript.
func (t TemplateUnpaired) writeCSV(w io.Writer) error {
	_, err := fmt.Fprintf(w, "%d,%c,%s,%d,%c,%d,%s\n",
		t.Score, tf(t.Forward), t.Qual, t.Len, t.MateFlag, t.OppositeLen, t.Transcript)
	return err
}

// writeCSV writes the paired template-model row: summed best score, then
// per-mate forward flag, quality string, best score, read length and edit
// transcript for mate 1 then mate 2, then the upstream-mate flag and
// fragment length.
func (t TemplatePaired) writeCSV(w io.Writer) error {
	_, err := fmt.Fprintf(w, "%d,%c,%s,%d,%d,%s,%c,%s,%d,%d,%s,%c,%d\n",
		t.Score,
		tf(t.Forward1), t.Qual1, t.Score1, t.Len1, t.Transcript1,
		tf(t.Forward2), t.Qual2, t.Score2, t.Len2, t.Transcript2,
		tf(t.Mate1Upstream), t.FragLen)
	return err
}
