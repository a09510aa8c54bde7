package tandem

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

// laneBuffers wires every output of every lane to an in-memory buffer.
type laneBuffers struct {
	features, meta, model map[string]*bytes.Buffer
}

func newTestLanes() (*Lanes, *laneBuffers) {
	lanes := &Lanes{
		Unpaired:   Lane{Name: "u"},
		BadEnd:     Lane{Name: "b"},
		Concordant: Lane{Name: "c", Paired: true},
		Discordant: Lane{Name: "d", Paired: true},
	}
	bufs := &laneBuffers{
		features: map[string]*bytes.Buffer{},
		meta:     map[string]*bytes.Buffer{},
		model:    map[string]*bytes.Buffer{},
	}
	for _, l := range lanes.all() {
		f, m, mod := &bytes.Buffer{}, &bytes.Buffer{}, &bytes.Buffer{}
		l.Features, l.Meta, l.Model = f, m, mod
		bufs.features[l.Name] = f
		bufs.meta[l.Name] = m
		bufs.model[l.Name] = mod
	}
	return lanes, bufs
}

func runPass(t *testing.T, input string) (*Pass, *laneBuffers) {
	t.Helper()
	lanes, bufs := newTestLanes()
	p := NewPass(DefaultOpts, lanes)
	assert.NoError(t, p.Run(strings.NewReader(input)))
	assert.NoError(t, p.Finish())
	return p, bufs
}

func decodeFloats(t *testing.T, buf *bytes.Buffer) []float64 {
	t.Helper()
	assert.EQ(t, buf.Len()%8, 0)
	vals := make([]float64, buf.Len()/8)
	assert.NoError(t, binary.Read(buf, binary.LittleEndian, vals))
	return vals
}

const samHeader = "@HD\tVN:1.4\n@SQ\tSN:chr1\tLN:10000\n"

func TestPassUnpaired(t *testing.T) {
	input := samHeader + samLine(
		"read1", "0", "chr1", "100", "60", "10M", "*", "0", "0",
		"ACGTACGTAC", "IIIIIIIIII", "ZT:Z:5", "MD:Z:10") + "\n"
	p, bufs := runPass(t, input)

	stats := p.Stats()
	expect.EQ(t, stats.Lines, int64(3))
	expect.EQ(t, stats.Headers, int64(2))
	expect.EQ(t, stats.UnpairedAligned, int64(1))

	vals := decodeFloats(t, bufs.features["u"])
	// line, len, clip, alqual, clipqual, olen, ztz0, mapq, correct
	expect.EQ(t, vals, []float64{3, 10, 0, 400, 0, 0, 5, 60, -1})
	expect.EQ(t, bufs.meta["u"].String(), "id,len,clip,alqual,clipqual,olen,ztz0,mapq,correct,1\n")
	expect.EQ(t, bufs.model["u"].String(), "5,T,IIIIIIIIII,10,0,0,==========\n")
}

func TestPassConcordantPair(t *testing.T) {
	// 0x1|0x2|0x40 = 67 and 0x1|0x2|0x80|0x10 = 147.
	input := samHeader +
		samLine("pair1", "67", "chr1", "100", "60", "10M", "=", "150", "60",
			"ACGTACGTAC", "IIIIIIIIII", "ZT:Z:5,9", "MD:Z:10") + "\n" +
		samLine("pair1", "147", "chr1", "150", "44", "10M", "=", "100", "-60",
			"ACGTACGTAC", "JJJJJJJJJJ", "ZT:Z:7,9", "MD:Z:10") + "\n"
	p, bufs := runPass(t, input)

	stats := p.Stats()
	expect.EQ(t, stats.Pairs, int64(1))
	expect.EQ(t, stats.Concordant, int64(1))
	expect.EQ(t, p.lanes.Concordant.Records(), int64(1))

	vals := decodeFloats(t, bufs.features["c"])
	// Two records, each centered on one mate: own block + ztz, other
	// block + fraglen + other ztz, mapq, correct. 'J' is phred 41.
	frag := 60.0
	expect.EQ(t, vals, []float64{
		3, 10, 0, 400, 0, 5, 9, 10, 0, 410, 0, frag, 7, 9, 60, -1,
		4, 10, 0, 410, 0, 7, 9, 10, 0, 400, 0, frag, 5, 9, 44, -1,
	})
	expect.EQ(t, bufs.meta["c"].String(),
		"id,len,clip,alqual,clipqual,ztz_0,ztz_1,olen,oclip,oalqual,oclipqual,fraglen,oztz_0,oztz_1,mapq,correct,2\n")
	// Mate 1 appeared first, so the template is mate-1-centric.
	expect.EQ(t, bufs.model["c"].String(), "12,T,IIIIIIIIII,5,10,==========,F,JJJJJJJJJJ,7,10,==========,T,60\n")
}

func TestPassDiscordantPair(t *testing.T) {
	// Paired, both aligned, no proper-pair flag.
	input := samHeader +
		samLine("pair1", "65", "chr1", "100", "60", "10M", "=", "5000", "0",
			"ACGTACGTAC", "IIIIIIIIII", "ZT:Z:5", "MD:Z:10") + "\n" +
		samLine("pair1", "129", "chr1", "5000", "60", "10M", "=", "100", "0",
			"ACGTACGTAC", "IIIIIIIIII", "ZT:Z:5", "MD:Z:10") + "\n"
	p, _ := runPass(t, input)
	expect.EQ(t, p.Stats().Discordant, int64(1))
	expect.EQ(t, p.lanes.Discordant.Records(), int64(1))
}

func TestPassBadEnd(t *testing.T) {
	// Mate 2 is unmapped (0x4); only mate 1 is emitted, carrying the
	// unaligned mate's read length.
	input := samHeader +
		samLine("pair1", "73", "chr1", "100", "60", "10M", "=", "100", "0",
			"ACGTACGTAC", "IIIIIIIIII", "ZT:Z:5", "MD:Z:10") + "\n" +
		samLine("pair1", "133", "*", "0", "0", "*", "=", "100", "0",
			"ACGTACGTACGT", "IIIIIIIIIIII") + "\n"
	p, bufs := runPass(t, input)
	expect.EQ(t, p.Stats().BadEnd, int64(1))

	vals := decodeFloats(t, bufs.features["b"])
	expect.EQ(t, vals, []float64{3, 10, 0, 400, 0, 12, 5, 60, -1})
}

func TestPassBothUnaligned(t *testing.T) {
	input := samHeader +
		samLine("pair1", "77", "*", "0", "0", "*", "*", "0", "0", "ACGT", "IIII") + "\n" +
		samLine("pair1", "141", "*", "0", "0", "*", "*", "0", "0", "ACGT", "IIII") + "\n"
	p, bufs := runPass(t, input)
	expect.EQ(t, p.Stats().PairsUnaligned, int64(1))
	expect.EQ(t, bufs.features["b"].Len(), 0)
	expect.EQ(t, bufs.meta["b"].Len(), 0)
}

func TestPassSkipsSecondaryAndSupplementary(t *testing.T) {
	input := samHeader +
		samLine("read1", "256", "chr1", "100", "60", "10M", "*", "0", "0",
			"ACGTACGTAC", "IIIIIIIIII", "ZT:Z:5", "MD:Z:10") + "\n" +
		samLine("read1", "2048", "chr1", "100", "60", "10M", "*", "0", "0",
			"ACGTACGTAC", "IIIIIIIIII", "ZT:Z:5", "MD:Z:10") + "\n"
	p, bufs := runPass(t, input)
	expect.EQ(t, p.Stats().Secondary, int64(1))
	expect.EQ(t, p.Stats().Supplementary, int64(1))
	expect.EQ(t, bufs.features["u"].Len(), 0)
}

func TestPassTypeMismatch(t *testing.T) {
	// A read simulated as concordant that aligned unpaired is dropped.
	input := samHeader + samLine(
		"!!ts!!!chr1!+!99!55!c", "0", "chr1", "100", "60", "10M", "*", "0", "0",
		"ACGTACGTAC", "IIIIIIIIII", "ZT:Z:5", "MD:Z:10") + "\n"
	p, bufs := runPass(t, input)
	expect.EQ(t, p.Stats().TypeMismatch, int64(1))
	expect.EQ(t, bufs.features["u"].Len(), 0)
}

func TestPassSimulatedUnpairedLabeled(t *testing.T) {
	input := samHeader + samLine(
		"!!ts!!!chr1!+!99!55!u", "0", "chr1", "100", "60", "10M", "*", "0", "0",
		"ACGTACGTAC", "IIIIIIIIII", "ZT:Z:5", "MD:Z:10") + "\n"
	_, bufs := runPass(t, input)
	vals := decodeFloats(t, bufs.features["u"])
	expect.EQ(t, vals[len(vals)-1], 1.0) // correct
}

func TestPassMatePairOrderViolation(t *testing.T) {
	// Two consecutive mate-1 records of different pairs.
	input := samHeader +
		samLine("pair1", "65", "chr1", "100", "60", "10M", "=", "200", "0",
			"ACGTACGTAC", "IIIIIIIIII", "ZT:Z:5", "MD:Z:10") + "\n" +
		samLine("pair2", "65", "chr1", "300", "60", "10M", "=", "400", "0",
			"ACGTACGTAC", "IIIIIIIIII", "ZT:Z:5", "MD:Z:10") + "\n"
	lanes, _ := newTestLanes()
	p := NewPass(DefaultOpts, lanes)
	err := p.Run(strings.NewReader(input))
	assert.NotNil(t, err)
	expect.EQ(t, err.(*FormatError).Kind, MatePairOrder)
}

func TestPassSameRoleConsecutive(t *testing.T) {
	input := samHeader +
		samLine("pair1", "65", "chr1", "100", "60", "10M", "=", "200", "0",
			"ACGTACGTAC", "IIIIIIIIII", "ZT:Z:5", "MD:Z:10") + "\n" +
		samLine("pair1", "65", "chr1", "200", "60", "10M", "=", "100", "0",
			"ACGTACGTAC", "IIIIIIIIII", "ZT:Z:5", "MD:Z:10") + "\n"
	lanes, _ := newTestLanes()
	p := NewPass(DefaultOpts, lanes)
	err := p.Run(strings.NewReader(input))
	assert.NotNil(t, err)
	expect.EQ(t, err.(*FormatError).Kind, MatePairOrder)
}

func TestPassOrphanedMateAtEOF(t *testing.T) {
	input := samHeader +
		samLine("pair1", "65", "chr1", "100", "60", "10M", "=", "200", "0",
			"ACGTACGTAC", "IIIIIIIIII", "ZT:Z:5", "MD:Z:10") + "\n"
	lanes, _ := newTestLanes()
	p := NewPass(DefaultOpts, lanes)
	assert.NoError(t, p.Run(strings.NewReader(input)))
	err := p.Finish()
	assert.NotNil(t, err)
	expect.EQ(t, err.(*FormatError).Kind, MatePairOrder)
}

func TestPassConcordantFlagDisagreement(t *testing.T) {
	input := samHeader +
		samLine("pair1", "67", "chr1", "100", "60", "10M", "=", "150", "60",
			"ACGTACGTAC", "IIIIIIIIII", "ZT:Z:5", "MD:Z:10") + "\n" +
		samLine("pair1", "145", "chr1", "150", "60", "10M", "=", "100", "-60",
			"ACGTACGTAC", "IIIIIIIIII", "ZT:Z:5", "MD:Z:10") + "\n"
	lanes, _ := newTestLanes()
	p := NewPass(DefaultOpts, lanes)
	err := p.Run(strings.NewReader(input))
	assert.NotNil(t, err)
	expect.EQ(t, err.(*FormatError).Kind, BadField)
}

func TestPassMissingZTZFatal(t *testing.T) {
	input := samHeader + samLine(
		"read1", "0", "chr1", "100", "60", "10M", "*", "0", "0",
		"ACGTACGTAC", "IIIIIIIIII", "MD:Z:10") + "\n"
	lanes, _ := newTestLanes()
	p := NewPass(DefaultOpts, lanes)
	err := p.Run(strings.NewReader(input))
	assert.NotNil(t, err)
	expect.EQ(t, err.(*FormatError).Kind, MissingZTZ)
}

func TestPassMultipleInputsContinueLineIDs(t *testing.T) {
	rec := func(name string) string {
		return samLine(name, "0", "chr1", "100", "60", "4M", "*", "0", "0",
			"ACGT", "IIII", "ZT:Z:5", "MD:Z:4") + "\n"
	}
	lanes, bufs := newTestLanes()
	p := NewPass(DefaultOpts, lanes)
	assert.NoError(t, p.Run(strings.NewReader(rec("a"))))
	assert.NoError(t, p.Run(strings.NewReader(rec("b"))))
	assert.NoError(t, p.Finish())
	vals := decodeFloats(t, bufs.features["u"])
	expect.EQ(t, vals[0], 1.0)
	expect.EQ(t, vals[9], 2.0)
	expect.EQ(t, bufs.meta["u"].String(), "id,len,clip,alqual,clipqual,olen,ztz0,mapq,correct,2\n")
}
