package tandem

import (
	"math"
	"strconv"
	"strings"
	"testing"

	"github.com/grailbio/hts/sam"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

// parseRecord tokenizes a full SAM line the way the streaming pass does and
// runs the on-demand tail parse.
func parseRecord(t *testing.T, line string) *Alignment {
	t.Helper()
	al, err := tryParseRecord(line)
	assert.NoError(t, err)
	return al
}

func tryParseRecord(line string) (*Alignment, error) {
	al := &Alignment{Line: 1, Correct: CorrectnessUnknown}
	var ok bool
	al.Name, line, ok = nextField(line)
	if !ok {
		panic("empty test line")
	}
	var flagStr string
	flagStr, al.tail, _ = nextField(line)
	flags, err := strconv.Atoi(flagStr)
	if err != nil {
		panic("bad test FLAG column")
	}
	al.Flags = sam.Flags(flags)
	return al, al.parseTail()
}

func samLine(fields ...string) string { return strings.Join(fields, "\t") }

func TestParseTail(t *testing.T) {
	al := parseRecord(t, samLine(
		"read1", "0", "chr1", "100", "60", "10M", "*", "0", "0",
		"ACGTACGTAC", "IIIIIIIIII", "ZT:Z:5,NA,0.5", "MD:Z:10"))
	expect.EQ(t, al.Ref, "chr1")
	expect.EQ(t, al.Pos, 100)
	expect.EQ(t, al.MapQ, 60)
	expect.EQ(t, al.Transcript.String(), "==========")
	expect.EQ(t, al.BestScore, 5)
	expect.EQ(t, len(al.ZTZ), 3)
	expect.EQ(t, al.ZTZ[0], 5.0)
	expect.True(t, math.IsNaN(al.ZTZ[1]))
	expect.EQ(t, al.ZTZ[2], 0.5)
	// 'I' is phred 40; no clipped bases.
	expect.EQ(t, al.AlignedQual, 400)
	expect.EQ(t, al.AvgAlignedQual, 40.0)
	expect.EQ(t, al.AvgClippedQual, 100.0)
}

func TestParseTailClipQuals(t *testing.T) {
	// Two bases clipped either side; '#' is phred 2, 'I' phred 40.
	al := parseRecord(t, samLine(
		"read1", "0", "chr1", "100", "60", "2S6M2S", "*", "0", "0",
		"ACGTACGTAC", "##IIIIII##", "ZT:Z:7", "MD:Z:6"))
	expect.EQ(t, al.LeftClip, 2)
	expect.EQ(t, al.RightClip, 2)
	expect.EQ(t, al.TotalClip(), 4)
	expect.EQ(t, al.AlignedQual, 240)
	expect.EQ(t, al.ClippedQual, 8)
	expect.EQ(t, al.AvgAlignedQual, 40.0)
	expect.EQ(t, al.AvgClippedQual, 2.0)
}

func TestParseTailSingleClipFoldsIntoAligned(t *testing.T) {
	// A one-base clip has no meaningful average; the sentinel takes its
	// place and the clip is folded away.
	al := parseRecord(t, samLine(
		"read1", "0", "chr1", "100", "60", "1S9M", "*", "0", "0",
		"ACGTACGTAC", "#IIIIIIIII", "ZT:Z:7", "MD:Z:9"))
	expect.EQ(t, al.LeftClip, 0)
	expect.EQ(t, al.RightClip, 0)
	expect.EQ(t, al.ClippedQual, 0)
	expect.EQ(t, al.AvgClippedQual, clippedQualSentinel)
	// The transcript still shows the clipped base.
	expect.EQ(t, al.Transcript.String(), "S=========")
}

func TestParseTailMissingZTZ(t *testing.T) {
	_, err := tryParseRecord(samLine(
		"read1", "0", "chr1", "100", "60", "10M", "*", "0", "0",
		"ACGTACGTAC", "IIIIIIIIII", "MD:Z:10"))
	assert.NotNil(t, err)
	expect.EQ(t, err.(*FormatError).Kind, MissingZTZ)
}

func TestParseTailNoTranscriptSource(t *testing.T) {
	_, err := tryParseRecord(samLine(
		"read1", "0", "chr1", "100", "60", "10M", "*", "0", "0",
		"ACGTACGTAC", "IIIIIIIIII", "ZT:Z:7"))
	assert.NotNil(t, err)
	expect.EQ(t, err.(*FormatError).Kind, NoTranscriptSource)
}

func TestParseTailExtendedCigarSkipsMDZ(t *testing.T) {
	al := parseRecord(t, samLine(
		"read1", "0", "chr1", "100", "60", "4=1X5=", "*", "0", "0",
		"ACGTACGTAC", "IIIIIIIIII", "ZT:Z:7"))
	expect.EQ(t, al.Transcript.String(), "====X=====")
}

func TestParseZTZBadValue(t *testing.T) {
	_, err := tryParseRecord(samLine(
		"read1", "0", "chr1", "100", "60", "10M", "*", "0", "0",
		"ACGTACGTAC", "IIIIIIIIII", "ZT:Z:5,bogus", "MD:Z:10"))
	assert.NotNil(t, err)
	expect.EQ(t, err.(*FormatError).Kind, BadField)
}

func TestZTZCountFromTail(t *testing.T) {
	expect.EQ(t, ztzCountFromTail("chr1\t100\t60\t10M\t*\t0\t0\tAC\tII\tZT:Z:1,2,3\tMD:Z:2"), 3)
	expect.EQ(t, ztzCountFromTail("chr1\t100\t60\t10M\t*\t0\t0\tAC\tII\tZT:Z:7"), 1)
	// No ZT:Z tag at all defaults to one column.
	expect.EQ(t, ztzCountFromTail("chr1\t100\t60\t10M\t*\t0\t0\tAC\tII"), 1)
}

func TestReadLenFromTail(t *testing.T) {
	expect.EQ(t, readLenFromTail("chr1\t100\t60\t10M\t*\t0\t0\tACGTA\tIIIII\tZT:Z:7"), 5)
	// Sequence in the final column.
	expect.EQ(t, readLenFromTail("chr1\t100\t60\t10M\t*\t0\t0\tACGTA"), 5)
	expect.EQ(t, readLenFromTail("chr1\t100"), 0)
}

func fragAlignment(t *testing.T, pos int, cigar, mdz string, seq string) *Alignment {
	t.Helper()
	qual := strings.Repeat("I", len(seq))
	return parseRecord(t, samLine(
		"frag", "0", "chr1", strconv.Itoa(pos), "60", cigar, "*", "0", "0",
		seq, qual, "ZT:Z:7", "MD:Z:"+mdz))
}

func TestFragmentLength(t *testing.T) {
	a := fragAlignment(t, 100, "10M", "10", "ACGTACGTAC")
	b := fragAlignment(t, 150, "10M", "10", "ACGTACGTAC")
	expect.EQ(t, FragmentLength(a, b, 50000), 60)
	expect.EQ(t, FragmentLength(b, a, 50000), 60)
}

func TestFragmentLengthCountsClips(t *testing.T) {
	// Soft clips extend the fragment on both edges.
	a := fragAlignment(t, 100, "2S8M", "8", "ACGTACGTAC")
	b := fragAlignment(t, 150, "8M2S", "8", "ACGTACGTAC")
	expect.EQ(t, FragmentLength(a, b, 50000), 62)
}

func TestFragmentLengthCap(t *testing.T) {
	a := fragAlignment(t, 100, "10M", "10", "ACGTACGTAC")
	b := fragAlignment(t, 90000, "10M", "10", "ACGTACGTAC")
	expect.EQ(t, FragmentLength(a, b, 50000), 50000)
}
