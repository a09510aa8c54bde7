package tandem

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateUnpairedCSV(t *testing.T) {
	al := parseRecord(t, samLine(
		"read1", "16", "chr1", "100", "60", "2S8M", "*", "0", "0",
		"ACGTACGTAC", "##IIIIIIII", "ZT:Z:42,1", "MD:Z:8"))
	tmpl := newTemplateUnpaired(al, 0)
	assert.Equal(t, 42, tmpl.Score)
	assert.False(t, tmpl.Forward)
	assert.Equal(t, "SS========", tmpl.Transcript)

	var buf bytes.Buffer
	require.NoError(t, tmpl.writeCSV(&buf))
	assert.Equal(t, "42,F,##IIIIIIII,10,0,0,SS========\n", buf.String())
}

func TestTemplatePairedFirstSeen(t *testing.T) {
	a := parseRecord(t, samLine(
		"pair1", "99", "chr1", "200", "60", "4M", "=", "100", "0",
		"ACGT", "IIII", "ZT:Z:10", "MD:Z:4"))
	b := parseRecord(t, samLine(
		"pair1", "147", "chr1", "100", "60", "4M", "=", "200", "0",
		"ACGT", "IIII", "ZT:Z:20", "MD:Z:4"))
	a.Line, b.Line = 5, 6

	tmpl := newTemplatePaired(a, b, 104)
	assert.Equal(t, 30, tmpl.Score)
	assert.Equal(t, 10, tmpl.Score1)
	assert.Equal(t, 20, tmpl.Score2)
	// Mate 1 maps downstream of mate 2 here.
	assert.False(t, tmpl.Mate1Upstream)
	assert.Equal(t, 104, tmpl.FragLen)
}
