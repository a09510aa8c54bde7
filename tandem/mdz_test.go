package tandem

import (
	"testing"

	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

func TestParseMDZ(t *testing.T) {
	runs, chars, err := parseMDZ("10A5^AC6", 1)
	assert.NoError(t, err)
	expect.EQ(t, string(chars), "AAC")
	expect.EQ(t, runs, []mdzRun{
		{kind: mdzMatch, run: 10},
		{kind: mdzMismatch, run: 1, off: 0},
		{kind: mdzMatch, run: 5},
		{kind: mdzDeletion, run: 2, off: 1},
		{kind: mdzMatch, run: 6},
	})
}

func TestParseMDZZeroSeparators(t *testing.T) {
	// Adjacent mismatches are conventionally separated by "0" runs, which
	// must not survive as empty match runs.
	runs, chars, err := parseMDZ("0A0C0", 1)
	assert.NoError(t, err)
	expect.EQ(t, string(chars), "AC")
	expect.EQ(t, runs, []mdzRun{
		{kind: mdzMismatch, run: 1, off: 0},
		{kind: mdzMismatch, run: 1, off: 1},
	})
}

func TestParseMDZLumpedMismatches(t *testing.T) {
	// A letter run without separators is a single multi-base mismatch run.
	runs, _, err := parseMDZ("3ACG3", 1)
	assert.NoError(t, err)
	expect.EQ(t, runs, []mdzRun{
		{kind: mdzMatch, run: 3},
		{kind: mdzMismatch, run: 3, off: 0},
		{kind: mdzMatch, run: 3},
	})
}

func TestParseMDZBadByte(t *testing.T) {
	_, _, err := parseMDZ("10?4", 7)
	assert.NotNil(t, err)
	fe := err.(*FormatError)
	expect.EQ(t, fe.Kind, BadMDZ)
	expect.EQ(t, fe.Line, int64(7))
}
