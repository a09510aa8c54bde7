package fastq

import (
	"bytes"
	"errors"
	"testing"

	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

func TestWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	assert.NoError(t, w.Write(&Read{ID: "@r1", Seq: "ACGT", Unk: "+", Qual: "IIII"}))
	assert.NoError(t, w.Write(&Read{ID: "@r2", Seq: "GGCC", Unk: "+", Qual: "JJJJ"}))
	expect.EQ(t, buf.String(), "@r1\nACGT\n+\nIIII\n@r2\nGGCC\n+\nJJJJ\n")
}

type failWriter struct{ err error }

func (f *failWriter) Write(p []byte) (int, error) { return 0, f.err }

func TestWriterStickyError(t *testing.T) {
	werr := errors.New("disk full")
	w := NewWriter(&failWriter{err: werr})
	expect.EQ(t, w.Write(&Read{ID: "@r1", Seq: "A", Unk: "+", Qual: "I"}), werr)
	expect.EQ(t, w.Write(&Read{ID: "@r2", Seq: "C", Unk: "+", Qual: "I"}), werr)
}
