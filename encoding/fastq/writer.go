// Package fastq writes FASTQ read data.
package fastq

import "io"

// A Read is one FASTQ read: an ID line, sequence, line 3 ("unknown"), and a
// quality string.
type Read struct {
	ID, Seq, Unk, Qual string
}

var newline = []byte{'\n'}

// Writer is a FASTQ file writer. The first write error is sticky: later
// writes become no-ops returning it.
type Writer struct {
	w   io.Writer
	err error
}

// NewWriter constructs a Writer that writes reads to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Write writes the read r in FASTQ format.
func (w *Writer) Write(r *Read) error {
	w.writeln(r.ID)
	w.writeln(r.Seq)
	w.writeln(r.Unk)
	w.writeln(r.Qual)
	return w.err
}

func (w *Writer) writeln(line string) {
	if w.err != nil {
		return
	}
	if _, w.err = io.WriteString(w.w, line); w.err == nil {
		_, w.err = w.w.Write(newline)
	}
}
