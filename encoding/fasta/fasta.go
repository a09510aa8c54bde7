// Package fasta parses FASTA files. FASTA files consist of a number of
// named sequences whose bases may be interrupted by newlines. For example:
//
//	>chr7
//	ACGTAC
//	GAGGAC
//	GCG
//	>chr8
//	ACGT
//
// Sequence names are the stretch of characters excluding spaces immediately
// after '>'; any text after a space is ignored.
package fasta

import (
	"bufio"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// Fasta holds a set of named sequences.
type Fasta interface {
	// Get returns a substring of the named sequence over the 0-based
	// half-open interval [start, end).
	Get(seqName string, start, end int) (string, error)

	// Len returns the length of the named sequence.
	Len(seqName string) (int, error)

	// SeqNames returns the names of all sequences, in order of
	// appearance.
	SeqNames() []string
}

type fasta struct {
	seqs     map[string]string
	seqNames []string
}

// New reads all FASTA data from r into memory.
func New(r io.Reader) (Fasta, error) {
	f := &fasta{seqs: make(map[string]string)}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(nil, 512*1024*1024)
	var name string
	var seq strings.Builder
	flush := func() error {
		if seq.Len() == 0 {
			return nil
		}
		if name == "" {
			return errors.New("malformed FASTA file: sequence data before the first header")
		}
		f.seqs[name] = seq.String()
		f.seqNames = append(f.seqNames, name)
		seq.Reset()
		return nil
	}
	for scanner.Scan() {
		line := scanner.Text()
		if len(line) == 0 {
			continue
		}
		if line[0] == '>' {
			if err := flush(); err != nil {
				return nil, err
			}
			name = strings.SplitN(line[1:], " ", 2)[0]
			continue
		}
		seq.WriteString(line)
	}
	if scanner.Err() != nil {
		return nil, errors.Wrap(scanner.Err(), "couldn't read FASTA data")
	}
	if err := flush(); err != nil {
		return nil, err
	}
	if len(f.seqNames) == 0 {
		return nil, errors.New("empty FASTA file")
	}
	return f, nil
}

func (f *fasta) Get(seqName string, start, end int) (string, error) {
	s, ok := f.seqs[seqName]
	if !ok {
		return "", errors.Errorf("sequence not found: %s", seqName)
	}
	if start < 0 || end <= start || end > len(s) {
		return "", errors.Errorf("invalid query range [%d, %d) for sequence %s with length %d",
			start, end, seqName, len(s))
	}
	return s[start:end], nil
}

func (f *fasta) Len(seqName string) (int, error) {
	s, ok := f.seqs[seqName]
	if !ok {
		return 0, errors.Errorf("sequence not found: %s", seqName)
	}
	return len(s), nil
}

func (f *fasta) SeqNames() []string { return f.seqNames }
