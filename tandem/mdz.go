package tandem

// The MD:Z tag is a run-length encoding of the reference side of an
// alignment against an all-M CIGAR: a digit run is a stretch of matches, a
// letter run is the reference bases at mismatching positions, and '^'
// followed by letters is a deletion from the reference.

type mdzKind uint8

const (
	mdzMatch mdzKind = iota
	mdzMismatch
	mdzDeletion
)

// mdzRun is one run-length unit of an MD:Z value. For mismatch and deletion
// runs, off indexes the literal reference characters in the side buffer
// returned alongside the runs.
type mdzRun struct {
	kind mdzKind
	run  int
	off  int
}

func isMDZLetter(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

// parseMDZ parses an MD:Z value into its run list plus a shared buffer of
// reference characters. Zero-length match runs (the "0" separators between
// adjacent mismatches) are dropped.
func parseMDZ(s string, line int64) ([]mdzRun, []byte, error) {
	var runs []mdzRun
	var chars []byte
	i := 0
	for i < len(s) {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			run := 0
			for i < len(s) && s[i] >= '0' && s[i] <= '9' {
				run = run*10 + int(s[i]-'0')
				i++
			}
			if run > 0 {
				runs = append(runs, mdzRun{kind: mdzMatch, run: run})
			}
		case isMDZLetter(c):
			run := 0
			for i < len(s) && isMDZLetter(s[i]) {
				chars = append(chars, s[i])
				run++
				i++
			}
			runs = append(runs, mdzRun{kind: mdzMismatch, run: run, off: len(chars) - run})
		case c == '^':
			i++
			run := 0
			for i < len(s) && isMDZLetter(s[i]) {
				chars = append(chars, s[i])
				run++
				i++
			}
			runs = append(runs, mdzRun{kind: mdzDeletion, run: run, off: len(chars) - run})
		default:
			return nil, nil, formatErrorf(BadMDZ, line, "unexpected character %q at offset %d of MD:Z value %q", c, i, s)
		}
	}
	return runs, chars, nil
}
