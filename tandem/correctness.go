package tandem

import "strings"

// Correctness is the ternary ground-truth label decoded from synthetic read
// names. Unknown means no recognizable synthetic-name pattern was found;
// downstream training must treat it as unlabeled, never as negative.
type Correctness int8

const (
	CorrectnessUnknown   Correctness = -1
	CorrectnessIncorrect Correctness = 0
	CorrectnessCorrect   Correctness = 1
)

// Read names written by the tandem simulator: the prefix, then
// '!'-separated fields for reference name, strand, 0-based true offset and
// alignment score (repeated for mate 2 of a pair), then the simulated type.
const (
	SimReadPrefix = "!!ts!!"
	simSep        = '!'
)

// simTypeFromName extracts the simulated-type tag (the final '!'-separated
// field) from a scheme-(a) read name, or returns "".
func simTypeFromName(name string) string {
	if !strings.HasPrefix(name, SimReadPrefix) {
		return ""
	}
	if j := strings.LastIndexByte(name, simSep); j >= 0 {
		return name[j+1:]
	}
	return ""
}

// setCorrectness decodes the ground-truth label for an aligned record. The
// tolerance wiggle is the number of bases the reported position may stray
// from the true origin; a deviation of exactly wiggle is not correct.
func (al *Alignment) setCorrectness(wiggle int) {
	if strings.HasPrefix(al.Name, SimReadPrefix) {
		al.Correct = al.simNameCorrectness(wiggle)
		return
	}
	if c, ok := wgsimNameCorrectness(al.Name, al.Ref, al.Pos, al.MateFlag(), wiggle); ok {
		al.Correct = c
	}
}

func parseUintAt(s string, i *int) int {
	v := 0
	for *i < len(s) && s[*i] >= '0' && s[*i] <= '9' {
		v = v*10 + int(s[*i]-'0')
		*i++
	}
	return v
}

func parseIntAt(s string, i *int) int {
	neg := false
	if *i < len(s) && s[*i] == '-' {
		neg = true
		*i++
	}
	v := parseUintAt(s, i)
	if neg {
		return -v
	}
	return v
}

func expectByteAt(s string, i *int, c byte) bool {
	if *i < len(s) && s[*i] == c {
		*i++
		return true
	}
	return false
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// simNameCorrectness labels a read named by the tandem simulator's own
// scheme. Every field comparison short-circuits: the first mismatch yields
// incorrect. Mate 1 (and unpaired reads) validate the first block; mate 2
// validates its own second block.
func (al *Alignment) simNameCorrectness(wiggle int) Correctness {
	name := al.Name
	i := len(SimReadPrefix)
	if !expectByteAt(name, &i, simSep) {
		return CorrectnessIncorrect
	}
	mate2 := al.MateFlag() == '2'

	// Reference name.
	if !mate2 && !strings.HasPrefix(name[i:], al.Ref) {
		return CorrectnessIncorrect
	}
	if i += len(al.Ref); i > len(name) {
		return CorrectnessIncorrect
	}
	if !expectByteAt(name, &i, simSep) {
		return CorrectnessIncorrect
	}
	// Strand.
	fw := byte('-')
	if al.IsForward() {
		fw = '+'
	}
	if !mate2 && (i >= len(name) || name[i] != fw) {
		return CorrectnessIncorrect
	}
	i++
	if !expectByteAt(name, &i, simSep) {
		return CorrectnessIncorrect
	}
	// True 0-based reference offset.
	refoff := parseUintAt(name, &i)
	if !mate2 && absInt(refoff-(al.Pos-1)) >= wiggle {
		return CorrectnessIncorrect
	}
	if !expectByteAt(name, &i, simSep) {
		return CorrectnessIncorrect
	}
	// True alignment score, unused here.
	parseIntAt(name, &i)
	if !expectByteAt(name, &i, simSep) {
		return CorrectnessIncorrect
	}

	if i < len(name) && name[i] == 'u' {
		return CorrectnessCorrect // unpaired, all checks passed
	}
	if !mate2 {
		return CorrectnessCorrect
	}

	// Mate 2: validate the second block.
	if !strings.HasPrefix(name[i:], al.Ref) {
		return CorrectnessIncorrect
	}
	if i += len(al.Ref); i > len(name) {
		return CorrectnessIncorrect
	}
	if !expectByteAt(name, &i, simSep) {
		return CorrectnessIncorrect
	}
	if i >= len(name) || name[i] != fw {
		return CorrectnessIncorrect
	}
	i++
	if !expectByteAt(name, &i, simSep) {
		return CorrectnessIncorrect
	}
	refoff = parseUintAt(name, &i)
	if absInt(refoff-(al.Pos-1)) >= wiggle {
		return CorrectnessIncorrect
	}
	if !expectByteAt(name, &i, simSep) {
		return CorrectnessIncorrect
	}
	parseIntAt(name, &i)
	if !expectByteAt(name, &i, simSep) {
		return CorrectnessIncorrect
	}
	return CorrectnessCorrect
}

// wgsimNameCorrectness labels reads named in the wgsim-inspired scheme:
//
//	11_25006153_25006410_0:0:0_0:0:0_100_100_1_1/1
//	^ refid    ^ frag end (1-based)  ^ len1  ^ flip
//	  ^ frag start (1-based)             ^ len2
//
// Recognized when the name has at least eight underscores and exactly four
// colons after the third underscore. The true position of a mate is the
// fragment start or fragEnd-len+1, depending on the flip flag and the mate
// role. Returns ok=false when the pattern is not recognized, leaving the
// label unknown.
func wgsimNameCorrectness(name, ref string, pos int, mateFlag byte, wiggle int) (Correctness, bool) {
	nund, ncolon := 0, 0
	for i := 0; i < len(name); i++ {
		switch {
		case name[i] == '_':
			nund++
		case name[i] == ':' && nund >= 3:
			ncolon++
		}
	}
	if nund < 8 || ncolon != 4 {
		return CorrectnessUnknown, false
	}
	if !strings.HasPrefix(name, ref) {
		return CorrectnessIncorrect, true
	}
	i := len(ref)
	if !expectByteAt(name, &i, '_') {
		return CorrectnessIncorrect, true
	}
	fragStart := parseUintAt(name, &i)
	if !expectByteAt(name, &i, '_') {
		return CorrectnessIncorrect, true
	}
	fragEnd := parseUintAt(name, &i)
	if !expectByteAt(name, &i, '_') {
		return CorrectnessIncorrect, true
	}
	for ncolon > 0 {
		if i >= len(name) {
			return CorrectnessIncorrect, true
		}
		if name[i] == ':' {
			ncolon--
		}
		i++
	}
	// Skip the number after the last colon and its trailing underscore.
	parseUintAt(name, &i)
	i++
	len1 := parseUintAt(name, &i)
	if !expectByteAt(name, &i, '_') {
		return CorrectnessIncorrect, true
	}
	len2 := parseUintAt(name, &i)
	if !expectByteAt(name, &i, '_') {
		return CorrectnessIncorrect, true
	}
	if i >= len(name) || (name[i] != '0' && name[i] != '1') {
		return CorrectnessIncorrect, true
	}
	flip := name[i] == '1'
	mate1 := mateFlag != '2'
	mateLen := len1
	if !mate1 {
		mateLen = len2
	}
	truePos := fragStart
	if flip == mate1 {
		// Right end of the fragment.
		truePos = fragEnd - mateLen + 1
	}
	if absInt(pos-truePos) < wiggle {
		return CorrectnessCorrect, true
	}
	return CorrectnessIncorrect, true
}
