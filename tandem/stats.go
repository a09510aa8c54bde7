package tandem

import "github.com/grailbio/base/log"

// Stats accumulates run counters for operator visibility. They are
// diagnostic only; nothing downstream consumes them.
type Stats struct {
	Lines         int64
	Headers       int64
	Secondary     int64
	Supplementary int64
	// TypeMismatch counts records whose embedded simulated-type tag
	// disagreed with the lane inferred from their flags; such records are
	// dropped.
	TypeMismatch int64

	Unpaired          int64
	UnpairedAligned   int64
	UnpairedUnaligned int64

	Pairs          int64
	Concordant     int64
	Discordant     int64
	BadEnd         int64
	PairsUnaligned int64
}

// Log prints the end-of-run summary.
func (s *Stats) Log() {
	log.Printf("  %d lines", s.Lines)
	log.Printf("  %d header lines", s.Headers)
	log.Printf("  %d secondary alignments ignored", s.Secondary)
	log.Printf("  %d supplementary alignments ignored", s.Supplementary)
	log.Printf("  %d alignment types didn't match simulated type", s.TypeMismatch)
	log.Printf("  %d unpaired", s.Unpaired)
	if s.Unpaired > 0 {
		log.Printf("    %d aligned", s.UnpairedAligned)
		log.Printf("    %d unaligned", s.UnpairedUnaligned)
	}
	log.Printf("  %d paired-end", s.Pairs)
	if s.Pairs > 0 {
		log.Printf("    %d concordant", s.Concordant)
		log.Printf("    %d discordant", s.Discordant)
		log.Printf("    %d bad-end", s.BadEnd)
		log.Printf("    %d unaligned", s.PairsUnaligned)
	}
}
