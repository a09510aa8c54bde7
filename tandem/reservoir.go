package tandem

import "math/rand"

// Reservoir sampling keeps a uniform k-subset of a stream of unknown
// length in O(k) memory: the i-th item (1-indexed) is kept unconditionally
// while fewer than k items have been seen, and afterwards replaces a
// uniformly chosen slot with probability k/i. Capacity <= 0 keeps
// everything.
//
// The two reservoir types below differ only in their element type. Both
// take an injected *rand.Rand; no global randomness is used.

// UnpairedReservoir samples unpaired (and bad-end) templates.
type UnpairedReservoir struct {
	k     int
	seen  int64
	rnd   *rand.Rand
	items []TemplateUnpaired
}

// NewUnpairedReservoir returns a reservoir with capacity k, or an unbounded
// one when k <= 0.
func NewUnpairedReservoir(k int, rnd *rand.Rand) *UnpairedReservoir {
	return &UnpairedReservoir{k: k, rnd: rnd}
}

// Add offers one item to the reservoir.
func (r *UnpairedReservoir) Add(t TemplateUnpaired) {
	r.seen++
	if r.k <= 0 || len(r.items) < r.k {
		r.items = append(r.items, t)
		return
	}
	if j := r.rnd.Int63n(r.seen); j < int64(r.k) {
		r.items[j] = t
	}
}

// Items returns the current sample.
func (r *UnpairedReservoir) Items() []TemplateUnpaired { return r.items }

// Seen returns the number of items offered.
func (r *UnpairedReservoir) Seen() int64 { return r.seen }

// PairedReservoir samples concordant/discordant pair templates.
type PairedReservoir struct {
	k     int
	seen  int64
	rnd   *rand.Rand
	items []TemplatePaired
}

// NewPairedReservoir returns a reservoir with capacity k, or an unbounded
// one when k <= 0.
func NewPairedReservoir(k int, rnd *rand.Rand) *PairedReservoir {
	return &PairedReservoir{k: k, rnd: rnd}
}

// Add offers one item to the reservoir.
func (r *PairedReservoir) Add(t TemplatePaired) {
	r.seen++
	if r.k <= 0 || len(r.items) < r.k {
		r.items = append(r.items, t)
		return
	}
	if j := r.rnd.Int63n(r.seen); j < int64(r.k) {
		r.items[j] = t
	}
}

// Items returns the current sample.
func (r *PairedReservoir) Items() []TemplatePaired { return r.items }

// Seen returns the number of items offered.
func (r *PairedReservoir) Seen() int64 { return r.seen }
