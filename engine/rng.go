package engine

import "math/rand/v2"

// RNG picks NPC phrases. Every draw consumes exactly one value from a PCG
// stream, so (seed, position) in a save reproduces the rest of the
// sequence.
type RNG struct {
	seed int64
	pcg  *rand.PCG
	pos  int64
}

// NewRNG creates an RNG at position 0 of seed's stream.
func NewRNG(seed int64) *RNG {
	return &RNG{seed: seed, pcg: rand.NewPCG(uint64(seed), pcgStream)}
}

// pcgStream is the fixed second PCG word; only the seed varies.
const pcgStream = 0x7469_6e79_7461_6c6b

// Intn returns a value in [0, n). n must be positive. The slight modulo
// bias is irrelevant for choosing among a handful of phrases.
func (r *RNG) Intn(n int) int {
	r.pos++
	return int(r.pcg.Uint64() % uint64(n))
}

// Pick returns one of options. Zero or one option returns without drawing.
func (r *RNG) Pick(options []string) string {
	switch len(options) {
	case 0:
		return ""
	case 1:
		return options[0]
	}
	return options[r.Intn(len(options))]
}

func (r *RNG) Seed() int64     { return r.seed }
func (r *RNG) Position() int64 { return r.pos }

// RestoreRNG recreates the RNG for seed and replays position draws.
func RestoreRNG(seed int64, position int64) *RNG {
	r := NewRNG(seed)
	for ; r.pos < position; r.pos++ {
		r.pcg.Uint64()
	}
	return r
}
