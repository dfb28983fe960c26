package rules

import "unicode/utf16"

// HashSeed folds a string seed into 32 bits (FNV-1a over UTF-16 code units).
func HashSeed(seed string) uint32 {
	h := uint32(2166136261)
	for _, unit := range utf16.Encode([]rune(seed)) {
		h ^= uint32(unit)
		h *= 16777619
	}
	return h
}

// Rand is a mulberry32 generator. The zero value is usable but always
// yields the same sequence as NewRand(0).
type Rand struct {
	state uint32
}

func NewRand(seed uint32) *Rand {
	return &Rand{state: seed}
}

// Float64 returns a value in [0, 1).
func (r *Rand) Float64() float64 {
	r.state += 0x6d2b79f5
	t := r.state
	t = (t ^ (t >> 15)) * (t | 1)
	t ^= t + (t^(t>>7))*(t|61)
	return float64(t^(t>>14)) / 4294967296
}

// Intn returns a value in [0, n).
func (r *Rand) Intn(n int) int {
	return int(r.Float64() * float64(n))
}

// StableShuffle returns a Fisher-Yates permutation of items driven by seed.
// The input slice is left untouched.
func StableShuffle[T any](items []T, seed string) []T {
	rng := NewRand(HashSeed(seed))
	out := append([]T(nil), items...)
	for i := len(out) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}
