// Package shuffle orders lists in a way that is stable for a calendar day.
package shuffle

import "time"

const msPerDay = 86400000

// Rand is a mulberry32 generator.
type Rand struct {
	state uint32
}

// New returns a generator seeded with seed.
func New(seed uint32) *Rand {
	return &Rand{state: seed}
}

// Uint32 returns the next raw output.
func (r *Rand) Uint32() uint32 {
	r.state += 0x6D2B79F5
	t := r.state
	t = (t ^ t>>15) * (t | 1)
	t ^= t + (t^t>>7)*(t|61)
	return t ^ t>>14
}

// Float64 returns a value in [0, 1).
func (r *Rand) Float64() float64 {
	return float64(r.Uint32()) / 4294967296
}

// Intn returns a value in [0, n). n must be positive.
func (r *Rand) Intn(n int) int {
	return int(r.Float64() * float64(n))
}

// DaySeed is the number of whole UTC days since the Unix epoch.
func DaySeed(now time.Time) uint32 {
	return uint32(now.UnixMilli() / msPerDay)
}

// Daily returns a copy of items shuffled with the seed of now's UTC day.
// The input slice is never modified.
func Daily[T any](items []T, now time.Time) []T {
	return Seeded(items, DaySeed(now))
}

// Seeded returns a Fisher-Yates shuffled copy of items.
func Seeded[T any](items []T, seed uint32) []T {
	out := make([]T, len(items))
	copy(out, items)

	r := New(seed)
	for i := len(out) - 1; i > 0; i-- {
		j := r.Intn(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}
