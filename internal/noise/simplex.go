package noise

import (
	"math"
	"math/rand/v2"
)

// Seed parameterises the noise field and the generator stream for one run.
type Seed uint32

// pcgStream decorrelates the second PCG word from the seed itself.
const pcgStream = 0x9e3779b97f4a7c15

// NewRandom returns the uniform generator derived from seed. Two generators
// built from the same seed yield identical streams.
func NewRandom(seed Seed) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)^pcgStream))
}

// Source evaluates 1D simplex noise over a permutation table.
type Source struct {
	perm [512]uint8
}

// NewSource builds the permutation table by shuffling with rng.
func NewSource(rng *rand.Rand) *Source {
	var base [256]uint8
	for i := range base {
		base[i] = uint8(i)
	}
	//1.- Shuffle once so every lattice point hashes to a seed specific gradient.
	if rng != nil {
		rng.Shuffle(len(base), func(i, j int) { base[i], base[j] = base[j], base[i] })
	}
	src := &Source{}
	//2.- Duplicate the table so i+1 lookups never wrap explicitly.
	for i := range src.perm {
		src.perm[i] = base[i&255]
	}
	return src
}

// Sample returns the noise value at position, always within [-1, 1].
func (s *Source) Sample(position float64) float64 {
	if s == nil || math.IsNaN(position) || math.IsInf(position, 0) {
		return 0
	}
	cell := math.Floor(position)
	lattice := math.Mod(cell, 256)
	if lattice < 0 {
		lattice += 256
	}
	i0 := int(lattice)
	i1 := (i0 + 1) & 255
	x0 := position - cell
	x1 := x0 - 1

	// Each lattice point contributes (1-d²)^4 * grad, which vanishes at
	// distance 1 so the sum is continuous across integer boundaries.
	t0 := 1 - x0*x0
	t0 *= t0
	n0 := t0 * t0 * grad(s.perm[i0], x0)

	t1 := 1 - x1*x1
	t1 *= t1
	n1 := t1 * t1 * grad(s.perm[i1], x1)

	return clampUnit(0.395 * (n0 + n1))
}

// Sample evaluates the noise field for seed at position. It rebuilds the
// permutation table on every call; use NewSource when sampling repeatedly.
func Sample(position float64, seed Seed) float64 {
	return NewSource(NewRandom(seed)).Sample(position)
}

func grad(hash uint8, x float64) float64 {
	h := hash & 15
	g := 1.0 + float64(h&7)
	if h&8 != 0 {
		g = -g
	}
	return g * x
}

func clampUnit(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
