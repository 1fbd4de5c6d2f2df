package noise

import (
	"math"
	"testing"
)

func TestSampleIsDeterministic(t *testing.T) {
	for _, seed := range []Seed{0, 1, 42, 0xffffffff} {
		for _, position := range []float64{-123.4, -1, 0, 0.25, 3.75, 1e6} {
			first := Sample(position, seed)
			second := Sample(position, seed)
			if first != second {
				t.Fatalf("seed %d position %.2f: %v != %v", seed, position, first, second)
			}
		}
	}
}

func TestSampleStaysWithinUnitRange(t *testing.T) {
	for seed := Seed(0); seed < 32; seed++ {
		src := NewSource(NewRandom(seed))
		for step := -2000; step <= 2000; step++ {
			position := float64(step) * 0.037
			value := src.Sample(position)
			if value < -1 || value > 1 {
				t.Fatalf("seed %d position %.3f out of range: %v", seed, position, value)
			}
		}
	}
}

func TestSampleIsContinuousAcrossLatticeBoundaries(t *testing.T) {
	src := NewSource(NewRandom(7))
	for cell := -10; cell <= 10; cell++ {
		//1.- Approach each integer from both sides and expect the values to meet.
		below := src.Sample(float64(cell) - 1e-9)
		above := src.Sample(float64(cell) + 1e-9)
		if math.Abs(below-above) > 1e-6 {
			t.Fatalf("discontinuity at %d: %v vs %v", cell, below, above)
		}
	}
}

func TestSourceMatchesStatelessSample(t *testing.T) {
	src := NewSource(NewRandom(99))
	for _, position := range []float64{-5.5, -0.1, 0.3, 17.9} {
		if got, want := src.Sample(position), Sample(position, 99); got != want {
			t.Fatalf("position %.2f: source %v, sample %v", position, got, want)
		}
	}
}

func TestSeedsProduceDifferentFields(t *testing.T) {
	differs := false
	for step := 0; step < 64 && !differs; step++ {
		position := float64(step)*0.31 + 0.13
		if Sample(position, 1) != Sample(position, 2) {
			differs = true
		}
	}
	if !differs {
		t.Fatalf("expected distinct seeds to produce distinct noise")
	}
}

func TestSampleHandlesNonFiniteInput(t *testing.T) {
	if got := Sample(math.NaN(), 3); got != 0 {
		t.Fatalf("NaN position should sample 0, got %v", got)
	}
	if got := Sample(math.Inf(-1), 3); got != 0 {
		t.Fatalf("-Inf position should sample 0, got %v", got)
	}
}
