package telemetry

import (
	"math"
	"math/rand"
	"time"
)

// Round1 rounds to one decimal place.
func Round1(v float64) float64 { return math.Round(v*10) / 10 }

// Round2 rounds to two decimal places.
func Round2(v float64) float64 { return math.Round(v*100) / 100 }

// GenerateSeed synthesizes `days` of hourly readings ending at `end`,
// deterministic for a given seedOffset. Water level combines a per-region
// base, a slow downward trend, a seasonal sinusoid, and gaussian noise,
// mimicking a dug-well level logger.
func GenerateSeed(end time.Time, days int, seedOffset int) []Reading {
	if days <= 0 {
		days = 30
	}
	n := days*24 + 1
	rng := rand.New(rand.NewSource(int64(42 + seedOffset)))

	base := 10.0 + float64(seedOffset%3)
	start := end.Add(-time.Duration(days) * 24 * time.Hour)

	readings := make([]Reading, 0, n)
	for i := 0; i < n; i++ {
		frac := float64(i) / float64(n-1)
		trend := -1.0 * frac
		seasonal := 2 * math.Sin(10*math.Pi*frac)
		noise := rng.NormFloat64() * 0.2

		readings = append(readings, Reading{
			Timestamp:    start.Add(time.Duration(i) * time.Hour).UTC(),
			WaterLevel:   Round2(base + trend + seasonal + noise),
			Temperature:  Round1(20 + 5*math.Sin(float64(i)/24) + Uniform(rng, 0.5)),
			Conductivity: Round2(900 + 100*math.Cos(float64(i)/48) + Uniform(rng, 15)),
		})
	}
	return readings
}

// Uniform returns a sample from [-delta, +delta).
func Uniform(rng *rand.Rand, delta float64) float64 {
	return rng.Float64()*2*delta - delta
}
