package geo

import (
	"math"
	"sort"

	"github.com/karthiivan/sih/internal/telemetry"
)

const earthRadiusKm = 6371.0

// HaversineKm returns the great-circle distance between two
// coordinates in kilometers.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLon := radians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// RegionDistance is a region annotated with its distance from a
// query point.
type RegionDistance struct {
	telemetry.Region
	DistanceKm float64 `json:"distance_km"`
}

// Nearest returns up to limit regions within radiusKm of the query
// point, closest first. radiusKm <= 0 disables the radius filter.
func Nearest(regions []telemetry.Region, lat, lng float64, limit int, radiusKm float64) []RegionDistance {
	out := make([]RegionDistance, 0, len(regions))
	for _, r := range regions {
		d := telemetry.Round2(HaversineKm(lat, lng, r.Lat, r.Lng))
		if radiusKm > 0 && d > radiusKm {
			continue
		}
		out = append(out, RegionDistance{Region: r, DistanceKm: d})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].DistanceKm < out[j].DistanceKm })

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
