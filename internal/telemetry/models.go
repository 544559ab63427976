package telemetry

import (
	"time"
)

// Region is a monitored location with fixed geographic identity.
// Regions are created once at startup and never mutated.
type Region struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

// Reading is one timestamped sensor sample for a region.
// Readings are immutable once created; timestamps within a region's
// series are non-decreasing by construction.
type Reading struct {
	Timestamp    time.Time `json:"timestamp"`    // always UTC
	WaterLevel   float64   `json:"water_level"`  // meters
	Temperature  float64   `json:"temperature"`  // °C
	Conductivity float64   `json:"conductivity"` // µS/cm
}

// Update is a reading tagged with its region, as delivered to
// push subscribers.
type Update struct {
	Reading
	Region string `json:"region"`
}

// DefaultRegions is the built-in station set used when no REGIONS
// override is configured.
func DefaultRegions() []Region {
	return []Region{
		{ID: "chn-central", Name: "Chennai Central", Lat: 13.0827, Lng: 80.2707},
		{ID: "blr-north", Name: "Bengaluru North", Lat: 13.0358, Lng: 77.5970},
		{ID: "hyd-west", Name: "Hyderabad West", Lat: 17.3850, Lng: 78.4867},
		{ID: "mum-coastal", Name: "Mumbai Coastal", Lat: 19.0760, Lng: 72.8777},
	}
}
