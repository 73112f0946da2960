package domain

import (
	"math"
	"sort"
)

const (
	// EarthRadiusKm is the mean Earth radius used by Distance.
	EarthRadiusKm = 6371.0

	// MaxResults caps the size of a ranked result list.
	MaxResults = 50
)

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

// Distance returns the great-circle distance between a and b in kilometres.
func Distance(a, b Coordinate) float64 {
	if a == b {
		return 0
	}

	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)
	dLat := lat2 - lat1
	dLng := toRadians(b.Lng - a.Lng)

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLng*sinLng

	// Rounding can push h slightly outside [0, 1] near antipodes.
	h = math.Min(1, math.Max(0, h))

	return 2 * EarthRadiusKm * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// FilterNearby ranks candidates strictly inside radiusKm of origin, nearest first,
// ties broken by ascending id, capped at MaxResults. A nil origin yields an empty list.
func FilterNearby(origin *Coordinate, radiusKm float64, candidates []POI) []RankedResult {
	return FilterNearbyCategory(origin, radiusKm, "", candidates)
}

// FilterNearbyCategory is FilterNearby restricted to one category. An empty
// category matches every POI.
func FilterNearbyCategory(origin *Coordinate, radiusKm float64, category Category, candidates []POI) []RankedResult {
	results := make([]RankedResult, 0)
	if origin == nil || len(candidates) == 0 || radiusKm <= 0 {
		return results
	}

	for _, poi := range candidates {
		if category != "" && poi.Category != category {
			continue
		}
		d := Distance(*origin, poi.Coordinate)
		if d < radiusKm {
			results = append(results, RankedResult{POI: poi, DistanceKm: d})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].DistanceKm != results[j].DistanceKm {
			return results[i].DistanceKm < results[j].DistanceKm
		}
		return results[i].POI.ID < results[j].POI.ID
	})

	if len(results) > MaxResults {
		results = results[:MaxResults]
	}
	return results
}
