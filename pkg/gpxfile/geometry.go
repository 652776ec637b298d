package gpxfile

import "math"

// earthRadiusMeters is the mean Earth radius used by the haversine formula.
const earthRadiusMeters = 6371000.0

// HaversineMeters returns the great-circle distance between two WGS84
// points in meters.
func HaversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
	toRad := func(d float64) float64 { return d * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	h := sinLat*sinLat + math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*sinLon*sinLon
	return 2 * earthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(h)))
}

// PathDistanceMeters sums the great-circle segment lengths over an ordered
// sequence of lon/lat pairs. Zero or one point yields zero distance.
func PathDistanceMeters(coords [][2]float64) float64 {
	var total float64
	for i := 1; i < len(coords); i++ {
		total += HaversineMeters(coords[i-1][1], coords[i-1][0], coords[i][1], coords[i][0])
	}
	return total
}
