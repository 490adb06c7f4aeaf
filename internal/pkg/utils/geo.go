package utils

import "math"

// EarthRadiusMeters is the mean Earth radius used for great-circle distances.
const EarthRadiusMeters = 6371000.0

// CalculateHaversineDistance returns the great-circle distance in meters
// between two coordinates given in degrees.
func CalculateHaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	if lat1 == lat2 && lon1 == lon2 {
		return 0
	}

	// Degrees to radians
	dLat := (lat2 - lat1) * (math.Pi / 180.0)
	dLon := (lon2 - lon1) * (math.Pi / 180.0)

	lat1Rad := lat1 * (math.Pi / 180.0)
	lat2Rad := lat2 * (math.Pi / 180.0)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Sin(dLon/2)*math.Sin(dLon/2)*math.Cos(lat1Rad)*math.Cos(lat2Rad)

	// Rounding can push a slightly above 1 for antipodal points.
	a = math.Min(1, math.Max(0, a))

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusMeters * c
}

// Destination returns the point reached by travelling meters from (lat, lon)
// along the initial bearing given in degrees clockwise from north.
func Destination(lat, lon, bearingDeg, meters float64) (float64, float64) {
	const rad = math.Pi / 180.0
	delta := meters / EarthRadiusMeters
	theta := bearingDeg * rad
	phi1 := lat * rad
	lambda1 := lon * rad

	phi2 := math.Asin(math.Sin(phi1)*math.Cos(delta) + math.Cos(phi1)*math.Sin(delta)*math.Cos(theta))
	lambda2 := lambda1 + math.Atan2(
		math.Sin(theta)*math.Sin(delta)*math.Cos(phi1),
		math.Cos(delta)-math.Sin(phi1)*math.Sin(phi2),
	)

	// Normalise longitude to [-180, 180).
	lon2 := math.Mod(lambda2/rad+540, 360) - 180
	return phi2 / rad, lon2
}
