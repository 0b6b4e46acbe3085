package geo

import (
	"github.com/Thommy96/BaRiStA/internal/domain"
	"github.com/tidwall/geodesic"
)

// GeodesicKM returns the shortest distance between two points on the WGS-84
// ellipsoid in kilometres.
func GeodesicKM(from, to domain.Coordinates) float64 {
	var metres float64
	geodesic.WGS84.Inverse(from.Lat, from.Lon, to.Lat, to.Lon, &metres, nil, nil)
	return metres / 1000
}
