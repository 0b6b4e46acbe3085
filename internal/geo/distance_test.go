package geo

import (
	"testing"

	"github.com/Thommy96/BaRiStA/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestGeodesicKM(t *testing.T) {
	hbf := domain.Coordinates{Lat: 48.7840, Lon: 9.1817}
	uni := domain.Coordinates{Lat: 48.7450, Lon: 9.1030}

	tests := []struct {
		name     string
		from, to domain.Coordinates
		want     float64
		delta    float64
	}{
		{"same point", hbf, hbf, 0, 0},
		{"one degree of latitude at the equator", domain.Coordinates{}, domain.Coordinates{Lat: 1}, 110.574, 0.01},
		{"one degree of longitude at the equator", domain.Coordinates{}, domain.Coordinates{Lon: 1}, 111.319, 0.01},
		{"across Stuttgart", hbf, uni, 7.22, 0.05},
		{"equatorial antipodes go over the pole", domain.Coordinates{}, domain.Coordinates{Lon: 180}, 20003.931, 0.01},
		{"pole to pole", domain.Coordinates{Lat: 90}, domain.Coordinates{Lat: -90}, 20003.931, 0.01},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, GeodesicKM(tt.from, tt.to), tt.delta)
		})
	}
}

func TestGeodesicKM_Symmetric(t *testing.T) {
	a := domain.Coordinates{Lat: 48.7758, Lon: 9.1829}
	b := domain.Coordinates{Lat: 48.8047, Lon: 9.2147}
	assert.InDelta(t, GeodesicKM(a, b), GeodesicKM(b, a), 1e-9)
}
