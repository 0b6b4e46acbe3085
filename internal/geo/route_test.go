package geo

import (
	"testing"

	"github.com/Thommy96/BaRiStA/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestEstimate(t *testing.T) {
	tests := []struct {
		name string
		km   float64
		mode domain.TravelMode
		want domain.Route
	}{
		{"short walk", 1.112, domain.ModeFoot, domain.Route{Distance: "1.11 km", Duration: "12 minutes"}},
		{"long walk", 7, domain.ModeFoot, domain.Route{Distance: "7.0 km", Duration: "1:10 hour"}},
		{"short bike ride", 5, domain.ModeBike, domain.Route{Distance: "5.0 km", Duration: "15 minutes"}},
		{"long bike ride uses hourly speed", 42, domain.ModeBike, domain.Route{Distance: "42.0 km", Duration: "2 minutes"}},
		{"short drive", 3, domain.ModeCar, domain.Route{Distance: "3.0 km", Duration: "6 minutes"}},
		{"drive of exactly one hour", 30, domain.ModeCar, domain.Route{Distance: "30.0 km", Duration: "1:00 hour"}},
		{"long drive uses hourly speed", 45, domain.ModeCar, domain.Route{Distance: "45.0 km", Duration: "2 minutes"}},
		{"zero distance", 0, domain.ModeFoot, domain.Route{Distance: "0.0 km", Duration: "0 minutes"}},
		{"unknown mode", 3, "by boat", domain.Route{Distance: domain.BadTravelManner, Duration: domain.BadTravelManner}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Estimate(tt.km, tt.mode))
		})
	}
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "1 minutes", FormatDuration(1))
	assert.Equal(t, "59 minutes", FormatDuration(59))
	assert.Equal(t, "1:00 hour", FormatDuration(60))
	assert.Equal(t, "2:05 hour", FormatDuration(125))
}

func TestFormatKilometres(t *testing.T) {
	assert.Equal(t, "2.0 km", FormatKilometres(2))
	assert.Equal(t, "3.14 km", FormatKilometres(3.14159))
	assert.Equal(t, "0.5 km", FormatKilometres(0.5))
	assert.Equal(t, "10.0 km", FormatKilometres(10))
	assert.Equal(t, "1.0 km", FormatKilometres(1.005))
	assert.Equal(t, "0.12 km", FormatKilometres(0.125))
}

func TestValidMode(t *testing.T) {
	assert.True(t, ValidMode(domain.ModeFoot))
	assert.True(t, ValidMode(domain.ModeBike))
	assert.True(t, ValidMode(domain.ModeCar))
	assert.False(t, ValidMode("by foot "))
	assert.False(t, ValidMode(""))
}

func TestResolveStartPoint(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"uni", "Pfaffenwaldring 5, 70569 Stuttgart"},
		{"I am at the University of Stuttgart", "Pfaffenwaldring 5, 70569 Stuttgart"},
		{"at school", "Pfaffenwaldring 5, 70569 Stuttgart"},
		{"Hauptbahnhof", "Arnulf-Klett-Platz 2, 70173 Stuttgart"},
		{"i am at the stuttgart main station", "Arnulf-Klett-Platz 2, 70173 Stuttgart"},
		{" hbf ", "Arnulf-Klett-Platz 2, 70173 Stuttgart"},
		{"Schwabstraße", "Schwabstraße 43, 70197 Stuttgart"},
		{"at schwabstr", "Schwabstraße 43, 70197 Stuttgart"},
		{"Königstraße 1, Stuttgart", "Königstraße 1, Stuttgart"},
		{"near the uni", "near the uni"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveStartPoint(DefaultLandmarks, tt.in))
		})
	}
}
