package geo

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/Thommy96/BaRiStA/internal/domain"
)

// Average travel speeds. Short trips use the per-minute divisors instead;
// see Estimate.
const (
	FootKMH = 6.0
	BikeKMH = 21.0
	CarKMH  = 30.0

	bikeKMPerMinute = 0.35
	carKMPerMinute  = 0.5
)

// Landmark maps colloquial start points to a canonical street address.
type Landmark struct {
	Pattern *regexp.Regexp
	Address string
}

// DefaultLandmarks are the start points users commonly name in Stuttgart.
var DefaultLandmarks = []Landmark{
	{
		Pattern: regexp.MustCompile(`^((i am )?at (the )?)?(uni|school|university|uni stuttgart|university of stuttgart)$`),
		Address: "Pfaffenwaldring 5, 70569 Stuttgart",
	},
	{
		Pattern: regexp.MustCompile(`^((i am )?at (the )?)?(stuttgart )?(hauptbahnhof|main station|central station|hbf|haupt( )?bf)$`),
		Address: "Arnulf-Klett-Platz 2, 70173 Stuttgart",
	},
	{
		Pattern: regexp.MustCompile(`^((i am )?at (the )?)?(schwabstr|schwabstraße|schwabstrasse)$`),
		Address: "Schwabstraße 43, 70197 Stuttgart",
	},
}

// ResolveStartPoint replaces a known landmark phrase with its address. Other
// inputs are returned unchanged.
func ResolveStartPoint(landmarks []Landmark, startPoint string) string {
	normalized := strings.ToLower(strings.TrimSpace(startPoint))
	for _, l := range landmarks {
		if l.Pattern.MatchString(normalized) {
			return l.Address
		}
	}
	return startPoint
}

// ValidMode reports whether mode has a speed model.
func ValidMode(mode domain.TravelMode) bool {
	switch mode {
	case domain.ModeFoot, domain.ModeBike, domain.ModeCar:
		return true
	}
	return false
}

// Estimate renders a distance in kilometres and a travel duration for mode.
//
// Walking takes ten minutes per kilometre. Biking and driving divide by the
// hourly speed once the trip is longer than an hour at that speed, and by a
// per-minute distance otherwise. Trips beyond that threshold therefore yield
// a count of hours that is printed as minutes.
func Estimate(km float64, mode domain.TravelMode) domain.Route {
	var minutes int
	switch mode {
	case domain.ModeFoot:
		minutes = int(math.Ceil(10 * km))
	case domain.ModeBike:
		if km/BikeKMH > 1 {
			minutes = int(math.Ceil(km / BikeKMH))
		} else {
			minutes = int(math.Ceil(km / bikeKMPerMinute))
		}
	case domain.ModeCar:
		if km/CarKMH > 1 {
			minutes = int(math.Ceil(km / CarKMH))
		} else {
			minutes = int(math.Ceil(km / carKMPerMinute))
		}
	default:
		return domain.Route{Distance: domain.BadTravelManner, Duration: domain.BadTravelManner}
	}
	return domain.Route{
		Distance: FormatKilometres(km),
		Duration: FormatDuration(minutes),
	}
}

// FormatDuration prints minutes below an hour, otherwise H:MM hour.
func FormatDuration(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%d minutes", minutes)
	}
	return fmt.Sprintf("%d:%02d hour", minutes/60, minutes%60)
}

// FormatKilometres rounds the exact value to two decimals and drops trailing
// zeros, keeping at least one decimal, e.g. "2.0 km".
func FormatKilometres(km float64) string {
	s := strings.TrimRight(strconv.FormatFloat(km, 'f', 2, 64), "0")
	if strings.HasSuffix(s, ".") {
		s += "0"
	}
	return s + " km"
}
