package domain

import (
	"sort"
	"strings"
)

// Column names the accessor relies on beyond the ontology.
const (
	ColumnRating       = "rating"
	ColumnNumReviews   = "num_reviews"
	ColumnReviews      = "reviews"
	ColumnOpeningHours = "opening_hours"
	ColumnManner       = "manner"
	ColumnAddress      = "address"
)

// ClosedDay is the opening-hours value of a day without service.
const ClosedDay = "Closed"

// Entity is one knowledge-base row projected to a set of columns. Composite
// columns (opening_hours, manner, reviews) stay raw here and are decoded by
// the store package.
type Entity map[string]string

// Constraints maps a slot to its accepted values. Values are ORed within a
// slot and slots are ANDed. A scalar constraint is a slot with one value.
type Constraints map[string][]string

// ScalarConstraints builds constraints with one accepted value per slot.
func ScalarConstraints(m map[string]string) Constraints {
	c := make(Constraints, len(m))
	for slot, v := range m {
		c[slot] = []string{v}
	}
	return c
}

// Normalized drops empty and dontcare values, then slots left without values.
func (c Constraints) Normalized() Constraints {
	out := make(Constraints, len(c))
	for slot, values := range c {
		var kept []string
		for _, v := range values {
			if v == "" || strings.EqualFold(v, DontCare) {
				continue
			}
			kept = append(kept, v)
		}
		if len(kept) > 0 {
			out[slot] = kept
		}
	}
	return out
}

// Slots returns the constrained slots sorted by name.
func (c Constraints) Slots() []string {
	slots := make([]string, 0, len(c))
	for s := range c {
		slots = append(slots, s)
	}
	sort.Strings(slots)
	return slots
}

// DayHours is the service window of one day, or ClosedDay.
type DayHours struct {
	Day   string `json:"day"`
	Hours string `json:"hours"`
}

// OpeningHours lists days in the order they were recorded.
type OpeningHours []DayHours

// Lookup finds day exactly, then case-insensitively.
func (o OpeningHours) Lookup(day string) (string, bool) {
	for _, d := range o {
		if d.Day == day {
			return d.Hours, true
		}
	}
	for _, d := range o {
		if strings.EqualFold(d.Day, day) {
			return d.Hours, true
		}
	}
	return "", false
}

// OpenDays returns the days whose hours are not ClosedDay.
func (o OpeningHours) OpenDays() []string {
	var days []string
	for _, d := range o {
		if d.Hours != ClosedDay {
			days = append(days, d.Day)
		}
	}
	return days
}

// TravelMode selects the average speed used for duration estimates.
type TravelMode string

const (
	ModeFoot TravelMode = "by foot"
	ModeBike TravelMode = "by bike"
	ModeCar  TravelMode = "by car"
)

// Route is a distance and duration estimate rendered for display.
type Route struct {
	Distance string `json:"distance"`
	Duration string `json:"duration"`
}

// Route placeholders.
const (
	Unavailable     = "unavailable"
	BadTravelManner = "BadTravelManner"
)

// UnavailableRoute is returned when either endpoint cannot be located.
var UnavailableRoute = Route{Distance: Unavailable, Duration: Unavailable}

// Available reports whether the route carries real values.
func (r Route) Available() bool {
	return r.Distance != Unavailable && r.Distance != BadTravelManner
}

// Coordinates is a WGS-84 position in degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}
