package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/Thommy96/BaRiStA/internal/domain"
)

// Composite columns are persisted as text. These helpers are the only place
// that knows their encodings.

// DecodeOpeningHours decodes a JSON object of day -> hours, keeping day order.
func DecodeOpeningHours(raw string) (domain.OpeningHours, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: opening_hours: %v", ErrMalformedColumn, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("%w: opening_hours: expected object", ErrMalformedColumn)
	}
	var hours domain.OpeningHours
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: opening_hours: %v", ErrMalformedColumn, err)
		}
		day, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("%w: opening_hours: expected day name", ErrMalformedColumn)
		}
		var h string
		if err := dec.Decode(&h); err != nil {
			return nil, fmt.Errorf("%w: opening_hours %s: %v", ErrMalformedColumn, day, err)
		}
		hours = append(hours, domain.DayHours{Day: day, Hours: h})
	}
	return hours, nil
}

// EncodeOpeningHours is the inverse of DecodeOpeningHours.
func EncodeOpeningHours(hours domain.OpeningHours) string {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, d := range hours {
		if i > 0 {
			buf.WriteString(", ")
		}
		k, _ := json.Marshal(d.Day)
		v, _ := json.Marshal(d.Hours)
		buf.Write(k)
		buf.WriteString(": ")
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.String()
}

// DecodeManners decodes the JSON list of service manner phrases.
func DecodeManners(raw string) ([]string, error) {
	var manners []string
	if err := json.Unmarshal([]byte(raw), &manners); err != nil {
		return nil, fmt.Errorf("%w: manner: %v", ErrMalformedColumn, err)
	}
	return manners, nil
}

// DecodeReviews decodes the stored review list. The column holds a
// Python-style list literal; apostrophes are normalised before decoding so
// that "'s" survives as a typographic apostrophe and single quotes become JSON
// string delimiters. Reviews containing other apostrophes do not decode.
func DecodeReviews(raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return []string{}, nil
	}
	normalized := strings.ReplaceAll(raw, "'s", "’s")
	normalized = strings.ReplaceAll(normalized, "'", `"`)
	var reviews []string
	if err := json.Unmarshal([]byte(normalized), &reviews); err != nil {
		return nil, fmt.Errorf("%w: reviews: %v", ErrMalformedColumn, err)
	}
	if reviews == nil {
		reviews = []string{}
	}
	return reviews, nil
}

// EncodeReviews renders reviews as a Python-style list literal, the format
// the reviews column is stored in.
func EncodeReviews(reviews []string) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, r := range reviews {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(pyQuote(r))
	}
	sb.WriteByte(']')
	return sb.String()
}

func pyQuote(s string) string {
	quote := byte('\'')
	if strings.ContainsRune(s, '\'') && !strings.ContainsRune(s, '"') {
		quote = '"'
	}
	var sb strings.Builder
	sb.WriteByte(quote)
	for _, r := range s {
		switch {
		case r == '\\':
			sb.WriteString(`\\`)
		case r == rune(quote):
			sb.WriteByte('\\')
			sb.WriteByte(quote)
		case r == '\n':
			sb.WriteString(`\n`)
		case r == '\r':
			sb.WriteString(`\r`)
		case r == '\t':
			sb.WriteString(`\t`)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte(quote)
	return sb.String()
}

// ParseReviewCount parses a thousands-separated count such as "1,234".
func ParseReviewCount(raw string) (int, error) {
	n, err := strconv.Atoi(strings.ReplaceAll(strings.TrimSpace(raw), ",", ""))
	if err != nil {
		return 0, fmt.Errorf("%w: num_reviews %q", ErrMalformedColumn, raw)
	}
	return n, nil
}

// ParseRating parses a stored rating.
func ParseRating(raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: rating %q", ErrMalformedColumn, raw)
	}
	return v, nil
}

// FormatRating rounds the exact binary value to one decimal, halves to even,
// and always prints the decimal, e.g. "4.0".
func FormatRating(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}
