// Package parsing turns the localized strings harvested from the parking
// portal into typed values.
package parsing

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/msanchezt/smou-parking-ha/internal/domain"
)

// TimestampLayout is the portal's zone-naive DD/MM/YYYY HH:MM:SS format.
const TimestampLayout = "02/01/2006 15:04:05"

var (
	amountPattern = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)
	sixty         = decimal.NewFromInt(60)
)

// ParseError describes a mandatory field that could not be parsed. It
// matches domain.ErrParse under errors.Is.
type ParseError struct {
	Field string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("parse %s %q", e.Field, e.Value)
	}
	return fmt.Sprintf("parse %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *ParseError) Unwrap() []error {
	if e.Err == nil {
		return []error{domain.ErrParse}
	}
	return []error{domain.ErrParse, e.Err}
}

// ParseCost parses a charged amount such as "3,50 €". A lone "-" means
// nothing was charged.
func ParseCost(s string) (decimal.Decimal, error) {
	v := strings.TrimSpace(s)
	if v == "-" {
		return decimal.Zero, nil
	}
	amount, ok := normalizeAmount(v)
	if !ok {
		return decimal.Zero, &ParseError{Field: "cost", Value: s}
	}
	return amount, nil
}

// ParseRate parses an hourly tariff such as "1,15€/h". The boolean is false
// when the string is empty or not a non-negative amount.
func ParseRate(s string) (decimal.Decimal, bool) {
	v := strings.TrimSpace(s)
	v = strings.TrimSuffix(v, "/h")
	return normalizeAmount(v)
}

func normalizeAmount(v string) (decimal.Decimal, bool) {
	v = strings.ReplaceAll(v, "€", "")
	v = strings.TrimSpace(v)
	if strings.Contains(v, ",") {
		// "1.234,50": dots are thousand separators once a decimal comma is present.
		v = strings.ReplaceAll(v, ".", "")
		v = strings.Replace(v, ",", ".", 1)
	}
	if !amountPattern.MatchString(v) {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// ParseDuration converts "2h 30m" style strings to fractional hours.
// Malformed input yields zero rather than an error.
func ParseDuration(s string) decimal.Decimal {
	parts := strings.Fields(s)
	if len(parts) == 0 || len(parts) > 2 {
		return decimal.Zero
	}

	hours, ok := unitValue(parts[0], "h")
	if !ok {
		return decimal.Zero
	}
	if len(parts) == 1 {
		return hours
	}

	minutes, ok := unitValue(parts[1], "m")
	if !ok {
		return decimal.Zero
	}
	return hours.Add(minutes.Div(sixty))
}

func unitValue(token, unit string) (decimal.Decimal, bool) {
	if !strings.HasSuffix(token, unit) {
		return decimal.Zero, false
	}
	v := strings.Replace(strings.TrimSuffix(token, unit), ",", ".", 1)
	if !amountPattern.MatchString(v) {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// ParseTimestamp parses the portal timestamp format in loc. A nil loc means
// the process local time zone.
func ParseTimestamp(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(TimestampLayout, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, &ParseError{Field: "timestamp", Value: s, Err: err}
	}
	return t, nil
}

// EffectiveYear is the billing year whose published rates apply to a session
// starting at start. January sessions bill against the previous year.
func EffectiveYear(start time.Time) int {
	if start.Month() == time.January {
		return start.Year() - 1
	}
	return start.Year()
}

// ParseZone maps the portal's Catalan zone labels to a Zone.
func ParseZone(label string) (domain.Zone, error) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "zona blava", "blava", "blue":
		return domain.ZoneBlue, nil
	case "zona verda", "verda", "green":
		return domain.ZoneGreen, nil
	}
	return "", &ParseError{Field: "zone", Value: label, Err: domain.ErrUnknownZone}
}

// ParseLabel maps a receipt or configured environmental label to an
// EnvLabel. The boolean is false for empty or unrecognised labels.
func ParseLabel(s string) (domain.EnvLabel, bool) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch {
	case v == "":
		return "", false
	case v == "0" || strings.HasPrefix(v, "0 ") || strings.Contains(v, "zero") || strings.Contains(v, "cero"):
		return domain.LabelZero, true
	case strings.Contains(v, "eco"):
		return domain.LabelEco, true
	case v == "regular" || v == "b" || v == "c" || strings.HasPrefix(v, "sense"):
		return domain.LabelRegular, true
	}
	return "", false
}
