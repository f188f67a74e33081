package domain

import "errors"

var (
	// ErrParse is returned when a mandatory raw field cannot be parsed.
	ErrParse = errors.New("parse error")
	// ErrMissingID is returned for raw rows without an identity key.
	ErrMissingID = errors.New("missing id")
	// ErrUnknownZone is returned for zone labels outside the known set.
	ErrUnknownZone = errors.New("unknown zone")
	// ErrUnconfiguredRate is returned when the rate table has no row for a lookup.
	ErrUnconfiguredRate = errors.New("unconfigured rate")
	// ErrUnknownMetric is returned by the aggregate query surface.
	ErrUnknownMetric = errors.New("unknown metric")
	// ErrRecordNotFound is returned when a record lookup has no match.
	ErrRecordNotFound = errors.New("record not found")

	ErrReceiptNotAvailable  = errors.New("receipt: not available")
	ErrReceiptProcessing    = errors.New("receipt: processing failed")
	ErrReceiptNotAccessible = errors.New("receipt: not accessible")
)
