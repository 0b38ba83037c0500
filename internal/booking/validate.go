package booking

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"cloud.google.com/go/civil"

	"reservation-booking-api/internal/model"
	"reservation-booking-api/internal/validation"
)

const (
	FieldSince = "reservedSince"
	FieldTill  = "reservedTill"

	// MaxAvailabilityDays bounds a single availability query.
	MaxAvailabilityDays = 366
)

// Input is a reservation request as it arrives on the wire.
type Input struct {
	ReservedSince string `json:"reservedSince"`
	ReservedTill  string `json:"reservedTill"`
}

// UnmarshalJSON accepts any JSON value for the dates. Non-string values keep
// their literal text so validation reports them as invalid dates instead of
// the whole body being rejected.
func (in *Input) UnmarshalJSON(b []byte) error {
	var raw struct {
		ReservedSince json.RawMessage `json:"reservedSince"`
		ReservedTill  json.RawMessage `json:"reservedTill"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	var err error
	if in.ReservedSince, err = wireText(raw.ReservedSince); err != nil {
		return err
	}
	in.ReservedTill, err = wireText(raw.ReservedTill)
	return err
}

func wireText(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	switch {
	case len(raw) == 0, bytes.Equal(raw, []byte("null")):
		return "", nil
	case raw[0] == '"':
		var s string
		err := json.Unmarshal(raw, &s)
		return s, err
	default:
		return string(raw), nil
	}
}

func parseDate(s string) (civil.Date, bool) {
	d, err := civil.ParseDate(strings.TrimSpace(s))
	if err != nil || !d.IsValid() {
		return civil.Date{}, false
	}
	return d, true
}

func required(field string) string {
	return fmt.Sprintf("The %s field is required.", validation.Label(field))
}

func notDate(field string) string {
	return fmt.Sprintf("The %s is not a valid date.", validation.Label(field))
}

func beforeOrEqual(field, other string) string {
	return fmt.Sprintf("The %s must be a date before or equal to %s.", validation.Label(field), validation.Label(other))
}

func afterOrEqualToday(field string) string {
	return fmt.Sprintf("The %s must be a date after or equal to today.", validation.Label(field))
}

func tooLong(field, other string, days int) string {
	return fmt.Sprintf("The %s may not be more than %d days after %s.", validation.Label(field), days-1, validation.Label(other))
}

// Validate checks a create request against today and returns the requested
// range. Rules run per field in a fixed order; a missing field reports only
// that it is required, while an unparsable date also fails the comparison
// with today.
func Validate(in Input, today civil.Date) (model.DateRange, error) {
	errs := validation.New()

	since, sinceOK := parseDate(in.ReservedSince)
	till, tillOK := parseDate(in.ReservedTill)
	sinceMissing := strings.TrimSpace(in.ReservedSince) == ""
	tillMissing := strings.TrimSpace(in.ReservedTill) == ""

	if sinceMissing {
		errs.Add(FieldSince, required(FieldSince))
	} else {
		if !sinceOK {
			errs.Add(FieldSince, notDate(FieldSince))
		}
		if sinceOK && (!tillOK || since.After(till)) {
			errs.Add(FieldSince, beforeOrEqual(FieldSince, FieldTill))
		}
		if !sinceOK || since.Before(today) {
			errs.Add(FieldSince, afterOrEqualToday(FieldSince))
		}
	}

	if tillMissing {
		errs.Add(FieldTill, required(FieldTill))
	} else {
		if !tillOK {
			errs.Add(FieldTill, notDate(FieldTill))
		}
		if !tillOK || till.Before(today) {
			errs.Add(FieldTill, afterOrEqualToday(FieldTill))
		}
	}

	if err := errs.Err(); err != nil {
		return model.DateRange{}, err
	}
	return model.DateRange{Since: since, Till: till}, nil
}

// ValidateWindow checks an availability query. Past dates are allowed.
func ValidateWindow(sinceRaw, tillRaw string) (model.DateRange, error) {
	const fieldSince, fieldTill = "since", "till"
	errs := validation.New()

	since, sinceOK := parseDate(sinceRaw)
	till, tillOK := parseDate(tillRaw)

	switch {
	case strings.TrimSpace(sinceRaw) == "":
		errs.Add(fieldSince, required(fieldSince))
	case !sinceOK:
		errs.Add(fieldSince, notDate(fieldSince))
	case tillOK && since.After(till):
		errs.Add(fieldSince, beforeOrEqual(fieldSince, fieldTill))
	}

	switch {
	case strings.TrimSpace(tillRaw) == "":
		errs.Add(fieldTill, required(fieldTill))
	case !tillOK:
		errs.Add(fieldTill, notDate(fieldTill))
	case sinceOK && !since.After(till) && till.DaysSince(since) >= MaxAvailabilityDays:
		errs.Add(fieldTill, fmt.Sprintf("The till must be within %d days of since.", MaxAvailabilityDays))
	}

	if err := errs.Err(); err != nil {
		return model.DateRange{}, err
	}
	return model.DateRange{Since: since, Till: till}, nil
}
