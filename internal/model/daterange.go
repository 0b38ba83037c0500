package model

import (
	"fmt"

	"cloud.google.com/go/civil"
)

// DateRange is an inclusive span of calendar days. Both ends are date-only,
// so iteration never depends on DST or time-of-day arithmetic.
type DateRange struct {
	Since civil.Date
	Till  civil.Date
}

func NewDateRange(since, till civil.Date) (DateRange, error) {
	r := DateRange{Since: since, Till: till}
	if !r.Valid() {
		return DateRange{}, fmt.Errorf("invalid date range %s..%s", since, till)
	}
	return r, nil
}

func (r DateRange) Valid() bool {
	return r.Since.IsValid() && r.Till.IsValid() && !r.Since.After(r.Till)
}

// Len is the number of days in the range, 0 for an invalid range.
func (r DateRange) Len() int {
	if !r.Valid() {
		return 0
	}
	return r.Till.DaysSince(r.Since) + 1
}

func (r DateRange) Contains(d civil.Date) bool {
	return !d.Before(r.Since) && !d.After(r.Till)
}

// Days lists every day of the range in ascending order.
func (r DateRange) Days() []civil.Date {
	days := make([]civil.Date, 0, r.Len())
	for d := r.Since; r.Valid() && !d.After(r.Till); d = d.AddDays(1) {
		days = append(days, d)
	}
	return days
}

func (r DateRange) String() string {
	return r.Since.String() + ".." + r.Till.String()
}
