// Package utils provides utility functions for the application.
package utils

import (
	"time"
)

// DayBucketLayout is the calendar-day key format used for daily counters
const DayBucketLayout = "2006-01-02"

// UTCNow returns the current time in UTC
func UTCNow() time.Time {
	return time.Now().UTC()
}

// DayBucket returns the calendar day of t in loc (UTC when loc is nil)
func DayBucket(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(DayBucketLayout)
}

// LocalHour returns the hour of day of t in loc (UTC when loc is nil)
func LocalHour(t time.Time, loc *time.Location) int {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Hour()
}

// LoadLocationOrUTC resolves an IANA zone name, falling back to UTC
func LoadLocationOrUTC(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}
