package model

import "time"

// IST is the restaurant's fixed UTC+5:30 zone. All business dates and
// clock times are interpreted in it.
var IST = time.FixedZone("IST", 5*60*60+30*60)

const (
	// DateLayout is the booking date format.
	DateLayout = "2006-01-02"
	// StampLayout is the timestamp format written to the sheets.
	StampLayout = "2006-01-02 15:04"
)

// Clock returns the current time. Components take one so tests can pin it.
type Clock func() time.Time

// Now returns the current time from c, or the wall clock when c is nil.
func (c Clock) Now() time.Time {
	if c == nil {
		return time.Now().In(IST)
	}
	return c().In(IST)
}
