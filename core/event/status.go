package event

import (
	"time"

	"github.com/gvpclubconnect/clubconnect/core"
)

var NowFunc = time.Now // mockable

// Today returns the current UTC date as YYYY-MM-DD.
func Today() string {
	return NowFunc().UTC().Format(core.ISODateLayout)
}

// StatusFor computes the status of an event held on date.
// ISO dates compare lexically, so a string comparison is enough.
func StatusFor(date string) string {
	if date >= Today() {
		return StatusUpcoming
	}
	return StatusPast
}
