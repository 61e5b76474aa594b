package engine

import "time"

// Clock provides the current time for log entries and run timestamps
type Clock func() time.Time

// SystemClock reads the wall clock
var SystemClock Clock = time.Now

// Now returns the current time from the Engine's configured clock
func (e *Engine) Now() time.Time {
	return e.clock()
}
