package pump_test

import (
	"time"
)

const (
	timeOutLong = 2 * time.Second
	// timeOutShort is a "short" timeout, for happy cases.
	timeOutShort = 800 * time.Millisecond
	// pollTiny keeps test drain loops snappy.
	pollTiny = 20 * time.Millisecond
)
