package service

import "time"

// Clock supplies the current time.  Handlers and workers read it once per
// operation and pass the value down so that every check within the
// operation agrees on "now".
type Clock interface {
	Now() time.Time
}

// SystemClock reports wall-clock time in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }
