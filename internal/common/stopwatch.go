package common

import (
	"time"
)

// This stopwatch keeps track of time. You can set a timeout for it,
// make it start counting time, and ask it if the timeout has been reached
type Stopwatch struct {
	Timeout   time.Duration
	startTime time.Time
	Running   bool
}

func NewStopwatch(timeout time.Duration) Stopwatch {
	return Stopwatch{Timeout: timeout}
}

func (s *Stopwatch) Start() {
	s.Running = true
	s.startTime = time.Now()
}

// Stop freezes the stopwatch and returns the time it has been running
func (s *Stopwatch) Stop() time.Duration {
	elapsed := s.Elapsed()
	s.Running = false
	return elapsed
}

// Elapsed is the time since the last start, zero if never started
func (s *Stopwatch) Elapsed() time.Duration {
	if s.startTime.IsZero() {
		return 0
	}
	return time.Since(s.startTime)
}

// TimedOut tells if the timeout has been reached.
// A stopwatch without timeout never times out.
func (s *Stopwatch) TimedOut() bool {
	return s.Timeout > 0 && s.Elapsed() >= s.Timeout
}
