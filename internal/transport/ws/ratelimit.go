package ws

import "time"

// window is a fixed-window command limiter for one session.
type window struct {
	span  time.Duration
	max   int
	start time.Time
	count int
}

// allow counts one command at now. When the window is exhausted it reports
// how long until the next one is accepted.
func (w *window) allow(now time.Time) (bool, time.Duration) {
	if w.span <= 0 || w.max <= 0 {
		return true, 0
	}
	if w.start.IsZero() || now.Sub(w.start) >= w.span {
		w.start = now
		w.count = 0
	}
	w.count++
	if w.count <= w.max {
		return true, 0
	}
	return false, w.start.Add(w.span).Sub(now)
}
