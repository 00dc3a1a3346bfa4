package breaker

import "time"

// rollingWindow counts events inside a trailing span. Callers hold the
// breaker lock; the window itself is not safe for concurrent use.
type rollingWindow struct {
	span  time.Duration
	times []time.Time
}

func newRollingWindow(span time.Duration) *rollingWindow {
	return &rollingWindow{span: span}
}

func (w *rollingWindow) add(now time.Time) {
	w.prune(now)
	w.times = append(w.times, now)
}

func (w *rollingWindow) count(now time.Time) int {
	w.prune(now)
	return len(w.times)
}

func (w *rollingWindow) reset() {
	w.times = nil
}

func (w *rollingWindow) prune(now time.Time) {
	cutoff := now.Add(-w.span)
	i := 0
	for i < len(w.times) && !w.times[i].After(cutoff) {
		i++
	}
	if i > 0 {
		w.times = w.times[i:]
	}
}
