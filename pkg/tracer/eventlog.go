package tracer

import "github.com/yairfalse/kaiku/pkg/trace"

// eventLog is the append-only event sequence a trace session builds
// up. Events are stored by value and immutable once appended. Callers
// synchronize through the engine lock; the log itself never blocks.
type eventLog struct {
	events []trace.Event
	max    int
}

// newEventLog returns a log capped at max events, or unbounded when
// max is 0.
func newEventLog(max int) *eventLog {
	return &eventLog{max: max}
}

// append adds ev in append order. It returns false, dropping the
// event, once the cap is reached.
func (l *eventLog) append(ev trace.Event) bool {
	if l.max > 0 && len(l.events) >= l.max {
		return false
	}
	l.events = append(l.events, ev)
	return true
}

// size returns the number of events recorded.
func (l *eventLog) size() int { return len(l.events) }

// each visits every event in append order, stopping at the first
// error.
func (l *eventLog) each(fn func(trace.Event) error) error {
	for _, ev := range l.events {
		if err := fn(ev); err != nil {
			return err
		}
	}
	return nil
}

// snapshot copies the log, detaching the caller from later appends.
func (l *eventLog) snapshot() []trace.Event {
	out := make([]trace.Event, len(l.events))
	copy(out, l.events)
	return out
}

// reset drops all events.
func (l *eventLog) reset() {
	l.events = nil
}
