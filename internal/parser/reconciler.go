package parser

import (
	"github.com/license-insight/backend/internal/models"
)

// sessionKey identifies one open checkout. A structural key avoids the
// collisions a concatenated "user@host:feature" string could produce if any
// field ever contained the separator characters.
type sessionKey struct {
	user    string
	host    string
	feature string
}

// Reconcile pairs checkout and return events into closed usage sessions.
//
// A second checkout for the same key before a return silently replaces the
// first; license daemons do not nest same-key checkouts. Returns with no
// matching open checkout are ignored, as are pairings whose computed duration
// is negative (a date-rollover anomaly). Sessions still open at the end of
// the log are not emitted.
func Reconcile(events []models.LogEvent) []models.Session {
	open := make(map[sessionKey]models.Session)
	closed := make([]models.Session, 0)

	for i := range events {
		ev := &events[i]
		if !ev.HasIdentity() {
			continue
		}

		key := sessionKey{user: ev.User, host: ev.Host, feature: ev.Feature}

		switch ev.Kind {
		case models.EventCheckout:
			start, ok := ev.Timestamp()
			if !ok {
				continue
			}
			open[key] = models.Session{
				User:    ev.User,
				Host:    ev.Host,
				Feature: ev.Feature,
				Start:   start,
			}
		case models.EventReturn:
			sess, ok := open[key]
			if !ok {
				continue
			}
			end, ok := ev.Timestamp()
			if !ok {
				continue
			}
			delete(open, key)
			minutes := end.Sub(sess.Start).Minutes()
			if minutes < 0 {
				continue
			}
			sess.End = end
			sess.DurationMinutes = minutes
			closed = append(closed, sess)
		}
	}

	return closed
}

// Denials filters the denial events that carry a resolvable feature; these
// are the inputs to aggregation alongside closed sessions.
func Denials(events []models.LogEvent) []models.LogEvent {
	out := make([]models.LogEvent, 0)
	for _, ev := range events {
		if ev.Kind == models.EventDenied && ev.Feature != "" {
			out = append(out, ev)
		}
	}
	return out
}
