package notifier

import (
	"errors"

	"github.com/sk-sanagustin/yep-id/internal/models"
)

var ErrNotConfigured = errors.New("notifier is not configured")

// Notifier delivers participant-facing messages. Callers treat every error
// as a warning: a failed notification never undoes the operation that
// triggered it.
type Notifier interface {
	NotifyRegistration(p models.Participant, qrPNG []byte) error
	NotifyAttendance(p models.Participant, event models.Event, pointsEarned int) error
	NotifyReminder(p models.Participant, event models.Event) error
	NotifyPoints(p models.Participant, totalPoints, eventsAttended int) error
	Announce(p models.Participant, subject, message string) error
}

// Fanout sends every notification through each notifier in turn and joins
// their errors.
type Fanout []Notifier

func (f Fanout) each(fn func(Notifier) error) error {
	var errs []error
	for _, n := range f {
		if n == nil {
			continue
		}
		if err := fn(n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f Fanout) NotifyRegistration(p models.Participant, qrPNG []byte) error {
	return f.each(func(n Notifier) error { return n.NotifyRegistration(p, qrPNG) })
}

func (f Fanout) NotifyAttendance(p models.Participant, event models.Event, pointsEarned int) error {
	return f.each(func(n Notifier) error { return n.NotifyAttendance(p, event, pointsEarned) })
}

func (f Fanout) NotifyReminder(p models.Participant, event models.Event) error {
	return f.each(func(n Notifier) error { return n.NotifyReminder(p, event) })
}

func (f Fanout) NotifyPoints(p models.Participant, totalPoints, eventsAttended int) error {
	return f.each(func(n Notifier) error { return n.NotifyPoints(p, totalPoints, eventsAttended) })
}

func (f Fanout) Announce(p models.Participant, subject, message string) error {
	return f.each(func(n Notifier) error { return n.Announce(p, subject, message) })
}
