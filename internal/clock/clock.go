// Package clock abstracts the time source so date arithmetic and expiry
// checks are deterministic in tests. Production code uses the system
// clock; tests inject a fake frozen at a known instant.
package clock

import (
	"time"

	"github.com/ts3486/unswipe-sub000/internal/domain"
)

// Clock supplies the current instant and the local calendar date.
type Clock interface {
	// Now returns the current instant.
	Now() time.Time

	// Today returns the current local calendar date as "YYYY-MM-DD".
	Today() string
}

// systemClock is the production Clock backed by the system time source.
type systemClock struct{}

// New returns a Clock backed by the system time source in the process's
// local time zone.
func New() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now()
}

func (systemClock) Today() string {
	return time.Now().Local().Format(domain.DayFormat)
}

// Fake is a manually-advanced Clock for tests.
type Fake struct {
	Current time.Time
}

// NewFake returns a Fake clock frozen at the given instant.
func NewFake(at time.Time) *Fake {
	return &Fake{Current: at}
}

// Now returns the frozen instant.
func (f *Fake) Now() time.Time {
	return f.Current
}

// Today returns the frozen instant's local calendar date.
func (f *Fake) Today() string {
	return f.Current.Format(domain.DayFormat)
}

// Advance moves the fake clock forward by d.
func (f *Fake) Advance(d time.Duration) {
	f.Current = f.Current.Add(d)
}

// AdvanceDays moves the fake clock forward by whole calendar days.
func (f *Fake) AdvanceDays(days int) {
	f.Current = f.Current.AddDate(0, 0, days)
}
