package clock

import (
	"fmt"
	"time"

	appErrors "github.com/opencase/benefits-portal-api/pkg/errors"
)

// MaxReleaseDelayHours bounds the admin-selectable release delay.
const MaxReleaseDelayHours = 5

// Clock supplies the authoritative "now" in a fixed civil timezone. All
// release and email due-date comparisons go through it so a batch run sees a
// single consistent civil date regardless of the server machine timezone.
type Clock interface {
	Now() time.Time
	Today() time.Time
	Location() *time.Location
}

// System is the production clock pinned to one IANA timezone.
type System struct {
	loc *time.Location
}

// NewSystem loads the named timezone and returns a clock bound to it.
func NewSystem(timezone string) (*System, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", timezone, err)
	}
	return &System{loc: loc}, nil
}

// Now returns the current instant in the configured location.
func (s *System) Now() time.Time {
	return time.Now().In(s.loc)
}

// Today returns civil midnight of the current date.
func (s *System) Today() time.Time {
	return Midnight(s.Now())
}

// Location exposes the pinned timezone.
func (s *System) Location() *time.Location {
	return s.loc
}

// Fixed is a deterministic clock for tests and dry runs.
type Fixed struct {
	Instant time.Time
}

func (f Fixed) Now() time.Time           { return f.Instant }
func (f Fixed) Today() time.Time         { return Midnight(f.Instant) }
func (f Fixed) Location() *time.Location { return f.Instant.Location() }

// Midnight truncates an instant to its civil date in its own location.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// CalculateReleaseTime converts an hour delay into an absolute release
// instant. Delays outside [0, MaxReleaseDelayHours] are rejected.
func CalculateReleaseTime(c Clock, hoursDelay int) (time.Time, error) {
	if hoursDelay < 0 || hoursDelay > MaxReleaseDelayHours {
		return time.Time{}, appErrors.Clone(appErrors.ErrInvalidArgument,
			fmt.Sprintf("release delay must be between 0 and %d hours", MaxReleaseDelayHours))
	}
	return c.Now().Add(time.Duration(hoursDelay) * time.Hour), nil
}
