package chrono

import "time"

// API is the interface that anything depending on the system clock should use.
type API interface {
	Now() time.Time
}

// StandardImpl is the standard implementation of API using the standard library.
type StandardImpl struct {
	location *time.Location
}

// NewStandardImpl creates a clock reporting times in the given IANA zone, an empty
// name means UTC.
func NewStandardImpl(zone string) (StandardImpl, error) {
	location, err := time.LoadLocation(zone)
	if err != nil {
		return StandardImpl{}, err
	}
	return StandardImpl{location: location}, nil
}

func (s StandardImpl) Now() time.Time {
	if s.location == nil {
		return time.Now()
	}
	return time.Now().In(s.location)
}

// Fixed is a clock that only moves when told to.
type Fixed struct {
	now *time.Time
}

func NewFixed(now time.Time) Fixed {
	return Fixed{now: &now}
}

func (f Fixed) Now() time.Time {
	return *f.now
}

// Advance moves the clock forward by d.
func (f Fixed) Advance(d time.Duration) {
	*f.now = f.now.Add(d)
}
