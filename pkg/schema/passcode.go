package schema

import "time"

// Passcode is the single-slot completion gate for one request. Issuing a new
// code supersedes any prior record; there is no history.
type Passcode struct {
	RequestID string    `json:"request_id"`
	Code      string    `json:"code"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Active reports whether the code is still valid at the given instant.
// Expiry is always checked against the wall clock at verification time,
// never against a UI countdown.
func (p Passcode) Active(now time.Time) bool {
	return now.Before(p.ExpiresAt)
}

// ExpiresIn returns the remaining validity window for countdown display.
// Zero when already expired.
func (p Passcode) ExpiresIn(now time.Time) time.Duration {
	if !p.Active(now) {
		return 0
	}
	return p.ExpiresAt.Sub(now)
}
