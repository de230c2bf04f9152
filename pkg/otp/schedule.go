// Package otp produces the rotating one-time code mixed into every recovery
// signature. Codes are standard TOTP (RFC 6238, SHA-1, six digits) over a
// base32-encoded master key: a pure function of (masterKey, interval,
// time bucket). Two timestamps in the same bucket yield the same code;
// timestamps in different buckets yield different codes with high
// probability, which is what bounds a captured token's replay window to at
// most one interval.
package otp

import (
	"encoding/base32"
	"fmt"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// DefaultInterval balances usability (recovered state stays valid across a
// reasonably long client session) against the replay window of a captured,
// not-yet-expired token.
const DefaultInterval = 4 * time.Hour

// Schedule is the rotating-code generator. Immutable after NewSchedule and
// safe for concurrent use.
type Schedule struct {
	secret   string
	interval time.Duration
}

// NewSchedule builds a schedule from the provider's master key. A
// non-positive interval falls back to DefaultInterval.
func NewSchedule(kp KeyProvider, interval time.Duration) (*Schedule, error) {
	if kp == nil {
		kp = DerivedKey("")
	}
	if interval <= 0 {
		interval = DefaultInterval
	}

	key, err := kp.Provide()
	if err != nil {
		return nil, fmt.Errorf("otp: master key: %w", err)
	}

	s := &Schedule{
		secret:   base32.StdEncoding.EncodeToString(key),
		interval: interval,
	}

	// Fail fast on unusable key material rather than on the first request.
	if _, err := s.CodeAt(time.Now()); err != nil {
		return nil, err
	}
	return s, nil
}

// CodeAt returns the code for the interval bucket containing t.
func (s *Schedule) CodeAt(t time.Time) (string, error) {
	code, err := totp.GenerateCodeCustom(s.secret, t, totp.ValidateOpts{
		Period:    uint(s.interval / time.Second),
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", fmt.Errorf("otp: generate code: %w", err)
	}
	return code, nil
}

// Interval returns the rotation period.
func (s *Schedule) Interval() time.Duration {
	return s.interval
}
