package trap

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var expirationPattern = regexp.MustCompile(`^(?:(\d+)d)?(?:(\d+)h)?(?:(\d+)m)?(?:(\d+)s)?$`)

// Expiration is a parsed <N>d<N>h<N>m<N>s string. Missing parts are zero.
type Expiration struct {
	Days    int
	Hours   int
	Minutes int
	Seconds int
}

// ParseExpiration parses any in-order subset of the d/h/m/s components.
// The empty string parses to a zero Expiration.
func ParseExpiration(s string) (Expiration, error) {
	m := expirationPattern.FindStringSubmatch(s)
	if m == nil {
		return Expiration{}, fmt.Errorf("%w: %q", ErrInvalidExpiration, s)
	}

	var parts [4]int

	for i, field := range m[1:] {
		if field == "" {
			continue
		}

		v, err := strconv.Atoi(field)
		if err != nil {
			return Expiration{}, fmt.Errorf("%w: %q: %w", ErrInvalidExpiration, s, err)
		}

		parts[i] = v
	}

	return Expiration{Days: parts[0], Hours: parts[1], Minutes: parts[2], Seconds: parts[3]}, nil
}

func (e Expiration) Duration() time.Duration {
	return time.Duration(e.Days)*24*time.Hour +
		time.Duration(e.Hours)*time.Hour +
		time.Duration(e.Minutes)*time.Minute +
		time.Duration(e.Seconds)*time.Second
}

func (e Expiration) IsZero() bool {
	return e == Expiration{}
}
