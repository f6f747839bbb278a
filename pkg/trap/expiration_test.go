package trap

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestParseExpiration(t *testing.T) {
	tests := []struct {
		in      string
		want    Expiration
		wantErr bool
	}{
		{in: "1d2h3m4s", want: Expiration{Days: 1, Hours: 2, Minutes: 3, Seconds: 4}},
		{in: "5m", want: Expiration{Minutes: 5}},
		{in: "", want: Expiration{}},
		{in: "2d30s", want: Expiration{Days: 2, Seconds: 30}},
		{in: "48h", want: Expiration{Hours: 48}},
		{in: "3m2h", wantErr: true},
		{in: "1w", wantErr: true},
		{in: "10", wantErr: true},
		{in: " 5m", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseExpiration(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidExpiration)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExpirationDuration(t *testing.T) {
	e := Expiration{Days: 1, Hours: 2, Minutes: 3, Seconds: 4}
	assert.Equal(t, 26*time.Hour+3*time.Minute+4*time.Second, e.Duration())
	assert.True(t, Expiration{}.IsZero())
	assert.Zero(t, Expiration{}.Duration())
}

func TestParseExpirationRoundTripProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var (
			want Expiration
			s    string
		)

		if rapid.Bool().Draw(t, "has_days") {
			want.Days = rapid.IntRange(0, 365).Draw(t, "days")
			s += fmt.Sprintf("%dd", want.Days)
		}

		if rapid.Bool().Draw(t, "has_hours") {
			want.Hours = rapid.IntRange(0, 1000).Draw(t, "hours")
			s += fmt.Sprintf("%dh", want.Hours)
		}

		if rapid.Bool().Draw(t, "has_minutes") {
			want.Minutes = rapid.IntRange(0, 1000).Draw(t, "minutes")
			s += fmt.Sprintf("%dm", want.Minutes)
		}

		if rapid.Bool().Draw(t, "has_seconds") {
			want.Seconds = rapid.IntRange(0, 100000).Draw(t, "seconds")
			s += fmt.Sprintf("%ds", want.Seconds)
		}

		got, err := ParseExpiration(s)
		if err != nil {
			t.Fatalf("parse %q: %v", s, err)
		}

		if got != want {
			t.Fatalf("parse %q = %+v, want %+v", s, got, want)
		}
	})
}
