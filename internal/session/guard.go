package session

import (
	"strings"
	"time"
)

// Guard enforces the session lifecycle: an absolute age limit and an
// inactivity timeout. It is a pure function over the session record so the
// policy can be tested without HTTP or a store.
type Guard struct {
	InactivityTimeout time.Duration
	AbsoluteMaxAge    time.Duration
	AdminPathPrefix   string
	AdminLoginPath    string
}

// Verdict is the guard's decision for one request.
type Verdict struct {
	Expired    bool
	RedirectTo string
}

// Evaluate applies the lifecycle policy to a record at a given time and
// request path, returning the updated record and a verdict.
//
// Absolute expiry is checked before inactivity: a session past its maximum
// age is cleared even if it was active moments ago. Expiry on a privileged
// path yields a redirect to the login entry; otherwise processing continues
// with the cleared, anonymous record. Authenticated activity refreshes
// last_active and initializes created_at on first observation.
func (g Guard) Evaluate(rec Record, now time.Time, path string) (Record, Verdict) {
	if !rec.CreatedAt.IsZero() && now.Sub(rec.CreatedAt) > g.AbsoluteMaxAge {
		return rec.Cleared(), g.expireVerdict(path)
	}
	if !rec.LastActive.IsZero() && now.Sub(rec.LastActive) > g.InactivityTimeout {
		return rec.Cleared(), g.expireVerdict(path)
	}
	if rec.Authenticated() {
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = now
		}
		rec.LastActive = now
	}
	return rec, Verdict{}
}

func (g Guard) expireVerdict(path string) Verdict {
	v := Verdict{Expired: true}
	if g.AdminPathPrefix != "" && strings.HasPrefix(path, g.AdminPathPrefix) {
		v.RedirectTo = g.AdminLoginPath
	}
	return v
}
