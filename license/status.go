package license

import "time"

// DisplayStatus is the user-facing state derived from the stored
// status and the clock. It is never persisted.
type DisplayStatus string

const (
	DisplayPending  DisplayStatus = "pending"
	DisplayActive   DisplayStatus = "active"
	DisplayWarning  DisplayStatus = "warning"
	DisplayExpired  DisplayStatus = "expired"
	DisplayRevoked  DisplayStatus = "revoked"
	DisplayLifetime DisplayStatus = "lifetime"
)

// warningWindow is how close to expiry a license starts showing a
// renewal warning. Daily plans use a one-day window instead.
const warningWindow = 3 * 24 * time.Hour

// DeriveStatus computes the display state of a license at a given
// instant. Revocation wins over everything; lifetime licenses never
// expire; expiry is checked against the clock, not the stored status.
func DeriveStatus(l *License, now time.Time) DisplayStatus {
	if l.Status == StatusRevoked {
		return DisplayRevoked
	}
	if l.Status == StatusPending {
		return DisplayPending
	}
	if l.ExpiresAt == nil {
		return DisplayLifetime
	}

	remaining := l.ExpiresAt.Sub(now)
	if remaining <= 0 {
		return DisplayExpired
	}

	window := warningWindow
	if l.Plan == PlanDaily {
		window = 24 * time.Hour
	}
	if remaining <= window {
		return DisplayWarning
	}

	return DisplayActive
}

// IsUsable reports whether the license grants access right now:
// active, bound or not, and not past expiry.
func IsUsable(l *License, now time.Time) bool {
	switch DeriveStatus(l, now) {
	case DisplayActive, DisplayWarning, DisplayLifetime:
		return true
	default:
		return false
	}
}
