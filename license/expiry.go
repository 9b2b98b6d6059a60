package license

import "time"

// EndOfDay pins t to 23:59:59.999 in its own location. Daily plans
// always expire at end of day so a purchase at 09:00 and one at 23:00
// buy the same calendar coverage.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, 999_000_000, t.Location())
}

// ExpiryForPlan computes the initial expiry for a fresh purchase.
// Lifetime plans return nil.
func ExpiryForPlan(plan Plan, now time.Time) *time.Time {
	switch plan {
	case PlanDaily:
		exp := EndOfDay(now.Add(24 * time.Hour))
		return &exp
	case PlanMonthly:
		exp := now.Add(30 * 24 * time.Hour)
		return &exp
	case PlanYearly:
		exp := now.Add(365 * 24 * time.Hour)
		return &exp
	default:
		return nil
	}
}

// NextExpiry extends a license by days. Extension stacks on the
// current expiry when the license is still live, and restarts from now
// when it already lapsed — renewing early never loses paid time.
func NextExpiry(current *time.Time, now time.Time, days int) time.Time {
	base := now
	if current != nil && current.After(now) {
		base = *current
	}
	return base.Add(time.Duration(days) * 24 * time.Hour)
}

// NextDailyExpiry extends a daily license by one day, pinned to end of
// day like the original purchase.
func NextDailyExpiry(current *time.Time, now time.Time) time.Time {
	return EndOfDay(NextExpiry(current, now, 1))
}
