package license

import (
	"testing"
	"time"
)

func TestNewKey(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		key := NewKey()
		if !ValidKey(key) {
			t.Fatalf("generated key %q does not match the key grammar", key)
		}
		if seen[key] {
			t.Fatalf("duplicate key %q", key)
		}
		seen[key] = true
	}
}

func TestValidKey(t *testing.T) {
	tests := []struct {
		key   string
		valid bool
	}{
		{"7KQ2-M9XA-11BC-DD0F", true},
		{"AAAA-BBBB-CCCC-DDDD", true},
		{"0000-0000-0000-0000", true},
		{"7kq2-m9xa-11bc-dd0f", false}, // lowercase
		{"7KQ2M9XA11BCDD0F", false},    // no separators
		{"7KQ2-M9XA-11BC", false},      // too few groups
		{"7KQ2-M9XA-11BC-DD0F-EEEE", false},
		{"7KQ!-M9XA-11BC-DD0F", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := ValidKey(tt.key); got != tt.valid {
			t.Errorf("ValidKey(%q) = %v, want %v", tt.key, got, tt.valid)
		}
	}
}

func TestNormalizeKey(t *testing.T) {
	if got := NormalizeKey("  7kq2-m9xa-11bc-dd0f "); got != "7KQ2-M9XA-11BC-DD0F" {
		t.Errorf("NormalizeKey: got %q", got)
	}
}

func TestEndOfDay(t *testing.T) {
	in := time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC)
	got := EndOfDay(in)
	want := time.Date(2026, 3, 15, 23, 59, 59, 999_000_000, time.UTC)
	if !got.Equal(want) {
		t.Errorf("EndOfDay: got %v, want %v", got, want)
	}
}

func TestExpiryForPlan(t *testing.T) {
	now := time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		plan Plan
		want *time.Time
	}{
		{PlanDaily, timePtr(time.Date(2026, 3, 16, 23, 59, 59, 999_000_000, time.UTC))},
		{PlanMonthly, timePtr(now.Add(30 * 24 * time.Hour))},
		{PlanYearly, timePtr(now.Add(365 * 24 * time.Hour))},
		{PlanLifetime, nil},
	}

	for _, tt := range tests {
		t.Run(string(tt.plan), func(t *testing.T) {
			got := ExpiryForPlan(tt.plan, now)
			if (got == nil) != (tt.want == nil) {
				t.Fatalf("ExpiryForPlan(%s): got %v, want %v", tt.plan, got, tt.want)
			}
			if got != nil && !got.Equal(*tt.want) {
				t.Errorf("ExpiryForPlan(%s): got %v, want %v", tt.plan, *got, *tt.want)
			}
		})
	}
}

func TestNextExpiry(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	future := now.Add(10 * 24 * time.Hour)
	past := now.Add(-5 * 24 * time.Hour)

	tests := []struct {
		name    string
		current *time.Time
		days    int
		want    time.Time
	}{
		{"stacks on live license", &future, 30, future.Add(30 * 24 * time.Hour)},
		{"restarts from now when lapsed", &past, 30, now.Add(30 * 24 * time.Hour)},
		{"no current expiry", nil, 365, now.Add(365 * 24 * time.Hour)},
		{"expiry exactly now restarts", &now, 30, now.Add(30 * 24 * time.Hour)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextExpiry(tt.current, now, tt.days)
			if !got.Equal(tt.want) {
				t.Errorf("NextExpiry: got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNextDailyExpiry(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	// Lapsed daily license: tomorrow end of day.
	past := now.Add(-48 * time.Hour)
	got := NextDailyExpiry(&past, now)
	want := time.Date(2026, 3, 16, 23, 59, 59, 999_000_000, time.UTC)
	if !got.Equal(want) {
		t.Errorf("lapsed: got %v, want %v", got, want)
	}

	// Live daily license: current expiry plus one day, still pinned.
	cur := time.Date(2026, 3, 16, 23, 59, 59, 999_000_000, time.UTC)
	got = NextDailyExpiry(&cur, now)
	want = time.Date(2026, 3, 17, 23, 59, 59, 999_000_000, time.UTC)
	if !got.Equal(want) {
		t.Errorf("live: got %v, want %v", got, want)
	}
}

func TestDeriveStatus(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		lic  License
		want DisplayStatus
	}{
		{
			"revoked wins over everything",
			License{Status: StatusRevoked, ExpiresAt: timePtr(now.Add(time.Hour))},
			DisplayRevoked,
		},
		{
			"pending before first binding",
			License{Status: StatusPending},
			DisplayPending,
		},
		{
			"lifetime never expires",
			License{Status: StatusActive, Plan: PlanLifetime},
			DisplayLifetime,
		},
		{
			"expired by clock despite stored active",
			License{Status: StatusActive, Plan: PlanMonthly, ExpiresAt: timePtr(now.Add(-time.Minute))},
			DisplayExpired,
		},
		{
			"expiry exactly now is expired",
			License{Status: StatusActive, Plan: PlanMonthly, ExpiresAt: &now},
			DisplayExpired,
		},
		{
			"warning inside three days",
			License{Status: StatusActive, Plan: PlanMonthly, ExpiresAt: timePtr(now.Add(2 * 24 * time.Hour))},
			DisplayWarning,
		},
		{
			"active outside the window",
			License{Status: StatusActive, Plan: PlanMonthly, ExpiresAt: timePtr(now.Add(10 * 24 * time.Hour))},
			DisplayActive,
		},
		{
			"daily warns inside one day",
			License{Status: StatusActive, Plan: PlanDaily, ExpiresAt: timePtr(now.Add(12 * time.Hour))},
			DisplayWarning,
		},
		{
			"daily active outside one day",
			License{Status: StatusActive, Plan: PlanDaily, ExpiresAt: timePtr(now.Add(30 * time.Hour))},
			DisplayActive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveStatus(&tt.lic, now); got != tt.want {
				t.Errorf("DeriveStatus: got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestIsUsable(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	usable := License{Status: StatusActive, Plan: PlanMonthly, ExpiresAt: timePtr(now.Add(10 * 24 * time.Hour))}
	if !IsUsable(&usable, now) {
		t.Error("active license should be usable")
	}

	warning := License{Status: StatusActive, Plan: PlanMonthly, ExpiresAt: timePtr(now.Add(time.Hour))}
	if !IsUsable(&warning, now) {
		t.Error("license in warning window should still be usable")
	}

	expired := License{Status: StatusActive, Plan: PlanMonthly, ExpiresAt: timePtr(now.Add(-time.Hour))}
	if IsUsable(&expired, now) {
		t.Error("expired license should not be usable")
	}

	revoked := License{Status: StatusRevoked, Plan: PlanLifetime}
	if IsUsable(&revoked, now) {
		t.Error("revoked license should not be usable")
	}
}

func TestHistoryContains(t *testing.T) {
	l := License{HWIDHistory: []string{"AAAA", "BBBB"}}
	if !l.HistoryContains("AAAA") {
		t.Error("expected history hit")
	}
	if l.HistoryContains("CCCC") {
		t.Error("unexpected history hit")
	}
}

func timePtr(t time.Time) *time.Time { return &t }
