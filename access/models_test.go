package access_test

import (
	"testing"
	"time"

	"github.com/xraph/paywall/access"
)

func TestGrantRemaining(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		expiresAt time.Time
		active    bool
		remaining time.Duration
	}{
		{"future", now.Add(30 * time.Second), true, 30 * time.Second},
		{"exactly now", now, false, 0},
		{"past", now.Add(-time.Hour), false, 0},
		{"zero value", time.Time{}, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := &access.Grant{ContentID: 1, Holder: "bob", ExpiresAt: tt.expiresAt}
			if got := g.Active(now); got != tt.active {
				t.Errorf("Active = %v, want %v", got, tt.active)
			}
			if got := g.Remaining(now); got != tt.remaining {
				t.Errorf("Remaining = %v, want %v", got, tt.remaining)
			}
		})
	}
}
