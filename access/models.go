package access

import (
	"time"

	"github.com/xraph/paywall/content"
)

// Grant records subscription access for one holder of one content item.
// A grant whose ExpiresAt is not after the current time is treated as absent.
type Grant struct {
	ContentID content.ID `json:"content_id"`
	Holder    string     `json:"holder"`
	ExpiresAt time.Time  `json:"expires_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Active reports whether the grant still confers access at now.
func (g *Grant) Active(now time.Time) bool {
	return g.ExpiresAt.After(now)
}

// Remaining returns the unexpired access left at now, never negative.
func (g *Grant) Remaining(now time.Time) time.Duration {
	if !g.Active(now) {
		return 0
	}
	return g.ExpiresAt.Sub(now)
}

type Result struct {
	Allowed   bool         `json:"allowed"`
	ContentID content.ID   `json:"content_id"`
	Actor     string       `json:"actor"`
	Mode      content.Mode `json:"mode"`
	ExpiresAt *time.Time   `json:"expires_at,omitempty"`
	Reason    string       `json:"reason,omitempty"`
}
