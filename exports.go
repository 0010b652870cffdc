package paywall

import (
	"github.com/xraph/paywall/content"
	"github.com/xraph/paywall/types"
)

// Re-export common types so callers don't need the types and content packages
// for everyday use.

// Money is re-exported from types package.
type Money = types.Money

// ContentID is re-exported from content package.
type ContentID = content.ID

// Re-export Money constructors
var (
	NewMoney = types.New
	Zero     = types.Zero
	Sum      = types.Sum
)
