package treasury

import (
	"time"

	"github.com/xraph/paywall/id"
	"github.com/xraph/paywall/types"
)

// Withdrawal records a sweep of accumulated platform fees to the treasury.
type Withdrawal struct {
	types.Entity
	ID          id.WithdrawalID `json:"id"`
	Caller      string          `json:"caller"`
	Treasury    string          `json:"treasury"`
	Amount      types.Money     `json:"amount"`
	WithdrawnAt time.Time       `json:"withdrawn_at"`
}

type ListOpts struct {
	Limit  int
	Offset int
}
