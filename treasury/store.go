package treasury

import "context"

type Store interface {
	CreateWithdrawal(ctx context.Context, w *Withdrawal) error
	ListWithdrawals(ctx context.Context, opts ListOpts) ([]*Withdrawal, error)
}
