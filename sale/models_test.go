package sale_test

import (
	"math"
	"testing"

	"github.com/xraph/paywall/sale"
	"github.com/xraph/paywall/types"
)

func TestCompute(t *testing.T) {
	tests := []struct {
		name    string
		price   int64
		fee     uint8
		wantFee int64
		wantNet int64
	}{
		{"five percent", 100, 5, 5, 95},
		{"truncates toward creator", 99, 5, 4, 95},
		{"tiny price", 1, 5, 0, 1},
		{"no fee", 100, 0, 0, 100},
		{"all fee", 100, 100, 100, 0},
		{"large", 1_000_000_007, 3, 30_000_000, 970_000_007},
		{"wei scale", 2e18, 5, 1e17, 19e17},
		{"max int64", math.MaxInt64, 5, 461168601842738790, 8762203435012037017},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := sale.Compute(types.New(tt.price, "usdc"), tt.fee)
			if s.PlatformFee.Amount != tt.wantFee {
				t.Errorf("fee = %d, want %d", s.PlatformFee.Amount, tt.wantFee)
			}
			if s.CreatorPayment.Amount != tt.wantNet {
				t.Errorf("creator payment = %d, want %d", s.CreatorPayment.Amount, tt.wantNet)
			}
			if !s.PlatformFee.Add(s.CreatorPayment).Equal(s.Price) {
				t.Errorf("fee + payment != price")
			}
		})
	}
}
