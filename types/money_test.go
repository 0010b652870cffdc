package types

import (
	"encoding/json"
	"math"
	"testing"
)

func usdc(amount int64) Money { return New(amount, "usdc") }

func TestMoneyConstructors(t *testing.T) {
	tests := []struct {
		name    string
		money   Money
		amount  int64
		denom   string
		display string
	}{
		{"USDC", New(4900, "usdc"), 4900, "usdc", "4900 usdc"},
		{"uppercase denom", New(10, "WEI"), 10, "wei", "10 wei"},
		{"Zero", Zero("USDC"), 0, "usdc", "0 usdc"},
		{"no denom", Money{Amount: 7}, 7, "", "7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.money.Amount != tt.amount {
				t.Errorf("Amount: got %d, want %d", tt.money.Amount, tt.amount)
			}
			if tt.money.Denom != tt.denom {
				t.Errorf("Denom: got %s, want %s", tt.money.Denom, tt.denom)
			}
			if tt.money.String() != tt.display {
				t.Errorf("Display: got %s, want %s", tt.money.String(), tt.display)
			}
		})
	}
}

func TestMoneyArithmetic(t *testing.T) {
	tests := []struct {
		name     string
		op       func() Money
		expected Money
	}{
		{"Add", func() Money { return usdc(100).Add(usdc(200)) }, usdc(300)},
		{"Subtract", func() Money { return usdc(500).Subtract(usdc(200)) }, usdc(300)},
		{"Multiply", func() Money { return usdc(100).Multiply(3) }, usdc(300)},
		{"Divide", func() Money { return usdc(900).Divide(3) }, usdc(300)},
		{"Divide truncates", func() Money { return usdc(10).Divide(3) }, usdc(3)},
		{"Complex", func() Money {
			return usdc(1000).Add(usdc(500)).Multiply(2).Subtract(usdc(1000))
		}, usdc(2000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.op()
			if !got.Equal(tt.expected) {
				t.Errorf("got %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestMoneyPercent(t *testing.T) {
	tests := []struct {
		name   string
		amount int64
		pct    int64
		want   int64
	}{
		{"five percent of 100", 100, 5, 5},
		{"ten percent of 200", 200, 10, 20},
		{"truncates", 99, 5, 4},
		{"small amount rounds to zero", 19, 5, 0},
		{"zero percent", 1000, 0, 0},
		{"hundred percent", 1234, 100, 1234},
		{"negative truncates toward zero", -99, 5, -4},
		{"large amount five percent", 2e18, 5, 1e17},
		{"large amount ten percent", 2e18, 10, 2e17},
		{"max int64 hundred percent", math.MaxInt64, 100, math.MaxInt64},
		{"max int64 five percent", math.MaxInt64, 5, 461168601842738790},
		{"max int64 one percent", math.MaxInt64, 1, 92233720368547758},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := usdc(tt.amount).Percent(tt.pct)
			if got.Amount != tt.want {
				t.Errorf("Percent(%d) of %d = %d, want %d", tt.pct, tt.amount, got.Amount, tt.want)
			}
			if got.Denom != "usdc" {
				t.Errorf("denom changed to %q", got.Denom)
			}
		})
	}
}

func TestMoneyPercentOutOfRangePanics(t *testing.T) {
	for _, pct := range []int64{-1, 101} {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("expected panic for pct %d", pct)
				}
			}()
			_ = usdc(100).Percent(pct)
		}()
	}
}

func TestMoneyComparison(t *testing.T) {
	small, large := usdc(100), usdc(200)

	if !small.LessThan(large) {
		t.Error("expected 100 < 200")
	}
	if !large.GreaterThan(small) {
		t.Error("expected 200 > 100")
	}
	if small.Equal(New(100, "wei")) {
		t.Error("different denominations must not be equal")
	}
	if !Zero("usdc").IsZero() {
		t.Error("expected zero")
	}
	if !small.IsPositive() || small.IsNegative() {
		t.Error("expected positive")
	}
	if !usdc(-1).IsNegative() {
		t.Error("expected negative")
	}
}

func TestMoneyDenomMismatchPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on denomination mismatch")
		}
	}()
	_ = usdc(1).Add(New(1, "wei"))
}

func TestMoneyDivideByZeroPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on division by zero")
		}
	}()
	_ = usdc(1).Divide(0)
}

func TestSum(t *testing.T) {
	if got := Sum(usdc(1), usdc(2), usdc(3)); !got.Equal(usdc(6)) {
		t.Errorf("Sum = %v, want 6 usdc", got)
	}
	if got := Sum(); !got.IsZero() {
		t.Errorf("empty Sum = %v, want zero", got)
	}
}

func TestMoneyJSON(t *testing.T) {
	data, err := json.Marshal(usdc(4900))
	if err != nil {
		t.Fatal(err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded["amount"] != float64(4900) {
		t.Errorf("amount: got %v", decoded["amount"])
	}
	if decoded["denom"] != "usdc" {
		t.Errorf("denom: got %v", decoded["denom"])
	}
	if decoded["display"] != "4900 usdc" {
		t.Errorf("display: got %v", decoded["display"])
	}

	var back Money
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if !back.Equal(usdc(4900)) {
		t.Errorf("round trip: got %v", back)
	}
}
