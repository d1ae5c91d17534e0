package types

import "testing"

func TestMoneyDisplay(t *testing.T) {
	tests := []struct {
		amount int64
		want   string
	}{
		{0, "₹0.00"},
		{38, "₹38.00"},
		{124, "₹124.00"},
	}
	for _, tt := range tests {
		got := NewMoney(tt.amount).Display()
		if got != tt.want {
			t.Errorf("Display(%d) = %q, want %q", tt.amount, got, tt.want)
		}
	}
}

func TestNewMoneyCurrency(t *testing.T) {
	if got := NewMoney(5).Currency; got != Currency {
		t.Errorf("currency = %q, want %q", got, Currency)
	}
}
