package transfer

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestFeeRemainder(t *testing.T) {
	tests := []struct {
		name       string
		flatFee    string
		gasUsed    string
		networkGas string
		want       string
	}{
		{"truncates", "0.01", "0.0034567", "0.0001", "0.006443"},
		{"exact", "0.01", "0.002", "0.0001", "0.0079"},
		{"never rounds up", "0.01", "0.0000001", "0", "0.009999"},
		{"gas exceeds fee", "0.01", "0.02", "0", "0"},
		{"gas equals fee", "0.05", "0.05", "0", "0"},
		{"zero fee", "0", "0.001", "0.0001", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := feeRemainder(
				decimal.RequireFromString(tt.flatFee),
				decimal.RequireFromString(tt.gasUsed),
				decimal.RequireFromString(tt.networkGas),
			)

			if want := decimal.RequireFromString(tt.want); !got.Equal(want) {
				t.Errorf("feeRemainder() = %s, want %s", got, want)
			}
		})
	}
}

func TestCovers(t *testing.T) {
	eth := mustAsset("eth")
	usdt := mustAsset("usdt")

	tests := []struct {
		name        string
		asset       string
		coin, token decimal.Decimal
		amount, fee decimal.Decimal
		want        bool
	}{
		{"native boundary", "eth", d("1.01"), d("1.01"), d("1"), d("0.01"), true},
		{"native short", "eth", d("1.0099"), d("1.0099"), d("1"), d("0.01"), false},
		{"token and coin", "usdt", d("0.01"), d("5"), d("5"), d("0.01"), true},
		{"token short on coin", "usdt", d("0.009"), d("5"), d("5"), d("0.01"), false},
		{"token short on token", "usdt", d("1"), d("4.99"), d("5"), d("0.01"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			asset := eth
			if tt.asset == "usdt" {
				asset = usdt
			}

			if got := covers(asset, tt.coin, tt.token, tt.amount, tt.fee); got != tt.want {
				t.Errorf("covers() = %v, want %v", got, tt.want)
			}
		})
	}
}
