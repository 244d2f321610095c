package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestOptionSymbolRoundTrip(t *testing.T) {
	cases := []struct {
		root       string
		expiry     string
		right      OptionRight
		strike     string
		multiplier int
	}{
		{"SPY", "20251024", OptionCall, "450", 100},
		{"SPY", "20251024", OptionPut, "450.5", 100},
		{"QQQ", "20260116", OptionCall, "380", 10},
	}

	for _, tc := range cases {
		expiry, err := time.ParseInLocation("20060102", tc.expiry, time.Local)
		if err != nil {
			t.Fatal(err)
		}
		strike, _ := decimal.NewFromString(tc.strike)

		symbol := FormatOptionSymbol(tc.root, expiry, tc.right, strike, tc.multiplier)
		fields, err := ParseOptionSymbol(symbol)
		if err != nil {
			t.Fatalf("ParseOptionSymbol(%q): %v", symbol, err)
		}

		if fields.Root != tc.root {
			t.Errorf("%q: root = %q, want %q", symbol, fields.Root, tc.root)
		}
		if !fields.Expiry.Equal(expiry) {
			t.Errorf("%q: expiry = %v, want %v", symbol, fields.Expiry, expiry)
		}
		if fields.Right != tc.right {
			t.Errorf("%q: right = %d, want %d", symbol, fields.Right, tc.right)
		}
		if !fields.Strike.Equal(strike) {
			t.Errorf("%q: strike = %s, want %s", symbol, fields.Strike, strike)
		}
		if fields.Multiplier != tc.multiplier {
			t.Errorf("%q: multiplier = %d, want %d", symbol, fields.Multiplier, tc.multiplier)
		}
	}
}

func TestParseOptionSymbolInvalid(t *testing.T) {
	bad := []string{
		"",
		"SPY-USD-STK",
		"SPY-20251024-X-450-100-USD-OPT",
		"SPY-notadate-C-450-100-USD-OPT",
		"SPY-20251024-C-abc-100-USD-OPT",
		"SPY-20251024-C-450-xyz-USD-OPT",
		"SPY-20251024-C-450-100-EUR-STK",
	}
	for _, symbol := range bad {
		if _, err := ParseOptionSymbol(symbol); !errors.Is(err, ErrSymbolParse) {
			t.Errorf("ParseOptionSymbol(%q) = %v, want symbol parse error", symbol, err)
		}
	}
}

func TestUnderlyingSymbolRoundTrip(t *testing.T) {
	symbol := FormatUnderlyingSymbol("SPY")
	if symbol != "SPY-USD-STK" {
		t.Fatalf("FormatUnderlyingSymbol = %q", symbol)
	}
	fields, err := ParseUnderlyingSymbol(symbol)
	if err != nil {
		t.Fatal(err)
	}
	if fields.Root != "SPY" {
		t.Errorf("root = %q", fields.Root)
	}
	if !IsUnderlyingSymbol(symbol) {
		t.Error("IsUnderlyingSymbol should be true")
	}
	if IsOptionSymbol(symbol) {
		t.Error("IsOptionSymbol should be false")
	}
}

func TestComboSignatureOrderIndependent(t *testing.T) {
	a := GenerateComboSignature([]string{"20251024C450", "20251024P450"})
	b := GenerateComboSignature([]string{"20251024P450", "20251024C450"})
	if a != b {
		t.Fatalf("signatures differ: %q vs %q", a, b)
	}
}

func TestNormalizeComboSymbolStripsType(t *testing.T) {
	straddle := FormatComboSymbol("SPY", ComboStraddle, "20251024C450-20251024P450")
	custom := FormatComboSymbol("SPY", ComboCustom, "20251024C450-20251024P450")
	if NormalizeComboSymbol(straddle) != NormalizeComboSymbol(custom) {
		t.Fatalf("normalized symbols differ: %q vs %q",
			NormalizeComboSymbol(straddle), NormalizeComboSymbol(custom))
	}
}
