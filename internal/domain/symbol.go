package domain

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Symbol string formats:
//
//	underlying: {ROOT}-USD-STK
//	option:     {ROOT}-{YYYYMMDD}-{C|P}-{STRIKE}-{MULT}-USD-OPT
//	combo:      {ROOT}_{COMBO_TYPE}_{SIG}
//
// where SIG is the sorted join of per-leg {YYYYMMDD}{C|P}{STRIKE}.
const dateLayout = "20060102"

// UnderlyingSymbolFields are the decoded parts of an underlying symbol.
type UnderlyingSymbolFields struct {
	Root string
}

// FormatUnderlyingSymbol builds the canonical `{ROOT}-USD-STK` string.
func FormatUnderlyingSymbol(root string) string {
	return fmt.Sprintf("%s-USD-STK", root)
}

// ParseUnderlyingSymbol decodes an underlying symbol string.
func ParseUnderlyingSymbol(symbol string) (UnderlyingSymbolFields, error) {
	parts := strings.Split(symbol, "-")
	if len(parts) != 3 || parts[1] != "USD" || parts[2] != "STK" {
		return UnderlyingSymbolFields{}, fmt.Errorf("%w: %q is not an underlying symbol", ErrSymbolParse, symbol)
	}
	return UnderlyingSymbolFields{Root: parts[0]}, nil
}

// IsUnderlyingSymbol reports whether symbol ends with the underlying suffix.
func IsUnderlyingSymbol(symbol string) bool {
	return strings.HasSuffix(symbol, "-STK")
}

// IsOptionSymbol reports whether symbol ends with the single-leg option suffix.
func IsOptionSymbol(symbol string) bool {
	return strings.HasSuffix(symbol, "-OPT")
}

// OptionSymbolFields are the decoded parts of an option symbol.
type OptionSymbolFields struct {
	Root       string
	Expiry     time.Time
	Right      OptionRight
	Strike     decimal.Decimal
	Multiplier int
}

// FormatOptionSymbol builds the canonical
// `{ROOT}-{YYYYMMDD}-{C|P}-{STRIKE}-{MULT}-USD-OPT` string.
func FormatOptionSymbol(root string, expiry time.Time, right OptionRight, strike decimal.Decimal, multiplier int) string {
	return fmt.Sprintf("%s-%s-%s-%s-%d-USD-OPT",
		root, expiry.Format(dateLayout), right.String(), strike.String(), multiplier)
}

// ParseOptionSymbol decodes an option symbol string.
func ParseOptionSymbol(symbol string) (OptionSymbolFields, error) {
	parts := strings.Split(symbol, "-")
	if len(parts) != 7 || parts[5] != "USD" || parts[6] != "OPT" {
		return OptionSymbolFields{}, fmt.Errorf("%w: %q is not an option symbol", ErrSymbolParse, symbol)
	}
	expiry, err := time.ParseInLocation(dateLayout, parts[1], time.Local)
	if err != nil {
		return OptionSymbolFields{}, fmt.Errorf("%w: %q has invalid expiry %q", ErrSymbolParse, symbol, parts[1])
	}
	var right OptionRight
	switch parts[2] {
	case "C":
		right = OptionCall
	case "P":
		right = OptionPut
	default:
		return OptionSymbolFields{}, fmt.Errorf("%w: %q has invalid right %q", ErrSymbolParse, symbol, parts[2])
	}
	strike, err := decimal.NewFromString(parts[3])
	if err != nil {
		return OptionSymbolFields{}, fmt.Errorf("%w: %q has invalid strike %q", ErrSymbolParse, symbol, parts[3])
	}
	mult, err := strconv.Atoi(parts[4])
	if err != nil {
		return OptionSymbolFields{}, fmt.Errorf("%w: %q has invalid multiplier %q", ErrSymbolParse, symbol, parts[4])
	}
	return OptionSymbolFields{Root: parts[0], Expiry: expiry, Right: right, Strike: strike, Multiplier: mult}, nil
}

// LegSignature is a single leg's contribution to a combo signature:
// {YYYYMMDD}{C|P}{STRIKE}.
func LegSignature(expiry time.Time, right OptionRight, strike decimal.Decimal) string {
	return fmt.Sprintf("%s%s%s", expiry.Format(dateLayout), right.String(), strike.String())
}

// GenerateComboSignature sorts and joins per-leg signatures with "-",
// producing a canonical key independent of input ordering.
func GenerateComboSignature(legSigs []string) string {
	sorted := make([]string, len(legSigs))
	copy(sorted, legSigs)
	sort.Strings(sorted)
	return strings.Join(sorted, "-")
}

// FormatComboSymbol builds the synthetic `{ROOT}_{COMBO_TYPE}_{SIG}` string.
func FormatComboSymbol(root string, comboType ComboType, signature string) string {
	return fmt.Sprintf("%s_%s_%s", root, comboType, signature)
}

// NormalizeComboSymbol strips the combo_type component, so combos that
// differ only in type tag but share root+signature collapse to one logical
// position.
func NormalizeComboSymbol(symbol string) string {
	first := strings.Index(symbol, "_")
	last := strings.LastIndex(symbol, "_")
	if first < 0 || first == last {
		return symbol
	}
	return symbol[:first] + "_" + symbol[last+1:]
}
