package domain

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// Money is an amount in minor units (grosze). JSON carries it in the major
// unit with two decimals, e.g. 2499.00.
type Money int64

// MaxZloty bounds every amount the service accepts, so grosze arithmetic
// (price times guests included) stays far from int64 overflow.
const MaxZloty int64 = 1_000_000_000_000

func Zloty(n int64) Money { return Money(n * 100) }

func (m Money) Mul(n int) Money { return m * Money(n) }

func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign, v = "-", -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

func (m Money) MarshalJSON() ([]byte, error) { return []byte(m.String()), nil }

func (m *Money) UnmarshalJSON(b []byte) error {
	s := string(bytes.Trim(b, `"`))
	v, err := ParseMoney(s)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// ParseMoney parses "2499", "2499.5" or "2499.50" without going through float.
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return 0, fmt.Errorf("%w: empty amount", ErrInvalid)
	}
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	whole, frac, _ := strings.Cut(s, ".")
	if len(frac) > 2 {
		return 0, fmt.Errorf("%w: amount %q has more than two decimals", ErrInvalid, s)
	}
	for len(frac) < 2 {
		frac += "0"
	}
	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: amount %q", ErrInvalid, s)
	}
	if w > MaxZloty {
		return 0, fmt.Errorf("%w: amount %q is too large", ErrInvalid, s)
	}
	f, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: amount %q", ErrInvalid, s)
	}
	v := w*100 + f
	if neg {
		v = -v
	}
	return Money(v), nil
}
