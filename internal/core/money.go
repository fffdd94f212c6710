// Package core holds the domain model and the aggregation logic.
//
// Monetary amounts are stored as integer cents to keep arithmetic exact;
// they cross the JSON boundary as decimal numbers of currency units.
package core

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Money is a non-negative amount in cents. The sign of a ledger entry is
// implied by its transaction type, never by the stored magnitude.
type Money struct {
	Cents int64
}

// CentsFromFloat converts a unit amount to cents with half-up rounding
// on the magnitude. The sign is preserved; callers decide whether to
// take the absolute value or reject negatives.
func CentsFromFloat(units float64) int64 {
	if units < 0 {
		return -int64(math.Round(-units * 100))
	}
	return int64(math.Round(units * 100))
}

// Abs returns the money with a non-negative magnitude.
func (m Money) Abs() Money {
	if m.Cents < 0 {
		return Money{Cents: -m.Cents}
	}
	return m
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Units returns the amount in currency units for display purposes.
// Use cents for calculations to avoid floating-point drift.
func (m Money) Units() float64 {
	return float64(m.Cents) / 100.0
}

// String formats the amount with two decimals, e.g. "1234.50".
func (m Money) String() string {
	neg := m.Cents < 0
	c := m.Cents
	if neg {
		c = -c
	}
	s := strconv.FormatInt(c/100, 10) + "." + pad2(c%100)
	if neg {
		return "-" + s
	}
	return s
}

func pad2(n int64) string {
	if n < 10 {
		return "0" + strconv.FormatInt(n, 10)
	}
	return strconv.FormatInt(n, 10)
}

// MarshalJSON emits the amount as a decimal number of units.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts either a JSON number or a numeric string and
// stores the value as cents with half-up rounding.
func (m *Money) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	s = strings.Trim(s, `"`)
	if s == "" || s == "null" {
		m.Cents = 0
		return nil
	}
	var f float64
	if err := json.Unmarshal([]byte(s), &f); err != nil {
		return ErrInvalidAmount
	}
	m.Cents = CentsFromFloat(f)
	return nil
}
