package core

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

const (
	DateLayout  = "2006-01-02"
	MonthLayout = "2006-01"
)

type (
	TransactionType string

	// User is keyed by lower-cased email across all stores. PasswordHash
	// is empty for accounts provisioned through an external identity
	// provider; those accounts cannot log in with a password.
	User struct {
		Name         string    `json:"name"`
		Email        string    `json:"email"`
		Phone        string    `json:"phone"`
		PasswordHash string    `json:"password,omitempty"`
		CreatedAt    time.Time `json:"created_at"`
	}

	// Transaction is owned by exactly one user. IDs are unique within the
	// owning user's ledger and are never reused after deletion.
	Transaction struct {
		ID          int64           `json:"id"`
		Type        TransactionType `json:"type"`
		Amount      Money           `json:"amount"`
		Category    string          `json:"category"`
		Description string          `json:"description"`
		Date        string          `json:"date"` // YYYY-MM-DD
	}

	Budget struct {
		ID       int64  `json:"id"`
		Category string `json:"category"`
		Limit    Money  `json:"limit"`
		Month    string `json:"month"` // YYYY-MM
	}

	// ResetCode is a short-lived numeric token proving control of an
	// email address. At most one live code exists per email.
	ResetCode struct {
		Code      string    `json:"code"`
		ExpiresAt time.Time `json:"expires_at"`
		Phone     string    `json:"phone"`
	}
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidType   = errors.New("invalid transaction type")
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidMonth  = errors.New("invalid month")
	ErrInvalidEmail  = errors.New("invalid email format")
	ErrEmptyCategory = errors.New("empty category")
	ErrMissingFields = errors.New("all fields are required")
	ErrShortPassword = errors.New("password must be at least 6 characters")
	ErrShortPhone    = errors.New("invalid phone number")
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// ValidEmail reports whether s looks like an email address
// (local part, @, domain, TLD of at least two letters).
func ValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// NormalizeEmail lower-cases and trims an email for use as a store key.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

func (t Transaction) Validate() error {
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if _, err := time.Parse(DateLayout, t.Date); err != nil {
		return ErrInvalidDate
	}
	return nil
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.Category) == "" {
		return ErrEmptyCategory
	}
	if err := b.Limit.Validate(); err != nil {
		return err
	}
	if _, err := time.Parse(MonthLayout, b.Month); err != nil {
		return ErrInvalidMonth
	}
	return nil
}

// Expired reports whether the code is past its expiry at the given instant.
// A code expiring exactly at now counts as expired.
func (c ResetCode) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// External reports whether the user authenticates through an external
// identity provider rather than a stored password.
func (u User) External() bool {
	return u.PasswordHash == ""
}
