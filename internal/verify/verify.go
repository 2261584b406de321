// Package verify holds the pure input predicates shared by the account,
// user and obligation services. Anything that needs a database lookup
// belongs in the owning service, not here.
package verify

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// AccountCreation reports whether an account-creation request carries a
// usable display name and a positive opening balance.
func AccountCreation(name, balance string) bool {
	if strings.TrimSpace(name) == "" {
		return false
	}
	b, err := decimal.NewFromString(strings.TrimSpace(balance))
	if err != nil {
		return false
	}
	return b.IsPositive()
}

// Password enforces the registration policy: at least 8 characters, one
// uppercase letter, one digit, and no embedded space.
func Password(pw string) bool {
	if len(pw) < 8 {
		return false
	}
	hasUpper := false
	hasDigit := false
	for _, r := range pw {
		switch {
		case r == ' ':
			return false
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= '0' && r <= '9':
			hasDigit = true
		}
	}
	return hasUpper && hasDigit
}

// Email reports whether s looks like an email address.
func Email(s string) bool {
	return emailPattern.MatchString(s)
}

// ObligationFields checks the non-lookup half of obligation validation:
// title, total amount and due date must all be present, and the amount must
// parse to a positive decimal.
func ObligationFields(title, amountTotal, dueDate string) bool {
	if strings.TrimSpace(title) == "" || strings.TrimSpace(dueDate) == "" {
		return false
	}
	amt, err := decimal.NewFromString(strings.TrimSpace(amountTotal))
	if err != nil {
		return false
	}
	return amt.IsPositive()
}

// DueDateFloor returns the earliest acceptable obligation due date: today
// at midnight plus one calendar month. AddDate normalizes end-of-month
// rollover, so starting Jan 31 the floor lands on Mar 2/3.
func DueDateFloor(now time.Time) time.Time {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return midnight.AddDate(0, 1, 0)
}

// ObligationDueDate reports whether due meets the one-month minimum lead
// time. The floor itself is acceptable; anything earlier is not.
func ObligationDueDate(due, now time.Time) bool {
	return !due.Before(DueDateFloor(now))
}
