// Package validation holds the stateless domain predicates shared by the
// staff, payroll and finance services. These mirror the input rules the
// interactive clients rely on: failures here are reported to the caller
// before any persistence call is made.
package validation

import (
	"math"
	"regexp"
	"time"
)

const (
	// DateLayout is the canonical date format for all persisted dates.
	DateLayout = "2006-01-02"
	// MonthLayout is the canonical salary-month format.
	MonthLayout = "2006-01"
)

var (
	empIDPattern = regexp.MustCompile(`^EMP\d{14}$`)
	namePattern  = regexp.MustCompile(`^[\p{Han}a-zA-Z0-9]+$`)
	phonePattern = regexp.MustCompile(`^1[3-9]\d{9}$`)
	monthPattern = regexp.MustCompile(`^\d{4}-\d{2}$`)
)

// IsValidEmployeeID reports whether id matches the generated employee ID
// format: "EMP" followed by a 14-digit creation timestamp.
func IsValidEmployeeID(id string) bool {
	return empIDPattern.MatchString(id)
}

// IsValidName reports whether name is non-empty, at most 50 characters and
// contains only Han characters, latin letters and digits.
func IsValidName(name string) bool {
	return name != "" && len([]rune(name)) <= 50 && namePattern.MatchString(name)
}

// IsValidDate reports whether s is a real calendar date in YYYY-MM-DD form.
func IsValidDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

// IsValidMonth reports whether s is a YYYY-MM month with a month in 01..12.
func IsValidMonth(s string) bool {
	if !monthPattern.MatchString(s) {
		return false
	}
	_, err := time.Parse(MonthLayout, s)
	return err == nil
}

// IsValidAmount reports whether v is a finite, non-negative currency amount.
func IsValidAmount(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

// IsValidPhone reports whether phone is an 11-digit mobile number. An empty
// phone is accepted: contact details are optional.
func IsValidPhone(phone string) bool {
	if phone == "" {
		return true
	}
	return phonePattern.MatchString(phone)
}

// GenerateEmployeeID builds an employee ID from the given creation time.
// The ID deliberately encodes the timestamp so it sorts by creation order.
func GenerateEmployeeID(t time.Time) string {
	return "EMP" + t.Format("20060102150405")
}
