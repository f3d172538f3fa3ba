// Package view narrows the member list down to what the user asked to see.
package view

import (
	"fmt"
	"strings"
	"time"

	"gitlab.com/dirk.krummacker/membership-service/internal/billing"
	"gitlab.com/dirk.krummacker/membership-service/internal/model"
)

// Category selects members by payment status.
type Category string

const (
	All     Category = "all"
	Paid    Category = "paid"
	Unpaid  Category = "unpaid"
	Overdue Category = "overdue"
	DueSoon Category = "due-soon"
)

// allowedCategories are the allowed values for the status filter.
var allowedCategories = []Category{All, Paid, Unpaid, Overdue, DueSoon}

// ParseCategory validates a status filter. The empty string means All.
func ParseCategory(s string) (Category, error) {
	if s == "" {
		return All, nil
	}
	for _, c := range allowedCategories {
		if Category(s) == c {
			return c, nil
		}
	}
	return "", fmt.Errorf("invalid status %q", s)
}

// Filter returns the members whose name contains the search term (ignoring case) or whose
// contact contains it verbatim, and whose payment status matches the category. The order of
// the input is kept. Unknown categories match every member.
func Filter(members []model.Member, search string, category Category, now time.Time) []model.Member {
	needle := strings.ToLower(search)
	result := make([]model.Member, 0, len(members))
	for _, m := range members {
		if !strings.Contains(strings.ToLower(m.Name), needle) && !strings.Contains(m.Contact, search) {
			continue
		}
		if !matches(m, category, now) {
			continue
		}
		result = append(result, m)
	}
	return result
}

func matches(m model.Member, category Category, now time.Time) bool {
	switch category {
	case Paid:
		return m.FeePaid
	case Unpaid:
		return !m.FeePaid
	case Overdue:
		return billing.StatusOf(m.DueDate, now) == billing.StatusOverdue
	case DueSoon:
		return billing.StatusOf(m.DueDate, now) == billing.StatusDueSoon
	default:
		return true
	}
}
