// Package billing derives the payment related values of a member: the due date of the next
// payment, the number of days left until then, and the status bucket used for display and
// filtering.
package billing

import (
	"fmt"
	"math"
	"time"

	"cloud.google.com/go/civil"
	"gitlab.com/dirk.krummacker/membership-service/internal/model"
)

// DueSoonDays is the largest number of days left for which a payment counts as due soon.
const DueSoonDays = 7

// Status is the bucket a member falls into based on the days left until the due date.
type Status string

const (
	StatusOverdue Status = "overdue"
	StatusDueSoon Status = "due-soon"
	StatusCurrent Status = "current"
	StatusUnset   Status = "unset"
)

// Advance returns the date one plan interval after date. If the day of month does not exist in
// the target month, the last day of that month is used, e.g. January 31 plus one month is the
// last day of February.
func Advance(date model.Date, plan model.Plan) model.Date {
	if !date.IsSet() {
		return model.Date{}
	}
	months := int(date.Month) - 1 + plan.Months()
	year := date.Year + months/12
	month := time.Month(months%12 + 1)
	day := min(date.Day, daysIn(year, month))
	return model.Date{Date: civil.Date{Year: year, Month: month, Day: day}}
}

// daysIn returns the number of days of the month in the given year.
func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// DaysUntil returns the number of days from now until the start of the due date, rounded up.
// A negative value means that the due date has passed. The second return value is false if
// no due date is set.
//
// The difference is taken on the wall clock of now's location, so every calendar day counts
// as 24 hours even when a daylight saving change falls in between.
func DaysUntil(due model.Date, now time.Time) (int, bool) {
	if !due.IsSet() {
		return 0, false
	}
	wall := time.Date(now.Year(), now.Month(), now.Day(),
		now.Hour(), now.Minute(), now.Second(), now.Nanosecond(), time.UTC)
	diff := due.In(time.UTC).Sub(wall)
	days := math.Ceil(diff.Hours() / 24)
	return int(days), true
}

// StatusOf buckets a due date relative to now.
func StatusOf(due model.Date, now time.Time) Status {
	days, ok := DaysUntil(due, now)
	switch {
	case !ok:
		return StatusUnset
	case days < 0:
		return StatusOverdue
	case days <= DueSoonDays:
		return StatusDueSoon
	default:
		return StatusCurrent
	}
}

// Renew recomputes the due date of the member from the last payment date and the plan.
func Renew(m *model.Member) {
	m.DueDate = Advance(m.LastPaymentDate, m.MembershipType)
}

// Reminder is the acknowledgement produced for a payment reminder. Nothing is delivered;
// the text is shown to whoever triggered the reminder.
type Reminder struct {
	Member       model.Member
	DaysUntilDue *int
	Message      string
	Text         string
}

// NewReminder formats the reminder for the member as of now.
func NewReminder(m model.Member, now time.Time) Reminder {
	r := Reminder{Member: m}
	days, ok := DaysUntil(m.DueDate, now)
	switch {
	case !ok:
		r.Message = "No due date set"
	case days < 0:
		r.DaysUntilDue = &days
		r.Message = fmt.Sprintf("Payment OVERDUE by %d days!", -days)
	default:
		r.DaysUntilDue = &days
		r.Message = fmt.Sprintf("Payment due in %d days", days)
	}
	due := m.DueDate.String()
	if due == "" {
		due = "-"
	}
	r.Text = fmt.Sprintf("Reminder sent to %s\n%s\n\n%s\nAmount: ₹%s\nDue Date: %s",
		m.Name, m.Contact, r.Message, m.FeeAmount.String(), due)
	return r
}

// Stats are the counters shown above the member list.
type Stats struct {
	Total   int
	Paid    int
	Unpaid  int
	Overdue int
}

// Summarize counts the members as of now.
func Summarize(members []model.Member, now time.Time) Stats {
	stats := Stats{Total: len(members)}
	for _, m := range members {
		if m.FeePaid {
			stats.Paid++
		} else {
			stats.Unpaid++
		}
		if StatusOf(m.DueDate, now) == StatusOverdue {
			stats.Overdue++
		}
	}
	return stats
}
