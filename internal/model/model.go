package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Plan is the billing cadence of a membership. It determines the renewal interval.
type Plan string

const (
	Monthly   Plan = "monthly"
	Quarterly Plan = "quarterly"
	Yearly    Plan = "yearly"
)

// Plans are the allowed values for the membership type of a member.
var Plans = []Plan{Monthly, Quarterly, Yearly}

// ParsePlan converts user input into a Plan. The comparison ignores case and surrounding
// whitespace.
func ParsePlan(s string) (Plan, error) {
	p := Plan(strings.ToLower(strings.TrimSpace(s)))
	for _, allowed := range Plans {
		if p == allowed {
			return p, nil
		}
	}
	return "", fmt.Errorf("invalid membership type %q", s)
}

// Months returns the number of calendar months covered by one payment. Case and surrounding
// whitespace are ignored. Unknown plans are treated like monthly ones.
func (p Plan) Months() int {
	switch Plan(strings.ToLower(strings.TrimSpace(string(p)))) {
	case Quarterly:
		return 3
	case Yearly:
		return 12
	default:
		return 1
	}
}

// Date is a calendar date without a time of day. The zero value means "not set" and is
// serialized as an empty string.
type Date struct {
	civil.Date
}

// NewDate builds a Date from its parts.
func NewDate(year int, month int, day int) Date {
	return Date{civil.Date{Year: year, Month: time.Month(month), Day: day}}
}

// ParseDate parses a date in the form YYYY-MM-DD. The empty string yields the zero Date.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, nil
	}
	d, err := civil.ParseDate(s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Date{d}, nil
}

// IsSet reports whether the date holds a value.
func (d Date) IsSet() bool {
	return d.Date != civil.Date{}
}

// String returns the date as YYYY-MM-DD, or the empty string if it is not set.
func (d Date) String() string {
	if !d.IsSet() {
		return ""
	}
	return d.Date.String()
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	// Stored collections may carry full timestamps; only the date part matters.
	if len(s) > 10 && s[10] == 'T' {
		s = s[:10]
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Member is the data structure for a person holding a membership.
// Name, Contact and FeeAmount are required, everything else is optional.
type Member struct {
	Id              int64           `json:"id"`
	Name            string          `json:"name"`
	Age             *int            `json:"age,omitempty"`
	Contact         string          `json:"contact"`
	Email           string          `json:"email"`
	Address         string          `json:"address"`
	MembershipType  Plan            `json:"membershipType"`
	FeeAmount       decimal.Decimal `json:"feeAmount"`
	FeePaid         bool            `json:"feePaid"`
	JoinDate        Date            `json:"joinDate"`
	LastPaymentDate Date            `json:"lastPaymentDate"`
	DueDate         Date            `json:"dueDate"`
}

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) Date {
	return Date{civil.DateOf(t)}
}
