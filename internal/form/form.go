// Package form binds a single draft member, held as the raw text a user typed, to the create
// and update operations of the store.
package form

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"gitlab.com/dirk.krummacker/membership-service/internal/billing"
	"gitlab.com/dirk.krummacker/membership-service/internal/model"
	"gitlab.com/dirk.krummacker/membership-service/internal/store"
)

// Text is a form value. When decoded from JSON it accepts numbers and booleans as well as
// strings, so that clients may send {"age": 31} or {"age": "31"}.
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("form value must be a string or a number: %w", err)
	}
	*t = Text(n)
	return nil
}

// Draft holds the values of all form fields. Name, Contact and FeeAmount are required.
type Draft struct {
	Name            Text `json:"name"`
	Age             Text `json:"age"`
	Contact         Text `json:"contact"`
	Email           Text `json:"email"`
	Address         Text `json:"address"`
	MembershipType  Text `json:"membershipType"`
	FeeAmount       Text `json:"feeAmount"`
	FeePaid         bool `json:"feePaid"`
	JoinDate        Text `json:"joinDate"`
	LastPaymentDate Text `json:"lastPaymentDate"`
	DueDate         Text `json:"dueDate"`
}

// Blank returns an empty draft with the defaults of a new member: monthly plan, joining today.
func Blank(today model.Date) Draft {
	return Draft{MembershipType: Text(model.Monthly), JoinDate: Text(today.String())}
}

// FromMember returns the draft showing an existing member.
func FromMember(m model.Member) Draft {
	d := Draft{
		Name:            Text(m.Name),
		Contact:         Text(m.Contact),
		Email:           Text(m.Email),
		Address:         Text(m.Address),
		MembershipType:  Text(m.MembershipType),
		FeeAmount:       Text(m.FeeAmount.String()),
		FeePaid:         m.FeePaid,
		JoinDate:        Text(m.JoinDate.String()),
		LastPaymentDate: Text(m.LastPaymentDate.String()),
		DueDate:         Text(m.DueDate.String()),
	}
	if m.Age != nil {
		d.Age = Text(strconv.Itoa(*m.Age))
	}
	return d
}

// Member validates the draft and converts it into a member. Invalid numbers become 0, an empty
// age stays unset. The due date is derived from the last payment date and the plan.
func (d Draft) Member() (model.Member, error) {
	if strings.TrimSpace(string(d.Name)) == "" ||
		strings.TrimSpace(string(d.Contact)) == "" ||
		strings.TrimSpace(string(d.FeeAmount)) == "" {
		return model.Member{}, fmt.Errorf("%w: please fill in all required fields", store.ErrInvalid)
	}
	plan := model.Monthly
	if strings.TrimSpace(string(d.MembershipType)) != "" {
		var err error
		plan, err = model.ParsePlan(string(d.MembershipType))
		if err != nil {
			return model.Member{}, fmt.Errorf("%w: %w", store.ErrInvalid, err)
		}
	}
	joinDate, err := model.ParseDate(string(d.JoinDate))
	if err != nil {
		return model.Member{}, fmt.Errorf("%w: join date: %w", store.ErrInvalid, err)
	}
	lastPayment, err := model.ParseDate(string(d.LastPaymentDate))
	if err != nil {
		return model.Member{}, fmt.Errorf("%w: last payment date: %w", store.ErrInvalid, err)
	}

	m := model.Member{
		Name:            strings.TrimSpace(string(d.Name)),
		Contact:         strings.TrimSpace(string(d.Contact)),
		Email:           strings.TrimSpace(string(d.Email)),
		Address:         strings.TrimSpace(string(d.Address)),
		MembershipType:  plan,
		FeeAmount:       parseFee(string(d.FeeAmount)),
		FeePaid:         d.FeePaid,
		JoinDate:        joinDate,
		LastPaymentDate: lastPayment,
	}
	if age := strings.TrimSpace(string(d.Age)); age != "" {
		n := parseLeadingInt(age)
		m.Age = &n
	}
	billing.Renew(&m)
	return m, nil
}

// parseFee reads a fee amount. Anything that is not a number is 0.
func parseFee(s string) decimal.Decimal {
	fee, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}
	return fee
}

// parseLeadingInt reads the integer at the beginning of s, the way a number input does: "31"
// and "31 years" are 31, "abc" is 0.
func parseLeadingInt(s string) int {
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}

// Form is the controller of the add/edit form. It holds one draft and remembers whether the
// draft belongs to an existing member.
type Form struct {
	store   *store.Store
	draft   Draft
	editing int64
}

// New returns a form with a blank draft whose submissions go to s.
func New(s *store.Store) *Form {
	f := &Form{store: s}
	f.Reset()
	return f
}

// Draft returns the current values of the form.
func (f *Form) Draft() Draft {
	return f.draft
}

// Editing returns the id of the member being edited, if any.
func (f *Form) Editing() (int64, bool) {
	return f.editing, f.editing != 0
}

// Reset discards the draft and returns to adding a new member.
func (f *Form) Reset() {
	f.draft = Blank(f.store.Today())
	f.editing = 0
}

// Edit loads an existing member into the draft.
func (f *Form) Edit(m model.Member) {
	f.draft = FromMember(m)
	f.editing = m.Id
}

// Load replaces the whole draft, e.g. with the body of a request. The due date is derived
// again from the submitted values.
func (f *Form) Load(d Draft) {
	f.draft = d
	f.renew()
}

// Set changes a single field, addressed by its JSON name. Changing the last payment date or
// the membership type recomputes the due date.
func (f *Form) Set(field string, value string) error {
	d := &f.draft
	switch field {
	case "name":
		d.Name = Text(value)
	case "age":
		d.Age = Text(value)
	case "contact":
		d.Contact = Text(value)
	case "email":
		d.Email = Text(value)
	case "address":
		d.Address = Text(value)
	case "membershipType":
		d.MembershipType = Text(value)
		f.renew()
	case "feeAmount":
		d.FeeAmount = Text(value)
	case "feePaid":
		paid, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid value %q for feePaid", value)
		}
		d.FeePaid = paid
	case "joinDate":
		d.JoinDate = Text(value)
	case "lastPaymentDate":
		d.LastPaymentDate = Text(value)
		f.renew()
	default:
		return fmt.Errorf("unknown field %q", field)
	}
	return nil
}

// renew recomputes the due date of the draft. Values that cannot be parsed leave it empty.
func (f *Form) renew() {
	last, err := model.ParseDate(string(f.draft.LastPaymentDate))
	if err != nil {
		f.draft.DueDate = ""
		return
	}
	f.draft.DueDate = Text(billing.Advance(last, model.Plan(strings.ToLower(strings.TrimSpace(string(f.draft.MembershipType))))).String())
}

// Submit creates a new member, or updates the one being edited. On success the form is reset.
// On failure the draft is kept so that the user can correct it.
func (f *Form) Submit(ctx context.Context) (model.Member, error) {
	m, err := f.draft.Member()
	if err != nil {
		return model.Member{}, err
	}
	if f.editing != 0 {
		m.Id = f.editing
		m, err = f.store.Update(ctx, m)
	} else {
		m, err = f.store.Create(ctx, m)
	}
	if err != nil && m.Id == 0 {
		return model.Member{}, err
	}
	f.Reset()
	return m, err
}
