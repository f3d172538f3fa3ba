package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/dirk.krummacker/membership-service/internal/billing"
	"gitlab.com/dirk.krummacker/membership-service/internal/model"
	"gitlab.com/dirk.krummacker/membership-service/internal/storage"
	"gitlab.com/dirk.krummacker/membership-service/internal/view"
)

var now = time.Date(2024, time.February, 20, 9, 30, 0, 0, time.UTC)

// fixedClock returns a clock that always answers with t.
func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// recordingNotifier remembers every message it was asked to show.
type recordingNotifier struct {
	messages []string
}

func (n *recordingNotifier) Notify(message string) {
	n.messages = append(n.messages, message)
}

// failingSlot accepts reads but rejects every write.
type failingSlot struct {
	storage.Slot
}

func (failingSlot) Write(context.Context, []byte) error {
	return errors.New("quota exceeded")
}

// brokenSlot fails on read.
type brokenSlot struct {
	storage.MemorySlot
}

func (*brokenSlot) Read(context.Context) ([]byte, error) {
	return nil, errors.New("disk on fire")
}

var yes = ConfirmFunc(func(string) bool { return true })
var no = ConfirmFunc(func(string) bool { return false })

func newMember(name string) model.Member {
	return model.Member{
		Name:           name,
		Contact:        "+91 90000 00000",
		MembershipType: model.Monthly,
		FeeAmount:      decimal.NewFromInt(1500),
	}
}

// persisted decodes the collection currently held by the slot.
func persisted(t *testing.T, slot storage.Slot) []model.Member {
	data, err := slot.Read(context.Background())
	require.NoError(t, err)
	var members []model.Member
	require.NoError(t, json.Unmarshal(data, &members))
	return members
}

// TestOpenEmpty expects a slot without data to yield an empty store.
func TestOpenEmpty(t *testing.T) {
	s := Open(context.Background(), storage.NewMemorySlot())
	assert.Empty(t, s.All())
}

// TestOpenExisting expects the stored collection to be loaded in order.
func TestOpenExisting(t *testing.T) {
	slot := storage.NewMemorySlot([]byte(`[
		{"id": 2, "name": "B", "contact": "2", "membershipType": "monthly", "feeAmount": 10},
		{"id": 1, "name": "A", "contact": "1", "membershipType": "yearly", "feeAmount": "20"}
	]`)...)
	s := Open(context.Background(), slot)
	members := s.All()
	require.Len(t, members, 2)
	assert.Equal(t, int64(2), members[0].Id)
	assert.Equal(t, int64(1), members[1].Id)
}

// TestOpenMalformed expects garbage in the slot to be ignored.
func TestOpenMalformed(t *testing.T) {
	s := Open(context.Background(), storage.NewMemorySlot([]byte(`{not json`)...))
	assert.Empty(t, s.All())
}

// TestOpenReadFailure expects a failing slot to yield an empty store.
func TestOpenReadFailure(t *testing.T) {
	s := Open(context.Background(), &brokenSlot{})
	assert.Empty(t, s.All())
}

// TestCreate expects an id from the clock, a default join date and a derived due date.
func TestCreate(t *testing.T) {
	slot := storage.NewMemorySlot()
	s := Open(context.Background(), slot, WithClock(fixedClock(now)))

	m := newMember("Erika Mustermann")
	m.LastPaymentDate = model.NewDate(2024, 1, 15)
	created, err := s.Create(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, now.UnixMilli(), created.Id)
	assert.Equal(t, model.NewDate(2024, 2, 20), created.JoinDate)
	assert.Equal(t, model.NewDate(2024, 2, 15), created.DueDate)

	stored := persisted(t, slot)
	require.Len(t, stored, 1)
	assert.Equal(t, created.Id, stored[0].Id)
	assert.Equal(t, model.NewDate(2024, 2, 15), stored[0].DueDate)
}

// TestCreateUniqueIds expects members created within the same millisecond to get distinct ids.
func TestCreateUniqueIds(t *testing.T) {
	s := Open(context.Background(), storage.NewMemorySlot(), WithClock(fixedClock(now)))
	a, err := s.Create(context.Background(), newMember("A"))
	require.NoError(t, err)
	b, err := s.Create(context.Background(), newMember("B"))
	require.NoError(t, err)
	assert.NotEqual(t, a.Id, b.Id)
}

// TestCreateKeepsJoinDate expects an explicit join date not to be overwritten.
func TestCreateKeepsJoinDate(t *testing.T) {
	s := Open(context.Background(), storage.NewMemorySlot(), WithClock(fixedClock(now)))
	m := newMember("A")
	m.JoinDate = model.NewDate(2023, 5, 1)
	created, err := s.Create(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, model.NewDate(2023, 5, 1), created.JoinDate)
}

// TestCreateInvalid expects members lacking required fields to be rejected without any change.
func TestCreateInvalid(t *testing.T) {
	slot := storage.NewMemorySlot()
	s := Open(context.Background(), slot, WithClock(fixedClock(now)))

	invalid := []func(m *model.Member){
		func(m *model.Member) { m.Name = "" },
		func(m *model.Member) { m.Name = "   " },
		func(m *model.Member) { m.Contact = "" },
		func(m *model.Member) { m.FeeAmount = decimal.NewFromInt(-1) },
		func(m *model.Member) { age := -3; m.Age = &age },
		func(m *model.Member) { m.MembershipType = "weekly" },
	}
	for _, mutate := range invalid {
		m := newMember("Erika")
		mutate(&m)
		_, err := s.Create(context.Background(), m)
		assert.ErrorIs(t, err, ErrInvalid)
	}
	assert.Empty(t, s.All())
	data, _ := slot.Read(context.Background())
	assert.Nil(t, data)
}

// TestUpdate expects only the matching member to change, and the due date to follow the plan.
func TestUpdate(t *testing.T) {
	slot := storage.NewMemorySlot()
	s := Open(context.Background(), slot, WithClock(fixedClock(now)))
	a, _ := s.Create(context.Background(), newMember("A"))
	b, _ := s.Create(context.Background(), newMember("B"))

	changed := a
	changed.Name = "A2"
	changed.MembershipType = model.Quarterly
	changed.LastPaymentDate = model.NewDate(2024, 1, 31)
	changed.DueDate = model.NewDate(1999, 1, 1)
	updated, err := s.Update(context.Background(), changed)
	require.NoError(t, err)
	assert.Equal(t, model.NewDate(2024, 4, 30), updated.DueDate)

	members := s.All()
	assert.Equal(t, []model.Member{updated, b}, members)
	assert.Equal(t, members, persisted(t, slot))
}

// TestUpdateUnknown expects an unknown id to be reported and nothing to be written.
func TestUpdateUnknown(t *testing.T) {
	slot := storage.NewMemorySlot()
	s := Open(context.Background(), slot)
	m := newMember("A")
	m.Id = 99
	_, err := s.Update(context.Background(), m)
	assert.ErrorIs(t, err, ErrNotFound)
	data, _ := slot.Read(context.Background())
	assert.Nil(t, data)
}

// TestDelete expects a confirmed deletion to remove exactly one member.
func TestDelete(t *testing.T) {
	slot := storage.NewMemorySlot()
	s := Open(context.Background(), slot, WithClock(fixedClock(now)))
	a, _ := s.Create(context.Background(), newMember("A"))
	b, _ := s.Create(context.Background(), newMember("B"))

	var prompt string
	deleted, err := s.Delete(context.Background(), a.Id, ConfirmFunc(func(p string) bool {
		prompt = p
		return true
	}))
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.NotEmpty(t, prompt)
	assert.Equal(t, []model.Member{b}, s.All())
	assert.Equal(t, []model.Member{b}, persisted(t, slot))
}

// TestDeleteDeclined expects nothing to happen when the user says no.
func TestDeleteDeclined(t *testing.T) {
	s := Open(context.Background(), storage.NewMemorySlot(), WithClock(fixedClock(now)))
	a, _ := s.Create(context.Background(), newMember("A"))

	deleted, err := s.Delete(context.Background(), a.Id, no)
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.Len(t, s.All(), 1)
}

// TestDeleteUnknown expects deleting a nonexistent id to be a no-op.
func TestDeleteUnknown(t *testing.T) {
	slot := storage.NewMemorySlot()
	s := Open(context.Background(), slot, WithClock(fixedClock(now)))
	a, _ := s.Create(context.Background(), newMember("A"))
	before, _ := slot.Read(context.Background())

	deleted, err := s.Delete(context.Background(), a.Id+1000, yes)
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.Len(t, s.All(), 1)
	after, _ := slot.Read(context.Background())
	assert.Equal(t, before, after)
}

// TestDeleteLast expects an emptied collection to be written as an empty array.
func TestDeleteLast(t *testing.T) {
	slot := storage.NewMemorySlot()
	s := Open(context.Background(), slot, WithClock(fixedClock(now)))
	a, _ := s.Create(context.Background(), newMember("A"))
	_, err := s.Delete(context.Background(), a.Id, yes)
	require.NoError(t, err)
	data, _ := slot.Read(context.Background())
	assert.Equal(t, "[]", string(data))
}

// TestMarkPaid covers a yearly member who is due today.
func TestMarkPaid(t *testing.T) {
	slot := storage.NewMemorySlot()
	s := Open(context.Background(), slot, WithClock(fixedClock(now)))
	m := newMember("A")
	m.MembershipType = model.Yearly
	m.LastPaymentDate = model.NewDate(2023, 2, 20)
	created, _ := s.Create(context.Background(), m)
	require.Equal(t, model.NewDate(2024, 2, 20), created.DueDate)

	paid, err := s.MarkPaid(context.Background(), created.Id)
	require.NoError(t, err)
	assert.True(t, paid.FeePaid)
	assert.Equal(t, model.NewDate(2024, 2, 20), paid.LastPaymentDate)
	assert.Equal(t, model.NewDate(2025, 2, 20), paid.DueDate)
	assert.Equal(t, []model.Member{paid}, persisted(t, slot))
}

// TestPlanCaseIgnored expects a plan given in mixed case to be stored in its canonical form and
// to drive the due date of creation, update, and payment.
func TestPlanCaseIgnored(t *testing.T) {
	slot := storage.NewMemorySlot()
	clock := now
	s := Open(context.Background(), slot, WithClock(func() time.Time { return clock }))
	m := newMember("A")
	m.MembershipType = model.Plan("Yearly")
	m.LastPaymentDate = model.NewDate(2024, 1, 15)
	created, err := s.Create(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, model.Yearly, created.MembershipType)
	assert.Equal(t, model.NewDate(2025, 1, 15), created.DueDate)
	assert.Equal(t, model.Yearly, persisted(t, slot)[0].MembershipType)

	created.MembershipType = model.Plan(" QUARTERLY ")
	updated, err := s.Update(context.Background(), created)
	require.NoError(t, err)
	assert.Equal(t, model.Quarterly, updated.MembershipType)
	assert.Equal(t, model.NewDate(2024, 4, 15), updated.DueDate)

	clock = time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC)
	paid, err := s.MarkPaid(context.Background(), created.Id)
	require.NoError(t, err)
	assert.Equal(t, model.NewDate(2024, 6, 1), paid.DueDate)
}

// TestPlanCaseIgnoredWhenLoaded expects a stored plan in mixed case to renew by its interval.
func TestPlanCaseIgnoredWhenLoaded(t *testing.T) {
	slot := storage.NewMemorySlot([]byte(`[{"id": 7, "name": "A", "contact": "1", "membershipType": "Yearly",
		"feeAmount": "100", "lastPaymentDate": "2023-06-01", "dueDate": "2024-06-01"}]`)...)
	s := Open(context.Background(), slot, WithClock(fixedClock(now)))

	paid, err := s.MarkPaid(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, model.NewDate(2025, 2, 20), paid.DueDate)
}

// TestMarkPaidRestartsCycle expects an early payment to restart the cycle from today rather
// than from the previous due date.
func TestMarkPaidRestartsCycle(t *testing.T) {
	s := Open(context.Background(), storage.NewMemorySlot(), WithClock(fixedClock(now)))
	m := newMember("A")
	m.LastPaymentDate = model.NewDate(2024, 2, 10)
	created, _ := s.Create(context.Background(), m)
	require.Equal(t, model.NewDate(2024, 3, 10), created.DueDate)

	paid, err := s.MarkPaid(context.Background(), created.Id)
	require.NoError(t, err)
	assert.Equal(t, model.NewDate(2024, 3, 20), paid.DueDate)
}

// TestMarkPaidUnknown expects an unknown id to be reported.
func TestMarkPaidUnknown(t *testing.T) {
	s := Open(context.Background(), storage.NewMemorySlot())
	_, err := s.MarkPaid(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

// TestSendReminder expects the reminder to be shown and nothing to be written.
func TestSendReminder(t *testing.T) {
	slot := storage.NewMemorySlot()
	notifier := &recordingNotifier{}
	s := Open(context.Background(), slot, WithClock(fixedClock(now)), WithNotifier(notifier))
	m := newMember("Erika")
	m.LastPaymentDate = model.NewDate(2024, 1, 15)
	created, _ := s.Create(context.Background(), m)
	before, _ := slot.Read(context.Background())

	r, err := s.SendReminder(created.Id)
	require.NoError(t, err)
	assert.Equal(t, "Payment OVERDUE by 5 days!", r.Message)
	assert.Equal(t, []string{r.Text}, notifier.messages)

	after, _ := slot.Read(context.Background())
	assert.Equal(t, before, after)
	assert.Equal(t, []model.Member{created}, s.All())

	_, err = s.SendReminder(created.Id + 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

// TestSaveFailure expects the mutation to stay in memory, the user to be told, and the error
// to be recognizable.
func TestSaveFailure(t *testing.T) {
	notifier := &recordingNotifier{}
	s := Open(context.Background(), failingSlot{storage.NewMemorySlot()},
		WithClock(fixedClock(now)), WithNotifier(notifier))

	created, err := s.Create(context.Background(), newMember("A"))
	assert.ErrorIs(t, err, ErrNotPersisted)
	assert.ErrorContains(t, err, "quota exceeded")
	assert.Equal(t, "A", created.Name)
	assert.Len(t, s.All(), 1)
	assert.Equal(t, []string{SaveFailedNotice}, notifier.messages)
}

// TestFilterAndStats expects the store to apply the view filter and the statistics to the
// current collection.
func TestFilterAndStats(t *testing.T) {
	s := Open(context.Background(), storage.NewMemorySlot(), WithClock(fixedClock(now)))
	a := newMember("Overdue Olga")
	a.LastPaymentDate = model.NewDate(2024, 1, 1)
	_, err := s.Create(context.Background(), a)
	require.NoError(t, err)
	b := newMember("Paid Paul")
	created, err := s.Create(context.Background(), b)
	require.NoError(t, err)
	_, err = s.MarkPaid(context.Background(), created.Id)
	require.NoError(t, err)

	overdue := s.Filter("", view.Overdue)
	require.Len(t, overdue, 1)
	assert.Equal(t, "Overdue Olga", overdue[0].Name)
	assert.Len(t, s.Filter("paul", view.All), 1)

	assert.Equal(t, billing.Stats{Total: 2, Paid: 1, Unpaid: 1, Overdue: 1}, s.Stats())
}

// TestToday expects the clock to determine the current date.
func TestToday(t *testing.T) {
	s := Open(context.Background(), storage.NewMemorySlot(), WithClock(fixedClock(now)))
	assert.Equal(t, model.NewDate(2024, 2, 20), s.Today())
	assert.Equal(t, now, s.Now())
}
