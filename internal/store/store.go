// Package store owns the member collection. Every mutation is applied in memory and then the
// whole collection is written to the persistence slot before the call returns.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"gitlab.com/dirk.krummacker/membership-service/internal/billing"
	"gitlab.com/dirk.krummacker/membership-service/internal/model"
	"gitlab.com/dirk.krummacker/membership-service/internal/storage"
	"gitlab.com/dirk.krummacker/membership-service/internal/view"
)

var (
	// ErrNotFound is returned for operations on an id that is not in the collection.
	ErrNotFound = errors.New("member not found")

	// ErrInvalid is returned when a member lacks a required field.
	ErrInvalid = errors.New("invalid member")

	// ErrNotPersisted is returned when a mutation was applied in memory but could not be
	// written to the slot.
	ErrNotPersisted = errors.New("failed to save data")
)

// SaveFailedNotice is shown to the user when the collection could not be written.
const SaveFailedNotice = "Failed to save data. Please try again."

// Confirmer asks the user to approve a destructive operation.
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmFunc adapts a function to the Confirmer interface.
type ConfirmFunc func(prompt string) bool

func (f ConfirmFunc) Confirm(prompt string) bool {
	return f(prompt)
}

// Notifier shows a message to the user, e.g. a reminder acknowledgement or a save failure.
type Notifier interface {
	Notify(message string)
}

// logNotifier writes notices to the log. It is the default when no notifier is configured.
type logNotifier struct {
	logger *slog.Logger
}

func (n logNotifier) Notify(message string) {
	n.logger.Info("notice", "message", message)
}

// Store is the member collection together with the slot it is persisted in.
type Store struct {
	mu       sync.Mutex
	members  []model.Member
	slot     storage.Slot
	clock    func() time.Time
	logger   *slog.Logger
	notifier Notifier
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces the wall clock. Tests use it to pin "today".
func WithClock(clock func() time.Time) Option {
	return func(s *Store) { s.clock = clock }
}

// WithLogger sets the logger of the store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithNotifier sets the surface on which reminders and save failures are shown.
func WithNotifier(n Notifier) Option {
	return func(s *Store) { s.notifier = n }
}

// Open reads the collection from the slot and returns the store owning it. A missing,
// unreadable or malformed collection is not fatal: the store starts out empty.
func Open(ctx context.Context, slot storage.Slot, opts ...Option) *Store {
	s := &Store{slot: slot, clock: time.Now, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	if s.notifier == nil {
		s.notifier = logNotifier{logger: s.logger}
	}

	data, err := slot.Read(ctx)
	if err != nil {
		s.logger.Warn("could not read members, starting empty", "error", err)
		return s
	}
	if len(data) == 0 {
		s.logger.Debug("no existing members found")
		return s
	}
	var members []model.Member
	if err := json.Unmarshal(data, &members); err != nil {
		s.logger.Warn("could not parse members, starting empty", "error", err)
		return s
	}
	s.members = members
	s.logger.Debug("members loaded", "count", len(members))
	return s
}

// Now returns the current time according to the store's clock.
func (s *Store) Now() time.Time {
	return s.clock()
}

// Today returns the current calendar date according to the store's clock.
func (s *Store) Today() model.Date {
	return model.DateOf(s.clock())
}

// All returns a copy of the collection in insertion order.
func (s *Store) All() []model.Member {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.members)
}

// Find returns the member with the given id.
func (s *Store) Find(id int64) (model.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return model.Member{}, ErrNotFound
	}
	return s.members[i], nil
}

// Filter returns the members matching the search term and status category.
func (s *Store) Filter(search string, category view.Category) []model.Member {
	return view.Filter(s.All(), search, category, s.clock())
}

// Stats counts the whole collection.
func (s *Store) Stats() billing.Stats {
	return billing.Summarize(s.All(), s.clock())
}

// Create adds a member and assigns it a fresh id. The id is the creation time in
// milliseconds, moved forward if another member already holds it. The join date defaults to
// today, and the due date is derived from the last payment date.
func (s *Store) Create(ctx context.Context, m model.Member) (model.Member, error) {
	plan, err := validate(m)
	if err != nil {
		return model.Member{}, err
	}
	m.MembershipType = plan
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	m.Id = now.UnixMilli()
	for s.indexOf(m.Id) >= 0 {
		m.Id++
	}
	if !m.JoinDate.IsSet() {
		m.JoinDate = model.DateOf(now)
	}
	billing.Renew(&m)

	s.members = append(s.members, m)
	s.logger.Info("member created", "id", m.Id)
	return m, s.save(ctx)
}

// Update replaces the member with the same id. The due date is derived again from the last
// payment date. A missing join date is taken over from the stored member.
func (s *Store) Update(ctx context.Context, m model.Member) (model.Member, error) {
	plan, err := validate(m)
	if err != nil {
		return model.Member{}, err
	}
	m.MembershipType = plan
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(m.Id)
	if i < 0 {
		return model.Member{}, ErrNotFound
	}
	if !m.JoinDate.IsSet() {
		m.JoinDate = s.members[i].JoinDate
	}
	billing.Renew(&m)
	s.members[i] = m
	s.logger.Info("member updated", "id", m.Id)
	return m, s.save(ctx)
}

// Delete removes the member with the given id after the confirmer approved it. It reports
// whether a member was removed. Unknown ids and declined confirmations change nothing.
func (s *Store) Delete(ctx context.Context, id int64, confirmer Confirmer) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return false, nil
	}
	if !confirmer.Confirm("Are you sure you want to delete this member?") {
		s.logger.Debug("deletion declined", "id", id)
		return false, nil
	}
	s.members = slices.Delete(s.members, i, i+1)
	s.logger.Info("member deleted", "id", id)
	return true, s.save(ctx)
}

// MarkPaid records a payment made today. The payment cycle restarts from today, regardless of
// the previous due date.
func (s *Store) MarkPaid(ctx context.Context, id int64) (model.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return model.Member{}, ErrNotFound
	}
	m := &s.members[i]
	m.FeePaid = true
	m.LastPaymentDate = model.DateOf(s.clock())
	billing.Renew(m)
	s.logger.Info("payment recorded", "id", id, "dueDate", m.DueDate.String())
	return *m, s.save(ctx)
}

// SendReminder formats the payment reminder for the member and shows it on the notifier. No
// message leaves the process and the collection is not changed.
func (s *Store) SendReminder(id int64) (billing.Reminder, error) {
	m, err := s.Find(id)
	if err != nil {
		return billing.Reminder{}, err
	}
	r := billing.NewReminder(m, s.clock())
	s.notifier.Notify(r.Text)
	return r, nil
}

// indexOf returns the position of the member with the given id, or -1. The caller must hold
// the lock.
func (s *Store) indexOf(id int64) int {
	return slices.IndexFunc(s.members, func(m model.Member) bool { return m.Id == id })
}

// save writes the whole collection to the slot. The caller must hold the lock. On failure the
// in-memory state is kept and the user is notified.
func (s *Store) save(ctx context.Context) error {
	members := s.members
	if members == nil {
		members = []model.Member{}
	}
	data, err := json.Marshal(members)
	if err == nil {
		err = s.slot.Write(ctx, data)
	}
	if err != nil {
		s.logger.Error("could not save members", "error", err)
		s.notifier.Notify(SaveFailedNotice)
		return fmt.Errorf("%w: %w", ErrNotPersisted, err)
	}
	return nil
}

// validate checks the fields every member must have and returns the normalized plan.
func validate(m model.Member) (model.Plan, error) {
	if strings.TrimSpace(m.Name) == "" {
		return "", fmt.Errorf("%w: name is required", ErrInvalid)
	}
	if strings.TrimSpace(m.Contact) == "" {
		return "", fmt.Errorf("%w: contact is required", ErrInvalid)
	}
	if m.FeeAmount.IsNegative() {
		return "", fmt.Errorf("%w: fee amount must not be negative", ErrInvalid)
	}
	if m.Age != nil && *m.Age < 0 {
		return "", fmt.Errorf("%w: age must not be negative", ErrInvalid)
	}
	plan, err := model.ParsePlan(string(m.MembershipType))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return plan, nil
}
