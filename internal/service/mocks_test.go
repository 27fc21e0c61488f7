package service

import (
	"context"
	"sync"
	"time"

	"github.com/Agastya221/society-gate-backend/internal/domain"
	"github.com/Agastya221/society-gate-backend/internal/platform/notify"
	"github.com/Agastya221/society-gate-backend/pkg/clock"
)

// ---------- Mocks ----------
//
// The mocks mirror the conditional-update contract of the real
// repositories: state flips happen under one lock and report whether
// this caller won, so races behave the same as against Postgres.

type mockEntryRepo struct {
	mu      sync.Mutex
	nextID  int64
	entries map[int64]*domain.Entry
}

func newMockEntryRepo() *mockEntryRepo {
	return &mockEntryRepo{nextID: 1, entries: make(map[int64]*domain.Entry)}
}

func (m *mockEntryRepo) Create(_ context.Context, e *domain.Entry) (*domain.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insert(e), nil
}

// insert assumes the lock is held.
func (m *mockEntryRepo) insert(e *domain.Entry) *domain.Entry {
	cp := *e
	cp.ID = m.nextID
	m.nextID++
	if cp.Status == "" {
		cp.Status = domain.EntryPending
	}
	cp.CreatedAt = time.Now()
	m.entries[cp.ID] = &cp
	return &cp
}

func (m *mockEntryRepo) FindByID(_ context.Context, id int64) (*domain.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (m *mockEntryRepo) Approve(_ context.Context, id int64, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok || e.Status != domain.EntryPending {
		return false, nil
	}
	e.Status = domain.EntryApproved
	e.UpdatedAt = now
	return true, nil
}

func (m *mockEntryRepo) Reject(_ context.Context, id int64, reason string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok || e.Status != domain.EntryPending {
		return false, nil
	}
	e.Status = domain.EntryRejected
	e.RejectReason = reason
	e.UpdatedAt = now
	return true, nil
}

func (m *mockEntryRepo) Checkout(_ context.Context, id int64, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok || e.Status != domain.EntryApproved || e.CheckOutTime != nil {
		return false, nil
	}
	e.Status = domain.EntryCheckedOut
	t := now
	e.CheckOutTime = &t
	e.UpdatedAt = now
	return true, nil
}

func (m *mockEntryRepo) ListByUnit(_ context.Context, unitID int64, limit, offset int) ([]domain.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Entry
	for _, e := range m.entries {
		if e.UnitID == unitID {
			out = append(out, *e)
		}
	}
	return out, nil
}

type mockEntryRequestRepo struct {
	mu       sync.Mutex
	nextID   int64
	requests map[int64]*domain.EntryRequest
	entries  *mockEntryRepo
}

func newMockEntryRequestRepo(entries *mockEntryRepo) *mockEntryRequestRepo {
	return &mockEntryRequestRepo{nextID: 1, requests: make(map[int64]*domain.EntryRequest), entries: entries}
}

func (m *mockEntryRequestRepo) Create(_ context.Context, req *domain.EntryRequest) (*domain.EntryRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *req
	cp.ID = m.nextID
	m.nextID++
	cp.Status = domain.RequestPending
	cp.CreatedAt = time.Now()
	m.requests[cp.ID] = &cp
	return &cp, nil
}

func (m *mockEntryRequestRepo) FindByID(_ context.Context, id int64) (*domain.EntryRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (m *mockEntryRequestRepo) ApproveAndMaterialize(_ context.Context, id int64, now time.Time) (*domain.Entry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok || r.Status != domain.RequestPending {
		return nil, false, nil
	}
	r.Status = domain.RequestApproved
	r.UpdatedAt = now

	m.entries.mu.Lock()
	entry := m.entries.insert(&domain.Entry{
		Type:         r.Type,
		Status:       domain.EntryApproved,
		UnitID:       r.UnitID,
		GuardID:      r.GuardID,
		VisitorName:  r.VisitorName,
		VisitorPhone: r.VisitorPhone,
		CheckInTime:  now,
	})
	m.entries.mu.Unlock()

	r.EntryID = &entry.ID
	return entry, true, nil
}

func (m *mockEntryRequestRepo) Reject(_ context.Context, id int64, reason string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok || r.Status != domain.RequestPending {
		return false, nil
	}
	r.Status = domain.RequestRejected
	r.RejectReason = reason
	r.UpdatedAt = now
	return true, nil
}

func (m *mockEntryRequestRepo) MarkExpired(_ context.Context, id int64, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok || r.Status != domain.RequestPending || !r.ExpiresAt.Before(now) {
		return false, nil
	}
	r.Status = domain.RequestExpired
	r.UpdatedAt = now
	return true, nil
}

func (m *mockEntryRequestRepo) ExpireOverdue(_ context.Context, now time.Time) ([]domain.EntryRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var expired []domain.EntryRequest
	for _, r := range m.requests {
		if r.Status == domain.RequestPending && r.ExpiresAt.Before(now) {
			r.Status = domain.RequestExpired
			r.UpdatedAt = now
			expired = append(expired, *r)
		}
	}
	return expired, nil
}

func (m *mockEntryRequestRepo) ListPendingByUnit(_ context.Context, unitID int64) ([]domain.EntryRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.EntryRequest
	for _, r := range m.requests {
		if r.UnitID == unitID && r.Status == domain.RequestPending {
			out = append(out, *r)
		}
	}
	return out, nil
}

type mockPreApprovalRepo struct {
	mu      sync.Mutex
	nextID  int64
	records map[int64]*domain.PreApproval
	entries *mockEntryRepo
}

func newMockPreApprovalRepo(entries *mockEntryRepo) *mockPreApprovalRepo {
	return &mockPreApprovalRepo{nextID: 1, records: make(map[int64]*domain.PreApproval), entries: entries}
}

func (m *mockPreApprovalRepo) Create(_ context.Context, p *domain.PreApproval) (*domain.PreApproval, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	cp.ID = m.nextID
	m.nextID++
	cp.Status = domain.PreApprovalActive
	cp.CreatedAt = time.Now()
	m.records[cp.ID] = &cp
	return &cp, nil
}

func (m *mockPreApprovalRepo) FindByID(_ context.Context, id int64) (*domain.PreApproval, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.records[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *mockPreApprovalRepo) FindBySerial(_ context.Context, serial string) (*domain.PreApproval, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.records {
		if p.Serial == serial {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockPreApprovalRepo) ConsumeAndCreateEntry(_ context.Context, id int64, entry *domain.Entry) (*domain.Entry, *domain.PreApproval, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.records[id]
	if !ok || p.Status != domain.PreApprovalActive || p.UsedCount >= p.MaxUses {
		return nil, nil, domain.ErrQuotaExhausted("pre-approval has no remaining uses")
	}
	p.UsedCount++
	if p.UsedCount == p.MaxUses {
		p.Status = domain.PreApprovalUsed
	}

	m.entries.mu.Lock()
	e := *entry
	e.Status = domain.EntryApproved
	e.WasAutoApproved = true
	created := m.entries.insert(&e)
	m.entries.mu.Unlock()

	cp := *p
	return created, &cp, nil
}

func (m *mockPreApprovalRepo) Cancel(_ context.Context, id int64, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.records[id]
	if !ok || p.Status != domain.PreApprovalActive {
		return false, nil
	}
	p.Status = domain.PreApprovalCancelled
	p.UpdatedAt = now
	return true, nil
}

func (m *mockPreApprovalRepo) MarkExpired(_ context.Context, id int64, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.records[id]
	if !ok || p.Status != domain.PreApprovalActive {
		return false, nil
	}
	p.Status = domain.PreApprovalExpired
	p.UpdatedAt = now
	return true, nil
}

func (m *mockPreApprovalRepo) ExpireOverdue(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, p := range m.records {
		if p.Status == domain.PreApprovalActive && p.ValidUntil.Before(now) {
			p.Status = domain.PreApprovalExpired
			p.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

func (m *mockPreApprovalRepo) ListByResident(_ context.Context, residentID int64, limit, offset int) ([]domain.PreApproval, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.PreApproval
	for _, p := range m.records {
		if p.ResidentID == residentID {
			out = append(out, *p)
		}
	}
	return out, nil
}

type mockGatePassRepo struct {
	mu      sync.Mutex
	nextID  int64
	records map[int64]*domain.GatePass
}

func newMockGatePassRepo() *mockGatePassRepo {
	return &mockGatePassRepo{nextID: 1, records: make(map[int64]*domain.GatePass)}
}

func (m *mockGatePassRepo) Create(_ context.Context, gp *domain.GatePass) (*domain.GatePass, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *gp
	cp.ID = m.nextID
	m.nextID++
	cp.Status = domain.PassPending
	cp.CreatedAt = time.Now()
	m.records[cp.ID] = &cp
	return &cp, nil
}

func (m *mockGatePassRepo) FindByID(_ context.Context, id int64) (*domain.GatePass, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	gp, ok := m.records[id]
	if !ok {
		return nil, nil
	}
	cp := *gp
	return &cp, nil
}

func (m *mockGatePassRepo) FindBySerial(_ context.Context, serial string) (*domain.GatePass, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, gp := range m.records {
		if gp.Serial == serial {
			cp := *gp
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockGatePassRepo) Approve(_ context.Context, id int64, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	gp, ok := m.records[id]
	if !ok || gp.Status != domain.PassPending {
		return false, nil
	}
	gp.Status = domain.PassApproved
	gp.UpdatedAt = now
	return true, nil
}

func (m *mockGatePassRepo) Reject(_ context.Context, id int64, reason string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	gp, ok := m.records[id]
	if !ok || gp.Status != domain.PassPending {
		return false, nil
	}
	gp.Status = domain.PassRejected
	gp.RejectReason = reason
	gp.UpdatedAt = now
	return true, nil
}

func (m *mockGatePassRepo) ClaimUse(_ context.Context, id, guardID int64, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	gp, ok := m.records[id]
	if !ok || gp.IsUsed || gp.Status != domain.PassApproved {
		return false, nil
	}
	gp.IsUsed = true
	gp.Status = domain.PassUsed
	t := now
	gp.UsedAt = &t
	g := guardID
	gp.UsedByGuard = &g
	gp.UpdatedAt = now
	return true, nil
}

func (m *mockGatePassRepo) Cancel(_ context.Context, id int64, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	gp, ok := m.records[id]
	if !ok || gp.IsUsed {
		return false, nil
	}
	if gp.Status != domain.PassPending && gp.Status != domain.PassApproved {
		return false, nil
	}
	gp.Status = domain.PassExpired
	gp.UpdatedAt = now
	return true, nil
}

func (m *mockGatePassRepo) MarkExpired(_ context.Context, id int64, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	gp, ok := m.records[id]
	if !ok || gp.IsUsed {
		return false, nil
	}
	if gp.Status != domain.PassPending && gp.Status != domain.PassApproved {
		return false, nil
	}
	gp.Status = domain.PassExpired
	gp.UpdatedAt = now
	return true, nil
}

func (m *mockGatePassRepo) ExpireOverdue(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, gp := range m.records {
		if gp.IsUsed || gp.ValidUntil.After(now) {
			continue
		}
		if gp.Status == domain.PassPending || gp.Status == domain.PassApproved {
			gp.Status = domain.PassExpired
			gp.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

func (m *mockGatePassRepo) ListPending(_ context.Context, limit, offset int) ([]domain.GatePass, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.GatePass
	for _, gp := range m.records {
		if gp.Status == domain.PassPending {
			out = append(out, *gp)
		}
	}
	return out, nil
}

type mockRulesRepo struct {
	mu       sync.Mutex
	nextID   int64
	rules    map[int64]*domain.AutoApprovalRule
	expected map[int64]*domain.ExpectedDelivery
}

func newMockRulesRepo() *mockRulesRepo {
	return &mockRulesRepo{
		nextID:   1,
		rules:    make(map[int64]*domain.AutoApprovalRule),
		expected: make(map[int64]*domain.ExpectedDelivery),
	}
}

func (m *mockRulesRepo) CreateRule(_ context.Context, rule *domain.AutoApprovalRule) (*domain.AutoApprovalRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rule
	cp.ID = m.nextID
	m.nextID++
	cp.IsActive = true
	m.rules[cp.ID] = &cp
	return &cp, nil
}

func (m *mockRulesRepo) FindActiveRule(_ context.Context, unitID int64, providerTag string) (*domain.AutoApprovalRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rules {
		if r.UnitID == unitID && r.ProviderTag == providerTag && r.IsActive {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockRulesRepo) ListRulesByUnit(_ context.Context, unitID int64) ([]domain.AutoApprovalRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.AutoApprovalRule
	for _, r := range m.rules {
		if r.UnitID == unitID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *mockRulesRepo) DeactivateRule(_ context.Context, id int64, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rules[id]
	if !ok || !r.IsActive {
		return false, nil
	}
	r.IsActive = false
	r.UpdatedAt = now
	return true, nil
}

func (m *mockRulesRepo) CreateExpected(_ context.Context, ed *domain.ExpectedDelivery) (*domain.ExpectedDelivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *ed
	cp.ID = m.nextID
	m.nextID++
	m.expected[cp.ID] = &cp
	return &cp, nil
}

func (m *mockRulesRepo) FindOpenExpected(_ context.Context, unitID int64, providerTag string, day time.Time) (*domain.ExpectedDelivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	y, mo, d := day.Date()
	for _, ed := range m.expected {
		ey, em, eday := ed.ExpectedDate.Date()
		if ed.UnitID == unitID && ed.ProviderTag == providerTag && !ed.IsUsed &&
			ey == y && em == mo && eday == d {
			cp := *ed
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockRulesRepo) ClaimExpected(_ context.Context, id int64, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ed, ok := m.expected[id]
	if !ok || ed.IsUsed {
		return false, nil
	}
	ed.IsUsed = true
	t := now
	ed.UsedAt = &t
	return true, nil
}

type mockBookingRepo struct {
	mu        sync.Mutex
	nextID    int64
	amenities map[int64]*domain.Amenity
	bookings  map[int64]*domain.Booking
}

func newMockBookingRepo() *mockBookingRepo {
	return &mockBookingRepo{
		nextID:    1,
		amenities: make(map[int64]*domain.Amenity),
		bookings:  make(map[int64]*domain.Booking),
	}
}

func (m *mockBookingRepo) FindAmenity(_ context.Context, id int64) (*domain.Amenity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.amenities[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (m *mockBookingRepo) Propose(_ context.Context, b *domain.Booking, maxPerResident int) (*domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sameDay := func(a, c time.Time) bool {
		ay, am, ad := a.Date()
		cy, cm, cd := c.Date()
		return ay == cy && am == cm && ad == cd
	}

	active := 0
	for _, existing := range m.bookings {
		if !existing.Status.IsActive() {
			continue
		}
		if existing.AmenityID == b.AmenityID && existing.ResidentID == b.ResidentID {
			active++
		}
		if existing.AmenityID == b.AmenityID && sameDay(existing.BookingDate, b.BookingDate) &&
			b.StartTime < existing.EndTime && b.EndTime > existing.StartTime {
			return nil, domain.ErrSchedulingConflict("slot overlaps existing booking %s-%s", existing.StartTime, existing.EndTime)
		}
	}
	if active >= maxPerResident {
		return nil, domain.ErrQuotaExhausted("resident already holds %d active bookings", active)
	}

	cp := *b
	cp.ID = m.nextID
	m.nextID++
	cp.Status = domain.BookingPending
	cp.CreatedAt = time.Now()
	m.bookings[cp.ID] = &cp
	return &cp, nil
}

func (m *mockBookingRepo) FindByID(_ context.Context, id int64) (*domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (m *mockBookingRepo) Confirm(_ context.Context, id int64, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok || b.Status != domain.BookingPending {
		return false, nil
	}
	b.Status = domain.BookingConfirmed
	b.UpdatedAt = now
	return true, nil
}

func (m *mockBookingRepo) Cancel(_ context.Context, id int64, reason string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok || !b.Status.IsActive() {
		return false, nil
	}
	b.Status = domain.BookingCancelled
	b.CancelReason = reason
	b.UpdatedAt = now
	return true, nil
}

func (m *mockBookingRepo) Complete(_ context.Context, id int64, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok || b.Status != domain.BookingConfirmed {
		return false, nil
	}
	b.Status = domain.BookingCompleted
	b.UpdatedAt = now
	return true, nil
}

func (m *mockBookingRepo) ListForAmenityDate(_ context.Context, amenityID int64, day time.Time) ([]domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	y, mo, d := day.Date()
	var out []domain.Booking
	for _, b := range m.bookings {
		by, bm, bd := b.BookingDate.Date()
		if b.AmenityID == amenityID && by == y && bm == mo && bd == d {
			out = append(out, *b)
		}
	}
	return out, nil
}

type mockPrincipalRepo struct {
	mu         sync.Mutex
	principals map[int64]*domain.Principal
	units      map[int64]*domain.Unit
}

func newMockPrincipalRepo() *mockPrincipalRepo {
	return &mockPrincipalRepo{
		principals: make(map[int64]*domain.Principal),
		units:      make(map[int64]*domain.Unit),
	}
}

func (m *mockPrincipalRepo) FindByID(_ context.Context, id int64) (*domain.Principal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.principals[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *mockPrincipalRepo) ListActiveResidents(_ context.Context, unitID int64) ([]domain.Principal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Principal
	for _, p := range m.principals {
		if p.Role == domain.RoleResident && p.IsActive && p.UnitID == unitID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *mockPrincipalRepo) FindUnit(_ context.Context, id int64) (*domain.Unit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.units[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

type mockBus struct {
	mu       sync.Mutex
	subjects []string
}

func (m *mockBus) Publish(_ context.Context, subject string, _ interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subjects = append(m.subjects, subject)
	return nil
}

func (m *mockBus) Close() error { return nil }

func (m *mockBus) published(subject string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.subjects {
		if s == subject {
			n++
		}
	}
	return n
}

type sentNotification struct {
	principalID int64
	unitID      int64
	kind        string
}

type mockNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (m *mockNotifier) NotifyPrincipal(_ context.Context, principalID int64, n notify.Notification) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentNotification{principalID: principalID, kind: n.Kind})
}

func (m *mockNotifier) NotifyUnit(_ context.Context, unitID int64, n notify.Notification) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentNotification{unitID: unitID, kind: n.Kind})
}

// fixedClock pins the engine's time source for the test.
func fixedClock(t time.Time) clock.Clock {
	return clock.Func(func() time.Time { return t })
}
