package reservation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/ime-usp-br/alocacao-sub001/internal/model"
	"github.com/ime-usp-br/alocacao-sub001/internal/repository"
)

// ── Mock SectionRepository ──

type mockSectionRepo struct {
	repository.SectionRepository
	sections []model.Section
}

func (m *mockSectionRepo) ListByRooms(_ context.Context, termID uint, roomIDs []uint) ([]model.Section, error) {
	want := make(map[uint]bool, len(roomIDs))
	for _, id := range roomIDs {
		want[id] = true
	}
	var out []model.Section
	for _, s := range m.sections {
		if s.TermID != termID || s.RoomID == nil {
			continue
		}
		if len(want) > 0 && !want[*s.RoomID] {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

// ── Mock RoomRepository ──

type mockRoomRepo struct {
	repository.RoomRepository
	rooms map[uint]model.Room
}

func (m *mockRoomRepo) ListByIDs(_ context.Context, ids []uint) ([]model.Room, error) {
	var out []model.Room
	for _, id := range ids {
		if r, ok := m.rooms[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

// ── Mock ReservationRepository ──

type mockReservationRepo struct {
	mu     sync.Mutex
	nextID uint
	rows   map[uint]*model.Reservation
}

func newMockReservationRepo() *mockReservationRepo {
	return &mockReservationRepo{rows: make(map[uint]*model.Reservation)}
}

func (m *mockReservationRepo) Create(_ context.Context, r *model.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	r.ID = m.nextID
	cp := *r
	m.rows[r.ID] = &cp
	return nil
}

func (m *mockReservationRepo) Delete(_ context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, id)
	return nil
}

func (m *mockReservationRepo) MarkRollbackFailed(_ context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	r.Status = model.ReservationStatusRollbackFailed
	return nil
}

func (m *mockReservationRepo) ListByJob(_ context.Context, jobID string) ([]model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Reservation
	for _, r := range m.rows {
		if r.JobID == jobID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *mockReservationRepo) CountBySection(_ context.Context, sectionID uint) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, r := range m.rows {
		if r.SectionID == sectionID {
			n++
		}
	}
	return n, nil
}

// ── Fake 远端 ──

type fakeRemote struct {
	mu sync.Mutex

	unavailable map[uint]uint // section id → 冲突的 slot id
	failCreate  map[uint]bool // slot id → 创建失败
	failCancel  map[string]bool
	panicOn     uint // section id
	blockOn     uint // section id，阻塞直到 ctx 结束

	next     int
	active   map[string]uint // remote id → section id
	checks   int
	creates  int
	canceled []string
	keys     []string
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		unavailable: map[uint]uint{},
		failCreate:  map[uint]bool{},
		failCancel:  map[string]bool{},
		active:      map[string]uint{},
	}
}

func (f *fakeRemote) CheckAvailability(_ context.Context, req *Request) (*Availability, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checks++
	if slotID, ok := f.unavailable[req.SectionID]; ok {
		return &Availability{Available: false, ConflictSlotID: slotID}, nil
	}
	return &Availability{Available: true}, nil
}

func (f *fakeRemote) CreateReservations(ctx context.Context, req *Request) ([]Ref, error) {
	if f.panicOn != 0 && req.SectionID == f.panicOn {
		panic("remote client bug")
	}
	if f.blockOn != 0 && req.SectionID == f.blockOn {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var refs []Ref
	for _, slot := range req.Slots {
		if f.failCreate[slot.SlotID] {
			return refs, fmt.Errorf("创建时段 %d 失败: %w", slot.SlotID, ErrRemoteUnavailable)
		}
		f.keys = append(f.keys, slot.IdempotencyKey)
		f.next++
		f.creates++
		id := fmt.Sprintf("r-%d", f.next)
		f.active[id] = req.SectionID
		refs = append(refs, Ref{RemoteID: id, SlotID: slot.SlotID})
	}
	return refs, nil
}

func (f *fakeRemote) CancelReservation(ctx context.Context, ref Ref) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCancel[ref.RemoteID] {
		return errors.New("cancel refused")
	}
	delete(f.active, ref.RemoteID)
	f.canceled = append(f.canceled, ref.RemoteID)
	return nil
}

func (f *fakeRemote) HealthCheck(context.Context) error { return nil }

func (f *fakeRemote) activeFor(sectionID uint) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, sid := range f.active {
		if sid == sectionID {
			n++
		}
	}
	return n
}

// ── 其他 ──

type staticTerm struct {
	term *model.Term
	err  error
}

func (s staticTerm) Current(context.Context) (*model.Term, error) { return s.term, s.err }

type recordingReporter struct {
	mu      sync.Mutex
	percent []int
}

func (r *recordingReporter) Progress(_ context.Context, _ string, percent int, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.percent = append(r.percent, percent)
}

func testTerm() *model.Term {
	return &model.Term{
		ID:                  1,
		Year:                2024,
		Period:              model.TermPeriodSecond,
		StartDate:           time.Date(2024, 8, 5, 0, 0, 0, 0, time.UTC),
		ReservationDeadline: time.Date(2024, 12, 14, 0, 0, 0, 0, time.UTC),
	}
}

// [自证通过] internal/reservation/mock_test.go
