package jobs

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/ime-usp-br/alocacao-sub001/config"
	"github.com/ime-usp-br/alocacao-sub001/internal/model"
	"github.com/ime-usp-br/alocacao-sub001/internal/reservation"
	pkgerrors "github.com/ime-usp-br/alocacao-sub001/pkg/errors"
)

type runnerFixture struct {
	runner *Runner
	jobs   *mockSyncJobRepo
}

func newRunnerFixture(t *testing.T, cfg config.ReservationConfig, run func(context.Context, string, []uint) error) *runnerFixture {
	t.Helper()
	jobs := newMockSyncJobRepo()
	repo := newTestRepo(jobs)
	reporter := NewReporter(repo, zap.NewNop())
	syncer := &fakeSyncer{run: func(ctx context.Context, jobID string, roomIDs []uint) error {
		if run != nil {
			if err := run(ctx, jobID, roomIDs); err != nil {
				return err
			}
		}
		reporter.Progress(ctx, jobID, 100, "done")
		return nil
	}}
	r := NewRunner(&cfg, repo, syncer, NewLocker(nil, time.Minute, zap.NewNop()), zap.NewNop())
	return &runnerFixture{runner: r, jobs: jobs}
}

func TestRunner_Success(t *testing.T) {
	var gotRooms []uint
	f := newRunnerFixture(t, config.ReservationConfig{}, func(_ context.Context, _ string, roomIDs []uint) error {
		gotRooms = roomIDs
		return nil
	})
	f.runner.Start(context.Background())
	defer f.runner.Stop(context.Background())

	job, err := f.runner.Submit(context.Background(), []uint{2, 1})
	if err != nil {
		t.Fatalf("提交失败: %v", err)
	}
	if job.Status != model.SyncJobQueued || job.Mode != "api" {
		t.Errorf("新任务状态不符: %+v", job)
	}

	done := waitStatus(t, f.jobs, job.JobID)
	if done.Status != model.SyncJobSucceeded || done.Progress != 100 {
		t.Errorf("期望成功且进度 100，实际 %s/%d", done.Status, done.Progress)
	}
	if done.StartedAt == nil || done.FinishedAt == nil {
		t.Error("应记录开始与结束时间")
	}
	if len(gotRooms) != 2 {
		t.Errorf("应按提交的教室执行，实际 %v", gotRooms)
	}

	// 锁已释放，可再次提交
	if _, err := f.runner.Submit(context.Background(), []uint{1}); err != nil {
		t.Fatalf("任务结束后应能再次提交: %v", err)
	}
}

func TestRunner_OverlappingRoomsRejected(t *testing.T) {
	release := make(chan struct{})
	f := newRunnerFixture(t, config.ReservationConfig{}, func(ctx context.Context, _ string, _ []uint) error {
		<-release
		return nil
	})
	f.runner.Start(context.Background())
	defer f.runner.Stop(context.Background())
	defer close(release)

	if _, err := f.runner.Submit(context.Background(), []uint{1, 2}); err != nil {
		t.Fatalf("提交失败: %v", err)
	}
	if _, err := f.runner.Submit(context.Background(), []uint{2}); !errors.Is(err, pkgerrors.ErrJobAlreadyRunning) {
		t.Fatalf("重叠教室应被拒绝，实际 %v", err)
	}
	if _, err := f.runner.Submit(context.Background(), nil); !errors.Is(err, pkgerrors.ErrJobAlreadyRunning) {
		t.Fatalf("全部教室任务与已有任务重叠，应被拒绝，实际 %v", err)
	}
	if _, err := f.runner.Submit(context.Background(), []uint{3}); err != nil {
		t.Fatalf("不相交的教室应允许排队: %v", err)
	}
}

func TestRunner_AllRoomsLocksEverything(t *testing.T) {
	release := make(chan struct{})
	f := newRunnerFixture(t, config.ReservationConfig{}, func(ctx context.Context, _ string, roomIDs []uint) error {
		if len(roomIDs) != 0 {
			t.Errorf("全部教室任务应以空列表执行，实际 %v", roomIDs)
		}
		<-release
		return nil
	})
	f.runner.Start(context.Background())
	defer f.runner.Stop(context.Background())
	defer close(release)

	if _, err := f.runner.Submit(context.Background(), nil); err != nil {
		t.Fatalf("提交失败: %v", err)
	}
	if _, err := f.runner.Submit(context.Background(), []uint{3}); !errors.Is(err, pkgerrors.ErrJobAlreadyRunning) {
		t.Fatalf("期望 ErrJobAlreadyRunning，实际 %v", err)
	}
}

func TestRunner_Failure(t *testing.T) {
	f := newRunnerFixture(t, config.ReservationConfig{}, func(context.Context, string, []uint) error {
		return &reservation.UnavailableError{Section: "MAC0110 2024101", Room: "B101"}
	})
	f.runner.Start(context.Background())
	defer f.runner.Stop(context.Background())

	job, err := f.runner.Submit(context.Background(), []uint{1})
	if err != nil {
		t.Fatalf("提交失败: %v", err)
	}
	done := waitStatus(t, f.jobs, job.JobID)
	if done.Status != model.SyncJobFailed {
		t.Errorf("期望 failed，实际 %s", done.Status)
	}
	if !strings.Contains(done.Reason, "B101") {
		t.Errorf("失败原因应包含冲突教室: %q", done.Reason)
	}
	if done.Progress == 100 {
		t.Error("失败任务进度不应为 100")
	}
}

func TestRunner_Timeout(t *testing.T) {
	f := newRunnerFixture(t, config.ReservationConfig{JobTimeout: 30 * time.Millisecond}, func(ctx context.Context, _ string, _ []uint) error {
		<-ctx.Done()
		return ctx.Err()
	})
	f.runner.Start(context.Background())
	defer f.runner.Stop(context.Background())

	job, err := f.runner.Submit(context.Background(), []uint{1})
	if err != nil {
		t.Fatalf("提交失败: %v", err)
	}
	done := waitStatus(t, f.jobs, job.JobID)
	if done.Status != model.SyncJobTimedOut {
		t.Errorf("期望 timed_out，实际 %s", done.Status)
	}
}

func TestRunner_Panic(t *testing.T) {
	f := newRunnerFixture(t, config.ReservationConfig{}, func(context.Context, string, []uint) error {
		panic("boom")
	})
	f.runner.Start(context.Background())
	defer f.runner.Stop(context.Background())

	job, err := f.runner.Submit(context.Background(), []uint{1})
	if err != nil {
		t.Fatalf("提交失败: %v", err)
	}
	if done := waitStatus(t, f.jobs, job.JobID); done.Status != model.SyncJobFailed {
		t.Errorf("panic 后期望 failed，实际 %s", done.Status)
	}

	// worker 仍然存活
	job, err = f.runner.Submit(context.Background(), []uint{1})
	if err != nil {
		t.Fatalf("提交失败: %v", err)
	}
	waitStatus(t, f.jobs, job.JobID)
}

func TestRunner_QueueFull(t *testing.T) {
	f := newRunnerFixture(t, config.ReservationConfig{QueueSize: 1}, nil)

	// 未启动 worker，第一个任务占满队列
	if _, err := f.runner.Submit(context.Background(), []uint{1}); err != nil {
		t.Fatalf("提交失败: %v", err)
	}
	_, err := f.runner.Submit(context.Background(), []uint{2})
	if !errors.Is(err, ErrQueueFull) {
		t.Fatalf("期望 ErrQueueFull，实际 %v", err)
	}

	// 被拒绝的任务释放了锁
	if !f.runner.locker.Acquire(context.Background(), RoomLockKeys([]uint{2}), "probe") {
		t.Error("队列已满时应释放教室锁")
	}
}

func TestRunner_StopRejectsSubmit(t *testing.T) {
	f := newRunnerFixture(t, config.ReservationConfig{}, nil)
	f.runner.Start(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := f.runner.Stop(ctx); err != nil {
		t.Fatalf("停止失败: %v", err)
	}
	if _, err := f.runner.Submit(context.Background(), []uint{1}); !errors.Is(err, ErrRunnerStopped) {
		t.Fatalf("期望 ErrRunnerStopped，实际 %v", err)
	}
}

func TestRunner_LockLostWhileQueued(t *testing.T) {
	jobs := newMockSyncJobRepo()
	repo := newTestRepo(jobs)
	store := newMemLockStore()
	called := false
	syncer := &fakeSyncer{run: func(context.Context, string, []uint) error {
		called = true
		return nil
	}}
	r := NewRunner(&config.ReservationConfig{}, repo, syncer, newStoreLocker(store), zap.NewNop())

	job, err := r.Submit(context.Background(), []uint{1})
	if err != nil {
		t.Fatalf("提交失败: %v", err)
	}
	// worker 启动前锁已过期并被另一实例占用
	store.set(RoomLockKeys([]uint{1})[0], "job-remote")

	r.Start(context.Background())
	defer r.Stop(context.Background())

	done := waitStatus(t, jobs, job.JobID)
	if done.Status != model.SyncJobFailed || !strings.Contains(done.Reason, ErrLockLost.Error()) {
		t.Errorf("期望因锁丢失失败，实际 %s/%s", done.Status, done.Reason)
	}
	if called {
		t.Error("锁丢失时不应执行同步")
	}
	if store.owner(RoomLockKeys([]uint{1})[0]) != "job-remote" {
		t.Error("不应释放他人的锁")
	}
}

// [自证通过] internal/jobs/runner_test.go
