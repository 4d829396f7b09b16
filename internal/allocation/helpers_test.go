package allocation

import (
	"github.com/ime-usp-br/alocacao-sub001/internal/model"
)

// ── 测试辅助 ──

func intPtr(n int) *int    { return &n }
func uintPtr(n uint) *uint { return &n }

func slot(day int, start, end string) model.ScheduleSlot {
	return model.ScheduleSlot{DayOfWeek: day, StartTime: start, EndTime: end}
}

func section(id uint, code string, capacity int, slots ...model.ScheduleSlot) model.Section {
	for i := range slots {
		slots[i].SectionID = id
		slots[i].ID = id*10 + uint(i)
	}
	return model.Section{
		ID:                 id,
		TermID:             1,
		DisciplineCode:     code,
		DisciplineName:     code,
		SectionCode:        "2024101",
		SectionType:        model.SectionTypeUndergraduate,
		EnrollmentCapacity: intPtr(capacity),
		ScheduleSlots:      slots,
	}
}

func fuse(groupID, master uint, members ...*model.Section) {
	fg := &model.FusionGroup{ID: groupID, MasterSectionID: master}
	for _, m := range members {
		m.FusionGroupID = uintPtr(groupID)
		m.FusionGroup = fg
	}
}

// [自证通过] internal/allocation/helpers_test.go
