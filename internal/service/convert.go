package service

import (
	"time"

	"github.com/ime-usp-br/alocacao-sub001/internal/dto"
	"github.com/ime-usp-br/alocacao-sub001/internal/model"
)

const dateLayout = "2006-01-02"

func toSectionResponse(s *model.Section, roomName string) dto.SectionResponse {
	resp := dto.SectionResponse{
		ID:                 s.ID,
		DisciplineCode:     s.DisciplineCode,
		DisciplineName:     s.DisciplineName,
		SectionCode:        s.SectionCode,
		SectionType:        s.SectionType,
		EnrollmentCapacity: s.EnrollmentCapacity,
		RoomID:             s.RoomID,
		RoomName:           roomName,
		FusionGroupID:      s.FusionGroupID,
		FusionMaster:       s.IsFusionMaster(),
		Slots:              make([]dto.SlotResponse, 0, len(s.ScheduleSlots)),
	}
	for _, in := range s.Instructors {
		resp.Instructors = append(resp.Instructors, in.Name)
	}
	for _, sl := range s.ScheduleSlots {
		resp.Slots = append(resp.Slots, dto.SlotResponse{
			ID:        sl.ID,
			DayOfWeek: sl.DayOfWeek,
			StartTime: sl.StartTime,
			EndTime:   sl.EndTime,
		})
	}
	return resp
}

func toRoomResponse(r *model.Room) dto.RoomResponse {
	resp := dto.RoomResponse{ID: r.ID, Name: r.Name, SeatCount: r.SeatCount}
	for i := range r.Sections {
		resp.Sections = append(resp.Sections, toSectionResponse(&r.Sections[i], r.Name))
	}
	return resp
}

func toTermResponse(t *model.Term) *dto.TermResponse {
	return &dto.TermResponse{
		ID:                  t.ID,
		Year:                t.Year,
		Period:              t.Period,
		StartDate:           t.StartDate.Format(dateLayout),
		ReservationDeadline: t.ReservationDeadline.Format(dateLayout),
	}
}

func toSyncJobResponse(j *model.SyncJob) *dto.SyncJobResponse {
	resp := &dto.SyncJobResponse{
		JobID:     j.JobID,
		RoomIDs:   []int(j.RoomIDs),
		Mode:      j.Mode,
		Status:    j.Status,
		Progress:  j.Progress,
		Message:   j.Message,
		Reason:    j.Reason,
		CreatedAt: j.CreatedAt.Format(time.RFC3339),
	}
	if resp.RoomIDs == nil {
		resp.RoomIDs = []int{}
	}
	if j.StartedAt != nil {
		resp.StartedAt = j.StartedAt.Format(time.RFC3339)
	}
	if j.FinishedAt != nil {
		resp.FinishedAt = j.FinishedAt.Format(time.RFC3339)
	}
	return resp
}

// [自证通过] internal/service/convert.go
