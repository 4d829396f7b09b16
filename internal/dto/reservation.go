package dto

// ── 预约同步 DTO ──

// SyncRequest 提交同步任务；RoomIDs 为空表示所有教室
type SyncRequest struct {
	RoomIDs []uint `json:"room_ids"`
}

// SyncJobResponse 同步任务状态
type SyncJobResponse struct {
	JobID      string `json:"job_id"`
	RoomIDs    []int  `json:"room_ids"`
	Mode       string `json:"mode"`
	Status     string `json:"status"`
	Progress   int    `json:"progress"`
	Message    string `json:"message,omitempty"`
	Reason     string `json:"reason,omitempty"`
	CreatedAt  string `json:"created_at"`
	StartedAt  string `json:"started_at,omitempty"`
	FinishedAt string `json:"finished_at,omitempty"`
}

// ReservationHealthResponse 预约写入端健康状态
type ReservationHealthResponse struct {
	Mode    string `json:"mode"`
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
}

// [自证通过] internal/dto/reservation.go
