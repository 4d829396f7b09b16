package allocation

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/ime-usp-br/alocacao-sub001/config"
	"github.com/ime-usp-br/alocacao-sub001/internal/model"
)

// Stage 分配阶段
type Stage string

const (
	StageReset         Stage = "reset"
	StageFirstYear     Stage = "first_year"
	StagePriority      Stage = "priority"
	StageGraduate      Stage = "graduate"
	StageUndergraduate Stage = "undergraduate"
)

// Stages 执行顺序
var Stages = []Stage{StageReset, StageFirstYear, StagePriority, StageGraduate, StageUndergraduate}

// Assignment 班级 → 教室
type Assignment struct {
	SectionID uint
	RoomID    uint
}

// CommitFunc 持久化单个阶段的结果
// StageReset 时 assignments 为空，表示清空整个学期的教室
type CommitFunc func(ctx context.Context, stage Stage, assignments []Assignment) error

// Input 一个学期的分配输入
// Sections 需预加载 ScheduleSlots、CourseInformations、FusionGroup
type Input struct {
	TermID     uint
	Sections   []model.Section
	Rooms      []model.Room
	Priorities []model.Priority
}

// Result 分配结果
type Result struct {
	Assigned    map[Stage]int
	Assignments map[uint]uint // section id → room id
	Unassigned  []model.Section
}

// Allocator 多阶段教室分配
type Allocator struct {
	cfg    *config.AllocationConfig
	policy *Policy
	logger *zap.Logger
}

// NewAllocator 创建分配器
func NewAllocator(cfg *config.AllocationConfig, logger *zap.Logger) *Allocator {
	return &Allocator{
		cfg:    cfg,
		policy: NewPolicy(cfg.RoomPolicies),
		logger: logger,
	}
}

// Policy 分配器使用的教室限制
func (a *Allocator) Policy() *Policy { return a.policy }

// run 单次执行的内存状态
type run struct {
	checker   *Checker
	sections  []*model.Section        // 按 ID 升序
	byID      map[uint]*model.Section // section id → section
	followers map[uint][]*model.Section
	rooms     []*model.Room // 已剔除排除教室，按 ID 升序
	roomByID  map[uint]*model.Room
	pending   []Assignment
	result    *Result
}

// Run 按固定顺序执行全部阶段，每个阶段结束即调用 commit
// 任一 commit 失败立即返回，已提交的阶段保留
func (a *Allocator) Run(ctx context.Context, in Input, excludedRooms []string, commit CommitFunc) (*Result, error) {
	if err := commit(ctx, StageReset, nil); err != nil {
		return nil, fmt.Errorf("重置分配失败: %w", err)
	}

	r := a.prepare(in, excludedRooms)

	stages := []struct {
		stage Stage
		fn    func(*run, Input)
	}{
		{StageFirstYear, a.firstYear},
		{StagePriority, a.byPriority},
		{StageGraduate, a.graduate},
		{StageUndergraduate, a.undergraduate},
	}
	for _, st := range stages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		st.fn(r, in)
		if err := commit(ctx, st.stage, r.pending); err != nil {
			return nil, fmt.Errorf("提交阶段 %s 失败: %w", st.stage, err)
		}
		a.logger.Info("分配阶段完成",
			zap.Uint("term_id", in.TermID),
			zap.String("stage", string(st.stage)),
			zap.Int("assigned", len(r.pending)),
		)
		r.result.Assigned[st.stage] = len(r.pending)
		r.pending = nil
	}

	for _, s := range r.sections {
		if !s.IsExternal && s.RoomID == nil {
			r.result.Unassigned = append(r.result.Unassigned, *s)
		}
	}
	return r.result, nil
}

func (a *Allocator) prepare(in Input, excludedRooms []string) *run {
	excluded := make(map[string]bool, len(excludedRooms))
	for _, name := range excludedRooms {
		excluded[strings.ToLower(name)] = true
	}

	r := &run{
		byID:      make(map[uint]*model.Section, len(in.Sections)),
		followers: make(map[uint][]*model.Section),
		roomByID:  make(map[uint]*model.Room, len(in.Rooms)),
		result: &Result{
			Assigned:    make(map[Stage]int, len(Stages)),
			Assignments: make(map[uint]uint),
		},
	}

	// 快照拷贝，重置后的状态在内存中推进
	for i := range in.Sections {
		s := in.Sections[i]
		s.RoomID = nil
		r.sections = append(r.sections, &s)
	}
	sort.Slice(r.sections, func(i, j int) bool { return r.sections[i].ID < r.sections[j].ID })
	for _, s := range r.sections {
		r.byID[s.ID] = s
	}
	for _, s := range r.sections {
		if s.FusionGroup != nil && isFusionFollower(s) {
			master := s.FusionGroup.MasterSectionID
			r.followers[master] = append(r.followers[master], s)
		}
	}

	for i := range in.Rooms {
		room := in.Rooms[i]
		if excluded[strings.ToLower(room.Name)] {
			continue
		}
		r.rooms = append(r.rooms, &room)
		r.roomByID[room.ID] = &room
	}
	sort.Slice(r.rooms, func(i, j int) bool { return r.rooms[i].ID < r.rooms[j].ID })

	r.checker = NewChecker(nil, a.policy)
	return r
}

// assign 分配主班（或普通班级）并带上合班组成员
func (r *run) assign(section *model.Section, room *model.Room) {
	roomID := room.ID
	section.RoomID = &roomID
	r.checker.Book(roomID, section)
	r.pending = append(r.pending, Assignment{SectionID: section.ID, RoomID: roomID})
	r.result.Assignments[section.ID] = roomID

	for _, f := range r.followers[section.ID] {
		id := roomID
		f.RoomID = &id
		r.pending = append(r.pending, Assignment{SectionID: f.ID, RoomID: roomID})
		r.result.Assignments[f.ID] = roomID
	}
}

// eligible 可被直接分配：非外部、尚无教室、不是合班组的跟随成员
func eligible(s *model.Section) bool {
	return !s.IsExternal && s.RoomID == nil && !isFusionFollower(s)
}

// ════════════════════════════════════════════════════════════
// 阶段一：一年级必修整组
// ════════════════════════════════════════════════════════════

func (a *Allocator) firstYear(r *run, in Input) {
	for _, group := range a.cfg.FirstYearGroups {
		members := r.firstYearMembers(group)
		if len(members) == 0 {
			continue
		}

		memberIDs := make(map[uint]bool, len(members))
		for _, m := range members {
			memberIDs[m.ID] = true
		}
		var prios []model.Priority
		for _, p := range in.Priorities {
			if memberIDs[p.SectionID] {
				prios = append(prios, p)
			}
		}

		var candidates []*model.Room
		if ranked := RankByPriority(prios); len(ranked) > 0 {
			for _, rs := range ranked {
				if room, ok := r.roomByID[rs.RoomID]; ok {
					candidates = append(candidates, room)
				}
			}
		} else {
			candidates = RoomsBySeatsDesc(r.rooms)
		}

		placed := false
		for _, room := range candidates {
			if r.tryGroup(room, members) {
				placed = true
				break
			}
		}
		if !placed {
			a.logger.Warn("一年级整组未找到可用教室",
				zap.String("course", group.Course),
				zap.String("suffix", group.SectionSuffix),
				zap.Int("members", len(members)),
			)
		}
	}
}

// firstYearMembers 该组的成员：班号后缀匹配，且为该专业第 1/2 学期必修
func (r *run) firstYearMembers(group config.FirstYearGroup) []*model.Section {
	var out []*model.Section
	for _, s := range r.sections {
		if !eligible(s) || !strings.HasSuffix(s.SectionCode, group.SectionSuffix) {
			continue
		}
		if !firstYearMandatory(s, group.Course) {
			continue
		}
		if !group.IncludeSaturday && hasSaturday(s) {
			continue
		}
		out = append(out, s)
	}
	return out
}

func firstYearMandatory(s *model.Section, course string) bool {
	for _, ci := range s.CourseInformations {
		if ci.CourseCode == course && ci.Obligation == model.ObligationMandatory && (ci.Semester == 1 || ci.Semester == 2) {
			return true
		}
	}
	return false
}

func hasSaturday(s *model.Section) bool {
	for _, slot := range s.ScheduleSlots {
		if slot.DayOfWeek == 6 {
			return true
		}
	}
	return false
}

// tryGroup 全组同时兼容才分配，否则撤销试探占用
func (r *run) tryGroup(room *model.Room, members []*model.Section) bool {
	booked := make([]*model.Section, 0, len(members))
	for _, m := range members {
		if !r.checker.IsCompatible(room, m, Options{}) {
			for _, b := range booked {
				r.checker.Release(room.ID, b.ID)
			}
			return false
		}
		// 组内班级之间也不能冲突
		r.checker.Book(room.ID, m)
		booked = append(booked, m)
	}
	for _, m := range booked {
		r.checker.Release(room.ID, m.ID)
		r.assign(m, room)
	}
	return true
}

// ════════════════════════════════════════════════════════════
// 阶段二：按优先级
// ════════════════════════════════════════════════════════════

func (a *Allocator) byPriority(r *run, in Input) {
	exempt := make(map[string]bool, len(a.cfg.ExemptDisciplines))
	for _, code := range a.cfg.ExemptDisciplines {
		exempt[code] = true
	}

	prios := append([]model.Priority(nil), in.Priorities...)
	SortPriorities(prios)

	for _, p := range prios {
		s, ok := r.byID[p.SectionID]
		if !ok || !eligible(s) || exempt[s.DisciplineCode] {
			continue
		}
		room, ok := r.roomByID[p.RoomID]
		if !ok {
			continue
		}
		if r.checker.IsCompatible(room, s, Options{}) {
			r.assign(s, room)
		}
	}
}

// ════════════════════════════════════════════════════════════
// 阶段三：研究生班级
// ════════════════════════════════════════════════════════════

func (a *Allocator) graduate(r *run, in Input) {
	// 以学期 ID 为种子，分散负载且结果可复现
	rng := rand.New(rand.NewSource(int64(in.TermID)))
	for _, s := range r.sections {
		if s.SectionType != model.SectionTypeGraduate || !eligible(s) {
			continue
		}
		for _, room := range ShuffleRooms(r.rooms, rng) {
			if r.checker.IsCompatible(room, s, Options{}) {
				r.assign(s, room)
				break
			}
		}
	}
}

// ════════════════════════════════════════════════════════════
// 阶段四：本科班级按人数从小到大
// ════════════════════════════════════════════════════════════

func (a *Allocator) undergraduate(r *run, _ Input) {
	var pending []*model.Section
	for _, s := range r.sections {
		if s.SectionType == model.SectionTypeUndergraduate && s.EnrollmentCapacity != nil && eligible(s) {
			pending = append(pending, s)
		}
	}
	sort.SliceStable(pending, func(i, j int) bool {
		ci, cj := *pending[i].EnrollmentCapacity, *pending[j].EnrollmentCapacity
		if ci != cj {
			return ci < cj
		}
		return pending[i].ID < pending[j].ID
	})

	rooms := RoomsBySeatsAsc(r.rooms)
	for _, s := range pending {
		for _, room := range rooms {
			if r.checker.IsCompatible(room, s, Options{}) {
				r.assign(s, room)
				break
			}
		}
	}
}

// [自证通过] internal/allocation/allocator.go
