package reservation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ime-usp-br/alocacao-sub001/config"
	"github.com/ime-usp-br/alocacao-sub001/internal/allocation"
	"github.com/ime-usp-br/alocacao-sub001/internal/model"
	"github.com/ime-usp-br/alocacao-sub001/internal/repository"
	"github.com/ime-usp-br/alocacao-sub001/pkg/metrics"
)

// 同步模式，启动前确定，运行中不会互相回退
const (
	ModeAPI    = "api"
	ModeLegacy = "legacy"
)

const defaultRollbackTimeout = 2 * time.Minute

// TermProvider 当前学期，每次任务只解析一次
type TermProvider interface {
	Current(ctx context.Context) (*model.Term, error)
}

// target 一个待同步的班级
type target struct {
	section *model.Section
	room    *model.Room
	req     *Request
}

// tracked 本次任务已在远端创建的预约
type tracked struct {
	ref       Ref
	sectionID uint
	mirrorID  uint
	settled   bool
}

// Synchronizer 预约同步
type Synchronizer struct {
	mode     string
	client   Client
	legacy   *LegacyStore
	terms    TermProvider
	repo     *repository.Repository
	namer    *RoomNamer
	loc      *time.Location
	reporter Reporter
	logger   *zap.Logger

	rollbackTimeout time.Duration
}

// NewSynchronizer 创建同步器
// api 模式需要 client，legacy 模式需要 legacy
func NewSynchronizer(
	cfg *config.ReservationConfig,
	repo *repository.Repository,
	terms TermProvider,
	client Client,
	legacy *LegacyStore,
	reporter Reporter,
	logger *zap.Logger,
) (*Synchronizer, error) {
	switch cfg.Mode {
	case ModeAPI:
		if client == nil {
			return nil, errors.New("api 模式缺少远端客户端")
		}
	case ModeLegacy:
		if legacy == nil {
			return nil, errors.New("legacy 模式缺少预约库连接")
		}
	default:
		return nil, fmt.Errorf("未知的同步模式: %q", cfg.Mode)
	}

	loc := time.UTC
	if cfg.Location != "" {
		l, err := time.LoadLocation(cfg.Location)
		if err != nil {
			return nil, fmt.Errorf("加载时区失败: %w", err)
		}
		loc = l
	}

	return &Synchronizer{
		mode:            cfg.Mode,
		client:          client,
		legacy:          legacy,
		terms:           terms,
		repo:            repo,
		namer:           NewRoomNamer(cfg.RoomNames, cfg.RoomNamePad),
		loc:             loc,
		reporter:        reporter,
		logger:          logger,
		rollbackTimeout: defaultRollbackTimeout,
	}, nil
}

// Mode 当前同步模式
func (s *Synchronizer) Mode() string { return s.mode }

// Health 检查预约写入端
func (s *Synchronizer) Health(ctx context.Context) error {
	if s.mode == ModeLegacy {
		return s.legacy.Ping(ctx)
	}
	return s.client.HealthCheck(ctx)
}

// ════════════════════════════════════════════════════════════
// Run
// ════════════════════════════════════════════════════════════

// Run 同步最新学期中分配到 roomIDs 的班级；roomIDs 为空表示所有教室
//
// api 模式分两阶段：先检查全部班级的可用性，全部通过后逐班创建。
// 创建失败先撤销该班级已建的预约，再撤销整个任务的预约，然后返回原错误。
// panic 与超时同样走整体撤销。
func (s *Synchronizer) Run(ctx context.Context, jobID string, roomIDs []uint) (err error) {
	var created []*tracked

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("预约同步 panic", zap.String("job_id", jobID), zap.Any("panic", r))
			err = &PanicError{Value: r}
		}
		if err != nil && len(created) > 0 {
			if rbErr := s.rollback(ctx, jobID, created); rbErr != nil {
				err = fmt.Errorf("%w; %w", err, rbErr)
			}
		}
	}()

	term, err := s.terms.Current(ctx)
	if err != nil {
		return err
	}

	targets, err := s.targets(ctx, jobID, term, roomIDs)
	if err != nil {
		return err
	}

	prog := newProgress(ctx, s.reporter, jobID, len(targets))
	if len(targets) == 0 {
		prog.finish("没有需要同步的班级")
		return nil
	}

	s.logger.Info("开始预约同步",
		zap.String("job_id", jobID),
		zap.String("mode", s.mode),
		zap.Uint("term_id", term.ID),
		zap.Int("sections", len(targets)),
	)

	if s.mode == ModeLegacy {
		if err := s.legacy.Write(ctx, jobID, targets, prog.step); err != nil {
			return err
		}
		prog.finish("预约已写入")
		return nil
	}

	// ── 阶段一：可用性检查（只读） ──
	for _, t := range targets {
		avail, err := s.client.CheckAvailability(ctx, t.req)
		if err != nil {
			return fmt.Errorf("检查 %s 可用性失败: %w", label(t.section), err)
		}
		if !avail.Available {
			return s.unavailable(t, avail.ConflictSlotID)
		}
		prog.step("已检查 " + label(t.section))
	}

	// ── 阶段二：逐班创建 ──
	for _, t := range targets {
		refs, createErr := s.client.CreateReservations(ctx, t.req)

		var own []*tracked
		for _, ref := range refs {
			tr := s.record(ctx, jobID, t, ref)
			own = append(own, tr)
			created = append(created, tr)
		}

		if createErr != nil {
			s.logger.Error("创建预约失败，撤销该班级已建预约",
				zap.String("job_id", jobID),
				zap.Uint("section_id", t.section.ID),
				zap.Int("created", len(own)),
				zap.Error(createErr),
			)
			if rbErr := s.rollback(ctx, jobID, own); rbErr != nil {
				createErr = fmt.Errorf("%w; %w", createErr, rbErr)
			}
			return fmt.Errorf("为 %s 创建预约失败: %w", label(t.section), createErr)
		}
		prog.step("已预约 " + label(t.section))
	}

	prog.finish("预约同步完成")
	return nil
}

// targets 解析待同步班级：非外部、已分配教室、非合班组跟随成员、有可预约时段
func (s *Synchronizer) targets(ctx context.Context, jobID string, term *model.Term, roomIDs []uint) ([]*target, error) {
	sections, err := s.repo.Section.ListByRooms(ctx, term.ID, roomIDs)
	if err != nil {
		return nil, fmt.Errorf("查询待同步班级失败: %w", err)
	}

	idSet := make(map[uint]bool)
	for _, sec := range sections {
		if sec.RoomID != nil {
			idSet[*sec.RoomID] = true
		}
	}
	ids := make([]uint, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}
	rooms, err := s.repo.Room.ListByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("查询教室失败: %w", err)
	}
	roomByID := make(map[uint]*model.Room, len(rooms))
	for i := range rooms {
		roomByID[rooms[i].ID] = &rooms[i]
	}

	var out []*target
	for i := range sections {
		sec := &sections[i]
		if sec.IsExternal || sec.RoomID == nil {
			continue
		}
		if sec.IsFusionMember() && !sec.IsFusionMaster() {
			continue
		}
		room, ok := roomByID[*sec.RoomID]
		if !ok {
			continue
		}
		req := s.buildRequest(jobID, term, sec, room)
		if len(req.Slots) == 0 {
			continue
		}
		out = append(out, &target{section: sec, room: room, req: req})
	}
	return out, nil
}

func (s *Synchronizer) buildRequest(jobID string, term *model.Term, sec *model.Section, room *model.Room) *Request {
	roomName := s.namer.Translate(room.Name)
	title := fmt.Sprintf("%s - %s", sec.DisciplineCode, sec.DisciplineName)

	names := make([]string, 0, len(sec.Instructors))
	for _, in := range sec.Instructors {
		names = append(names, in.Name)
	}
	desc := "Turma " + sec.SectionCode
	if len(names) > 0 {
		desc += " | " + strings.Join(names, ", ")
	}

	req := &Request{SectionID: sec.ID, Title: title, Description: desc, Room: roomName}
	for _, slot := range sec.ScheduleSlots {
		iv := allocation.FromSlot(slot)
		if !iv.Operational() {
			continue
		}
		occ, err := FirstOccurrence(iv, term.StartDate, term.ReservationDeadline, s.loc)
		if err != nil {
			s.logger.Warn("时段在预约期内没有上课，跳过", zap.Uint("slot_id", slot.ID), zap.Error(err))
			continue
		}
		key := fmt.Sprintf("%s-%d", jobID, slot.ID)
		req.Slots = append(req.Slots, SlotRequest{
			SlotID:         slot.ID,
			DayOfWeek:      slot.DayOfWeek,
			StartTime:      slot.StartTime,
			EndTime:        slot.EndTime,
			FirstStart:     occ.Start,
			FirstEnd:       occ.End,
			Until:          occ.Until,
			Recurrence:     BuildRecurrence(key+"@alocacao", title, roomName, occ),
			IdempotencyKey: key,
		})
	}
	return req
}

func (s *Synchronizer) unavailable(t *target, slotID uint) error {
	slot := t.section.ScheduleSlots[0]
	for _, sl := range t.section.ScheduleSlots {
		if sl.ID == slotID {
			slot = sl
			break
		}
	}
	return &UnavailableError{
		SectionID: t.section.ID,
		Section:   label(t.section),
		Room:      t.room.Name,
		Slot:      allocation.FromSlot(slot),
	}
}

// record 写入本地镜像；镜像写失败不影响回滚，远端引用仍被跟踪
func (s *Synchronizer) record(ctx context.Context, jobID string, t *target, ref Ref) *tracked {
	tr := &tracked{ref: ref, sectionID: t.section.ID}
	row := &model.Reservation{
		SectionID:      t.section.ID,
		ScheduleSlotID: ref.SlotID,
		RoomID:         t.room.ID,
		RemoteID:       ref.RemoteID,
		Status:         model.ReservationStatusCreated,
		JobID:          jobID,
	}
	wctx, cancel := s.detached(ctx)
	defer cancel()
	if err := s.repo.Reservation.Create(wctx, row); err != nil {
		s.logger.Error("写入预约镜像失败", zap.String("remote_id", ref.RemoteID), zap.Error(err))
		return tr
	}
	tr.mirrorID = row.ID
	return tr
}

// ════════════════════════════════════════════════════════════
// 回滚
// ════════════════════════════════════════════════════════════

// rollback 撤销尚未处理的预约
// 单条失败只记录并标记 rollback_failed，继续处理其余预约
func (s *Synchronizer) rollback(ctx context.Context, jobID string, items []*tracked) error {
	rctx, cancel := s.detached(ctx)
	defer cancel()

	failed := 0
	for _, tr := range items {
		if tr.settled {
			continue
		}
		tr.settled = true

		if err := s.client.CancelReservation(rctx, tr.ref); err != nil {
			failed++
			metrics.RollbackFailures.Inc()
			s.logger.Error("撤销预约失败",
				zap.String("job_id", jobID),
				zap.Uint("section_id", tr.sectionID),
				zap.String("remote_id", tr.ref.RemoteID),
				zap.Error(err),
			)
			if tr.mirrorID != 0 {
				if mErr := s.repo.Reservation.MarkRollbackFailed(rctx, tr.mirrorID); mErr != nil {
					s.logger.Error("标记回滚失败状态出错", zap.Uint("reservation_id", tr.mirrorID), zap.Error(mErr))
				}
			}
			continue
		}
		if tr.mirrorID != 0 {
			if err := s.repo.Reservation.Delete(rctx, tr.mirrorID); err != nil {
				s.logger.Error("删除预约镜像失败", zap.Uint("reservation_id", tr.mirrorID), zap.Error(err))
			}
		}
	}

	if failed > 0 {
		return fmt.Errorf("%w（%d 条）", ErrRollbackIncomplete, failed)
	}
	return nil
}

// detached 不受任务截止时间影响的上下文
func (s *Synchronizer) detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.rollbackTimeout)
}

func label(sec *model.Section) string {
	return sec.DisciplineCode + " " + sec.SectionCode
}

// [自证通过] internal/reservation/synchronizer.go
