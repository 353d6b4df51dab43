// Package repository 定义了与数据库进行数据交换的接口和实现。
package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"omnidocs-go/internal/model"
)

// RangeMark 是 Redis 中记录的一个已接受分片区间。
// 用于进程重启后的会话恢复与幂等重传判定的快速路径。
type RangeMark struct {
	Start  int64
	End    int64
	Digest string
}

// SessionRepository 接口定义了上传会话相关的数据持久化操作。
type SessionRepository interface {
	// UploadSession operations (GORM)
	CreateSession(session *model.UploadSession) error
	GetSession(sessionID string) (*model.UploadSession, error)
	SaveSession(session *model.UploadSession) error
	ListOverdueSessions(now time.Time, limit int) ([]model.UploadSession, error)
	SumActiveReservations(tenantID uint) (int64, error)

	// ChunkRange operations (GORM)
	CreateChunkRange(record *model.ChunkRange) error
	GetChunkRanges(sessionID string) ([]model.ChunkRange, error)
	DeleteChunkRanges(sessionID string) error

	// Range mark operations (Redis)
	MarkRange(ctx context.Context, sessionID string, mark RangeMark) error
	GetRangeMarks(ctx context.Context, sessionID string) ([]RangeMark, error)
	DeleteRangeMarks(ctx context.Context, sessionID string) error
}

// sessionRepository 是 SessionRepository 接口的 GORM+Redis 实现。
type sessionRepository struct {
	db          *gorm.DB
	redisClient *redis.Client
}

// NewSessionRepository 创建一个新的 SessionRepository 实例。
func NewSessionRepository(db *gorm.DB, redisClient *redis.Client) SessionRepository {
	return &sessionRepository{db: db, redisClient: redisClient}
}

// rangeKey 生成会话区间标记的 Redis key。
func (r *sessionRepository) rangeKey(sessionID string) string {
	return "upload:ranges:" + sessionID
}

// CreateSession 在数据库中创建一条新的上传会话记录。
func (r *sessionRepository) CreateSession(session *model.UploadSession) error {
	return r.db.Create(session).Error
}

// GetSession 根据会话标识检索上传会话。
func (r *sessionRepository) GetSession(sessionID string) (*model.UploadSession, error) {
	var session model.UploadSession
	err := r.db.Where("session_id = ?", sessionID).First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// SaveSession 持久化会话的最新状态。
func (r *sessionRepository) SaveSession(session *model.UploadSession) error {
	return r.db.Save(session).Error
}

// ListOverdueSessions 查找已超过截止时间且仍处于 pending/receiving 的会话。
func (r *sessionRepository) ListOverdueSessions(now time.Time, limit int) ([]model.UploadSession, error) {
	var sessions []model.UploadSession
	q := r.db.Where("expires_at < ? AND status IN ?", now,
		[]model.SessionStatus{model.SessionPending, model.SessionReceiving})
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&sessions).Error
	return sessions, err
}

// SumActiveReservations 统计租户在途会话（pending/receiving/assembling）声明的总字节数。
// 配额台账在首次加载租户计数时据此恢复重启前的预留。
func (r *sessionRepository) SumActiveReservations(tenantID uint) (int64, error) {
	var total int64
	err := r.db.Model(&model.UploadSession{}).
		Where("tenant_id = ? AND status IN ?", tenantID,
			[]model.SessionStatus{model.SessionPending, model.SessionReceiving, model.SessionAssembling}).
		Select("COALESCE(SUM(total_size), 0)").
		Scan(&total).Error
	return total, err
}

// CreateChunkRange 在数据库中创建一条分片区间记录。
func (r *sessionRepository) CreateChunkRange(record *model.ChunkRange) error {
	return r.db.Create(record).Error
}

// GetChunkRanges 获取指定会话的所有分片区间，按起始偏移量升序。
func (r *sessionRepository) GetChunkRanges(sessionID string) ([]model.ChunkRange, error) {
	var ranges []model.ChunkRange
	err := r.db.Where("session_id = ?", sessionID).Order("start_offset asc").Find(&ranges).Error
	return ranges, err
}

// DeleteChunkRanges 删除指定会话的全部分片区间记录。
func (r *sessionRepository) DeleteChunkRanges(sessionID string) error {
	return r.db.Where("session_id = ?", sessionID).Delete(&model.ChunkRange{}).Error
}

// MarkRange 在 Redis 中记录一个已接受的分片区间。
func (r *sessionRepository) MarkRange(ctx context.Context, sessionID string, mark RangeMark) error {
	field := strconv.FormatInt(mark.Start, 10)
	value := fmt.Sprintf("%d:%s", mark.End, mark.Digest)
	return r.redisClient.HSet(ctx, r.rangeKey(sessionID), field, value).Err()
}

// GetRangeMarks 从 Redis 读取会话已接受的全部区间标记。
func (r *sessionRepository) GetRangeMarks(ctx context.Context, sessionID string) ([]RangeMark, error) {
	fields, err := r.redisClient.HGetAll(ctx, r.rangeKey(sessionID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	marks := make([]RangeMark, 0, len(fields))
	for startStr, value := range fields {
		start, err := strconv.ParseInt(startStr, 10, 64)
		if err != nil {
			continue // 脏数据跳过，不影响其余区间
		}
		endStr, digest, ok := strings.Cut(value, ":")
		if !ok {
			continue
		}
		end, err := strconv.ParseInt(endStr, 10, 64)
		if err != nil {
			continue
		}
		marks = append(marks, RangeMark{Start: start, End: end, Digest: digest})
	}
	return marks, nil
}

// DeleteRangeMarks 清理会话在 Redis 中的区间标记。
func (r *sessionRepository) DeleteRangeMarks(ctx context.Context, sessionID string) error {
	return r.redisClient.Del(ctx, r.rangeKey(sessionID)).Err()
}
