package session

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"omnidocs-go/internal/chunkstore"
	"omnidocs-go/internal/config"
	"omnidocs-go/internal/model"
	"omnidocs-go/internal/quota"
	"omnidocs-go/internal/repository"
	"omnidocs-go/internal/uperr"
	"omnidocs-go/pkg/log"
)

// DocumentSink 是装配成功后创建文档记录的外部协作方。
// 返回的文档标识会随完成覆盖的那次分片提交一并返回给客户端。
type DocumentSink interface {
	CreateDocument(ctx context.Context, sess *model.UploadSession, contentHash, storagePath string) (uint, error)
}

// FileDecl 是批量初始化中单个文件的声明。
type FileDecl struct {
	Filename    string
	TotalSize   int64
	ChunkSize   int64
	ContentHash string
}

// ChunkResult 是一次分片提交后的会话进度快照。
type ChunkResult struct {
	SessionID     string
	Status        model.SessionStatus
	BytesReceived int64
	TotalSize     int64
	Progress      float64
	DocumentID    *uint
}

// entry 是单个会话的内存态。sess 与 ranges 的所有读写都在 mu 保护下进行，
// 以此保证完成检测不会在并发分片提交之间竞争。
// inflight 统计已登记区间但尚未确认落盘的写入，终态回收前必须先排空。
type entry struct {
	mu       sync.Mutex
	hydrated bool
	sess     *model.UploadSession
	ranges   *rangeSet
	pending  int // 已登记区间但尚未确认落盘的写入数
	inflight sync.WaitGroup
}

// Machine 是上传会话状态机，会话状态的唯一合法修改入口。
type Machine struct {
	uploadCfg config.UploadConfig
	ledger    *quota.Ledger
	chunks    chunkstore.Store
	artifacts ArtifactStore
	asm       *assembler
	repo      repository.SessionRepository
	sink      DocumentSink

	mu      sync.Mutex
	entries map[string]*entry

	nowFn func() time.Time
}

// NewMachine 创建上传会话状态机。
func NewMachine(
	uploadCfg config.UploadConfig,
	ledger *quota.Ledger,
	chunks chunkstore.Store,
	artifacts ArtifactStore,
	repo repository.SessionRepository,
	sink DocumentSink,
) *Machine {
	return &Machine{
		uploadCfg: uploadCfg,
		ledger:    ledger,
		chunks:    chunks,
		artifacts: artifacts,
		asm:       &assembler{chunks: chunks, artifacts: artifacts},
		repo:      repo,
		sink:      sink,
		entries:   make(map[string]*entry),
		nowFn:     time.Now,
	}
}

// Init 校验声明、预留配额并创建一个 pending 会话。
func (m *Machine) Init(ctx context.Context, tenantID, userID uint, filename string, totalSize, chunkSize int64, contentHash string) (*model.UploadSession, error) {
	if err := m.validateDeclaration(filename, totalSize, chunkSize, contentHash); err != nil {
		return nil, err
	}
	if err := m.ledger.Reserve(tenantID, totalSize); err != nil {
		return nil, err
	}

	sess, err := m.createReserved(tenantID, userID, filename, totalSize, chunkSize, contentHash)
	if err != nil {
		_ = m.ledger.Release(tenantID, totalSize, false)
		return nil, err
	}
	log.Infof("[Init] 会话创建成功, session=%s, tenant=%d, totalSize=%d, chunkSize=%d",
		sess.SessionID, tenantID, totalSize, chunkSize)
	return sess, nil
}

// InitBatch 对一批文件声明执行一次总量预留后逐个创建会话。
// 配额不足时整批拒绝；任一会话创建失败时整批回滚。
func (m *Machine) InitBatch(ctx context.Context, tenantID, userID uint, files []FileDecl) ([]*model.UploadSession, error) {
	if len(files) == 0 {
		return nil, uperr.Wrapf(uperr.ErrValidation, "批量声明为空")
	}
	if len(files) > m.uploadCfg.MaxBatchFiles {
		return nil, uperr.Wrapf(uperr.ErrValidation, "批量文件数 %d 超过上限 %d", len(files), m.uploadCfg.MaxBatchFiles)
	}
	sizes := make([]int64, 0, len(files))
	for _, f := range files {
		if err := m.validateDeclaration(f.Filename, f.TotalSize, f.ChunkSize, f.ContentHash); err != nil {
			return nil, err
		}
		sizes = append(sizes, f.TotalSize)
	}

	if err := m.ledger.ReserveBatch(tenantID, sizes); err != nil {
		return nil, err
	}

	created := make([]*model.UploadSession, 0, len(files))
	for i, f := range files {
		sess, err := m.createReserved(tenantID, userID, f.Filename, f.TotalSize, f.ChunkSize, f.ContentHash)
		if err != nil {
			// 归还当前及后续文件尚未绑定会话的预留，再取消已创建的会话。
			var rest int64
			for _, size := range sizes[i:] {
				rest += size
			}
			_ = m.ledger.Release(tenantID, rest, false)
			for _, s := range created {
				if cerr := m.Cancel(ctx, s.SessionID); cerr != nil {
					log.Warnf("[InitBatch] 回滚会话 %s 失败: %v", s.SessionID, cerr)
				}
			}
			return nil, err
		}
		created = append(created, sess)
	}
	log.Infof("[InitBatch] 批量会话创建成功, tenant=%d, files=%d", tenantID, len(created))
	return created, nil
}

// createReserved 在配额已预留的前提下落库并登记会话。
func (m *Machine) createReserved(tenantID, userID uint, filename string, totalSize, chunkSize int64, contentHash string) (*model.UploadSession, error) {
	now := m.nowFn()
	sess := &model.UploadSession{
		SessionID:   uuid.NewString(),
		TenantID:    tenantID,
		UserID:      userID,
		Filename:    filename,
		TotalSize:   totalSize,
		ChunkSize:   chunkSize,
		ContentHash: strings.ToLower(contentHash),
		Status:      model.SessionPending,
		CreatedAt:   now,
		ExpiresAt:   now.Add(m.uploadCfg.SessionTTL()),
	}
	if err := m.repo.CreateSession(sess); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.entries[sess.SessionID] = &entry{hydrated: true, sess: sess, ranges: newRangeSet()}
	m.mu.Unlock()
	return sess, nil
}

// validateDeclaration 校验初始化声明的各项参数。
func (m *Machine) validateDeclaration(filename string, totalSize, chunkSize int64, contentHash string) error {
	if filename == "" || strings.ContainsAny(filename, "/\\") || strings.Contains(filename, "..") {
		return uperr.Wrapf(uperr.ErrValidation, "文件名 %q 不合法", filename)
	}
	ext := strings.ToLower(filepath.Ext(filename))
	allowed := false
	for _, a := range m.uploadCfg.AllowedExtensions {
		if ext == a {
			allowed = true
			break
		}
	}
	if !allowed {
		return uperr.Wrapf(uperr.ErrValidation, "不支持的文件类型 %q", ext)
	}
	if totalSize <= 0 || totalSize > m.uploadCfg.MaxTotalSize {
		return uperr.Wrapf(uperr.ErrValidation, "声明总大小 %d 超出允许范围 (0, %d]", totalSize, m.uploadCfg.MaxTotalSize)
	}
	if chunkSize <= 0 || chunkSize > m.uploadCfg.MaxChunkSize {
		return uperr.Wrapf(uperr.ErrValidation, "声明分片大小 %d 超出允许范围 (0, %d]", chunkSize, m.uploadCfg.MaxChunkSize)
	}
	// 小文件允许单片等于总大小，否则分片不得小于下限。
	if chunkSize < m.uploadCfg.MinChunkSize && chunkSize < totalSize {
		return uperr.Wrapf(uperr.ErrValidation, "声明分片大小 %d 低于下限 %d", chunkSize, m.uploadCfg.MinChunkSize)
	}
	if contentHash != "" {
		if len(contentHash) != 64 {
			return uperr.Wrapf(uperr.ErrValidation, "内容摘要长度应为 64 位十六进制")
		}
		if _, err := hex.DecodeString(contentHash); err != nil {
			return uperr.Wrapf(uperr.ErrValidation, "内容摘要不是合法的十六进制串")
		}
	}
	return nil
}

// entry 返回会话的内存态，必要时创建占位项。
func (m *Machine) entry(sessionID string) *entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[sessionID]
	if !ok {
		e = &entry{ranges: newRangeSet()}
		m.entries[sessionID] = e
	}
	return e
}

// dropEntry 移除占位项，用于不存在的会话标识。
func (m *Machine) dropEntry(sessionID string, e *entry) {
	m.mu.Lock()
	if cur, ok := m.entries[sessionID]; ok && cur == e {
		delete(m.entries, sessionID)
	}
	m.mu.Unlock()
}

// hydrateLocked 在持有 e.mu 的前提下从持久层恢复会话内存态。
// 进程重启后首次触达某会话时据此重建区间集合与进度。
func (m *Machine) hydrateLocked(e *entry, sessionID string) error {
	if e.hydrated {
		return nil
	}
	sess, err := m.repo.GetSession(sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return uperr.Wrapf(uperr.ErrSessionNotFound, "会话 %s 不存在", sessionID)
		}
		return err
	}
	ranges, err := m.repo.GetChunkRanges(sessionID)
	if err != nil {
		return err
	}
	rs := newRangeSet()
	for _, r := range ranges {
		rs.insert(r.StartOffset, r.EndOffset, r.Digest)
	}
	e.sess = sess
	e.ranges = rs
	e.hydrated = true
	return nil
}

// snapshotLocked 在持有 e.mu 的前提下生成进度快照。
func snapshotLocked(e *entry) *ChunkResult {
	res := &ChunkResult{
		SessionID:     e.sess.SessionID,
		Status:        e.sess.Status,
		BytesReceived: e.sess.BytesReceived,
		TotalSize:     e.sess.TotalSize,
		Progress:      e.sess.Progress(),
	}
	if e.sess.DocumentID != nil {
		id := *e.sess.DocumentID
		res.DocumentID = &id
	}
	return res
}

// AcceptChunk 处理一次分片提交。区间登记与完成检测在会话锁内串行完成，
// 分片字节的落盘在锁外进行；覆盖达到声明总大小的那次提交同步触发装配。
func (m *Machine) AcceptChunk(ctx context.Context, sessionID string, start, end int64, payload io.Reader) (*ChunkResult, error) {
	e := m.entry(sessionID)

	e.mu.Lock()
	if err := m.hydrateLocked(e, sessionID); err != nil {
		e.mu.Unlock()
		if errors.Is(err, uperr.ErrSessionNotFound) {
			m.dropEntry(sessionID, e)
		}
		return nil, err
	}
	if err := m.writableLocked(e); err != nil {
		e.mu.Unlock()
		return nil, err
	}
	if start < 0 || end < start || end >= e.sess.TotalSize {
		e.mu.Unlock()
		return nil, uperr.Wrapf(uperr.ErrInvalidRange,
			"区间 [%d,%d] 超出 [0,%d)", start, end, e.sess.TotalSize)
	}
	e.mu.Unlock()

	// 负载读取与摘要计算不占用会话锁。
	data, err := io.ReadAll(payload)
	if err != nil {
		return nil, uperr.Wrapf(uperr.ErrInvalidRange, "读取分片负载失败: %v", err)
	}
	if int64(len(data)) != end-start+1 {
		return nil, uperr.Wrapf(uperr.ErrInvalidRange,
			"负载长度 %d 与声明区间长度 %d 不符", len(data), end-start+1)
	}
	sum := sha256.Sum256(data)
	digest := hex.EncodeToString(sum[:])

	e.mu.Lock()
	// 读取负载期间会话可能已被取消或过期，重新确认可写。
	if err := m.writableLocked(e); err != nil {
		e.mu.Unlock()
		return nil, err
	}
	switch e.ranges.insert(start, end, digest) {
	case rangeDuplicate:
		// 相同区间相同内容的重传是无副作用的幂等操作。
		res := snapshotLocked(e)
		e.mu.Unlock()
		return res, nil
	case rangeConflict:
		e.mu.Unlock()
		return nil, uperr.Wrapf(uperr.ErrRangeConflict,
			"区间 [%d,%d] 与既有提交冲突", start, end)
	}
	e.pending++
	e.inflight.Add(1)
	e.mu.Unlock()

	path, putErr := m.chunks.Put(ctx, sessionID, start, end, bytes.NewReader(data))
	if putErr == nil {
		putErr = m.repo.CreateChunkRange(&model.ChunkRange{
			SessionID:   sessionID,
			StartOffset: start,
			EndOffset:   end,
			Digest:      digest,
			StoragePath: path,
		})
	}

	e.mu.Lock()
	e.pending--
	e.inflight.Done()
	if putErr != nil {
		// 写入未被确认，撤销区间登记，会话状态保持不变。
		e.ranges.remove(start)
		e.mu.Unlock()
		return nil, putErr
	}
	if e.sess.Status.Terminal() {
		// 取消或过期后才完成的在途写入不计入进度，残留分片由排空后的回收处理。
		status := e.sess.Status
		e.mu.Unlock()
		if status == model.SessionExpired {
			return nil, uperr.ErrSessionExpired
		}
		return nil, uperr.Wrapf(uperr.ErrSessionClosed, "会话 %s 已为 %s", sessionID, status)
	}

	if err := m.repo.MarkRange(ctx, sessionID, repository.RangeMark{Start: start, End: end, Digest: digest}); err != nil {
		log.Warnf("[AcceptChunk] 写入 Redis 区间标记失败, session=%s: %v", sessionID, err)
	}

	e.sess.BytesReceived += int64(len(data))
	if e.sess.Status == model.SessionPending {
		e.sess.Status = model.SessionReceiving
	}
	// 完成判定要求全部已登记区间都确认落盘：覆盖计数在登记时即增加，
	// 仅凭 coveredBytes 达到总量不能保证并发写入都已就绪。
	completed := e.ranges.complete(e.sess.TotalSize) && e.pending == 0
	if completed {
		e.sess.Status = model.SessionAssembling
	}
	if err := m.repo.SaveSession(e.sess); err != nil {
		log.Errorf("[AcceptChunk] 持久化会话进度失败, session=%s: %v", sessionID, err)
	}
	res := snapshotLocked(e)
	e.mu.Unlock()

	log.Infof("[AcceptChunk] 分片接受, session=%s, range=[%d,%d], received=%d/%d",
		sessionID, start, end, res.BytesReceived, res.TotalSize)

	if !completed {
		return res, nil
	}

	docID, err := m.finalize(ctx, e)
	if err != nil {
		return nil, err
	}
	res.Status = model.SessionComplete
	res.DocumentID = &docID
	return res, nil
}

// writableLocked 校验会话当前是否仍接受分片写入。
func (m *Machine) writableLocked(e *entry) error {
	switch e.sess.Status {
	case model.SessionExpired:
		return uperr.ErrSessionExpired
	case model.SessionPending, model.SessionReceiving:
		// fallthrough to deadline check
	default:
		return uperr.Wrapf(uperr.ErrSessionClosed, "会话 %s 当前状态为 %s", e.sess.SessionID, e.sess.Status)
	}
	if m.nowFn().After(e.sess.ExpiresAt) {
		// 这里只拒绝写入，状态迁移由清扫器统一负责。
		return uperr.ErrSessionExpired
	}
	return nil
}

// finalize 执行装配与完整性校验。锁只用于状态迁移本身，流式 I/O 在锁外进行。
func (m *Machine) finalize(ctx context.Context, e *entry) (uint, error) {
	e.mu.Lock()
	sess := *e.sess
	ranges := e.ranges.ordered()
	e.mu.Unlock()

	objectName := fmt.Sprintf("merged/%s/%s", sess.SessionID, sess.Filename)
	log.Infof("[finalize] 开始装配, session=%s, ranges=%d, object=%s", sess.SessionID, len(ranges), objectName)

	digest, written, err := m.asm.assemble(ctx, sess.SessionID, objectName, ranges, sess.TotalSize)
	if err == nil && written != sess.TotalSize {
		err = uperr.Wrapf(uperr.ErrIncompleteAssembly,
			"装配产物长度 %d 与声明 %d 不符", written, sess.TotalSize)
		_ = m.artifacts.RemoveObject(ctx, objectName)
	}
	if err == nil && sess.ContentHash != "" && !strings.EqualFold(digest, sess.ContentHash) {
		err = uperr.Wrapf(uperr.ErrIntegrityMismatch,
			"装配产物摘要与客户端声明不符 (got=%s)", digest)
		_ = m.artifacts.RemoveObject(ctx, objectName)
	}

	var docID uint
	if err == nil {
		docID, err = m.sink.CreateDocument(ctx, &sess, digest, objectName)
		if err != nil {
			_ = m.artifacts.RemoveObject(ctx, objectName)
		}
	}

	if err != nil {
		log.Errorf("[finalize] 装配失败, session=%s: %v", sess.SessionID, err)
		e.mu.Lock()
		e.sess.Status = model.SessionFailed
		if serr := m.repo.SaveSession(e.sess); serr != nil {
			log.Errorf("[finalize] 持久化失败状态失败, session=%s: %v", sess.SessionID, serr)
		}
		e.mu.Unlock()
		m.releaseAndReclaim(sess.SessionID, e, sess.TenantID, sess.TotalSize, false)
		return 0, err
	}

	// 预留转为永久用量，会话进入终态 complete。
	if lerr := m.ledger.Release(sess.TenantID, sess.TotalSize, true); lerr != nil {
		log.Errorf("[finalize] 配额转换持久化失败, tenant=%d: %v", sess.TenantID, lerr)
	}
	e.mu.Lock()
	e.sess.Status = model.SessionComplete
	e.sess.DocumentID = &docID
	if serr := m.repo.SaveSession(e.sess); serr != nil {
		log.Errorf("[finalize] 持久化完成状态失败, session=%s: %v", sess.SessionID, serr)
	}
	e.mu.Unlock()

	go m.reclaim(context.Background(), sess.SessionID, e)

	log.Infof("[finalize] 装配完成, session=%s, document=%d, digest=%s", sess.SessionID, docID, digest)
	return docID, nil
}

// releaseAndReclaim 在终态迁移落库后释放配额预留并异步回收分片暂存。
// 只能由完成了该次迁移的调用方调用一次，迁移本身的互斥由 e.mu 保证。
func (m *Machine) releaseAndReclaim(sessionID string, e *entry, tenantID uint, totalSize int64, converted bool) {
	if err := m.ledger.Release(tenantID, totalSize, converted); err != nil {
		log.Errorf("[transition] 释放配额失败, tenant=%d, session=%s: %v", tenantID, sessionID, err)
	}
	go m.reclaim(context.Background(), sessionID, e)
}

// Cancel 取消一个尚未进入装配的会话：释放预留、排空在途写入后回收分片。
// 守卫检查与终态迁移在同一个临界区内完成，并发的取消或过期只有一方能生效，
// 预留因此恰好释放一次。
func (m *Machine) Cancel(ctx context.Context, sessionID string) error {
	e := m.entry(sessionID)
	e.mu.Lock()
	if err := m.hydrateLocked(e, sessionID); err != nil {
		e.mu.Unlock()
		if errors.Is(err, uperr.ErrSessionNotFound) {
			m.dropEntry(sessionID, e)
		}
		return err
	}
	switch e.sess.Status {
	case model.SessionPending, model.SessionReceiving:
	default:
		status := e.sess.Status
		e.mu.Unlock()
		return uperr.Wrapf(uperr.ErrSessionClosed, "会话 %s 当前状态 %s 不允许取消", sessionID, status)
	}
	prev := e.sess.Status
	e.sess.Status = model.SessionCancelled
	tenantID := e.sess.TenantID
	totalSize := e.sess.TotalSize
	if err := m.repo.SaveSession(e.sess); err != nil {
		// 持久化失败时回退内存状态，取消未生效。
		e.sess.Status = prev
		e.mu.Unlock()
		return err
	}
	e.mu.Unlock()

	m.releaseAndReclaim(sessionID, e, tenantID, totalSize, false)
	log.Infof("[Cancel] 会话已取消, session=%s", sessionID)
	return nil
}

// Status 返回会话当前进度，无副作用。
// 终态会话的内存态用完即弃，查询不会让历史会话重新占住会话表。
func (m *Machine) Status(sessionID string) (*model.UploadSession, error) {
	e := m.entry(sessionID)
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := m.hydrateLocked(e, sessionID); err != nil {
		if errors.Is(err, uperr.ErrSessionNotFound) {
			m.dropEntry(sessionID, e)
		}
		return nil, err
	}
	snapshot := *e.sess
	if snapshot.Status.Terminal() {
		m.dropEntry(sessionID, e)
	}
	return &snapshot, nil
}

// ReceivedRanges 返回会话已接受的区间，供客户端决定还需续传哪些字节。
// 优先读取 Redis 标记的快路径，标记缺失或读取失败时回退到数据库区间记录。
func (m *Machine) ReceivedRanges(ctx context.Context, sessionID string) ([]repository.RangeMark, error) {
	marks, err := m.repo.GetRangeMarks(ctx, sessionID)
	if err == nil && len(marks) > 0 {
		sort.Slice(marks, func(i, j int) bool { return marks[i].Start < marks[j].Start })
		return marks, nil
	}

	ranges, derr := m.repo.GetChunkRanges(sessionID)
	if derr != nil {
		return nil, derr
	}
	out := make([]repository.RangeMark, 0, len(ranges))
	for _, r := range ranges {
		out = append(out, repository.RangeMark{Start: r.StartOffset, End: r.EndOffset, Digest: r.Digest})
	}
	return out, nil
}

// ExpireOverdue 将截止时间早于 now 的 pending/receiving 会话迁入 expired。
// 对单个会话的失败只记录日志，不影响批次内其余会话。返回成功过期的数量。
func (m *Machine) ExpireOverdue(ctx context.Context, now time.Time) (int, error) {
	sessions, err := m.repo.ListOverdueSessions(now, 0)
	if err != nil {
		return 0, err
	}

	expired := 0
	for i := range sessions {
		if err := m.expireOne(ctx, sessions[i].SessionID); err != nil {
			log.Warnf("[ExpireOverdue] 过期会话 %s 清理失败，将在下一轮重试: %v", sessions[i].SessionID, err)
			continue
		}
		expired++
	}
	return expired, nil
}

// expireOne 将单个会话迁入 expired。已被其他清扫轮次处理过的会话直接跳过，
// 保证并发清扫不会重复释放配额。
func (m *Machine) expireOne(ctx context.Context, sessionID string) error {
	e := m.entry(sessionID)
	e.mu.Lock()
	if err := m.hydrateLocked(e, sessionID); err != nil {
		e.mu.Unlock()
		return err
	}
	switch e.sess.Status {
	case model.SessionPending, model.SessionReceiving:
	default:
		e.mu.Unlock()
		return nil
	}
	e.sess.Status = model.SessionExpired
	tenantID := e.sess.TenantID
	totalSize := e.sess.TotalSize
	if err := m.repo.SaveSession(e.sess); err != nil {
		// 持久化失败时回退内存状态，下一轮清扫重新处理。
		e.sess.Status = model.SessionReceiving
		e.mu.Unlock()
		return err
	}
	e.mu.Unlock()

	if err := m.ledger.Release(tenantID, totalSize, false); err != nil {
		log.Errorf("[expireOne] 释放配额失败, tenant=%d, session=%s: %v", tenantID, sessionID, err)
	}
	m.reclaim(ctx, sessionID, e)
	log.Infof("[expireOne] 会话已过期回收, session=%s", sessionID)
	return nil
}

// reclaim 在排空在途写入后回收会话的分片存储与登记信息，
// 最后把内存态从会话表中移除。终态会话的后续查询从持久层重新加载，
// 内存表因此不会随历史上传无限增长。
func (m *Machine) reclaim(ctx context.Context, sessionID string, e *entry) {
	e.inflight.Wait()
	if err := m.chunks.Discard(ctx, sessionID); err != nil {
		log.Warnf("[reclaim] 回收分片存储失败, session=%s: %v", sessionID, err)
	}
	if err := m.repo.DeleteChunkRanges(sessionID); err != nil {
		log.Warnf("[reclaim] 删除分片区间记录失败, session=%s: %v", sessionID, err)
	}
	if err := m.repo.DeleteRangeMarks(ctx, sessionID); err != nil {
		log.Warnf("[reclaim] 清理 Redis 区间标记失败, session=%s: %v", sessionID, err)
	}
	m.dropEntry(sessionID, e)
}
