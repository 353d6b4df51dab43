// Package pipeline 定义了文档后处理的核心流程。
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"omnidocs-go/internal/model"
	"omnidocs-go/internal/repository"
	"omnidocs-go/internal/segmenter"
	"omnidocs-go/internal/uperr"
	"omnidocs-go/pkg/log"
	"omnidocs-go/pkg/tasks"
)

// ObjectStore 提供装配产物的读取与删除，storage.Client 满足该接口。
type ObjectStore interface {
	GetObject(ctx context.Context, objectName string) (io.ReadCloser, error)
	RemoveObject(ctx context.Context, objectName string) error
}

// VirusScanner 执行病毒扫描，clamav.Scanner 满足该接口。
type VirusScanner interface {
	Scan(ctx context.Context, r io.Reader) error
}

// TextExtractor 执行文本提取，tika.Client 满足该接口。
type TextExtractor interface {
	ExtractText(ctx context.Context, r io.Reader, fileName string) (string, error)
}

// SegmentIndexer 维护分段的检索索引，es.Client 满足该接口。
type SegmentIndexer interface {
	IndexName() string
	IndexSegment(ctx context.Context, seg model.EsSegment) error
	DeleteByDocument(ctx context.Context, documentID uint) error
}

// EmbeddingProducer 投递分段向量化任务，kafka.Producer 满足该接口。
type EmbeddingProducer interface {
	ProduceEmbeddingTask(ctx context.Context, task tasks.EmbeddingTask) error
}

// Processor 封装了文档处理的所有依赖和逻辑。
type Processor struct {
	store    ObjectStore
	scanner  VirusScanner
	tika     TextExtractor
	engine   *segmenter.Engine
	docRepo  repository.DocumentRepository
	indexer  SegmentIndexer
	producer EmbeddingProducer
}

// NewProcessor 创建一个新的 Processor 实例。
func NewProcessor(
	store ObjectStore,
	scanner VirusScanner,
	tika TextExtractor,
	engine *segmenter.Engine,
	docRepo repository.DocumentRepository,
	indexer SegmentIndexer,
	producer EmbeddingProducer,
) *Processor {
	return &Processor{
		store:    store,
		scanner:  scanner,
		tika:     tika,
		engine:   engine,
		docRepo:  docRepo,
		indexer:  indexer,
		producer: producer,
	}
}

// Process 是文档处理的主函数：下载 -> 扫描 -> 提取 -> 分段 -> 落库 -> 索引 -> 向量化交接。
// 返回非 nil 错误表示可重试的失败；病毒命中是永久失败，标记文档后不再重试。
func (p *Processor) Process(ctx context.Context, task tasks.DocumentProcessingTask) error {
	log.Infof("[Processor] 开始处理文档, document=%d, file=%s", task.DocumentID, task.Filename)
	if err := p.docRepo.UpdateDocumentStatus(task.DocumentID, model.DocumentProcessing); err != nil {
		return fmt.Errorf("标记文档为处理中失败: %w", err)
	}

	// 1. 下载装配产物
	object, err := p.store.GetObject(ctx, task.StoragePath)
	if err != nil {
		return fmt.Errorf("下载装配产物失败: %w", err)
	}
	buf := new(bytes.Buffer)
	size, err := buf.ReadFrom(object)
	_ = object.Close()
	if err != nil {
		return fmt.Errorf("读取装配产物流失败: %w", err)
	}
	if size == 0 {
		log.Warnf("[Processor] 文档 %d 内容为空, 处理中止", task.DocumentID)
		return errors.New("装配产物内容为空")
	}
	log.Infof("[Processor] 步骤1: 产物下载成功, size=%d", size)

	// 2. 病毒扫描
	if err := p.scanner.Scan(ctx, bytes.NewReader(buf.Bytes())); err != nil {
		if errors.Is(err, uperr.ErrMalwareDetected) {
			// 永久失败：删除产物、标记文档，不再重试
			log.Errorf("[Processor] 文档 %d 命中病毒扫描: %v", task.DocumentID, err)
			if rerr := p.store.RemoveObject(ctx, task.StoragePath); rerr != nil {
				log.Warnf("[Processor] 删除命中产物失败, document=%d: %v", task.DocumentID, rerr)
			}
			p.markFailed(task.DocumentID)
			return nil
		}
		return fmt.Errorf("病毒扫描失败: %w", err)
	}
	log.Info("[Processor] 步骤2: 病毒扫描通过")

	// 3. 文本提取
	textContent, err := p.tika.ExtractText(ctx, bytes.NewReader(buf.Bytes()), task.Filename)
	if err != nil {
		return fmt.Errorf("提取文本失败: %w", err)
	}
	if textContent == "" {
		log.Warnf("[Processor] 文档 %d 提取文本为空, 处理中止", task.DocumentID)
		p.markFailed(task.DocumentID)
		return nil
	}
	log.Infof("[Processor] 步骤3: 文本提取成功, 长度 %d 字符", utf8.RuneCountInString(textContent))

	// 4. 文本分段
	pieces := p.engine.Segment(textContent)
	if len(pieces) == 0 {
		log.Warnf("[Processor] 文档 %d 未产出任何分段, 处理中止", task.DocumentID)
		p.markFailed(task.DocumentID)
		return nil
	}
	log.Infof("[Processor] 步骤4: 分段完成, 共 %d 段", len(pieces))

	// 5. 分段落库（先删后写，重复处理幂等）
	segments := make([]*model.Segment, 0, len(pieces))
	for _, piece := range pieces {
		segments = append(segments, &model.Segment{
			DocumentID:    task.DocumentID,
			SeqIndex:      piece.SeqIndex,
			Content:       piece.Content,
			TokenCount:    piece.TokenCount,
			Kind:          piece.Kind,
			ParentHeading: piece.ParentHeading,
		})
	}
	if err := p.docRepo.ReplaceSegments(task.DocumentID, segments); err != nil {
		return fmt.Errorf("分段落库失败: %w", err)
	}

	// 6. 检索索引（先清理旧分段再逐段写入）
	if err := p.indexer.DeleteByDocument(ctx, task.DocumentID); err != nil {
		log.Warnf("[Processor] 清理文档 %d 的旧索引失败: %v", task.DocumentID, err)
	}
	for _, seg := range segments {
		esSeg := model.EsSegment{
			SegmentID:     fmt.Sprintf("%d-%d", task.DocumentID, seg.SeqIndex),
			DocumentID:    task.DocumentID,
			TenantID:      task.TenantID,
			SeqIndex:      seg.SeqIndex,
			Content:       seg.Content,
			TokenCount:    seg.TokenCount,
			Kind:          seg.Kind,
			ParentHeading: seg.ParentHeading,
		}
		if err := p.indexer.IndexSegment(ctx, esSeg); err != nil {
			return fmt.Errorf("索引分段 %d-%d 失败: %w", task.DocumentID, seg.SeqIndex, err)
		}
	}

	// 7. 向量化交接：逐段投递给外部向量化服务
	for _, seg := range segments {
		et := tasks.EmbeddingTask{
			DocumentID: task.DocumentID,
			SegmentID:  seg.ID,
			SeqIndex:   seg.SeqIndex,
			Content:    seg.Content,
			IndexName:  p.indexer.IndexName(),
		}
		if err := p.producer.ProduceEmbeddingTask(ctx, et); err != nil {
			log.Warnf("[Processor] 投递向量化任务失败, document=%d, seq=%d: %v", task.DocumentID, seg.SeqIndex, err)
		}
	}

	if err := p.docRepo.UpdateDocumentStatus(task.DocumentID, model.DocumentProcessed); err != nil {
		return fmt.Errorf("标记文档为已处理失败: %w", err)
	}
	log.Infof("[Processor] 文档处理完成, document=%d, segments=%d", task.DocumentID, len(segments))
	return nil
}

// markFailed 把文档标记为失败。该状态本身不再重试。
func (p *Processor) markFailed(documentID uint) {
	if err := p.docRepo.UpdateDocumentStatus(documentID, model.DocumentFailedStatus); err != nil {
		log.Errorf("[Processor] 标记文档 %d 失败状态出错: %v", documentID, err)
	}
}
