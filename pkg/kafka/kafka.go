// Package kafka 提供了与 Kafka 消息队列交互的功能。
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/segmentio/kafka-go"

	"omnidocs-go/internal/config"
	"omnidocs-go/pkg/log"
	"omnidocs-go/pkg/tasks"
)

// TaskProcessor 是处理主题消费者的业务入口，解耦消费者与具体管道实现。
type TaskProcessor interface {
	Process(ctx context.Context, task tasks.DocumentProcessingTask) error
}

// Producer 持有处理主题与向量化主题的两个写入器。
type Producer struct {
	processing *kafka.Writer
	embedding  *kafka.Writer
}

// NewProducer 创建 Kafka 生产者。
func NewProducer(cfg config.KafkaConfig) *Producer {
	return &Producer{
		processing: &kafka.Writer{
			Addr:     kafka.TCP(cfg.Brokers),
			Topic:    cfg.ProcessingTopic,
			Balancer: &kafka.LeastBytes{},
		},
		embedding: &kafka.Writer{
			Addr:     kafka.TCP(cfg.Brokers),
			Topic:    cfg.EmbeddingTopic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

// ProduceProcessingTask 发送一个文档处理任务。
// Key 取文档标识，保证同一文档的消息落在同一分区内有序。
func (p *Producer) ProduceProcessingTask(ctx context.Context, task tasks.DocumentProcessingTask) error {
	return produce(ctx, p.processing, fmt.Sprintf("%d", task.DocumentID), task)
}

// ProduceEmbeddingTask 发送一个分段向量化任务。
func (p *Producer) ProduceEmbeddingTask(ctx context.Context, task tasks.EmbeddingTask) error {
	return produce(ctx, p.embedding, fmt.Sprintf("%d", task.DocumentID), task)
}

func produce(ctx context.Context, w *kafka.Writer, key string, payload interface{}) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return w.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: value})
}

// Close 关闭全部写入器。
func (p *Producer) Close() error {
	perr := p.processing.Close()
	if eerr := p.embedding.Close(); eerr != nil {
		return eerr
	}
	return perr
}

// Consumer 消费处理主题并驱动 TaskProcessor。
// 失败次数记录在 Redis 中，达到阈值后提交 offset 终止重试。
type Consumer struct {
	reader      *kafka.Reader
	rdb         *redis.Client
	processor   TaskProcessor
	maxAttempts int64
}

// NewConsumer 创建处理主题的消费者。
func NewConsumer(cfg config.KafkaConfig, rdb *redis.Client, processor TaskProcessor) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  []string{cfg.Brokers},
			Topic:    cfg.ProcessingTopic,
			GroupID:  "omnidocs-processing",
			MinBytes: 10e3, // 10KB
			MaxBytes: 10e6, // 10MB
		}),
		rdb:         rdb,
		processor:   processor,
		maxAttempts: 3,
	}
}

// Run 阻塞消费直到 ctx 被取消。
func (c *Consumer) Run(ctx context.Context) {
	log.Infof("Kafka 消费者已启动，正在监听主题 '%s'", c.reader.Config().Topic)

	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				break
			}
			log.Error("从 Kafka 读取消息失败", err)
			break
		}

		var task tasks.DocumentProcessingTask
		if err := json.Unmarshal(m.Value, &task); err != nil {
			log.Errorf("无法解析 Kafka 消息: %v, value: %s", err, string(m.Value))
			// 消息格式错误，直接提交，避免阻塞队列
			c.commit(ctx, m)
			continue
		}

		log.Infof("开始处理文档任务: document=%d, file=%s", task.DocumentID, task.Filename)
		if err := c.processor.Process(ctx, task); err != nil {
			log.Errorf("处理文档任务失败: document=%d, error: %v", task.DocumentID, err)

			attemptsKey := fmt.Sprintf("kafka:attempts:%d", task.DocumentID)
			attempts, incErr := c.rdb.Incr(ctx, attemptsKey).Result()
			if incErr != nil {
				// Redis 异常时保守处理：不提交 offset，让 Kafka 重试
				continue
			}
			_ = c.rdb.Expire(ctx, attemptsKey, 24*time.Hour).Err()
			if attempts >= c.maxAttempts {
				log.Errorf("文档任务多次失败(>=%d)，提交 offset 终止重试: document=%d", c.maxAttempts, task.DocumentID)
				c.commit(ctx, m)
			}
			continue
		}

		log.Infof("文档任务处理成功: document=%d", task.DocumentID)
		_ = c.rdb.Del(ctx, fmt.Sprintf("kafka:attempts:%d", task.DocumentID)).Err()
		c.commit(ctx, m)
	}

	if err := c.reader.Close(); err != nil {
		log.Errorf("关闭 Kafka 消费者失败: %v", err)
	}
}

func (c *Consumer) commit(ctx context.Context, m kafka.Message) {
	if err := c.reader.CommitMessages(ctx, m); err != nil {
		log.Errorf("提交 Kafka 消息 offset 失败: %v", err)
	}
}
