// Package config 负责加载和管理应用程序的配置。
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
// 它在进程启动时构造一次，随后以引用方式传递给需要的组件，不使用包级全局变量。
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	JWT           JWTConfig           `mapstructure:"jwt"`
	Log           LogConfig           `mapstructure:"log"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	Tika          TikaConfig          `mapstructure:"tika"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	MinIO         MinIOConfig         `mapstructure:"minio"`
	Upload        UploadConfig        `mapstructure:"upload"`
	Scan          ScanConfig          `mapstructure:"scan"`
	Chunking      ChunkingConfig      `mapstructure:"chunking"`
	Sweeper       SweeperConfig       `mapstructure:"sweeper"`
}

// ServerConfig 存储 HTTP 服务器相关的配置。
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// DatabaseConfig 存储所有数据库连接的配置。
type DatabaseConfig struct {
	MySQL MySQLConfig `mapstructure:"mysql"`
	Redis RedisConfig `mapstructure:"redis"`
}

// MySQLConfig 存储 MySQL 数据库的配置。
type MySQLConfig struct {
	DSN string `mapstructure:"dsn"`
}

// RedisConfig 存储 Redis 的配置。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// JWTConfig 存储租户 API Token 相关的配置。
type JWTConfig struct {
	Secret           string `mapstructure:"secret"`
	TokenExpireHours int    `mapstructure:"token_expire_hours"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// KafkaConfig 存储 Kafka 相关的配置。
// ProcessingTopic 由本服务自产自销；EmbeddingTopic 只生产，由外部向量化服务消费。
type KafkaConfig struct {
	Brokers         string `mapstructure:"brokers"`
	ProcessingTopic string `mapstructure:"processing_topic"`
	EmbeddingTopic  string `mapstructure:"embedding_topic"`
}

// TikaConfig 存储 Tika 文本提取服务的配置。
type TikaConfig struct {
	ServerURL string `mapstructure:"server_url"`
}

// ElasticsearchConfig 存储 Elasticsearch 相关的配置。
type ElasticsearchConfig struct {
	Addresses string `mapstructure:"addresses"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	IndexName string `mapstructure:"index_name"`
}

// MinIOConfig 存储 MinIO 对象存储的配置。
type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"`
}

// UploadConfig 存储断点续传会话相关的配置。
type UploadConfig struct {
	SessionTTLHours   int      `mapstructure:"session_ttl_hours"`
	MaxTotalSize      int64    `mapstructure:"max_total_size"`
	MinChunkSize      int64    `mapstructure:"min_chunk_size"`
	MaxChunkSize      int64    `mapstructure:"max_chunk_size"`
	MaxBatchFiles     int      `mapstructure:"max_batch_files"`
	AllowedExtensions []string `mapstructure:"allowed_extensions"`
}

// SessionTTL 返回会话的存活时长，配置缺省时为 24 小时。
func (c UploadConfig) SessionTTL() time.Duration {
	hours := c.SessionTTLHours
	if hours <= 0 {
		hours = 24
	}
	return time.Duration(hours) * time.Hour
}

// ScanConfig 存储病毒扫描协作方的配置。
// FailOpen 为 true 时扫描服务不可用视为通过；这是一个策略开关而非协议常量。
type ScanConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Addr           string `mapstructure:"addr"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	FailOpen       bool   `mapstructure:"fail_open"`
}

// Timeout 返回扫描请求的超时时长。
func (c ScanConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ChunkingConfig 存储文本分段引擎的 token 参数。
type ChunkingConfig struct {
	TargetTokens  int `mapstructure:"target_tokens"`
	OverlapTokens int `mapstructure:"overlap_tokens"`
	MinTokens     int `mapstructure:"min_tokens"`
}

// SweeperConfig 存储过期会话清扫器的配置。
type SweeperConfig struct {
	IntervalMinutes int `mapstructure:"interval_minutes"`
}

// Interval 返回清扫周期，配置缺省时为 10 分钟。
func (c SweeperConfig) Interval() time.Duration {
	minutes := c.IntervalMinutes
	if minutes <= 0 {
		minutes = 10
	}
	return time.Duration(minutes) * time.Minute
}

// Load 从指定路径读取 YAML 配置文件并解析为 Config。
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("无法将配置解析到结构体中: %w", err)
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// applyDefaults 为未显式配置的关键项填充缺省值。
func applyDefaults(cfg *Config) {
	if cfg.Upload.MaxTotalSize <= 0 {
		cfg.Upload.MaxTotalSize = 50 * 1024 * 1024
	}
	if cfg.Upload.MinChunkSize <= 0 {
		cfg.Upload.MinChunkSize = 64 * 1024
	}
	if cfg.Upload.MaxChunkSize <= 0 {
		cfg.Upload.MaxChunkSize = 16 * 1024 * 1024
	}
	if cfg.Upload.MaxBatchFiles <= 0 {
		cfg.Upload.MaxBatchFiles = 10
	}
	if len(cfg.Upload.AllowedExtensions) == 0 {
		cfg.Upload.AllowedExtensions = []string{
			".pdf", ".doc", ".docx", ".xls", ".xlsx", ".ppt", ".pptx", ".txt", ".md",
		}
	}
	if cfg.Chunking.TargetTokens <= 0 {
		cfg.Chunking.TargetTokens = 512
	}
	if cfg.Chunking.OverlapTokens < 0 {
		cfg.Chunking.OverlapTokens = 0
	}
	if cfg.Chunking.MinTokens <= 0 {
		cfg.Chunking.MinTokens = 100
	}
	if cfg.Scan.TimeoutSeconds <= 0 {
		cfg.Scan.TimeoutSeconds = 30
	}
}
