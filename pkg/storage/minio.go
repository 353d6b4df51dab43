// Package storage 提供了与对象存储服务（MinIO）交互的功能。
package storage

import (
	"context"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"omnidocs-go/internal/config"
	"omnidocs-go/pkg/log"
)

// Client 封装了 MinIO 客户端与目标存储桶。
type Client struct {
	mc     *minio.Client
	bucket string
}

// New 初始化 MinIO 客户端并确保指定的存储桶存在。
func New(cfg config.MinIOConfig) (*Client, error) {
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	exists, err := mc.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, err
	}
	if !exists {
		log.Infof("存储桶 '%s' 不存在，正在创建...", cfg.BucketName)
		if err := mc.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, err
		}
	}

	log.Info("MinIO 客户端初始化成功")
	return &Client{mc: mc, bucket: cfg.BucketName}, nil
}

// PutObject 写入一个对象。size 为 -1 时执行流式上传。
func (c *Client) PutObject(ctx context.Context, objectName string, r io.Reader, size int64) error {
	_, err := c.mc.PutObject(ctx, c.bucket, objectName, r, size, minio.PutObjectOptions{})
	return err
}

// GetObject 打开一个对象的读取流。
func (c *Client) GetObject(ctx context.Context, objectName string) (io.ReadCloser, error) {
	obj, err := c.mc.GetObject(ctx, c.bucket, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	return obj, nil
}

// RemoveObject 删除一个对象。
func (c *Client) RemoveObject(ctx context.Context, objectName string) error {
	return c.mc.RemoveObject(ctx, c.bucket, objectName, minio.RemoveObjectOptions{})
}

// RemovePrefix 删除指定前缀下的全部对象，返回首个删除失败的错误。
func (c *Client) RemovePrefix(ctx context.Context, prefix string) error {
	objectsCh := c.mc.ListObjects(ctx, c.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})

	var firstErr error
	for rErr := range c.mc.RemoveObjects(ctx, c.bucket, toRemoveCh(objectsCh), minio.RemoveObjectsOptions{}) {
		if rErr.Err != nil && firstErr == nil {
			firstErr = rErr.Err
		}
	}
	return firstErr
}

// toRemoveCh 将列举结果转换为 RemoveObjects 期望的通道。
func toRemoveCh(in <-chan minio.ObjectInfo) <-chan minio.ObjectInfo {
	out := make(chan minio.ObjectInfo)
	go func() {
		defer close(out)
		for obj := range in {
			if obj.Err != nil {
				continue
			}
			out <- obj
		}
	}()
	return out
}

// PresignedGetURL 为对象生成限时下载链接。
func (c *Client) PresignedGetURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	u, err := c.mc.PresignedGetObject(ctx, c.bucket, objectName, expiry, nil)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}
