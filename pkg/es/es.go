// Package es 提供了与 Elasticsearch 交互的客户端功能。
package es

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"omnidocs-go/internal/config"
	"omnidocs-go/internal/model"
	"omnidocs-go/pkg/log"
)

// Client 封装了分段索引所需的 Elasticsearch 操作。
type Client struct {
	es    *elasticsearch.Client
	index string
}

// New 创建客户端并保证分段索引存在。
func New(cfg config.ElasticsearchConfig) (*Client, error) {
	esc, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: strings.Split(cfg.Addresses, ","),
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	})
	if err != nil {
		return nil, err
	}
	c := &Client{es: esc, index: cfg.IndexName}
	if err := c.createIndexIfNotExists(); err != nil {
		return nil, err
	}
	return c, nil
}

// createIndexIfNotExists 检查分段索引是否存在，不存在则按映射创建。
func (c *Client) createIndexIfNotExists() error {
	res, err := c.es.Indices.Exists([]string{c.index})
	if err != nil {
		log.Errorf("检查索引是否存在时出错: %v", err)
		return err
	}
	if !res.IsError() && res.StatusCode == http.StatusOK {
		log.Infof("索引 '%s' 已存在", c.index)
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("检查索引是否存在时收到意外的状态码: %d", res.StatusCode)
	}

	// 只索引纯文本与归属信息，向量字段由下游向量化服务在自己的索引中维护
	mapping := `{
		"mappings": {
			"properties": {
				"segment_id": { "type": "keyword" },
				"document_id": { "type": "long" },
				"tenant_id": { "type": "long" },
				"seq_index": { "type": "integer" },
				"content": { "type": "text" },
				"token_count": { "type": "integer" },
				"kind": { "type": "keyword" },
				"parent_heading": { "type": "text" }
			}
		}
	}`

	res, err = c.es.Indices.Create(
		c.index,
		c.es.Indices.Create.WithBody(strings.NewReader(mapping)),
	)
	if err != nil {
		log.Errorf("创建索引 '%s' 失败: %v", c.index, err)
		return err
	}
	if res.IsError() {
		log.Errorf("创建索引 '%s' 时 Elasticsearch 返回错误: %s", c.index, res.String())
		return errors.New("创建索引时 Elasticsearch 返回错误")
	}
	log.Infof("索引 '%s' 创建成功", c.index)
	return nil
}

// IndexName 返回分段索引名。
func (c *Client) IndexName() string {
	return c.index
}

// IndexSegment 将单个分段索引到 Elasticsearch。
func (c *Client) IndexSegment(ctx context.Context, seg model.EsSegment) error {
	body, err := json.Marshal(seg)
	if err != nil {
		return err
	}

	req := esapi.IndexRequest{
		Index:      c.index,
		DocumentID: seg.SegmentID,
		Body:       bytes.NewReader(body),
	}
	res, err := req.Do(ctx, c.es)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		log.Errorf("索引分段到 Elasticsearch 出错: %s", res.String())
		return errors.New("failed to index segment")
	}
	return nil
}

// DeleteByDocument 删除某文档的全部分段，用于重新处理前的清理。
func (c *Client) DeleteByDocument(ctx context.Context, documentID uint) error {
	query := fmt.Sprintf(`{"query":{"term":{"document_id":%d}}}`, documentID)
	res, err := c.es.DeleteByQuery(
		[]string{c.index},
		strings.NewReader(query),
		c.es.DeleteByQuery.WithContext(ctx),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		log.Errorf("删除文档 %d 的分段出错: %s", documentID, res.String())
		return errors.New("failed to delete segments")
	}
	return nil
}
