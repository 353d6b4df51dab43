// Package tika 提供了一个与 Apache Tika 服务器交互的客户端。
package tika

import (
	"bytes"
	"context"
	"io"
	"mime"
	"net/http"
	"path/filepath"

	"omnidocs-go/internal/uperr"
)

// Client 是 Tika 服务器的客户端。
type Client struct {
	serverURL string
	httpc     *http.Client
}

// NewClient 创建一个新的 Tika 客户端实例。
func NewClient(serverURL string) *Client {
	return &Client{serverURL: serverURL, httpc: http.DefaultClient}
}

// ExtractText 根据文件后缀推断 MIME 类型，并调用 Tika 提取纯文本。
// 失败一律归入 ErrExtractionFailed 分类。
func (c *Client) ExtractText(ctx context.Context, fileReader io.Reader, fileName string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.serverURL+"/tika", fileReader)
	if err != nil {
		return "", uperr.Wrapf(uperr.ErrExtractionFailed, "创建请求失败: %v", err)
	}
	req.Header.Set("Accept", "text/plain")
	req.Header.Set("Content-Type", detectMimeType(fileName))

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", uperr.Wrapf(uperr.ErrExtractionFailed, "调用 Tika 失败: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", uperr.Wrapf(uperr.ErrExtractionFailed, "Tika 返回错误 [%d]: %s", resp.StatusCode, string(body))
	}

	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, resp.Body); err != nil {
		return "", uperr.Wrapf(uperr.ErrExtractionFailed, "读取 Tika 响应失败: %v", err)
	}
	return buf.String(), nil
}

// detectMimeType 根据文件扩展名判断 Content-Type。
func detectMimeType(fileName string) string {
	ext := filepath.Ext(fileName)
	if ext == "" {
		return "application/octet-stream"
	}
	mimeType := mime.TypeByExtension(ext)
	if mimeType == "" {
		return "application/octet-stream"
	}
	return mimeType
}
