// Package clamav 实现了 ClamAV clamd INSTREAM 协议的最小客户端。
package clamav

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"omnidocs-go/internal/config"
	"omnidocs-go/internal/uperr"
	"omnidocs-go/pkg/log"
)

const streamChunkSize = 32 * 1024

// Scanner 是病毒扫描协作方。failOpen 控制扫描服务不可用时的放行策略：
// 放行与否是部署策略，命中病毒永远拒绝。
type Scanner struct {
	enabled  bool
	addr     string
	timeout  time.Duration
	failOpen bool
}

// New 创建扫描器。
func New(cfg config.ScanConfig) *Scanner {
	return &Scanner{
		enabled:  cfg.Enabled,
		addr:     cfg.Addr,
		timeout:  cfg.Timeout(),
		failOpen: cfg.FailOpen,
	}
}

// Scan 把 r 的内容送入 clamd 扫描。命中病毒返回 ErrMalwareDetected；
// 扫描服务不可用时按 failOpen 策略放行或拒绝。
func (s *Scanner) Scan(ctx context.Context, r io.Reader) error {
	if !s.enabled {
		return nil
	}

	err := s.instream(ctx, r)
	if err == nil || errors.Is(err, uperr.ErrMalwareDetected) {
		return err
	}
	if s.failOpen {
		log.Warnf("[Scan] 扫描服务不可用，按 fail-open 策略放行: %v", err)
		return nil
	}
	return fmt.Errorf("病毒扫描不可用且策略为 fail-closed: %w", err)
}

// instream 执行一次 INSTREAM 会话：
// zINSTREAM\0 后跟若干 <4 字节大端长度><数据> 块，零长度块结束，应答以 \0 结尾。
func (s *Scanner) instream(ctx context.Context, r io.Reader) error {
	d := net.Dialer{Timeout: s.timeout}
	conn, err := d.DialContext(ctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("连接 clamd 失败: %w", err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(s.timeout))

	if _, err := conn.Write([]byte("zINSTREAM\x00")); err != nil {
		return fmt.Errorf("发送 INSTREAM 命令失败: %w", err)
	}

	buf := make([]byte, streamChunkSize)
	var size [4]byte
	for {
		n, rerr := r.Read(buf)
		if n > 0 {
			binary.BigEndian.PutUint32(size[:], uint32(n))
			if _, err := conn.Write(size[:]); err != nil {
				return fmt.Errorf("发送数据块长度失败: %w", err)
			}
			if _, err := conn.Write(buf[:n]); err != nil {
				return fmt.Errorf("发送数据块失败: %w", err)
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return fmt.Errorf("读取待扫描内容失败: %w", rerr)
		}
	}
	binary.BigEndian.PutUint32(size[:], 0)
	if _, err := conn.Write(size[:]); err != nil {
		return fmt.Errorf("发送流结束标记失败: %w", err)
	}

	resp, err := bufio.NewReader(conn).ReadString('\x00')
	if err != nil && resp == "" {
		return fmt.Errorf("读取 clamd 应答失败: %w", err)
	}
	resp = strings.TrimRight(strings.TrimSpace(resp), "\x00")

	switch {
	case strings.HasSuffix(resp, "FOUND"):
		return uperr.Wrapf(uperr.ErrMalwareDetected, "clamd 命中: %s", resp)
	case strings.Contains(resp, "OK"):
		return nil
	default:
		return fmt.Errorf("clamd 返回异常应答: %q", resp)
	}
}
