package clamav

import (
	"bufio"
	"context"
	"encoding/binary"
	"io"
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"omnidocs-go/internal/config"
	"omnidocs-go/internal/uperr"
)

// startFakeClamd 启动一个按 INSTREAM 协议应答固定内容的假 clamd。
func startFakeClamd(t *testing.T, response string) string {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = listener.Close() })

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			go func(conn net.Conn) {
				defer conn.Close()
				r := bufio.NewReader(conn)
				// 命令以 \0 结尾
				if _, err := r.ReadString('\x00'); err != nil {
					return
				}
				// 数据块：4 字节大端长度 + 数据，零长度块结束
				var size [4]byte
				for {
					if _, err := io.ReadFull(r, size[:]); err != nil {
						return
					}
					n := binary.BigEndian.Uint32(size[:])
					if n == 0 {
						break
					}
					if _, err := io.CopyN(io.Discard, r, int64(n)); err != nil {
						return
					}
				}
				_, _ = conn.Write([]byte(response + "\x00"))
			}(conn)
		}
	}()
	return listener.Addr().String()
}

func scannerFor(addr string, failOpen bool) *Scanner {
	return New(config.ScanConfig{
		Enabled:        true,
		Addr:           addr,
		TimeoutSeconds: 2,
		FailOpen:       failOpen,
	})
}

func TestScanCleanStream(t *testing.T) {
	addr := startFakeClamd(t, "stream: OK")
	s := scannerFor(addr, false)
	assert.NoError(t, s.Scan(context.Background(), strings.NewReader("harmless bytes")))
}

func TestScanDetectsMalware(t *testing.T) {
	addr := startFakeClamd(t, "stream: Eicar-Test-Signature FOUND")
	s := scannerFor(addr, true)

	err := s.Scan(context.Background(), strings.NewReader("definitely a virus"))
	// fail-open 只作用于服务不可用，命中永远拒绝
	assert.ErrorIs(t, err, uperr.ErrMalwareDetected)
}

func TestScanOutageFailOpen(t *testing.T) {
	// 未监听的端口模拟扫描服务不可用
	s := scannerFor("127.0.0.1:1", true)
	assert.NoError(t, s.Scan(context.Background(), strings.NewReader("bytes")))
}

func TestScanOutageFailClosed(t *testing.T) {
	s := scannerFor("127.0.0.1:1", false)
	err := s.Scan(context.Background(), strings.NewReader("bytes"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, uperr.ErrMalwareDetected)
}

func TestScanDisabled(t *testing.T) {
	s := New(config.ScanConfig{Enabled: false})
	assert.NoError(t, s.Scan(context.Background(), strings.NewReader("bytes")))
}
