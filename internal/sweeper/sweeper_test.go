package sweeper

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingExpirer struct {
	calls int64
	err   error
	last  atomic.Value // time.Time
}

func (c *countingExpirer) ExpireOverdue(_ context.Context, now time.Time) (int, error) {
	atomic.AddInt64(&c.calls, 1)
	c.last.Store(now)
	if c.err != nil {
		return 0, c.err
	}
	return 1, nil
}

func TestSweeperRunsPeriodically(t *testing.T) {
	exp := &countingExpirer{}
	s := New(exp, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return atomic.LoadInt64(&exp.calls) >= 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("清扫器未在取消后退出")
	}

	// 取消之后不再触发新一轮清扫
	settled := atomic.LoadInt64(&exp.calls)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, settled, atomic.LoadInt64(&exp.calls))
}

func TestSweepUsesSingleTimestamp(t *testing.T) {
	exp := &countingExpirer{}
	s := New(exp, time.Hour)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.nowFn = func() time.Time { return fixed }

	s.Sweep(context.Background())
	require.Equal(t, int64(1), atomic.LoadInt64(&exp.calls))
	assert.Equal(t, fixed, exp.last.Load())
}

func TestSweepSurvivesFailure(t *testing.T) {
	exp := &countingExpirer{err: errors.New("db down")}
	s := New(exp, time.Hour)

	// 失败只记录日志，不 panic，下一轮照常执行
	s.Sweep(context.Background())
	s.Sweep(context.Background())
	assert.Equal(t, int64(2), atomic.LoadInt64(&exp.calls))
}
