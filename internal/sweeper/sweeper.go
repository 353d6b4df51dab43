// Package sweeper 实现了过期上传会话的周期清扫器。
package sweeper

import (
	"context"
	"time"

	"omnidocs-go/pkg/log"
)

// Expirer 执行一轮过期迁移，返回成功迁移的会话数。
// session.Machine 满足该接口。
type Expirer interface {
	ExpireOverdue(ctx context.Context, now time.Time) (int, error)
}

// Sweeper 按固定周期驱动 Expirer。清扫是幂等的：
// 单轮失败只记录日志，漏掉的会话由下一轮补上。
type Sweeper struct {
	expirer  Expirer
	interval time.Duration
	nowFn    func() time.Time
}

// New 创建清扫器。
func New(expirer Expirer, interval time.Duration) *Sweeper {
	return &Sweeper{
		expirer:  expirer,
		interval: interval,
		nowFn:    time.Now,
	}
}

// Run 阻塞运行直到 ctx 被取消。
func (s *Sweeper) Run(ctx context.Context) {
	log.Infof("[Sweeper] 清扫器启动, interval=%s", s.interval)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("[Sweeper] 收到停止信号，清扫器退出")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep 执行一轮清扫。整轮使用同一个时间戳判定过期，
// 避免长批次内截止时间判定漂移。
func (s *Sweeper) Sweep(ctx context.Context) {
	now := s.nowFn()
	n, err := s.expirer.ExpireOverdue(ctx, now)
	if err != nil {
		log.Error("[Sweeper] 清扫执行失败", err)
		return
	}
	if n > 0 {
		log.Infof("[Sweeper] 本轮过期会话 %d 个", n)
	}
}
