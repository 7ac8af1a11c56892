package rate

import (
	"context"
	"sync"
	"time"

	"slowniki/pkg/contract"
)

// Limits: 上传限额。0 表示该维度不启用。
type Limits struct {
	RPM int // 每分钟请求数
	BPM int // 每分钟字节数
}

// Gate: 双维度令牌桶（请求数 + 字节数），并发安全。
// 超过一分钟字节额度的单次请求按整桶计，不会永久阻塞。
type Gate struct {
	clk func() time.Time
	mu  sync.Mutex
	req bucket
	byt bucket
}

type bucket struct {
	cap   int
	level float64
	rate  float64
	last  time.Time
}

// NewGate 构造闸门；两维度均为 0 时返回 nil（不限流）。clk 为空则使用 time.Now。
func NewGate(lim Limits, clk func() time.Time) *Gate {
	if lim.RPM <= 0 && lim.BPM <= 0 {
		return nil
	}
	if clk == nil {
		clk = time.Now
	}
	now := clk()
	return &Gate{clk: clk, req: newBucket(lim.RPM, now), byt: newBucket(lim.BPM, now)}
}

func newBucket(capacity int, now time.Time) bucket {
	if capacity <= 0 {
		return bucket{}
	}
	return bucket{cap: capacity, level: float64(capacity), rate: float64(capacity) / 60.0, last: now}
}

func (b *bucket) enabled() bool { return b.cap > 0 }

func (b *bucket) refill(now time.Time) {
	if !b.enabled() {
		return
	}
	if now.Before(b.last) {
		// 时钟回拨视为无时间流逝
		return
	}
	dt := now.Sub(b.last).Seconds()
	if dt <= 0 {
		return
	}
	b.level += dt * b.rate
	if b.level > float64(b.cap) {
		b.level = float64(b.cap)
	}
	b.last = now
}

// clamp 将申请量限制在桶容量内。
func (b *bucket) clamp(n int) int {
	if b.enabled() && n > b.cap {
		return b.cap
	}
	return n
}

func (b *bucket) canTake(n int) bool {
	if !b.enabled() || n <= 0 {
		return true
	}
	return b.level >= float64(n)
}

func (b *bucket) take(n int) {
	if !b.enabled() || n <= 0 {
		return
	}
	b.level -= float64(n)
	if b.level < 0 {
		b.level = 0
	}
}

// waitSecFor 返回可消费 n 还需等待的秒数。
func (b *bucket) waitSecFor(n int) float64 {
	if !b.enabled() || n <= 0 {
		return 0
	}
	deficit := float64(n) - b.level
	if deficit <= 0 {
		return 0
	}
	return deficit / b.rate
}

// Try: 非阻塞申请一次请求与 size 字节；不足时返回 false。
func (g *Gate) Try(size int) bool {
	if g == nil {
		return true
	}
	if size < 0 {
		return false
	}
	now := g.clk()
	g.mu.Lock()
	defer g.mu.Unlock()
	g.req.refill(now)
	g.byt.refill(now)
	n := g.byt.clamp(size)
	if g.req.canTake(1) && g.byt.canTake(n) {
		g.req.take(1)
		g.byt.take(n)
		return true
	}
	return false
}

// Wait: 阻塞直到额度可用或 ctx 取消。
func (g *Gate) Wait(ctx context.Context, size int) error {
	if g == nil {
		return nil
	}
	if size < 0 {
		return contract.ErrInvalidInput
	}
	// 最小睡眠粒度，避免忙等
	const minSleep = 10 * time.Millisecond
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		now := g.clk()
		g.mu.Lock()
		g.req.refill(now)
		g.byt.refill(now)
		n := g.byt.clamp(size)
		if g.req.canTake(1) && g.byt.canTake(n) {
			g.req.take(1)
			g.byt.take(n)
			g.mu.Unlock()
			return nil
		}
		waitSec := max(g.req.waitSecFor(1), g.byt.waitSecFor(n))
		g.mu.Unlock()

		d := time.Duration(waitSec*float64(time.Second) + float64(minSleep))
		if err := sleepCtx(ctx, d); err != nil {
			return err
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	// 分片为最多 200ms 的步长，及时响应取消
	const step = 200 * time.Millisecond
	for d > 0 {
		s := min(d, step)
		t := time.NewTimer(s)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		d -= s
	}
	return nil
}

// Snapshot: 当前可用请求数/字节数的向下取整估值（仅诊断）；未启用的维度返回 -1。
func (g *Gate) Snapshot() (reqAvail, bytesAvail int) {
	if g == nil {
		return -1, -1
	}
	now := g.clk()
	g.mu.Lock()
	defer g.mu.Unlock()
	g.req.refill(now)
	g.byt.refill(now)
	avail := func(b *bucket) int {
		if !b.enabled() {
			return -1
		}
		return int(max(0, min(b.level, float64(b.cap))))
	}
	return avail(&g.req), avail(&g.byt)
}
