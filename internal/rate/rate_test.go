package rate

import (
	"context"
	"errors"
	"testing"
	"time"

	"slowniki/pkg/contract"
)

// UT-RTE-01: 超过每分钟请求数
func TestGateTryLimit(t *testing.T) {
	now := time.Unix(0, 0)
	clk := func() time.Time { return now }
	g := NewGate(Limits{RPM: 1, BPM: 10}, clk)
	if !g.Try(3) {
		t.Fatalf("首次应通过")
	}
	if g.Try(3) {
		t.Fatalf("应因 RPM 拒绝")
	}
	// 一分钟后恢复
	now = now.Add(time.Minute)
	if !g.Try(3) {
		t.Fatalf("补充后应通过")
	}
}

// UT-RTE-02: 字节维度与超大对象
func TestGateBytes(t *testing.T) {
	now := time.Unix(0, 0)
	clk := func() time.Time { return now }
	g := NewGate(Limits{BPM: 60}, clk)
	if !g.Try(50) {
		t.Fatalf("首次应通过")
	}
	if g.Try(20) {
		t.Fatalf("字节额度不足应拒绝")
	}
	// 20 秒补充 20 字节
	now = now.Add(20 * time.Second)
	if !g.Try(20) {
		t.Fatalf("补充后应通过")
	}
	if r, b := g.Snapshot(); r != -1 || b != 10 {
		t.Fatalf("snapshot = %d, %d", r, b)
	}
	// 超过容量的请求按整桶计
	now = now.Add(time.Minute)
	if !g.Try(1 << 20) {
		t.Fatalf("超大对象应在满桶时通过")
	}
	if _, b := g.Snapshot(); b != 0 {
		t.Fatalf("bytes avail = %d", b)
	}
}

// UT-RTE-03: 取消上下文
func TestGateWaitCancel(t *testing.T) {
	now := time.Unix(0, 0)
	clk := func() time.Time { return now }
	g := NewGate(Limits{RPM: 1}, clk)
	if err := g.Wait(context.Background(), 0); err != nil {
		t.Fatalf("首次应通过: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()
	if err := g.Wait(ctx, 0); !errors.Is(err, context.Canceled) {
		t.Fatalf("应返回取消错误: %v", err)
	}
}

func TestGateDisabled(t *testing.T) {
	g := NewGate(Limits{}, nil)
	if g != nil {
		t.Fatalf("零限额应返回 nil")
	}
	if !g.Try(100) || g.Wait(context.Background(), 100) != nil {
		t.Fatalf("nil 闸门应直接放行")
	}
	if err := NewGate(Limits{RPM: 1}, nil).Wait(context.Background(), -1); !errors.Is(err, contract.ErrInvalidInput) {
		t.Fatalf("负字节数应拒绝: %v", err)
	}
}
