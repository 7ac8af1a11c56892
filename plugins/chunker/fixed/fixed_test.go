package fixed

import (
	"context"
	"errors"
	"testing"

	"slowniki/pkg/contract"
)

// TestMakeSuccess 测试定长切分与分片序号
func TestMakeSuccess(t *testing.T) {
	c := New(nil)
	words := contract.WordList{"A", "B", "C", "D", "E"}
	chunks, err := c.Make(context.Background(), "f", words, contract.ChunkLimit{Size: 2})
	if err != nil {
		t.Fatalf("make: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("expect 3 chunks, got %d", len(chunks))
	}
	if err := contract.ValidateChunks("f", words, chunks); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if chunks[2].Index != 2 || len(chunks[2].Words) != 1 || chunks[2].Words[0] != "E" {
		t.Fatalf("unexpected tail chunk %+v", chunks[2])
	}
}

// TestMakeEmpty 测试空输入
func TestMakeEmpty(t *testing.T) {
	chunks, err := New(nil).Make(context.Background(), "f", nil, contract.ChunkLimit{Size: 10})
	if err != nil || chunks != nil {
		t.Fatalf("expect nil, got %v %v", chunks, err)
	}
}

// TestMakeBadLimit 测试无效分片大小
func TestMakeBadLimit(t *testing.T) {
	_, err := New(nil).Make(context.Background(), "f", contract.WordList{"A"}, contract.ChunkLimit{Size: 0})
	if !errors.Is(err, contract.ErrInvalidInput) {
		t.Fatalf("expect ErrInvalidInput, got %v", err)
	}
}

// TestMakeOptions 测试下限与分片数上限
func TestMakeOptions(t *testing.T) {
	words := make(contract.WordList, 100)
	for i := range words {
		words[i] = "W"
	}
	chunks, err := New(&Options{MinChunk: 30}).Make(context.Background(), "f", words, contract.ChunkLimit{Size: 1})
	if err != nil || len(chunks) != 4 {
		t.Fatalf("min chunk: %d %v", len(chunks), err)
	}
	chunks, err = New(&Options{MaxChunks: 8}).Make(context.Background(), "f", words, contract.ChunkLimit{Size: 1})
	if err != nil || len(chunks) > 8 {
		t.Fatalf("max chunks: %d %v", len(chunks), err)
	}
	if err := contract.ValidateChunks("f", words, chunks); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

// TestMakeCanceled 测试 ctx 取消
func TestMakeCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(nil).Make(ctx, "f", contract.WordList{"A"}, contract.ChunkLimit{Size: 1}); err == nil {
		t.Fatalf("expect ctx error")
	}
}
