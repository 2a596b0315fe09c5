package kvstore

import (
	"context"
	"sync"
)

// MemoryStore はメモリ上のStore実装。テストと使い捨てセッションで使用する。
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

var _ Store = (*MemoryStore)(nil)

// NewMemory はMemoryStoreの新しいインスタンスを生成する。
func NewMemory() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

// Get は指定キーの値を取得する。
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	// 呼び出し側の変更から守るためコピーを返す
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

// Set は指定キーに値を書き込む。
func (s *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := make([]byte, len(value))
	copy(v, value)
	s.data[key] = v
	return nil
}

// Delete は指定キーを削除する。
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// Close は何もしない。
func (s *MemoryStore) Close() error { return nil }
