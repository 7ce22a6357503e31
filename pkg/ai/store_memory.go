package ai

import (
	"context"
	"sort"
	"sync"
)

// History 是单个会话的有序消息序列，可并发读写。
type History struct {
	id       string
	mu       sync.RWMutex
	messages []Message
}

// NewHistory 创建空历史。
func NewHistory(id string) *History {
	return &History{id: id}
}

// ID 返回会话标识。
func (h *History) ID() string {
	return h.id
}

// Messages 返回历史副本，调用方修改不会影响内部状态。
func (h *History) Messages() []Message {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Message, len(h.messages))
	copy(out, h.messages)
	return out
}

// Len 返回消息条数。
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.messages)
}

// Append 原子追加一组消息（一次对话轮次的 user + assistant 一起写入）。
func (h *History) Append(msgs ...Message) {
	if len(msgs) == 0 {
		return
	}
	h.mu.Lock()
	h.messages = append(h.messages, msgs...)
	h.mu.Unlock()
}

// Clear 清空历史。
func (h *History) Clear() {
	h.mu.Lock()
	h.messages = nil
	h.mu.Unlock()
}

// MemoryStore 实现了基于进程内存的 SessionStore。
// 进程重启即丢失，不跨进程共享。
type MemoryStore struct {
	mu       sync.RWMutex // 保护 sessions 映射
	sessions map[string]*History
}

// NewMemoryStore 创建内存存储实例。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*History),
	}
}

// GetOrCreate 获取会话历史，不存在则创建。
func (s *MemoryStore) GetOrCreate(ctx context.Context, sessionID string) *History {
	s.mu.RLock()
	h, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if ok {
		return h
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// 双重检查：加写锁期间可能已被其他请求创建
	if h, ok := s.sessions[sessionID]; ok {
		return h
	}
	h = NewHistory(sessionID)
	s.sessions[sessionID] = h
	return h
}

// ClearHistory 删除单个会话。
func (s *MemoryStore) ClearHistory(ctx context.Context, sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok := s.sessions[sessionID]; ok {
		// 仍持有旧指针的调用方也应看到空历史
		h.Clear()
		delete(s.sessions, sessionID)
	}
}

// ClearAll 丢弃全部会话。
func (s *MemoryStore) ClearAll(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, h := range s.sessions {
		h.Clear()
	}
	s.sessions = make(map[string]*History)
}

// Sessions 返回按字典序排列的会话 ID。
func (s *MemoryStore) Sessions(ctx context.Context) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
