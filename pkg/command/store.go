package command

import (
	"maps"
	"sync"
)

// MemoryStore 是基于进程内存的 ConversationStore。
// 只保存命令写入的对话偏好（如模型选择），不保存聊天历史。
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]ContextValues
}

// NewMemoryStore 创建内存存储实例。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]ContextValues)}
}

// Load 返回指定 key 的上下文副本，不存在时返回 nil。
func (s *MemoryStore) Load(key string) (ContextValues, error) {
	if s == nil {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.data[key]), nil
}

// Save 合并写入：同名键覆盖，值为空串的键被删除。
func (s *MemoryStore) Save(key string, values ContextValues) error {
	if s == nil || len(values) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	merged := maps.Clone(s.data[key])
	if merged == nil {
		merged = ContextValues{}
	}
	for k, v := range values {
		if v == "" {
			delete(merged, k)
			continue
		}
		merged[k] = v
	}
	if len(merged) == 0 {
		delete(s.data, key)
		return nil
	}
	s.data[key] = merged
	return nil
}
