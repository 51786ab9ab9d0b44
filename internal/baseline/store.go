package baseline

import (
	"sync"
	"sync/atomic"

	"mindguard-analyzer/internal/models"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCapacity 默认最多缓存的用户基线数
const DefaultCapacity = 10000

// Store 基线存储（按用户隔离）
//
// 同一用户的重建串行执行；读取总是得到一份完整写入的基线。
type Store interface {
	// Get 读取用户基线
	Get(userID string) (models.UserBaseline, bool)
	// Rebuild 串行执行 build，并用结果整体替换旧基线（不做合并）
	Rebuild(userID string, build func() (models.UserBaseline, error)) (models.UserBaseline, error)
}

// slot 单个用户的基线槽位
type slot struct {
	mu    sync.Mutex // 串行化同一用户的重建
	value atomic.Pointer[models.UserBaseline]
}

// MemoryStore 有界内存基线存储（LRU 淘汰）
type MemoryStore struct {
	mu    sync.Mutex // 仅保护槽位的查找与创建
	slots *lru.Cache[string, *slot]
}

// NewMemoryStore 创建内存基线存储，capacity <= 0 时使用默认容量
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	slots, err := lru.New[string, *slot](capacity)
	if err != nil {
		// 只有 capacity <= 0 才会出错，上面已处理
		panic(err)
	}
	return &MemoryStore{slots: slots}
}

// Get 读取用户基线
func (s *MemoryStore) Get(userID string) (models.UserBaseline, bool) {
	sl, ok := s.slots.Get(userID)
	if !ok {
		return models.UserBaseline{}, false
	}
	b := sl.value.Load()
	if b == nil {
		return models.UserBaseline{}, false
	}
	return *b, true
}

// Rebuild 重建用户基线
func (s *MemoryStore) Rebuild(userID string, build func() (models.UserBaseline, error)) (models.UserBaseline, error) {
	sl := s.slotFor(userID)

	sl.mu.Lock()
	defer sl.mu.Unlock()

	b, err := build()
	if err != nil {
		return models.UserBaseline{}, err
	}
	sl.value.Store(&b)
	return b, nil
}

// Len 当前缓存的用户数
func (s *MemoryStore) Len() int {
	return s.slots.Len()
}

func (s *MemoryStore) slotFor(userID string) *slot {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sl, ok := s.slots.Get(userID); ok {
		return sl
	}
	sl := &slot{}
	s.slots.Add(userID, sl)
	return sl
}
