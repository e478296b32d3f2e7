package generator

import "sync"

// PlaceholderText 服务启动后、第一次生成完成前对外展示的内容。
const PlaceholderText = "No story generated yet. Request one to get started."

// ResultStore 持有最近一次生成结果的单槽缓存。
// Result 本身当不可变值用：更新只做指针替换，读方拿到的快照不会被改写。
type ResultStore struct {
	mu      sync.RWMutex
	current *Result
}

func NewResultStore() *ResultStore {
	return &ResultStore{current: &Result{Text: PlaceholderText}}
}

// Get 返回当前快照，调用方不得修改返回值。
func (s *ResultStore) Get() *Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Set 原子替换当前快照，nil 会被忽略。
func (s *ResultStore) Set(r *Result) {
	if r == nil {
		return
	}
	s.mu.Lock()
	s.current = r
	s.mu.Unlock()
}
