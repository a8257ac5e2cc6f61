package config

import (
	"sync/atomic"
)

// snapshotStore 以不可变快照保存配置树：读取无锁，替换原子生效。
// 快照一旦发布就不再修改，重载总是整树替换。
type snapshotStore struct {
	snap atomic.Pointer[map[string]any]
}

func newSnapshotStore(data map[string]any) *snapshotStore {
	s := &snapshotStore{}
	if data == nil {
		data = make(map[string]any)
	}
	s.snap.Store(&data)
	return s
}

// Snapshot 返回当前快照。调用方不得修改返回的 map。
func (s *snapshotStore) Snapshot() map[string]any {
	return *s.snap.Load()
}

// Replace 原子替换为新快照。
func (s *snapshotStore) Replace(data map[string]any) {
	s.snap.Store(&data)
}

// Clone 返回快照的递归副本，调用方可安全修改。
func (s *snapshotStore) Clone() map[string]any {
	result := make(map[string]any)
	mergeMaps(result, s.Snapshot())
	return result
}
