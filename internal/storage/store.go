package storage

import "ideaspark/internal/session"

// ProgressKey 会话快照的持久化键
// ProgressKey is the durable key holding the session snapshot
const ProgressKey = "ideaSparkProgress"

// Store 会话快照持久化接口，整块读写，不做部分更新
// Store persists the whole session snapshot; reads and writes are never partial
type Store interface {
	// Save 覆盖写入快照 / Save overwrites the stored snapshot
	Save(state session.State) error

	// Load 读取快照；不存在或损坏时返回空状态，从不返回解析错误
	// Load returns the stored snapshot, or the empty state when missing or malformed
	Load() session.State

	// Clear 删除快照 / Clear removes the stored snapshot
	Clear() error

	// Close 释放资源 / Close releases resources
	Close() error
}
