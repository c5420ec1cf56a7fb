package vectorstore

import (
	"context"
	"sync"
	"time"
)

// SyncStore 用互斥锁把一个 Store 串行化，供多个 goroutine（例如并发的
// HTTP 请求）共享。Store 本身独占一条连接、不支持并发调用；需要并发时
// 要么一方一个实例，要么用这个包装。锁内操作仍按调用顺序严格有序。
type SyncStore struct {
	mu sync.Mutex
	s  *Store
}

// Synchronized 包装一个 Store，使其可以被并发调用。
func Synchronized(s *Store) *SyncStore {
	return &SyncStore{s: s}
}

func (ss *SyncStore) EnsureCollection(ctx context.Context, tenantID string, dim int) error {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return ss.s.EnsureCollection(ctx, tenantID, dim)
}

func (ss *SyncStore) DropCollection(ctx context.Context, tenantID string) error {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return ss.s.DropCollection(ctx, tenantID)
}

func (ss *SyncStore) UpsertFragments(ctx context.Context, tenantID string, frags []Fragment) error {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return ss.s.UpsertFragments(ctx, tenantID, frags)
}

func (ss *SyncStore) DeleteFragmentsByDocument(ctx context.Context, tenantID, documentID string) error {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return ss.s.DeleteFragmentsByDocument(ctx, tenantID, documentID)
}

func (ss *SyncStore) Search(ctx context.Context, tenantID string, queryEmbedding []float32, limit int) ([]ScoredFragment, error) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return ss.s.Search(ctx, tenantID, queryEmbedding, limit)
}

func (ss *SyncStore) IsNewOrModified(ctx context.Context, tenantID, fileID string, sourceModified time.Time) bool {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return ss.s.IsNewOrModified(ctx, tenantID, fileID, sourceModified)
}

func (ss *SyncStore) MarkProcessed(ctx context.Context, tenantID, fileID string, sourceModified time.Time) error {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return ss.s.MarkProcessed(ctx, tenantID, fileID, sourceModified)
}

func (ss *SyncStore) DeleteRecord(ctx context.Context, tenantID, fileID string) error {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return ss.s.DeleteRecord(ctx, tenantID, fileID)
}

func (ss *SyncStore) Close(ctx context.Context) error {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return ss.s.Close(ctx)
}
