package state

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/goliatone/go-argstore"
)

// MemoryStore is an in-memory Store for tests and examples. It keys records by
// Ref.Identifier(), checks the ETag precondition under its lock and assigns a
// fresh ETag on every save.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]memoryRecord
}

type memoryRecord struct {
	snapshot argstore.Snapshot
	meta     Meta
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: map[string]memoryRecord{}}
}

func (s *MemoryStore) Load(_ context.Context, ref Ref) (argstore.Snapshot, Meta, bool, error) {
	key, err := ref.Identifier()
	if err != nil {
		return nil, Meta{}, false, err
	}

	s.mu.RLock()
	record, ok := s.records[key]
	s.mu.RUnlock()
	if !ok {
		return nil, Meta{}, false, nil
	}
	return record.snapshot.Clone(), cloneMeta(record.meta), true, nil
}

func (s *MemoryStore) Save(_ context.Context, ref Ref, snapshot argstore.Snapshot, meta Meta) (Meta, error) {
	key, err := ref.Identifier()
	if err != nil {
		return Meta{}, err
	}

	stored := cloneMeta(meta)
	stored.ETag = uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()
	current, exists := s.records[key]
	if err := CheckETag(meta.ETag, current.meta, exists); err != nil {
		return Meta{}, err
	}
	s.records[key] = memoryRecord{snapshot: snapshot.Clone(), meta: stored}
	return cloneMeta(stored), nil
}

// Len returns the number of stored snapshots.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func cloneMeta(meta Meta) Meta {
	out := meta
	if meta.Extra == nil {
		return out
	}
	out.Extra = make(map[string]string, len(meta.Extra))
	for k, v := range meta.Extra {
		out.Extra[k] = v
	}
	return out
}
