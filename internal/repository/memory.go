package repository

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/quarterchat/match-server-go/internal/model"
)

// MemoryMatchRepository is an in-process MatchRepository used by tests and
// the local development mode. Patches are applied atomically under a lock,
// so it behaves like the Postgres backend's conditional update.
type MemoryMatchRepository struct {
	mu      sync.RWMutex
	byRef   map[string]*model.Match
	byMatch map[string]string // match_id -> record ref
}

func NewMemoryMatchRepository() *MemoryMatchRepository {
	return &MemoryMatchRepository{
		byRef:   make(map[string]*model.Match),
		byMatch: make(map[string]string),
	}
}

func (r *MemoryMatchRepository) FindByMatchID(_ context.Context, matchID string) (*model.Match, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ref, ok := r.byMatch[matchID]
	if !ok {
		return nil, nil
	}
	copied := *r.byRef[ref]
	return &copied, nil
}

func (r *MemoryMatchRepository) Create(_ context.Context, params model.CreateMatchParams) (*model.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m := &model.Match{
		RecordRef:   uuid.NewString(),
		MatchID:     params.MatchID,
		Status:      params.Status,
		AJoinKey:    params.AJoinKey,
		BJoinKey:    params.BJoinKey,
		AUserID:     params.AUserID,
		BUserID:     params.BUserID,
		ChannelType: params.ChannelType,
		ChannelID:   params.ChannelID,
	}
	r.byRef[m.RecordRef] = m
	r.byMatch[m.MatchID] = m.RecordRef

	copied := *m
	return &copied, nil
}

func (r *MemoryMatchRepository) Patch(_ context.Context, recordRef string, patch model.MatchPatch) (*model.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.byRef[recordRef]
	if !ok {
		return nil, nil
	}

	if patch.ASentFirst != nil {
		m.ASentFirst = *patch.ASentFirst
	}
	if patch.BSentFirst != nil {
		m.BSentFirst = *patch.BSentFirst
	}
	if patch.StartedAt != nil && patch.ExpiresAt != nil && m.StartedAt == nil {
		started := *patch.StartedAt
		expires := *patch.ExpiresAt
		m.StartedAt = &started
		m.ExpiresAt = &expires
	}

	copied := *m
	return &copied, nil
}

// Put seeds a match record directly; test helper.
func (r *MemoryMatchRepository) Put(m *model.Match) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if m.RecordRef == "" {
		m.RecordRef = uuid.NewString()
	}
	copied := *m
	r.byRef[copied.RecordRef] = &copied
	r.byMatch[copied.MatchID] = copied.RecordRef
}
