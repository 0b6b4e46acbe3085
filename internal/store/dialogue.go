package store

import (
	"context"
	"sync"
	"time"

	"github.com/Thommy96/BaRiStA/internal/domain"
	"github.com/google/uuid"
)

// DialogueStore keeps active dialogues in process memory. Stored values are
// deep copies so callers never share belief states through the store.
type DialogueStore struct {
	mu        sync.RWMutex
	dialogues map[uuid.UUID]*domain.Dialogue
}

func NewDialogueStore() *DialogueStore {
	return &DialogueStore{dialogues: make(map[uuid.UUID]*domain.Dialogue)}
}

func (s *DialogueStore) Create(ctx context.Context, d *domain.Dialogue) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if _, exists := s.dialogues[d.ID]; exists {
		return ErrConflict
	}
	now := time.Now()
	if d.StartedAt.IsZero() {
		d.StartedAt = now
	}
	d.LastActivityAt = now
	if d.State == nil {
		d.State = domain.NewBeliefState()
	}
	s.dialogues[d.ID] = copyDialogue(d)
	return nil
}

func (s *DialogueStore) Get(ctx context.Context, id uuid.UUID) (*domain.Dialogue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.dialogues[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyDialogue(d), nil
}

func (s *DialogueStore) Save(ctx context.Context, d *domain.Dialogue) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.dialogues[d.ID]; !ok {
		return ErrNotFound
	}
	d.LastActivityAt = time.Now()
	s.dialogues[d.ID] = copyDialogue(d)
	return nil
}

func (s *DialogueStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.dialogues[id]; !ok {
		return ErrNotFound
	}
	delete(s.dialogues, id)
	return nil
}

// DeleteIdle removes dialogues whose last activity is before the cutoff.
func (s *DialogueStore) DeleteIdle(ctx context.Context, before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for id, d := range s.dialogues {
		if d.LastActivityAt.Before(before) {
			delete(s.dialogues, id)
			deleted++
		}
	}
	return deleted, nil
}

func (s *DialogueStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.dialogues), nil
}

func copyDialogue(d *domain.Dialogue) *domain.Dialogue {
	c := *d
	if d.State != nil {
		c.State = d.State.Clone()
	}
	return &c
}

var _ domain.DialogueStore = (*DialogueStore)(nil)
