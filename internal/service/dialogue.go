package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Thommy96/BaRiStA/internal/domain"
	"github.com/Thommy96/BaRiStA/internal/metrics"
	"github.com/Thommy96/BaRiStA/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrDialogueNotFound = errors.New("dialogue not found")
	ErrInvalidUserAct   = errors.New("invalid user act")
)

// DialogueService tracks belief states across the turns of many dialogues.
// Turns of one dialogue are processed one at a time; different dialogues
// proceed concurrently.
type DialogueService struct {
	store   domain.DialogueStore
	tracker *BeliefTracker
	metrics *metrics.Metrics
	logger  *zap.Logger

	locks sync.Map // uuid.UUID -> *sync.Mutex
}

func NewDialogueService(s domain.DialogueStore, tracker *BeliefTracker, logger *zap.Logger) *DialogueService {
	return &DialogueService{
		store:   s,
		tracker: tracker,
		logger:  logger,
	}
}

func (s *DialogueService) SetMetrics(m *metrics.Metrics) { s.metrics = m }

// Create starts a dialogue with an empty belief state.
func (s *DialogueService) Create(ctx context.Context) (*domain.Dialogue, error) {
	d := &domain.Dialogue{State: domain.NewBeliefState()}
	if err := s.store.Create(ctx, d); err != nil {
		return nil, err
	}
	s.reportActive(ctx)
	s.logger.Info("dialogue started", zap.String("dialogue_id", d.ID.String()))
	return d, nil
}

func (s *DialogueService) Get(ctx context.Context, id uuid.UUID) (*domain.Dialogue, error) {
	d, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrDialogueNotFound
		}
		return nil, err
	}
	return d, nil
}

// Turn applies one batch of user actions to a dialogue. Acts with an unknown
// type are rejected before the state is touched. A failed update leaves the
// stored state unchanged.
func (s *DialogueService) Turn(ctx context.Context, id uuid.UUID, acts []domain.UserAct) (*domain.Dialogue, error) {
	for _, act := range acts {
		if !act.Type.Valid() {
			s.metrics.Turn("rejected")
			return nil, fmt.Errorf("%w: %q", ErrInvalidUserAct, act.Type)
		}
	}

	mu := s.lock(id)
	mu.Lock()
	defer mu.Unlock()

	d, err := s.Get(ctx, id)
	if err != nil {
		s.metrics.Turn("rejected")
		return nil, err
	}

	state, err := s.tracker.Update(ctx, d.State, acts)
	if err != nil {
		s.metrics.Turn("error")
		s.logger.Warn("belief state update failed",
			zap.String("dialogue_id", id.String()),
			zap.Int("acts", len(acts)),
			zap.Error(err))
		return nil, err
	}
	d.State = state

	if err := s.store.Save(ctx, d); err != nil {
		s.metrics.Turn("error")
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrDialogueNotFound
		}
		return nil, err
	}
	s.metrics.Turn("ok")
	s.logger.Debug("turn processed",
		zap.String("dialogue_id", id.String()),
		zap.Int("turn", state.Turn()),
		zap.Int("num_matches", state.NumMatches))
	return d, nil
}

// End forgets a dialogue.
func (s *DialogueService) End(ctx context.Context, id uuid.UUID) error {
	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrDialogueNotFound
		}
		return err
	}
	s.locks.Delete(id)
	s.reportActive(ctx)
	s.logger.Info("dialogue ended", zap.String("dialogue_id", id.String()))
	return nil
}

func (s *DialogueService) Count(ctx context.Context) (int, error) {
	return s.store.Count(ctx)
}

// ExpireIdle ends every dialogue without activity since before.
func (s *DialogueService) ExpireIdle(ctx context.Context, before time.Time) (int, error) {
	n, err := s.store.DeleteIdle(ctx, before)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.locks.Range(func(key, _ any) bool {
			id := key.(uuid.UUID)
			if _, err := s.store.Get(ctx, id); errors.Is(err, store.ErrNotFound) {
				s.locks.Delete(id)
			}
			return true
		})
		s.reportActive(ctx)
	}
	return n, nil
}

func (s *DialogueService) lock(id uuid.UUID) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

func (s *DialogueService) reportActive(ctx context.Context) {
	if n, err := s.store.Count(ctx); err == nil {
		s.metrics.ActiveDialogues(n)
	}
}
