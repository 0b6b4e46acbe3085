// Package bus carries dialogue turns over NATS: classified user actions come
// in on <prefix>.user_acts and updated belief states go out on
// <prefix>.beliefstate.
package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Thommy96/BaRiStA/internal/domain"
	"github.com/Thommy96/BaRiStA/internal/service"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const (
	DefaultPrefix = "adviser"

	defaultTurnTimeout = 30 * time.Second
)

var ErrBadEnvelope = errors.New("bad turn envelope")

// Conn is the part of *nats.Conn the bridge uses.
type Conn interface {
	Subscribe(subject string, cb nats.MsgHandler) (*nats.Subscription, error)
	Publish(subject string, data []byte) error
}

// TurnRequest is the inbound envelope. An empty DialogueID starts a new
// dialogue.
type TurnRequest struct {
	DialogueID string           `json:"dialogue_id,omitempty"`
	UserActs   []domain.UserAct `json:"user_acts"`
}

// TurnResult is published after every turn and sent to the reply subject when
// the request carried one. Failed turns are only replied to.
type TurnResult struct {
	DialogueID  string              `json:"dialogue_id,omitempty"`
	Turn        int                 `json:"turn,omitempty"`
	BeliefState *domain.BeliefState `json:"beliefstate,omitempty"`
	Error       string              `json:"error,omitempty"`
}

type Bridge struct {
	conn        Conn
	dialogues   *service.DialogueService
	prefix      string
	turnTimeout time.Duration
	logger      *zap.Logger

	mu  sync.Mutex
	sub *nats.Subscription
}

func NewBridge(conn Conn, dialogues *service.DialogueService, prefix string, logger *zap.Logger) *Bridge {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Bridge{
		conn:        conn,
		dialogues:   dialogues,
		prefix:      prefix,
		turnTimeout: defaultTurnTimeout,
		logger:      logger,
	}
}

func (b *Bridge) InSubject() string  { return b.prefix + ".user_acts" }
func (b *Bridge) OutSubject() string { return b.prefix + ".beliefstate" }

// Start subscribes to the inbound subject.
func (b *Bridge) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.sub != nil {
		return nil
	}
	sub, err := b.conn.Subscribe(b.InSubject(), b.handle)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", b.InSubject(), err)
	}
	b.sub = sub
	b.logger.Info("turn bridge started",
		zap.String("in", b.InSubject()),
		zap.String("out", b.OutSubject()))
	return nil
}

// Stop unsubscribes; messages already delivered are still processed.
func (b *Bridge) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.sub == nil {
		return
	}
	if err := b.sub.Unsubscribe(); err != nil {
		b.logger.Warn("unsubscribe failed", zap.Error(err))
	}
	b.sub = nil
	b.logger.Info("turn bridge stopped")
}

func (b *Bridge) handle(msg *nats.Msg) {
	ctx, cancel := context.WithTimeout(context.Background(), b.turnTimeout)
	defer cancel()

	result, err := b.Process(ctx, msg.Data)
	if err != nil {
		b.logger.Warn("turn failed",
			zap.String("subject", msg.Subject),
			zap.String("dialogue_id", result.DialogueID),
			zap.Error(err))
		result.Error = err.Error()
	} else {
		b.publish(b.OutSubject(), result)
	}

	if msg.Reply != "" {
		b.publish(msg.Reply, result)
	}
}

// Process decodes one envelope and runs its turn.
func (b *Bridge) Process(ctx context.Context, data []byte) (TurnResult, error) {
	var req TurnRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return TurnResult{}, fmt.Errorf("%w: %v", ErrBadEnvelope, err)
	}

	var id uuid.UUID
	if req.DialogueID == "" {
		d, err := b.dialogues.Create(ctx)
		if err != nil {
			return TurnResult{}, err
		}
		id = d.ID
	} else {
		parsed, err := uuid.Parse(req.DialogueID)
		if err != nil {
			return TurnResult{DialogueID: req.DialogueID}, fmt.Errorf("%w: dialogue_id: %v", ErrBadEnvelope, err)
		}
		id = parsed
	}

	d, err := b.dialogues.Turn(ctx, id, req.UserActs)
	if err != nil {
		return TurnResult{DialogueID: id.String()}, err
	}
	return TurnResult{
		DialogueID:  d.ID.String(),
		Turn:        d.State.Turn(),
		BeliefState: d.State,
	}, nil
}

func (b *Bridge) publish(subject string, result TurnResult) {
	data, err := json.Marshal(result)
	if err != nil {
		b.logger.Error("encode turn result", zap.Error(err))
		return
	}
	if err := b.conn.Publish(subject, data); err != nil {
		b.logger.Warn("publish failed", zap.String("subject", subject), zap.Error(err))
	}
}

var _ Conn = (*nats.Conn)(nil)
