package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Thommy96/BaRiStA/internal/domain"
	"github.com/Thommy96/BaRiStA/internal/metrics"
	"go.uber.org/zap"
)

var ErrNoEntitySelected = errors.New("no entity selected")

// Opening-day answers stored in the belief state.
const (
	openedAnswer = "is opened :-) The opening hours on %s is %s"
	closedAnswer = "is closed! the opening days are:"
)

// BeliefTracker applies the user actions of a turn to a belief state using
// fixed merge rules. It holds no per-dialogue state and is safe for
// concurrent use across dialogues.
type BeliefTracker struct {
	ontology *domain.Ontology
	kb       domain.KnowledgeBase
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

func NewBeliefTracker(ontology *domain.Ontology, kb domain.KnowledgeBase, logger *zap.Logger) *BeliefTracker {
	return &BeliefTracker{
		ontology: ontology,
		kb:       kb,
		logger:   logger,
	}
}

func (t *BeliefTracker) SetMetrics(m *metrics.Metrics) { t.metrics = m }

// Update advances bs by one turn and applies acts. The returned state is bs
// itself unless the turn starts a new dialogue, in which case a fresh state
// is returned and the remaining actions of the turn are ignored.
func (t *BeliefTracker) Update(ctx context.Context, bs *domain.BeliefState, acts []domain.UserAct) (*domain.BeliefState, error) {
	if bs == nil {
		bs = domain.NewBeliefState()
	}
	bs.StartNewTurn()
	if len(acts) == 0 {
		return bs, nil
	}

	for _, act := range acts {
		t.metrics.UserAct(string(act.Type))
	}

	if hasAct(acts, domain.ActNewDialogue) {
		fresh := domain.NewBeliefState()
		fresh.StartNewTurn()
		fresh.UserActs.Add(domain.ActNewDialogue)
		if len(acts) > 1 {
			t.logger.Debug("new dialogue requested, ignoring co-occurring actions", zap.Int("ignored", len(acts)-1))
		}
		return fresh, nil
	}

	t.resetInforms(bs, acts)
	bs.Requests = make(map[string]float64)
	bs.UserActs = domain.ActionTypesOf(acts)

	if err := t.handleActs(ctx, bs, acts); err != nil {
		return bs, err
	}

	if err := t.countMatches(ctx, bs); err != nil {
		if !errors.Is(err, ErrStructuralMismatch) {
			return bs, err
		}
		t.logger.Debug("match count skipped", zap.Error(err))
	}
	return bs, nil
}

// resetInforms drops the accumulated values of every slot informed this turn.
func (t *BeliefTracker) resetInforms(bs *domain.BeliefState, acts []domain.UserAct) {
	for _, act := range acts {
		if act.Type == domain.ActInform {
			bs.DropSlot(act.Slot)
		}
	}
}

func (t *BeliefTracker) handleActs(ctx context.Context, bs *domain.BeliefState, acts []domain.UserAct) error {
	pk := t.ontology.PrimaryKey()

	// New information invalidates the selected entity.
	if bs.Informed(pk) && bs.UserActs.Has(domain.ActInform) {
		bs.DropSlot(pk)
	} else if bs.UserActs.Has(domain.ActSelectDomain) {
		bs.Informs = make(map[string]*domain.SlotBelief)
		bs.Requests = make(map[string]float64)
	}

	for _, act := range acts {
		switch act.Type {
		case domain.ActRequest:
			bs.Requests[act.Slot] = act.Score
		case domain.ActInform:
			bs.Inform(act.Slot, act.Value, act.Score)
		case domain.ActNegativeInform:
			if b, ok := bs.Informs[act.Slot]; ok {
				b.Delete(act.Value)
			}
		case domain.ActRequestAlternatives:
			bs.DropSlot(pk)
		case domain.ActGiveRating:
			bs.GivenRating = act.Value
		case domain.ActWriteReview:
			bs.WriteReview = true
		case domain.ActWrittenReview:
			bs.Review = act.Value
		case domain.ActInformStartPoint:
			bs.StartPoint = act.Value
		case domain.ActAskOpeningDay:
			if err := t.answerOpeningDay(ctx, bs, act.Value); err != nil {
				return err
			}
		case domain.ActNewDialogue:
			// handled before dispatch
		case domain.ActSelectDomain,
			domain.ActHello, domain.ActBye, domain.ActThanks,
			domain.ActAffirm, domain.ActDeny, domain.ActConfirmRequest, domain.ActBad,
			domain.ActAskManner, domain.ActAskDistance:
			// only recorded in UserActs
		default:
			t.logger.Warn("unknown user act type", zap.String("type", string(act.Type)))
		}
	}
	return nil
}

// answerOpeningDay uses the first inserted candidate of the primary key, not
// the highest scored one.
func (t *BeliefTracker) answerOpeningDay(ctx context.Context, bs *domain.BeliefState, day string) error {
	bs.AskedOpeningDay = day

	var entity string
	if b, ok := bs.Informs[t.ontology.PrimaryKey()]; ok {
		entity, _ = b.First()
	}
	if entity == "" {
		return fmt.Errorf("ask opening day %q: %w", day, ErrNoEntitySelected)
	}

	hours, err := t.kb.OpeningHours(ctx, entity)
	if err != nil {
		return fmt.Errorf("ask opening day for %q: %w", entity, err)
	}
	info, ok := hours.Lookup(capitalize(day))
	if !ok {
		return fmt.Errorf("ask opening day for %q: %w: %s", entity, ErrDayNotFound, day)
	}

	if info != domain.ClosedDay {
		bs.AnswerOpeningDay = fmt.Sprintf(openedAnswer, day, info)
		return nil
	}
	var b strings.Builder
	b.WriteString(closedAnswer)
	for _, d := range hours.OpenDays() {
		b.WriteString(" ")
		b.WriteString(d)
	}
	bs.AnswerOpeningDay = b.String()
	return nil
}

// countMatches stores how many entities satisfy the informs and whether a
// system-requestable slot still tells them apart.
func (t *BeliefTracker) countMatches(ctx context.Context, bs *domain.BeliefState) error {
	constraints, dontcare := bs.Constraints()
	matches, err := t.kb.FindEntities(ctx, constraints)
	if err != nil {
		return err
	}
	bs.NumMatches = len(matches)
	bs.Discriminable = Discriminable(matches, t.ontology.SystemRequestableSlots(), dontcare)
	return nil
}

// Discriminable reports whether more than one entity matches and at least one
// slot outside dontcare takes different values across them.
func Discriminable(matches []domain.Entity, slots, dontcare []string) bool {
	if len(matches) <= 1 {
		return false
	}
	skip := make(map[string]struct{}, len(dontcare))
	for _, s := range dontcare {
		skip[s] = struct{}{}
	}
	for _, slot := range slots {
		if _, ok := skip[slot]; ok {
			continue
		}
		first := matches[0][slot]
		for _, m := range matches[1:] {
			if m[slot] != first {
				return true
			}
		}
	}
	return false
}

func hasAct(acts []domain.UserAct, typ domain.ActionType) bool {
	for _, a := range acts {
		if a.Type == typ {
			return true
		}
	}
	return false
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
