package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// HistoryLimit bounds the number of archived turn snapshots kept per dialogue.
const HistoryLimit = 100

// SlotBelief holds the candidate values of one slot with their confidence
// scores. Values keep insertion order; overwriting a value keeps its position.
type SlotBelief struct {
	order  []string
	scores map[string]float64
}

func NewSlotBelief() *SlotBelief {
	return &SlotBelief{scores: make(map[string]float64)}
}

// Set adds value or overwrites its score.
func (b *SlotBelief) Set(value string, score float64) {
	if _, ok := b.scores[value]; !ok {
		b.order = append(b.order, value)
	}
	b.scores[value] = score
}

// Delete removes value. Removing an absent value is a no-op.
func (b *SlotBelief) Delete(value string) {
	if _, ok := b.scores[value]; !ok {
		return
	}
	delete(b.scores, value)
	for i, v := range b.order {
		if v == value {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
}

func (b *SlotBelief) Score(value string) (float64, bool) {
	s, ok := b.scores[value]
	return s, ok
}

func (b *SlotBelief) Has(value string) bool {
	_, ok := b.scores[value]
	return ok
}

func (b *SlotBelief) Len() int { return len(b.order) }

// Values returns the candidate values in insertion order.
func (b *SlotBelief) Values() []string {
	out := make([]string, len(b.order))
	copy(out, b.order)
	return out
}

// First returns the earliest inserted candidate that is still live.
func (b *SlotBelief) First() (string, bool) {
	if len(b.order) == 0 {
		return "", false
	}
	return b.order[0], true
}

// Best returns the highest scoring candidate; ties go to the earlier one.
func (b *SlotBelief) Best() (string, bool) {
	best, found := "", false
	var bestScore float64
	for _, v := range b.order {
		if !found || b.scores[v] > bestScore {
			best, bestScore, found = v, b.scores[v], true
		}
	}
	return best, found
}

func (b *SlotBelief) Clone() *SlotBelief {
	c := &SlotBelief{
		order:  make([]string, len(b.order)),
		scores: make(map[string]float64, len(b.scores)),
	}
	copy(c.order, b.order)
	for k, v := range b.scores {
		c.scores[k] = v
	}
	return c
}

func (b *SlotBelief) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, v := range b.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		score, err := json.Marshal(b.scores[v])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(score)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (b *SlotBelief) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("slot belief: expected object, got %v", tok)
	}
	*b = SlotBelief{scores: make(map[string]float64)}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		value, ok := tok.(string)
		if !ok {
			return fmt.Errorf("slot belief: expected string key, got %v", tok)
		}
		var score float64
		if err := dec.Decode(&score); err != nil {
			return fmt.Errorf("slot belief %q: %w", value, err)
		}
		b.Set(value, score)
	}
	_, err = dec.Token()
	return err
}

// BeliefState is the accumulated knowledge of one dialogue.
type BeliefState struct {
	Informs       map[string]*SlotBelief `json:"informs"`
	Requests      map[string]float64     `json:"requests"`
	UserActs      ActionTypeSet          `json:"user_acts"`
	NumMatches    int                    `json:"num_matches"`
	Discriminable bool                   `json:"discriminable"`

	GivenRating      string `json:"given_rating,omitempty"`
	WriteReview      bool   `json:"write_review"`
	Review           string `json:"review,omitempty"`
	StartPoint       string `json:"start_point,omitempty"`
	AskedOpeningDay  string `json:"asked_opening_day,omitempty"`
	AnswerOpeningDay string `json:"answer_opening_day,omitempty"`

	history []*BeliefState
}

// NewBeliefState returns the state of a dialogue before its first turn.
func NewBeliefState() *BeliefState {
	return &BeliefState{
		Informs:       make(map[string]*SlotBelief),
		Requests:      make(map[string]float64),
		UserActs:      make(ActionTypeSet),
		Discriminable: true,
	}
}

// StartNewTurn archives a copy of the current state. The archive is kept for
// replay and debugging only.
func (bs *BeliefState) StartNewTurn() {
	bs.history = append(bs.history, bs.snapshot())
	if len(bs.history) > HistoryLimit {
		bs.history = bs.history[len(bs.history)-HistoryLimit:]
	}
}

// Turn returns the number of archived turns.
func (bs *BeliefState) Turn() int { return len(bs.history) }

// History returns copies of the archived snapshots, oldest first.
func (bs *BeliefState) History() []*BeliefState {
	out := make([]*BeliefState, len(bs.history))
	for i, h := range bs.history {
		out[i] = h.snapshot()
	}
	return out
}

// Clone returns a deep copy including the archive.
func (bs *BeliefState) Clone() *BeliefState {
	c := bs.snapshot()
	c.history = make([]*BeliefState, len(bs.history))
	for i, h := range bs.history {
		c.history[i] = h.snapshot()
	}
	return c
}

func (bs *BeliefState) snapshot() *BeliefState {
	c := *bs
	c.history = nil
	c.Informs = make(map[string]*SlotBelief, len(bs.Informs))
	for slot, b := range bs.Informs {
		c.Informs[slot] = b.Clone()
	}
	c.Requests = make(map[string]float64, len(bs.Requests))
	for slot, s := range bs.Requests {
		c.Requests[slot] = s
	}
	c.UserActs = make(ActionTypeSet, len(bs.UserActs))
	for t := range bs.UserActs {
		c.UserActs.Add(t)
	}
	return &c
}

// Inform records value for slot, creating the slot entry if needed.
func (bs *BeliefState) Inform(slot, value string, score float64) {
	b, ok := bs.Informs[slot]
	if !ok {
		b = NewSlotBelief()
		bs.Informs[slot] = b
	}
	b.Set(value, score)
}

// Informed reports whether slot has an entry, even an empty one.
func (bs *BeliefState) Informed(slot string) bool {
	_, ok := bs.Informs[slot]
	return ok
}

// DropSlot removes every candidate of slot.
func (bs *BeliefState) DropSlot(slot string) {
	delete(bs.Informs, slot)
}

// Constraints turns the informs into knowledge-base constraints. Every live
// candidate of a slot becomes an accepted value; slots informed as dontcare
// are reported separately and do not constrain.
func (bs *BeliefState) Constraints() (Constraints, []string) {
	constraints := make(Constraints)
	var dontcare []string
	for slot, b := range bs.Informs {
		for _, v := range b.Values() {
			if v == DontCare {
				dontcare = append(dontcare, slot)
				continue
			}
			constraints[slot] = append(constraints[slot], v)
		}
	}
	sort.Strings(dontcare)
	return constraints, dontcare
}

func (s ActionTypeSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

func (s *ActionTypeSet) UnmarshalJSON(data []byte) error {
	var types []ActionType
	if err := json.Unmarshal(data, &types); err != nil {
		return err
	}
	*s = make(ActionTypeSet, len(types))
	for _, t := range types {
		s.Add(t)
	}
	return nil
}
