package domain

import (
	"fmt"
	"sort"
)

// ActionType tags a classified user action.
type ActionType string

const (
	ActInform              ActionType = "Inform"
	ActNegativeInform      ActionType = "NegativeInform"
	ActRequest             ActionType = "Request"
	ActRequestAlternatives ActionType = "RequestAlternatives"
	ActHello               ActionType = "Hello"
	ActBye                 ActionType = "Bye"
	ActThanks              ActionType = "Thanks"
	ActAffirm              ActionType = "Affirm"
	ActDeny                ActionType = "Deny"
	ActConfirmRequest      ActionType = "ConfirmRequest"
	ActBad                 ActionType = "Bad"
	ActSelectDomain        ActionType = "SelectDomain"
	ActGiveRating          ActionType = "GiveRating"
	ActWriteReview         ActionType = "WriteReview"
	ActWrittenReview       ActionType = "WrittenReview"
	ActInformStartPoint    ActionType = "InformStartPoint"
	ActAskOpeningDay       ActionType = "AskOpeningDay"
	ActAskManner           ActionType = "AskManner"
	ActAskDistance         ActionType = "AskDistance"
	ActNewDialogue         ActionType = "NewDialogue"
)

var allActionTypes = []ActionType{
	ActInform, ActNegativeInform, ActRequest, ActRequestAlternatives,
	ActHello, ActBye, ActThanks, ActAffirm, ActDeny, ActConfirmRequest, ActBad,
	ActSelectDomain, ActGiveRating, ActWriteReview, ActWrittenReview,
	ActInformStartPoint, ActAskOpeningDay, ActAskManner, ActAskDistance, ActNewDialogue,
}

// AllActionTypes returns every known action type.
func AllActionTypes() []ActionType {
	out := make([]ActionType, len(allActionTypes))
	copy(out, allActionTypes)
	return out
}

// Valid reports whether t is a known action type.
func (t ActionType) Valid() bool {
	for _, known := range allActionTypes {
		if t == known {
			return true
		}
	}
	return false
}

// UserAct is one classified user action as produced by the NLU.
// Slot, Value and Score are optional depending on Type.
type UserAct struct {
	Type  ActionType `json:"type"`
	Slot  string     `json:"slot,omitempty"`
	Value string     `json:"value,omitempty"`
	Score float64    `json:"score,omitempty"`
}

func (a UserAct) String() string {
	return fmt.Sprintf("UserAct(%s, %s, %s, %g)", a.Type, a.Slot, a.Value, a.Score)
}

// ActionTypeSet is the set of action types seen in one turn.
type ActionTypeSet map[ActionType]struct{}

func (s ActionTypeSet) Add(t ActionType) { s[t] = struct{}{} }

func (s ActionTypeSet) Has(t ActionType) bool {
	_, ok := s[t]
	return ok
}

// Sorted returns the members in a stable order.
func (s ActionTypeSet) Sorted() []ActionType {
	out := make([]ActionType, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ActionTypesOf collects the distinct action types in acts.
func ActionTypesOf(acts []UserAct) ActionTypeSet {
	set := make(ActionTypeSet, len(acts))
	for _, a := range acts {
		set.Add(a.Type)
	}
	return set
}
