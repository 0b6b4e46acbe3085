package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// DontCare is the value a user informs when a slot should not constrain results.
const DontCare = "dontcare"

// OntologyDefinition is the static, file-level description of a domain.
// Field names follow the on-disk ontology format.
type OntologyDefinition struct {
	Domain             string              `json:"domain,omitempty"`
	DisplayName        string              `json:"display_name,omitempty"`
	Key                string              `json:"key"`
	Requestable        []string            `json:"requestable"`
	SystemRequestable  []string            `json:"system_requestable"`
	Informable         OrderedSlotValues   `json:"informable"`
	NegativeInformable OrderedSlotValues   `json:"negative_informable,omitempty"`
	RatingsGivable     []string            `json:"ratings_givable,omitempty"`
	OpeningDay         []string            `json:"opening_day,omitempty"`
	Manner             []string            `json:"manner,omitempty"`
	PronounMap         map[string][]string `json:"pronoun_map,omitempty"`
	Keyword            string              `json:"keyword,omitempty"`
}

// Ontology is the immutable, loaded-once view of a domain definition.
type Ontology struct {
	def OntologyDefinition
}

// NewOntology wraps a definition. The definition is validated and copied so
// later changes to the caller's value do not leak into the ontology.
func NewOntology(def OntologyDefinition) (*Ontology, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}
	o := &Ontology{def: def}
	o.def.Requestable = cloneStrings(def.Requestable)
	o.def.SystemRequestable = cloneStrings(def.SystemRequestable)
	o.def.Informable = def.Informable.clone()
	o.def.NegativeInformable = def.NegativeInformable.clone()
	o.def.RatingsGivable = cloneStrings(def.RatingsGivable)
	o.def.OpeningDay = cloneStrings(def.OpeningDay)
	o.def.Manner = cloneStrings(def.Manner)
	o.def.PronounMap = make(map[string][]string, len(def.PronounMap))
	for slot, pronouns := range def.PronounMap {
		o.def.PronounMap[slot] = cloneStrings(pronouns)
	}
	return o, nil
}

// Validate checks that the primary key is set and that every slot referenced
// by the key or the pronoun map is declared in some slot category.
func (d OntologyDefinition) Validate() error {
	if d.Domain == "" {
		return fmt.Errorf("ontology: domain name is required")
	}
	if d.Key == "" {
		return fmt.Errorf("ontology %s: primary key is required", d.Domain)
	}
	known := d.declaredSlots()
	if _, ok := known[d.Key]; !ok {
		return fmt.Errorf("ontology %s: primary key %q is not a declared slot", d.Domain, d.Key)
	}
	for slot := range d.PronounMap {
		if _, ok := known[slot]; !ok {
			return fmt.Errorf("ontology %s: pronoun map references undeclared slot %q", d.Domain, slot)
		}
	}
	return nil
}

func (d OntologyDefinition) declaredSlots() map[string]struct{} {
	known := make(map[string]struct{})
	for _, s := range d.Requestable {
		known[s] = struct{}{}
	}
	for _, s := range d.SystemRequestable {
		known[s] = struct{}{}
	}
	for _, e := range d.Informable {
		known[e.Slot] = struct{}{}
	}
	for _, e := range d.NegativeInformable {
		known[e.Slot] = struct{}{}
	}
	return known
}

func (o *Ontology) DomainName() string { return o.def.Domain }

// DisplayName falls back to the domain name.
func (o *Ontology) DisplayName() string {
	if o.def.DisplayName != "" {
		return o.def.DisplayName
	}
	return o.def.Domain
}

// PrimaryKey returns the column that uniquely identifies an entity.
func (o *Ontology) PrimaryKey() string { return o.def.Key }

func (o *Ontology) RequestableSlots() []string { return cloneStrings(o.def.Requestable) }

func (o *Ontology) SystemRequestableSlots() []string {
	return cloneStrings(o.def.SystemRequestable)
}

// InformableSlots returns informable slots in definition order.
func (o *Ontology) InformableSlots() []string { return o.def.Informable.Slots() }

// PossibleValues returns the legal values of an informable slot.
func (o *Ontology) PossibleValues(slot string) []string {
	return cloneStrings(o.def.Informable.Values(slot))
}

func (o *Ontology) NegativeInformableSlots() []string { return o.def.NegativeInformable.Slots() }

func (o *Ontology) NegativeInformValues(slot string) []string {
	return cloneStrings(o.def.NegativeInformable.Values(slot))
}

func (o *Ontology) GivableRatings() []string { return cloneStrings(o.def.RatingsGivable) }

func (o *Ontology) OpeningDays() []string { return cloneStrings(o.def.OpeningDay) }

func (o *Ontology) Manners() []string { return cloneStrings(o.def.Manner) }

// Pronouns returns the pronouns that may refer to a slot, or nil.
func (o *Ontology) Pronouns(slot string) []string {
	return cloneStrings(o.def.PronounMap[slot])
}

func (o *Ontology) Keyword() string { return o.def.Keyword }

// IsInformable reports whether slot is declared informable.
func (o *Ontology) IsInformable(slot string) bool {
	return o.def.Informable.Values(slot) != nil
}

// Definition returns a copy of the underlying definition.
func (o *Ontology) Definition() OntologyDefinition {
	def := o.def
	def.Requestable = cloneStrings(o.def.Requestable)
	def.SystemRequestable = cloneStrings(o.def.SystemRequestable)
	def.Informable = o.def.Informable.clone()
	def.NegativeInformable = o.def.NegativeInformable.clone()
	def.RatingsGivable = cloneStrings(o.def.RatingsGivable)
	def.OpeningDay = cloneStrings(o.def.OpeningDay)
	def.Manner = cloneStrings(o.def.Manner)
	def.PronounMap = make(map[string][]string, len(o.def.PronounMap))
	for slot, p := range o.def.PronounMap {
		def.PronounMap[slot] = cloneStrings(p)
	}
	return def
}

// SlotValues is one slot with its ordered list of legal values.
type SlotValues struct {
	Slot   string
	Values []string
}

// OrderedSlotValues keeps the definition order of slot -> values mappings.
// It encodes as a JSON object whose keys keep that order. Decoding from files
// is done by the ontology package.
type OrderedSlotValues []SlotValues

func (o OrderedSlotValues) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Slot)
		if err != nil {
			return nil, err
		}
		values := e.Values
		if values == nil {
			values = []string{}
		}
		val, err := json.Marshal(values)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Slots returns the slot names in order.
func (o OrderedSlotValues) Slots() []string {
	out := make([]string, 0, len(o))
	for _, e := range o {
		out = append(out, e.Slot)
	}
	return out
}

// Values returns the values of slot, or nil when the slot is absent.
func (o OrderedSlotValues) Values(slot string) []string {
	for _, e := range o {
		if e.Slot == slot {
			if e.Values == nil {
				return []string{}
			}
			return e.Values
		}
	}
	return nil
}

// Map returns an unordered copy.
func (o OrderedSlotValues) Map() map[string][]string {
	out := make(map[string][]string, len(o))
	for _, e := range o {
		out[e.Slot] = cloneStrings(e.Values)
	}
	return out
}

// FromMap builds an OrderedSlotValues sorted by slot name.
func FromMap(m map[string][]string) OrderedSlotValues {
	slots := make([]string, 0, len(m))
	for s := range m {
		slots = append(slots, s)
	}
	sort.Strings(slots)
	out := make(OrderedSlotValues, 0, len(slots))
	for _, s := range slots {
		out = append(out, SlotValues{Slot: s, Values: cloneStrings(m[s])})
	}
	return out
}

func (o OrderedSlotValues) clone() OrderedSlotValues {
	if o == nil {
		return nil
	}
	out := make(OrderedSlotValues, len(o))
	for i, e := range o {
		out[i] = SlotValues{Slot: e.Slot, Values: cloneStrings(e.Values)}
	}
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
