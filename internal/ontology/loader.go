// Package ontology reads domain ontologies from JSON or YAML files. The key
// order of the informable mappings is kept in both formats.
package ontology

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Thommy96/BaRiStA/internal/domain"
	"gopkg.in/yaml.v3"
)

type file struct {
	Domain             string              `json:"domain" yaml:"domain"`
	DisplayName        string              `json:"display_name" yaml:"display_name"`
	Key                string              `json:"key" yaml:"key"`
	Requestable        []string            `json:"requestable" yaml:"requestable"`
	SystemRequestable  []string            `json:"system_requestable" yaml:"system_requestable"`
	Informable         orderedValues       `json:"informable" yaml:"informable"`
	NegativeInformable orderedValues       `json:"negative_informable" yaml:"negative_informable"`
	RatingsGivable     []string            `json:"ratings_givable" yaml:"ratings_givable"`
	OpeningDay         []string            `json:"opening_day" yaml:"opening_day"`
	Manner             []string            `json:"manner" yaml:"manner"`
	PronounMap         map[string][]string `json:"pronoun_map" yaml:"pronoun_map"`
	Keyword            string              `json:"keyword" yaml:"keyword"`
}

type orderedValues domain.OrderedSlotValues

func (o *orderedValues) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("expected an object of slot to values")
	}
	out := orderedValues{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		slot, _ := tok.(string)
		var values []string
		if err := dec.Decode(&values); err != nil {
			return fmt.Errorf("slot %q: %w", slot, err)
		}
		out = append(out, domain.SlotValues{Slot: slot, Values: values})
	}
	*o = out
	return nil
}

func (o *orderedValues) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping of slot to values", n.Line)
	}
	out := make(orderedValues, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		slot := n.Content[i].Value
		var values []string
		if err := n.Content[i+1].Decode(&values); err != nil {
			return fmt.Errorf("slot %q: %w", slot, err)
		}
		out = append(out, domain.SlotValues{Slot: slot, Values: values})
	}
	*o = out
	return nil
}

// Load reads an ontology file. When the file does not name its domain, the
// file name without extension is used, so restaurants_stuttgart.json
// describes the restaurants_stuttgart domain.
func Load(path string) (*domain.Ontology, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read ontology file: %w", err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	o, err := Parse(data, name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return o, nil
}

// Parse decodes an ontology document. Documents starting with '{' are read
// as JSON, anything else as YAML.
func Parse(data []byte, defaultDomain string) (*domain.Ontology, error) {
	var f file
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &f); err != nil {
			return nil, fmt.Errorf("failed to parse ontology: %w", err)
		}
	} else if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse ontology: %w", err)
	}
	if f.Domain == "" {
		f.Domain = defaultDomain
	}
	return domain.NewOntology(domain.OntologyDefinition{
		Domain:             f.Domain,
		DisplayName:        f.DisplayName,
		Key:                f.Key,
		Requestable:        f.Requestable,
		SystemRequestable:  f.SystemRequestable,
		Informable:         domain.OrderedSlotValues(f.Informable),
		NegativeInformable: domain.OrderedSlotValues(f.NegativeInformable),
		RatingsGivable:     f.RatingsGivable,
		OpeningDay:         f.OpeningDay,
		Manner:             f.Manner,
		PronounMap:         f.PronounMap,
		Keyword:            f.Keyword,
	})
}
