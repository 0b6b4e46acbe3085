package service

import (
	"context"
	"errors"
	"testing"

	"github.com/Thommy96/BaRiStA/internal/domain"
	"github.com/Thommy96/BaRiStA/internal/store"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testTable = "restaurants"

func testOntology(t *testing.T) *domain.Ontology {
	t.Helper()
	o, err := domain.NewOntology(domain.OntologyDefinition{
		Domain:            testTable,
		Key:               "name",
		Requestable:       []string{"address", "rating", "manner", "opening_hours"},
		SystemRequestable: []string{"cuisine", "price_range"},
		Informable: domain.OrderedSlotValues{
			{Slot: "name", Values: []string{"Trattoria Roma", "Akropolis", "Sakura", "Pizzeria Napoli"}},
			{Slot: "cuisine", Values: []string{"italian", "greek", "japanese"}},
			{Slot: "price_range", Values: []string{"cheap", "moderate", "expensive"}},
		},
		OpeningDay: []string{"Monday", "Tuesday", "Wednesday"},
		Manner:     []string{"takeaway", "delivery"},
		PronounMap: map[string][]string{"name": {"it", "there"}},
	})
	require.NoError(t, err)
	return o
}

func testRows() *domain.RowSet {
	return &domain.RowSet{
		Table: testTable,
		Columns: []string{
			"name", "cuisine", "price_range", "rating", "num_reviews",
			"reviews", "opening_hours", "manner", "address",
		},
		Rows: [][]string{
			{
				"Trattoria Roma", "Italian", "moderate", "4.0", "100",
				"['Great pasta']",
				`{"Monday": "Closed", "Tuesday": "11:30-22:00", "Wednesday": "11:30-22:00"}`,
				`["takeaway", "No delivery"]`,
				"Königstraße 1, 70173 Stuttgart",
			},
			{
				"Akropolis", "greek", "cheap", "3.0", "1",
				"[]",
				`{"Monday": "09:00-18:00", "Tuesday": "Closed", "Wednesday": "09:00-18:00"}`,
				`["No takeaway", "delivery"]`,
				"Marienplatz 3, 70178 Stuttgart",
			},
			{
				"Sakura", "japanese", "expensive", "4.5", "1,234",
				"",
				`{"Monday": "12:00-23:00", "Tuesday": "12:00-23:00", "Wednesday": "12:00-23:00"}`,
				`["drive-through"]`,
				"Calwer Straße 10, 70173 Stuttgart",
			},
			{
				"Pizzeria Napoli", "italian", "cheap", "3.8", "42",
				"[]",
				`{"Monday": "17:00-23:00", "Tuesday": "17:00-23:00", "Wednesday": "Closed"}`,
				`["takeaway", "delivery"]`,
				"Tübinger Straße 5, 70178 Stuttgart",
			},
		},
	}
}

// fakeGeocoder resolves addresses from a fixed table and records lookups.
type fakeGeocoder struct {
	places  map[string]domain.Coordinates
	err     error
	queried []string
}

func (g *fakeGeocoder) Geocode(ctx context.Context, address string) (domain.Coordinates, error) {
	g.queried = append(g.queried, address)
	if g.err != nil {
		return domain.Coordinates{}, g.err
	}
	if err := ctx.Err(); err != nil {
		return domain.Coordinates{}, err
	}
	c, ok := g.places[address]
	if !ok {
		return domain.Coordinates{}, errNoPlace
	}
	return c, nil
}

var errNoPlace = errors.New("no such place")

func newTestKnowledge(t *testing.T, geocoder domain.Geocoder) (*KnowledgeService, *store.KnowledgeStore) {
	t.Helper()
	ctx := context.Background()

	ks, err := store.NewKnowledgeStore(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ks.Close() })
	require.NoError(t, ks.Load(ctx, testRows()))

	return NewKnowledgeService(testOntology(t), ks, "", geocoder, zap.NewNop()), ks
}

func names(rows []domain.Entity) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r["name"]
	}
	return out
}
