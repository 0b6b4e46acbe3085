package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	mw "github.com/Thommy96/BaRiStA/internal/api/middleware"
	"github.com/Thommy96/BaRiStA/internal/domain"
	"github.com/Thommy96/BaRiStA/internal/metrics"
	"github.com/Thommy96/BaRiStA/internal/service"
	"github.com/Thommy96/BaRiStA/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubGeocoder map[string]domain.Coordinates

func (g stubGeocoder) Geocode(ctx context.Context, address string) (domain.Coordinates, error) {
	c, ok := g[address]
	if !ok {
		return domain.Coordinates{}, errors.New("unknown address")
	}
	return c, nil
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("database is gone") }

func testServices(t *testing.T) Services {
	t.Helper()
	ctx := context.Background()

	o, err := domain.NewOntology(domain.OntologyDefinition{
		Domain:            "restaurants",
		Key:               "name",
		Requestable:       []string{"address", "rating", "reviews", "manner", "opening_hours"},
		SystemRequestable: []string{"cuisine", "price_range"},
		Informable: domain.OrderedSlotValues{
			{Slot: "name", Values: []string{"Trattoria Roma", "Akropolis", "Sakura"}},
			{Slot: "cuisine", Values: []string{"italian", "greek", "japanese"}},
			{Slot: "price_range", Values: []string{"cheap", "moderate", "expensive"}},
		},
		RatingsGivable: []string{"1", "2", "3", "4", "5"},
		OpeningDay:     []string{"Monday", "Tuesday"},
		Manner:         []string{"takeaway", "delivery"},
	})
	require.NoError(t, err)

	kb, err := store.NewKnowledgeStore(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = kb.Close() })
	require.NoError(t, kb.Load(ctx, &domain.RowSet{
		Table: "restaurants",
		Columns: []string{
			"name", "cuisine", "price_range", "rating", "num_reviews",
			"reviews", "opening_hours", "manner", "address",
		},
		Rows: [][]string{
			{"Trattoria Roma", "Italian", "moderate", "4.0", "100", "[]",
				`{"Monday": "Closed", "Tuesday": "11:30-22:00"}`, `["takeaway", "No delivery"]`,
				"Königstraße 1, 70173 Stuttgart"},
			{"Akropolis", "greek", "cheap", "3.0", "1", "[]",
				`{"Monday": "09:00-18:00", "Tuesday": "Closed"}`, `["delivery"]`,
				"Marienplatz 3, 70178 Stuttgart"},
			{"Sakura", "japanese", "expensive", "4.5", "10", "[]",
				`{"Monday": "12:00-23:00", "Tuesday": "12:00-23:00"}`, `["drive-through"]`,
				"Calwer Straße 10, 70173 Stuttgart"},
		},
	}))

	m := metrics.New()
	geocoder := stubGeocoder{
		"Calwer Straße 10, 70173 Stuttgart":     {Lat: 48.7770, Lon: 9.1750},
		"Arnulf-Klett-Platz 2, 70173 Stuttgart": {Lat: 48.7840, Lon: 9.1817},
	}
	knowledge := service.NewKnowledgeService(o, kb, "", geocoder, zap.NewNop())
	knowledge.SetMetrics(m)
	tracker := service.NewBeliefTracker(o, knowledge, zap.NewNop())
	tracker.SetMetrics(m)
	dialogues := service.NewDialogueService(store.NewDialogueStore(), tracker, zap.NewNop())
	dialogues.SetMetrics(m)

	return Services{Dialogues: dialogues, Knowledge: knowledge, Metrics: m, KB: kb}
}

func newTestServer(t *testing.T, opts Options) *httptest.Server {
	t.Helper()
	app := NewApp(testServices(t), opts, zap.NewNop())
	srv := httptest.NewServer(app.Router)
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url string, body any, header http.Header) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func decode(t *testing.T, data []byte) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out), string(data))
	return out
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, Options{})

	resp, body := do(t, http.MethodGet, srv.URL+"/health", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode(t, body)
	assert.Equal(t, "ok", got["status"])
	assert.Equal(t, "dev", got["version"])
	assert.NotEmpty(t, resp.Header.Get(mw.RequestIDHeader))
}

func TestHealth_KnowledgeBaseDown(t *testing.T) {
	svcs := testServices(t)
	svcs.KB = failingPinger{}
	srv := httptest.NewServer(NewApp(svcs, Options{}, zap.NewNop()).Router)
	t.Cleanup(srv.Close)

	resp, body := do(t, http.MethodGet, srv.URL+"/health", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "database is gone", decode(t, body)["error"])
}

func TestAPIKeyRequired(t *testing.T) {
	srv := newTestServer(t, Options{APIKeyHash: mw.HashAPIKey("letmein")})

	resp, _ := do(t, http.MethodGet, srv.URL+"/v1/ontology", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = do(t, http.MethodGet, srv.URL+"/v1/ontology", nil, http.Header{"Authorization": {"Bearer letmein"}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = do(t, http.MethodGet, srv.URL+"/health", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestOntology(t *testing.T) {
	srv := newTestServer(t, Options{})

	resp, body := do(t, http.MethodGet, srv.URL+"/v1/ontology", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode(t, body)
	assert.Equal(t, "restaurants", got["domain"])
	assert.Equal(t, "name", got["key"])
	assert.Contains(t, string(body), `"informable":{"name":`)
	assert.Len(t, got["action_types"], len(domain.AllActionTypes()))
}

func TestDialogueLifecycle(t *testing.T) {
	srv := newTestServer(t, Options{})

	resp, body := do(t, http.MethodPost, srv.URL+"/v1/dialogues", nil, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id := decode(t, body)["dialogue_id"].(string)
	base := srv.URL + "/v1/dialogues/" + id

	resp, body = do(t, http.MethodPost, base+"/turns", map[string]any{
		"user_acts": []map[string]any{
			{"type": "Inform", "slot": "cuisine", "value": "italian", "score": 1.0},
			{"type": "Request", "slot": "address", "score": 1.0},
		},
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	got := decode(t, body)
	assert.Equal(t, float64(1), got["turn"])
	state := got["beliefstate"].(map[string]any)
	assert.Equal(t, float64(1), state["num_matches"])
	assert.Equal(t, map[string]any{"cuisine": map[string]any{"italian": 1.0}}, state["informs"])
	assert.Equal(t, map[string]any{"address": 1.0}, state["requests"])

	resp, body = do(t, http.MethodGet, base, nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), decode(t, body)["turn"])

	resp, _ = do(t, http.MethodPost, base+"/turns", map[string]any{
		"user_acts": []map[string]any{{"type": "Dance"}},
	}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, http.MethodPost, base+"/turns", map[string]any{
		"user_acts": []map[string]any{{"type": "AskOpeningDay", "slot": "opening_day", "value": "monday"}},
	}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, http.MethodDelete, base, nil, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = do(t, http.MethodGet, base, nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = do(t, http.MethodGet, srv.URL+"/v1/dialogues/not-a-uuid", nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestFindEntities(t *testing.T) {
	srv := newTestServer(t, Options{})

	tests := []struct {
		name  string
		query string
		want  int
		code  int
	}{
		{"all", "", 3, http.StatusOK},
		{"single slot", "?cuisine=italian", 1, http.StatusOK},
		{"alternatives", "?cuisine=italian&cuisine=greek", 2, http.StatusOK},
		{"dontcare", "?cuisine=dontcare&price_range=cheap", 1, http.StatusOK},
		{"no match", "?cuisine=swabian", 0, http.StatusOK},
		{"unknown slot", "?stars=5", 0, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := do(t, http.MethodGet, srv.URL+"/v1/entities"+tt.query, nil, nil)
			require.Equal(t, tt.code, resp.StatusCode, string(body))
			if tt.code == http.StatusOK {
				assert.Equal(t, float64(tt.want), decode(t, body)["count"])
			}
		})
	}

	resp, body := do(t, http.MethodGet, srv.URL+"/v1/entities?cuisine=japanese&extra=rating,address", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	entities := decode(t, body)["entities"].([]any)
	require.Len(t, entities, 1)
	assert.Equal(t, map[string]any{
		"name": "Sakura", "cuisine": "japanese", "price_range": "expensive",
		"rating": "4.5", "address": "Calwer Straße 10, 70173 Stuttgart",
	}, entities[0])
}

func TestEntityInfo(t *testing.T) {
	srv := newTestServer(t, Options{})

	resp, body := do(t, http.MethodGet, srv.URL+"/v1/entities/Trattoria%20Roma?slots=rating,cuisine", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]any{"rating": "4.0", "cuisine": "Italian"}, decode(t, body))

	resp, _ = do(t, http.MethodGet, srv.URL+"/v1/entities/Nowhere", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = do(t, http.MethodGet, srv.URL+"/v1/entities/Sakura?slots=stars", nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestEntityQuestions(t *testing.T) {
	srv := newTestServer(t, Options{})
	base := srv.URL + "/v1/entities/"

	tests := []struct {
		name   string
		path   string
		code   int
		answer string
	}{
		{"closed", "Akropolis/opening?day=Tuesday", http.StatusOK, "is closed"},
		{"open", "Akropolis/opening?day=Monday", http.StatusOK, "has opened from 09:00-18:00"},
		{"missing day", "Akropolis/opening", http.StatusBadRequest, ""},
		{"unknown day", "Akropolis/opening?day=Funday", http.StatusNotFound, ""},
		{"unknown entity", "Nowhere/opening?day=Monday", http.StatusNotFound, ""},
		{"not offered", "Trattoria%20Roma/manner?manner=delivery", http.StatusOK, "Sorry, delivery is not offered by"},
		{"offered", "Sakura/manner?manner=takeaway", http.StatusOK, "Yes, takeaway is offered by"},
		{"unknown manner", "Sakura/manner?manner=catering", http.StatusOK, service.MannerUnknown},
		{"missing manner", "Sakura/manner", http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := do(t, http.MethodGet, base+tt.path, nil, nil)
			require.Equal(t, tt.code, resp.StatusCode, string(body))
			if tt.answer != "" {
				assert.Equal(t, tt.answer, decode(t, body)["answer"])
			}
		})
	}
}

func TestEntityRoute(t *testing.T) {
	srv := newTestServer(t, Options{})
	base := srv.URL + "/v1/entities/"

	resp, body := do(t, http.MethodGet, base+"Sakura/route?from=main%20station&mode=by%20car", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	got := decode(t, body)
	assert.Equal(t, "by car", got["mode"])
	assert.True(t, strings.HasSuffix(got["distance"].(string), " km"))
	assert.True(t, strings.HasSuffix(got["duration"].(string), " minutes"))

	resp, body = do(t, http.MethodGet, base+"Sakura/route?from=main%20station&mode=by%20boat", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, domain.BadTravelManner, decode(t, body)["distance"])

	resp, body = do(t, http.MethodGet, base+"Akropolis/route?from=main%20station", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got = decode(t, body)
	assert.Equal(t, "by foot", got["mode"])
	assert.Equal(t, domain.Unavailable, got["distance"])

	resp, _ = do(t, http.MethodGet, base+"Sakura/route", nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestEntityWrites(t *testing.T) {
	srv := newTestServer(t, Options{})
	base := srv.URL + "/v1/entities/"

	resp, body := do(t, http.MethodPost, base+"Akropolis/rating", map[string]any{"rating": 5}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, "4.0", decode(t, body)["rating"])

	resp, _ = do(t, http.MethodPost, base+"Akropolis/rating", map[string]any{"rating": 7}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, http.MethodPost, base+"Akropolis/rating", map[string]any{}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, http.MethodPost, base+"Nowhere/rating", map[string]any{"rating": 3}, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = do(t, http.MethodPost, base+"Sakura/reviews", map[string]any{"review": "Fresh fish"}, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = do(t, http.MethodPost, base+"Sakura/reviews", map[string]any{"review": "  "}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = do(t, http.MethodGet, base+"Sakura?slots=reviews", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "['Fresh fish']", decode(t, body)["reviews"])
}

func TestStatsAndMetrics(t *testing.T) {
	srv := newTestServer(t, Options{})

	do(t, http.MethodPost, srv.URL+"/v1/dialogues", nil, nil)
	do(t, http.MethodGet, srv.URL+"/v1/entities/Nowhere", nil, nil)

	resp, body := do(t, http.MethodGet, srv.URL+"/stats", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode(t, body)
	// The stats request itself is counted.
	assert.Equal(t, float64(3), got["request_count"])
	assert.Equal(t, float64(1), got["error_count"])
	assert.Equal(t, float64(1), got["active_dialogues"])

	resp, body = do(t, http.MethodGet, srv.URL+"/metrics", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "adviser_active_dialogues 1")
	assert.Contains(t, string(body), `adviser_http_requests_total{method="GET",status="4xx"} 1`)
}
