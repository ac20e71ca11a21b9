package rest_test

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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moatasim-KT/interactive-knowledge-system-sub006/application/services"
	"github.com/moatasim-KT/interactive-knowledge-system-sub006/domain/core/entities"
	"github.com/moatasim-KT/interactive-knowledge-system-sub006/infrastructure/cache"
	"github.com/moatasim-KT/interactive-knowledge-system-sub006/infrastructure/export"
	"github.com/moatasim-KT/interactive-knowledge-system-sub006/infrastructure/observability"
	"github.com/moatasim-KT/interactive-knowledge-system-sub006/infrastructure/persistence/memory"
	"github.com/moatasim-KT/interactive-knowledge-system-sub006/interfaces/http/rest"
	"github.com/moatasim-KT/interactive-knowledge-system-sub006/interfaces/http/rest/handlers"
	"github.com/moatasim-KT/interactive-knowledge-system-sub006/tests/fixtures"
)

type testServer struct {
	handler http.Handler
	links   *services.LinkService
}

func newTestServer(t *testing.T, options rest.Options) *testServer {
	t.Helper()
	c := cache.NewMemoryCache(100, nil)
	links := services.NewLinkService(memory.NewRecordStore[entities.ContentLink](), c, nil, nil, nil, nil, nil)
	graphs := services.NewGraphService(links, c, nil, nil, nil, nil, nil)
	router := rest.NewRouter(links, graphs, export.NewFileExporter(t.TempDir(), ""),
		observability.NewCollector("content_graph"), nil, options)
	return &testServer{handler: router.Setup(), links: links}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealthAndReadiness(t *testing.T) {
	srv := newTestServer(t, rest.Options{Ready: func(context.Context) error { return errors.New("store down") }})

	assert.Equal(t, http.StatusOK, srv.do(t, http.MethodGet, "/health", nil).Code)
	assert.Equal(t, http.StatusServiceUnavailable, srv.do(t, http.MethodGet, "/ready", nil).Code)
}

func TestCreateLink(t *testing.T) {
	tests := []struct {
		name         string
		body         map[string]interface{}
		wantStatus   int
		wantType     string
		wantStrength float64
	}{
		{
			name:         "created",
			body:         map[string]interface{}{"sourceId": "a", "targetId": "b", "type": "prerequisite", "strength": 0.8},
			wantStatus:   http.StatusCreated,
			wantStrength: 0.8,
		},
		{
			name:       "unknown type",
			body:       map[string]interface{}{"sourceId": "a", "targetId": "b", "type": "mentors"},
			wantStatus: http.StatusBadRequest,
			wantType:   "VALIDATION",
		},
		{
			name:       "missing target",
			body:       map[string]interface{}{"sourceId": "a", "type": "related"},
			wantStatus: http.StatusBadRequest,
			wantType:   "VALIDATION",
		},
		{
			name:         "strength above range is clamped",
			body:         map[string]interface{}{"sourceId": "a", "targetId": "b", "type": "related", "strength": 3},
			wantStatus:   http.StatusCreated,
			wantStrength: 1,
		},
		{
			name:         "negative strength is clamped",
			body:         map[string]interface{}{"sourceId": "a", "targetId": "b", "type": "example", "strength": -0.5},
			wantStatus:   http.StatusCreated,
			wantStrength: 0,
		},
		{
			name:       "self link",
			body:       map[string]interface{}{"sourceId": "a", "targetId": "a", "type": "related"},
			wantStatus: http.StatusBadRequest,
			wantType:   "VALIDATION",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, rest.Options{})

			rec := srv.do(t, http.MethodPost, "/api/v1/links", tt.body)

			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantType != "" {
				assert.Equal(t, tt.wantType, decode[handlers.ErrorResponse](t, rec).Type)
				return
			}
			link := decode[entities.ContentLink](t, rec)
			assert.Equal(t, "a", link.SourceID)
			assert.Equal(t, tt.wantStrength, link.Strength)
		})
	}
}

func TestLinkLifecycle(t *testing.T) {
	// Arrange
	srv := newTestServer(t, rest.Options{})
	created := decode[entities.ContentLink](t, srv.do(t, http.MethodPost, "/api/v1/links",
		map[string]interface{}{"sourceId": "a", "targetId": "b", "type": "similar"}))
	require.NotEmpty(t, created.PairID)

	// Act and Assert
	rec := srv.do(t, http.MethodGet, "/api/v1/links/"+created.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = srv.do(t, http.MethodPatch, "/api/v1/links/"+created.ID, map[string]interface{}{"strength": 0.3})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 0.3, decode[entities.ContentLink](t, rec).Strength)

	pair := decode[entities.ContentLink](t, srv.do(t, http.MethodGet, "/api/v1/links/"+created.PairID, nil))
	assert.Equal(t, 0.3, pair.Strength, "strength syncs to the reverse link")

	rec = srv.do(t, http.MethodGet, "/api/v1/links/"+created.ID+"/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	history := decode[map[string][]json.RawMessage](t, rec)
	assert.Len(t, history["versions"], 2)

	rec = srv.do(t, http.MethodGet, "/api/v1/content/b/links", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	contentLinks := decode[services.ContentLinks](t, rec)
	assert.Len(t, contentLinks.All, 2)

	assert.Equal(t, http.StatusNoContent, srv.do(t, http.MethodDelete, "/api/v1/links/"+created.ID, nil).Code)
	assert.Equal(t, http.StatusNotFound, srv.do(t, http.MethodDelete, "/api/v1/links/"+created.ID, nil).Code)
	assert.Equal(t, http.StatusNotFound, srv.do(t, http.MethodGet, "/api/v1/links/"+created.PairID, nil).Code)
	assert.Equal(t, http.StatusNotFound,
		srv.do(t, http.MethodPatch, "/api/v1/links/"+created.ID, map[string]interface{}{"strength": 0.5}).Code)
}

func TestCreateLinksBatch_RejectsCycle(t *testing.T) {
	srv := newTestServer(t, rest.Options{})

	rec := srv.do(t, http.MethodPost, "/api/v1/links/batch", map[string]interface{}{
		"links": []map[string]interface{}{
			{"sourceId": "a", "targetId": "b", "type": "prerequisite"},
			{"sourceId": "b", "targetId": "a", "type": "prerequisite"},
		},
	})

	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	assert.Equal(t, "BATCH_VALIDATION", decode[handlers.ErrorResponse](t, rec).Type)
	all, err := srv.links.AllLinks(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all, "batch is rolled back")
}

func TestListLinks_Filters(t *testing.T) {
	// Arrange
	srv := newTestServer(t, rest.Options{})
	ctx := context.Background()
	_, err := srv.links.CreateLink(ctx, "a", "b", entities.RelationshipPrerequisite)
	require.NoError(t, err)
	_, err = srv.links.CreateLink(ctx, "a", "c", entities.RelationshipExample, services.WithStrength(0.2))
	require.NoError(t, err)
	_, err = srv.links.CreateLink(ctx, "d", "c", entities.RelationshipExample)
	require.NoError(t, err)

	tests := []struct {
		query     string
		wantCount int
	}{
		{"", 3},
		{"?sourceId=a", 2},
		{"?type=example", 2},
		{"?type=example&maxStrength=0.5", 1},
		{"?sourceId=a,d&targetId=c", 2},
		{"?automatic=true", 0},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := srv.do(t, http.MethodGet, "/api/v1/links"+tt.query, nil)

			require.Equal(t, http.StatusOK, rec.Code)
			body := decode[struct {
				Count int `json:"count"`
			}](t, rec)
			assert.Equal(t, tt.wantCount, body.Count)
		})
	}

	assert.Equal(t, http.StatusBadRequest, srv.do(t, http.MethodGet, "/api/v1/links?type=mentors", nil).Code)
	assert.Equal(t, http.StatusBadRequest, srv.do(t, http.MethodGet, "/api/v1/links?createdAfter=yesterday", nil).Code)
}

func TestAnalyzeDependencies(t *testing.T) {
	srv := newTestServer(t, rest.Options{})
	ctx := context.Background()
	_, err := srv.links.CreateLink(ctx, "a", "b", entities.RelationshipPrerequisite)
	require.NoError(t, err)

	withoutBody := httptest.NewRecorder()
	srv.handler.ServeHTTP(withoutBody, httptest.NewRequest(http.MethodPost, "/api/v1/content/b/dependencies", nil))
	withBody := srv.do(t, http.MethodPost, "/api/v1/content/b/dependencies",
		map[string]interface{}{"completed": []string{"a"}})

	require.Equal(t, http.StatusOK, withoutBody.Code, withoutBody.Body.String())
	require.Equal(t, http.StatusOK, withBody.Code)
	chain := decode[entities.DependencyChain](t, withBody)
	assert.Equal(t, "b", chain.NodeID)
}

func TestGraphEndpoints(t *testing.T) {
	// Arrange
	srv := newTestServer(t, rest.Options{})
	ctx := context.Background()
	_, err := srv.links.CreateLink(ctx, "a", "b", entities.RelationshipPrerequisite)
	require.NoError(t, err)
	modules := fixtures.Modules("a", "b", "c")

	// Act
	graphRec := srv.do(t, http.MethodPost, "/api/v1/graph", map[string]interface{}{"modules": modules})
	layoutRec := srv.do(t, http.MethodPost, "/api/v1/graph/layout", map[string]interface{}{
		"modules": modules,
		"layout":  map[string]interface{}{"type": "tree", "width": 400, "height": 300},
	})
	badLayoutRec := srv.do(t, http.MethodPost, "/api/v1/graph/layout", map[string]interface{}{
		"modules": modules,
		"layout":  map[string]interface{}{"type": "spiral"},
	})
	analysisRec := srv.do(t, http.MethodPost, "/api/v1/graph/analysis", map[string]interface{}{"modules": modules})
	emptyRec := srv.do(t, http.MethodPost, "/api/v1/graph", map[string]interface{}{"modules": []interface{}{}})

	// Assert
	require.Equal(t, http.StatusOK, graphRec.Code, graphRec.Body.String())
	graph := decode[entities.ContentGraph](t, graphRec)
	assert.Len(t, graph.Nodes, 3)
	assert.Len(t, graph.Edges, 1)

	require.Equal(t, http.StatusOK, layoutRec.Code, layoutRec.Body.String())
	laidOut := decode[struct {
		Nodes []json.RawMessage `json:"nodes"`
	}](t, layoutRec)
	assert.Len(t, laidOut.Nodes, 3)

	assert.Equal(t, http.StatusBadRequest, badLayoutRec.Code)
	assert.Equal(t, http.StatusOK, analysisRec.Code, analysisRec.Body.String())
	assert.Equal(t, http.StatusBadRequest, emptyRec.Code)
}

func TestSuggestionsAndAccept(t *testing.T) {
	srv := newTestServer(t, rest.Options{})
	modules := []entities.ContentModule{
		fixtures.NewModuleBuilder("go-basics").WithTags("go", "programming").WithBlocks("text").Build(),
		fixtures.NewModuleBuilder("go-advanced").WithTags("go", "programming").WithBlocks("text").Build(),
	}

	suggestRec := srv.do(t, http.MethodPost, "/api/v1/suggestions", map[string]interface{}{
		"modules":   modules,
		"threshold": 0.1,
	})
	require.Equal(t, http.StatusOK, suggestRec.Code, suggestRec.Body.String())

	acceptRec := srv.do(t, http.MethodPost, "/api/v1/suggestions/accept", map[string]interface{}{
		"links": []map[string]interface{}{
			{"sourceId": "go-basics", "targetId": "go-advanced", "type": "related", "strength": 0.9},
		},
	})
	require.Equal(t, http.StatusCreated, acceptRec.Code, acceptRec.Body.String())
	result := decode[services.BatchResult](t, acceptRec)
	require.Len(t, result.Created, 1)
	assert.True(t, result.Created[0].Metadata.Automatic)

	tooFew := srv.do(t, http.MethodPost, "/api/v1/suggestions", map[string]interface{}{"modules": modules[:1]})
	assert.Equal(t, http.StatusBadRequest, tooFew.Code)
}

func TestCyclesAnalyticsSnapshotAndMetrics(t *testing.T) {
	srv := newTestServer(t, rest.Options{})
	ctx := context.Background()
	_, err := srv.links.CreateLink(ctx, "a", "b", entities.RelationshipPrerequisite)
	require.NoError(t, err)

	cyclesRec := srv.do(t, http.MethodGet, "/api/v1/cycles", nil)
	require.Equal(t, http.StatusOK, cyclesRec.Code)
	assert.Empty(t, decode[services.CycleReport](t, cyclesRec).Cycles)

	assert.Equal(t, http.StatusOK, srv.do(t, http.MethodGet, "/api/v1/analytics", nil).Code)

	snapshotRec := srv.do(t, http.MethodPost, "/api/v1/snapshots", nil)
	require.Equal(t, http.StatusCreated, snapshotRec.Code, snapshotRec.Body.String())
	snapshot := decode[map[string]interface{}](t, snapshotRec)
	assert.Equal(t, 1.0, snapshot["links"])

	metricsRec := srv.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, metricsRec.Code)
	assert.True(t, strings.Contains(metricsRec.Body.String(), "content_graph_http_requests_total"))
}
