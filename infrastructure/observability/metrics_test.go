package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_LinkAndStoreMetrics(t *testing.T) {
	// Arrange
	c := NewCollector("test")

	// Act
	c.ObserveLinksCreated(2)
	c.ObserveLinksCreated(1)
	c.ObserveLinksDeleted(2)
	c.ObserveLinkRejected("validation")
	c.ObserveStoreOperation("links", "get", time.Millisecond, nil)
	c.ObserveStoreOperation("links", "get", time.Millisecond, errors.New("boom"))
	c.ObserveStoreRetry("links", "get")
	c.ObserveBreakerState("links", 2)
	c.ObserveEvent("link.created", nil)

	// Assert
	assert.Equal(t, 3.0, testutil.ToFloat64(c.LinksCreated))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.LinksDeleted))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.LinksRejected.WithLabelValues("validation")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.StoreOperations.WithLabelValues("links", "get", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.StoreOperations.WithLabelValues("links", "get", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.StoreRetries.WithLabelValues("links", "get")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.BreakerState.WithLabelValues("links")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.EventsPublished.WithLabelValues("link.created", "ok")))
}

func TestNewCollector_SeparateRegistries(t *testing.T) {
	require.NotPanics(t, func() {
		NewCollector("test")
		NewCollector("test")
	})
}

func TestMetricsMiddleware_LabelsByRoutePattern(t *testing.T) {
	// Arrange
	c := NewCollector("test")
	r := chi.NewRouter()
	r.Use(MetricsMiddleware(c))
	r.Get("/links/{linkID}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	// Act
	for _, id := range []string{"a", "b"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/links/"+id, nil))
		require.Equal(t, http.StatusNotFound, rec.Code)
	}

	// Assert
	assert.Equal(t, 2.0, testutil.ToFloat64(c.HTTPRequests.WithLabelValues("GET", "/links/{linkID}", "404")))
}
