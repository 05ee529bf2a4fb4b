package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMiddleware_LabelsByRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/stories/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/stories/{id}", "418"))
	for _, id := range []string{"a", "b", "c"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stories/"+id, nil))
		assert.Equal(t, http.StatusTeapot, rec.Code)
	}
	after := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/stories/{id}", "418"))
	assert.Equal(t, 3.0, after-before)
}

func TestMiddleware_ImplicitOK(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {})

	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/healthz", "200"))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	after := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/healthz", "200"))
	assert.Equal(t, 1.0, after-before)
}

func TestRecordDecision(t *testing.T) {
	c := StoryDecisionsTotal.WithLabelValues("delete", "denied")
	before := testutil.ToFloat64(c)
	RecordDecision("delete", "denied")
	assert.Equal(t, 1.0, testutil.ToFloat64(c)-before)
}
