package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/joestump/storybooks/internal/auth"
	"github.com/joestump/storybooks/internal/store"
)

// Deps holds all dependencies required to build the API router.
type Deps struct {
	BearerAuth *auth.BearerTokenMiddleware
	StoryStore store.StoryStoreIface
}

// NewAPIRouter creates a chi sub-router for /api/v1.
// All routes require Bearer token authentication and return application/json.
func NewAPIRouter(deps Deps) chi.Router {
	r := chi.NewRouter()

	r.Use(jsonContentType)
	r.Use(deps.BearerAuth.Authenticate)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "no such endpoint", "NOT_FOUND")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "METHOD_NOT_ALLOWED")
	})

	registerStoryRoutes(r, deps.StoryStore)

	return r
}

// jsonContentType sets Content-Type: application/json on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}
