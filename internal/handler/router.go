package handler

import (
	"io/fs"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "github.com/joestump/storybooks/docs/swagger"
	"github.com/joestump/storybooks/internal/api"
	"github.com/joestump/storybooks/internal/auth"
	"github.com/joestump/storybooks/internal/logging"
	"github.com/joestump/storybooks/internal/metrics"
	"github.com/joestump/storybooks/internal/store"
	"github.com/joestump/storybooks/web"
)

// Deps holds all dependencies required to build the HTTP router.
type Deps struct {
	SessionManager *scs.SessionManager
	AuthHandlers   *auth.Handlers
	AuthMiddleware *auth.Middleware
	StoryStore     store.StoryStoreIface
	UserStore      auth.UserLookup
	TokenStore     auth.TokenStore
	DB             Pinger
}

// NewRouter assembles the full chi router with all middleware and routes.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.Middleware)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(deps.SessionManager.LoadAndSave)
	r.Use(methodOverride)

	// fs.Sub so the file server sees css/app.css, not static/css/app.css.
	staticSub, err := fs.Sub(web.StaticFS, "static")
	if err != nil {
		panic("failed to sub static FS: " + err.Error())
	}
	r.Handle("/static/*", http.StripPrefix("/static", http.FileServerFS(staticSub)))

	r.Get("/auth/login", deps.AuthHandlers.Login)
	r.Get("/auth/callback", deps.AuthHandlers.Callback)
	r.Get("/auth/logout", deps.AuthHandlers.Logout)
	r.Post("/auth/logout", deps.AuthHandlers.Logout)

	r.Post("/theme", NewThemeHandler().Toggle)
	r.Get("/healthz", Health(deps.DB))
	r.Handle("/metrics", promhttp.Handler())

	r.With(deps.AuthMiddleware.RequireGuest).Get("/", NewLandingHandler().Index)

	dashboard := NewDashboardHandler(deps.StoryStore)
	stories := NewStoriesHandler(deps.StoryStore)

	r.Group(func(r chi.Router) {
		r.Use(deps.AuthMiddleware.RequireAuth)

		r.Get("/dashboard", dashboard.Show)

		// add, edit and user must be registered ahead of /{id}.
		r.Get("/stories/add", stories.Add)
		r.Get("/stories/edit/{id}", stories.Edit)
		r.Get("/stories/user/{userID}", stories.ByUser)
		r.Get("/stories", stories.Index)
		r.Post("/stories", stories.Create)
		r.Get("/stories/{id}", stories.Show)
		r.Put("/stories/{id}", stories.Update)
		r.Delete("/stories/{id}", stories.Delete)
	})

	r.Get("/api/docs/*", httpSwagger.WrapHandler)

	r.Mount("/api/v1", api.NewAPIRouter(api.Deps{
		BearerAuth: auth.NewBearerTokenMiddleware(deps.TokenStore, deps.UserStore),
		StoryStore: deps.StoryStore,
	}))

	r.With(deps.AuthMiddleware.OptionalUser).NotFound(NotFound)

	return r
}
