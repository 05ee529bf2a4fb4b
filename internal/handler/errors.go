package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

// ErrorPage is the template data for the error views.
type ErrorPage struct {
	BasePage
	Status  int
	Message string
}

// renderClientError renders the client-error view: errors/404.html for
// 404, errors/400.html for everything else.
func renderClientError(w http.ResponseWriter, r *http.Request, status int, message string) {
	tmpl := "errors/400.html"
	if status == http.StatusNotFound {
		tmpl = "errors/404.html"
	}
	renderStatus(w, r, status, tmpl, ErrorPage{BasePage: newBasePage(r), Status: status, Message: message})
}

// renderServerError logs err and renders the server-error view. The error
// text never reaches the response.
func renderServerError(w http.ResponseWriter, r *http.Request, err error, attrs ...any) {
	args := append([]any{
		"error", err,
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", middleware.GetReqID(r.Context()),
	}, attrs...)
	slog.ErrorContext(r.Context(), "request failed", args...)

	renderStatus(w, r, http.StatusInternalServerError, "errors/500.html", ErrorPage{
		BasePage: newBasePage(r),
		Status:   http.StatusInternalServerError,
		Message:  "Something went wrong on our end.",
	})
}

// NotFound renders the 404 view for unmatched routes.
func NotFound(w http.ResponseWriter, r *http.Request) {
	renderClientError(w, r, http.StatusNotFound, "That page does not exist.")
}
