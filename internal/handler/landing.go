package handler

import "net/http"

// LandingHandler serves the public landing page.
type LandingHandler struct{}

func NewLandingHandler() *LandingHandler { return &LandingHandler{} }

// Index serves GET /. It is mounted behind RequireGuest, so only anonymous
// visitors reach it.
func (h *LandingHandler) Index(w http.ResponseWriter, r *http.Request) {
	render(w, r, "landing.html", newBasePage(r))
}
