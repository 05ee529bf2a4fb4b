package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/joestump/storybooks/internal/auth"
	"github.com/joestump/storybooks/internal/metrics"
	"github.com/joestump/storybooks/internal/policy"
	"github.com/joestump/storybooks/internal/store"
)

type storiesAPIHandler struct {
	stories store.StoryStoreIface
}

func registerStoryRoutes(r chi.Router, ss store.StoryStoreIface) {
	h := &storiesAPIHandler{stories: ss}
	r.Get("/stories", h.List)
	r.Post("/stories", h.Create)
	r.Get("/stories/{id}", h.Get)
	r.Put("/stories/{id}", h.Update)
	r.Delete("/stories/{id}", h.Delete)
	r.Get("/users/{id}/stories", h.ListByUser)
}

func (h *storiesAPIHandler) authorize(r *http.Request, action policy.Action, s *store.Story, lookupErr error) policy.Decision {
	d := policy.Authorize(s, lookupErr, auth.UserIDFromContext(r.Context()), action)
	metrics.RecordDecision(string(action), d.String())
	return d
}

// List returns public stories, newest first.
//
// @Summary      List public stories
// @Description  Public stories from every author, newest first. Private stories are never listed.
// @Tags         Stories
// @Produce      json
// @Param        limit   query     int     false  "Page size (default 50, max 200)"
// @Param        cursor  query     string  false  "Cursor from a previous next_cursor"
// @Success      200     {object}  StoryListResponse
// @Failure      400     {object}  ErrorResponse
// @Failure      401     {object}  ErrorResponse
// @Failure      500     {object}  ErrorResponse
// @Security     BearerToken
// @Router       /stories [get]
func (h *storiesAPIHandler) List(w http.ResponseWriter, r *http.Request) {
	raw, limit := parsePagination(r)
	after, ok := decodeCursor(raw)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid cursor", "BAD_REQUEST")
		return
	}

	// One extra row tells us whether another page exists.
	stories, err := h.stories.ListPublicPage(r.Context(), after, limit+1)
	if err != nil {
		slog.ErrorContext(r.Context(), "list public stories", "error", err)
		writeInternal(w)
		return
	}

	var next *string
	if len(stories) > limit {
		stories = stories[:limit]
		last := stories[len(stories)-1]
		c := encodeCursor(store.PageCursor{CreatedAt: last.CreatedAt, ID: last.ID})
		next = &c
	}

	writeJSON(w, http.StatusOK, StoryListResponse{
		Stories:    toStoryResponses(policy.VisibleCollection(stories)),
		NextCursor: next,
	})
}

// ListByUser returns one author's stories. Private stories are included only
// when the caller is that author.
//
// @Summary      List a user's stories
// @Tags         Stories
// @Produce      json
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  StoryListResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Security     BearerToken
// @Router       /users/{id}/stories [get]
func (h *storiesAPIHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	ownerID := chi.URLParam(r, "id")
	requesterID := auth.UserIDFromContext(r.Context())

	stories, err := h.stories.ListByOwner(r.Context(), ownerID, ownerID == requesterID)
	if err != nil {
		slog.ErrorContext(r.Context(), "list user stories", "owner_id", ownerID, "error", err)
		writeInternal(w)
		return
	}

	writeJSON(w, http.StatusOK, StoryListResponse{
		Stories: toStoryResponses(policy.OwnedCollection(stories, ownerID, requesterID)),
	})
}

// Get returns a single story. A private story belonging to someone else is
// reported as not found.
//
// @Summary      Get a story
// @Tags         Stories
// @Produce      json
// @Param        id   path      string  true  "Story ID"
// @Success      200  {object}  StoryResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Security     BearerToken
// @Router       /stories/{id} [get]
func (h *storiesAPIHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	st, err := h.stories.GetWithOwner(r.Context(), id)

	var rec *store.Story
	if st != nil {
		rec = &st.Story
	}
	switch h.authorize(r, policy.ActionView, rec, err) {
	case policy.Allowed:
		writeJSON(w, http.StatusOK, toStoryResponse(st))
	case policy.NotFound, policy.Denied:
		writeNotFound(w)
	default:
		slog.ErrorContext(r.Context(), "get story", "story_id", id, "error", err)
		writeInternal(w)
	}
}

// Create stores a new story owned by the caller.
//
// @Summary      Create a story
// @Tags         Stories
// @Accept       json
// @Produce      json
// @Param        body  body      StoryRequest  true  "Story to create"
// @Success      201   {object}  StoryResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      401   {object}  ErrorResponse
// @Failure      500   {object}  ErrorResponse
// @Security     BearerToken
// @Router       /stories [post]
func (h *storiesAPIHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "UNAUTHORIZED")
		return
	}

	var req StoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
		return
	}

	st, err := h.stories.Create(r.Context(), user.ID, req.input())
	if store.IsValidationError(err) {
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_FAILED")
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "create story", "user_id", user.ID, "error", err)
		writeInternal(w)
		return
	}

	metrics.StoriesCreatedTotal.Inc()
	writeJSON(w, http.StatusCreated, toStoryResponse(&store.StoryWithOwner{Story: *st, Owner: *user}))
}

// Update replaces the writable fields of a story the caller owns.
//
// @Summary      Update a story
// @Tags         Stories
// @Accept       json
// @Produce      json
// @Param        id    path      string        true  "Story ID"
// @Param        body  body      StoryRequest  true  "New field values"
// @Success      200   {object}  StoryResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      401   {object}  ErrorResponse
// @Failure      403   {object}  ErrorResponse
// @Failure      404   {object}  ErrorResponse
// @Failure      500   {object}  ErrorResponse
// @Security     BearerToken
// @Router       /stories/{id} [put]
func (h *storiesAPIHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	st, err := h.stories.GetByID(r.Context(), id)
	if !h.allowMutation(w, r, policy.ActionUpdate, id, st, err) {
		return
	}

	var req StoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
		return
	}

	updated, err := h.stories.Update(r.Context(), id, req.input())
	switch {
	case store.IsValidationError(err):
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_FAILED")
		return
	case errors.Is(err, store.ErrNotFound):
		writeNotFound(w)
		return
	case err != nil:
		slog.ErrorContext(r.Context(), "update story", "story_id", id, "error", err)
		writeInternal(w)
		return
	}

	writeJSON(w, http.StatusOK, toStoryResponse(&store.StoryWithOwner{Story: *updated}))
}

// Delete removes a story the caller owns.
//
// @Summary      Delete a story
// @Tags         Stories
// @Param        id   path  string  true  "Story ID"
// @Success      204
// @Failure      401  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Security     BearerToken
// @Router       /stories/{id} [delete]
func (h *storiesAPIHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	st, err := h.stories.GetByID(r.Context(), id)
	if !h.allowMutation(w, r, policy.ActionDelete, id, st, err) {
		return
	}

	err = h.stories.Delete(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeNotFound(w)
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "delete story", "story_id", id, "error", err)
		writeInternal(w)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *storiesAPIHandler) allowMutation(w http.ResponseWriter, r *http.Request, action policy.Action, id string, st *store.Story, lookupErr error) bool {
	switch h.authorize(r, action, st, lookupErr) {
	case policy.Allowed:
		return true
	case policy.NotFound:
		writeNotFound(w)
	case policy.Denied:
		writeError(w, http.StatusForbidden, "only the author can change this story", "FORBIDDEN")
	default:
		slog.ErrorContext(r.Context(), "load story", "story_id", id, "error", lookupErr)
		writeInternal(w)
	}
	return false
}

func (req StoryRequest) input() store.StoryInput {
	return store.StoryInput{Title: req.Title, Body: req.Body, Status: req.Status}
}

func toStoryResponse(s *store.StoryWithOwner) StoryResponse {
	resp := StoryResponse{
		ID:        s.ID,
		Title:     s.Title,
		Body:      s.Body,
		Status:    s.Status,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
	if s.Owner.ID != "" {
		resp.Author = &AuthorResponse{ID: s.Owner.ID, DisplayName: s.Owner.Name(), Image: s.Owner.Image}
	}
	return resp
}

func toStoryResponses(stories []*store.StoryWithOwner) []StoryResponse {
	out := make([]StoryResponse, 0, len(stories))
	for _, s := range stories {
		out = append(out, toStoryResponse(s))
	}
	return out
}
