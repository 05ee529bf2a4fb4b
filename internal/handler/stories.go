package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/joestump/storybooks/internal/auth"
	"github.com/joestump/storybooks/internal/metrics"
	"github.com/joestump/storybooks/internal/policy"
	"github.com/joestump/storybooks/internal/store"
)

// StoriesPage is the template data for the story listings.
type StoriesPage struct {
	BasePage
	Heading string
	Stories []*store.StoryWithOwner
}

// StoryPage is the template data for a single story.
type StoryPage struct {
	BasePage
	Story *store.StoryWithOwner
}

// StoryFormPage is the template data for the add and edit forms. Story is nil
// on the add form.
type StoryFormPage struct {
	BasePage
	Story *store.Story
	Form  store.StoryInput
	Error string
}

// StoriesHandler serves the /stories pages. Every route sits behind
// RequireAuth, so the context always carries a user.
type StoriesHandler struct {
	stories store.StoryStoreIface
}

func NewStoriesHandler(ss store.StoryStoreIface) *StoriesHandler {
	return &StoriesHandler{stories: ss}
}

// formInput reads the writable story fields from a submitted form. Nothing
// else in the body is looked at.
func formInput(r *http.Request) store.StoryInput {
	return store.StoryInput{
		Title:  r.PostFormValue("title"),
		Body:   r.PostFormValue("body"),
		Status: r.PostFormValue("status"),
	}
}

// authorize runs the access policy for the current user and counts the outcome.
func (h *StoriesHandler) authorize(r *http.Request, action policy.Action, s *store.Story, lookupErr error) policy.Decision {
	d := policy.Authorize(s, lookupErr, auth.UserIDFromContext(r.Context()), action)
	metrics.RecordDecision(string(action), d.String())
	return d
}

// Add renders the empty story form.
func (h *StoriesHandler) Add(w http.ResponseWriter, r *http.Request) {
	render(w, r, "stories/add.html", StoryFormPage{
		BasePage: newBasePage(r),
		Form:     store.StoryInput{Status: store.StatusPublic},
	})
}

// Create stores a new story owned by the current user.
func (h *StoriesHandler) Create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		renderClientError(w, r, http.StatusBadRequest, "The form could not be read.")
		return
	}
	user := auth.UserFromContext(r.Context())
	in := formInput(r)

	st, err := h.stories.Create(r.Context(), user.ID, in)
	if store.IsValidationError(err) {
		renderStatus(w, r, http.StatusBadRequest, "stories/add.html", StoryFormPage{
			BasePage: newBasePage(r),
			Form:     in,
			Error:    err.Error(),
		})
		return
	}
	if err != nil {
		renderServerError(w, r, err)
		return
	}

	metrics.StoriesCreatedTotal.Inc()
	slog.InfoContext(r.Context(), "story created", "story_id", st.ID, "user_id", user.ID, "status", st.Status)
	redirect(w, r, "/dashboard")
}

// Index lists every public story, newest first.
func (h *StoriesHandler) Index(w http.ResponseWriter, r *http.Request) {
	stories, err := h.stories.ListPublic(r.Context())
	if err != nil {
		renderServerError(w, r, err)
		return
	}
	render(w, r, "stories/index.html", StoriesPage{
		BasePage: newBasePage(r),
		Heading:  "Stories",
		Stories:  policy.VisibleCollection(stories),
	})
}

// ByUser lists one user's stories. The owner sees their private stories too;
// everyone else sees only the public ones.
func (h *StoriesHandler) ByUser(w http.ResponseWriter, r *http.Request) {
	ownerID := chi.URLParam(r, "userID")
	requesterID := auth.UserIDFromContext(r.Context())

	stories, err := h.stories.ListByOwner(r.Context(), ownerID, ownerID == requesterID)
	if err != nil {
		renderServerError(w, r, err, "owner_id", ownerID)
		return
	}
	stories = policy.OwnedCollection(stories, ownerID, requesterID)

	heading := "Stories"
	if len(stories) > 0 {
		heading = "Stories by " + stories[0].Owner.Name()
	}
	render(w, r, "stories/index.html", StoriesPage{
		BasePage: newBasePage(r),
		Heading:  heading,
		Stories:  stories,
	})
}

// Show renders one story with its author.
func (h *StoriesHandler) Show(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	st, err := h.stories.GetWithOwner(r.Context(), id)

	var rec *store.Story
	if st != nil {
		rec = &st.Story
	}
	switch h.authorize(r, policy.ActionView, rec, err) {
	case policy.NotFound:
		renderClientError(w, r, http.StatusNotFound, "That story does not exist.")
		return
	case policy.Failed:
		slog.ErrorContext(r.Context(), "load story", "story_id", id, "error", err)
		renderClientError(w, r, http.StatusBadRequest, "That story could not be loaded.")
		return
	case policy.Denied:
		redirect(w, r, "/stories")
		return
	}

	render(w, r, "stories/show.html", StoryPage{BasePage: newBasePage(r), Story: st})
}

// Edit renders the edit form for the story's owner.
func (h *StoriesHandler) Edit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	st, err := h.stories.GetByID(r.Context(), id)
	if !h.allowMutation(w, r, policy.ActionEdit, id, st, err) {
		return
	}

	render(w, r, "stories/edit.html", StoryFormPage{
		BasePage: newBasePage(r),
		Story:    st,
		Form:     store.StoryInput{Title: st.Title, Body: st.Body, Status: st.Status},
	})
}

// Update applies the edit form. Ownership is checked again here; the edit
// form having been shown proves nothing.
func (h *StoriesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	st, err := h.stories.GetByID(r.Context(), id)
	if !h.allowMutation(w, r, policy.ActionUpdate, id, st, err) {
		return
	}

	if err := r.ParseForm(); err != nil {
		renderClientError(w, r, http.StatusBadRequest, "The form could not be read.")
		return
	}
	in := formInput(r)

	_, err = h.stories.Update(r.Context(), id, in)
	switch {
	case store.IsValidationError(err):
		renderStatus(w, r, http.StatusBadRequest, "stories/edit.html", StoryFormPage{
			BasePage: newBasePage(r),
			Story:    st,
			Form:     in,
			Error:    err.Error(),
		})
		return
	case errors.Is(err, store.ErrNotFound):
		renderClientError(w, r, http.StatusNotFound, "That story does not exist.")
		return
	case err != nil:
		renderServerError(w, r, err, "story_id", id)
		return
	}

	slog.InfoContext(r.Context(), "story updated", "story_id", id)
	redirect(w, r, "/dashboard")
}

// Delete removes a story owned by the current user.
func (h *StoriesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	st, err := h.stories.GetByID(r.Context(), id)
	if !h.allowMutation(w, r, policy.ActionDelete, id, st, err) {
		return
	}

	err = h.stories.Delete(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		renderClientError(w, r, http.StatusNotFound, "That story does not exist.")
		return
	}
	if err != nil {
		renderServerError(w, r, err, "story_id", id)
		return
	}

	slog.InfoContext(r.Context(), "story deleted", "story_id", id)
	redirect(w, r, "/dashboard")
}

// allowMutation applies CanMutate to a looked-up story and writes the
// response itself when the request must stop: a client error when the story
// is missing, a redirect to the listing when the requester is not the owner.
func (h *StoriesHandler) allowMutation(w http.ResponseWriter, r *http.Request, action policy.Action, id string, st *store.Story, lookupErr error) bool {
	switch h.authorize(r, action, st, lookupErr) {
	case policy.Allowed:
		return true
	case policy.NotFound:
		renderClientError(w, r, http.StatusNotFound, "That story does not exist.")
	case policy.Denied:
		slog.InfoContext(r.Context(), "story mutation declined", "story_id", id, "action", string(action), "user_id", auth.UserIDFromContext(r.Context()))
		redirect(w, r, "/stories")
	default:
		renderServerError(w, r, lookupErr, "story_id", id)
	}
	return false
}
