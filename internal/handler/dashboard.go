package handler

import (
	"net/http"

	"github.com/joestump/storybooks/internal/auth"
	"github.com/joestump/storybooks/internal/policy"
	"github.com/joestump/storybooks/internal/store"
)

// DashboardPage is the template data for the dashboard view.
type DashboardPage struct {
	BasePage
	Stories []*store.StoryWithOwner
	Public  int
	Private int
}

// DashboardHandler serves the signed-in user's own stories.
type DashboardHandler struct {
	stories store.StoryStoreIface
}

func NewDashboardHandler(ss store.StoryStoreIface) *DashboardHandler {
	return &DashboardHandler{stories: ss}
}

// Show renders every story the current user owns, private ones included.
func (h *DashboardHandler) Show(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())

	stories, err := h.stories.ListByOwner(r.Context(), user.ID, true)
	if err != nil {
		renderServerError(w, r, err, "user_id", user.ID)
		return
	}
	stories = policy.OwnedCollection(stories, user.ID, user.ID)

	data := DashboardPage{BasePage: newBasePage(r), Stories: stories}
	for _, s := range stories {
		if s.IsPublic() {
			data.Public++
		} else {
			data.Private++
		}
	}
	render(w, r, "dashboard.html", data)
}
