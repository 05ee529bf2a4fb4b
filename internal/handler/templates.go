package handler

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/joestump/storybooks/internal/auth"
	"github.com/joestump/storybooks/internal/build"
	"github.com/joestump/storybooks/internal/content"
	"github.com/joestump/storybooks/internal/policy"
	"github.com/joestump/storybooks/internal/store"
	"github.com/joestump/storybooks/web"
)

const (
	themeLight = "storybooks-light"
	themeDark  = "storybooks-dark"
)

// BasePage carries layout-level data available to every template.
type BasePage struct {
	Theme   string      // themeLight, themeDark, or "" (let the inline script decide)
	User    *store.User // nil for anonymous pages
	Version string
}

func newBasePage(r *http.Request) BasePage {
	return BasePage{
		Theme:   themeFromRequest(r),
		User:    auth.UserFromContext(r.Context()),
		Version: build.Version,
	}
}

// themeFromRequest reads the "theme" cookie. Returns "" if absent or invalid,
// so the server omits data-theme and lets the anti-flash inline script handle it.
func themeFromRequest(r *http.Request) string {
	c, err := r.Cookie("theme")
	if err != nil {
		return ""
	}
	if c.Value == themeLight || c.Value == themeDark {
		return c.Value
	}
	return ""
}

// templateFuncs are the helpers available in every page.
func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"formatDate": func(t time.Time, layout string) string {
			if t.IsZero() {
				return ""
			}
			return t.Local().Format(layout)
		},
		"truncate":  content.Truncate,
		"stripTags": content.StripTags,
		"excerpt":   content.Excerpt,
		"markdown":  content.Markdown,
		"editIcon":  editIcon,
		"select": func(selected, option string) template.HTMLAttr {
			if selected == option {
				return "selected"
			}
			return ""
		},
	}
}

// editIcon renders a pencil link to the edit form, only for a viewer who may
// change the story.
func editIcon(s policy.Subject, viewer *store.User) template.HTML {
	if s == nil || viewer == nil {
		return ""
	}
	rec := s.Record()
	if !policy.CanMutate(rec, viewer.ID) {
		return ""
	}
	return template.HTML(fmt.Sprintf(
		`<a href="/stories/edit/%s" class="edit-icon" title="Edit story" aria-label="Edit story">&#9998;</a>`,
		template.HTMLEscapeString(rec.ID)))
}

// pageCache maps a render key (e.g. "dashboard.html", "stories/show.html") to
// a compiled template set containing base.html + partials + that one page file.
// Each page gets its own set so {{define "content"}} blocks don't collide.
var pageCache map[string]*template.Template

func init() {
	cache, err := buildPageCache(web.TemplateFS)
	if err != nil {
		panic("build page cache: " + err.Error())
	}
	pageCache = cache
}

func buildPageCache(fsys fs.FS) (map[string]*template.Template, error) {
	partials, err := fs.Glob(fsys, "templates/partials/*.html")
	if err != nil {
		return nil, fmt.Errorf("glob partials: %w", err)
	}

	cache := make(map[string]*template.Template)
	err = fs.WalkDir(fsys, "templates/pages", func(p string, d fs.DirEntry, e error) error {
		if e != nil || d.IsDir() || filepath.Ext(p) != ".html" {
			return e
		}

		files := make([]string, 0, 2+len(partials))
		files = append(files, "templates/base.html")
		files = append(files, partials...)
		files = append(files, p)

		t, err := template.New("").Funcs(templateFuncs()).ParseFS(fsys, files...)
		if err != nil {
			return fmt.Errorf("parse %s: %w", p, err)
		}
		rel, _ := strings.CutPrefix(p, "templates/pages/")
		cache[rel] = t
		return nil
	})
	return cache, err
}

// isHTMX returns true when the request was sent by HTMX.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// render executes a full-page template with a 200 status.
func render(w http.ResponseWriter, r *http.Request, tmpl string, data any) {
	renderStatus(w, r, http.StatusOK, tmpl, data)
}

// renderStatus executes a full-page template (base layout + named page).
// Output is buffered so a template failure can still produce a clean 500.
func renderStatus(w http.ResponseWriter, r *http.Request, status int, tmpl string, data any) {
	t, ok := pageCache[tmpl]
	if !ok {
		slog.ErrorContext(r.Context(), "template not found", "template", tmpl)
		http.Error(w, "template not found", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "base", data); err != nil {
		slog.ErrorContext(r.Context(), "template error", "template", tmpl, "error", err)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// redirect sends the browser to url. HTMX requests get HX-Redirect so the
// whole page navigates instead of swapping the response into a fragment.
func redirect(w http.ResponseWriter, r *http.Request, url string) {
	if isHTMX(r) {
		w.Header().Set("HX-Redirect", url)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, url, http.StatusSeeOther)
}
