package handler

import (
	"net/http"
	"strings"
)

// methodOverride lets plain HTML forms reach PUT and DELETE routes. A POST
// carrying _method=PUT, PATCH or DELETE is dispatched as that method; any
// other value is ignored.
func methodOverride(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && isForm(r) {
			switch m := strings.ToUpper(r.PostFormValue("_method")); m {
			case http.MethodPut, http.MethodPatch, http.MethodDelete:
				r.Method = m
			}
		}
		next.ServeHTTP(w, r)
	})
}

func isForm(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	return strings.HasPrefix(ct, "application/x-www-form-urlencoded") ||
		strings.HasPrefix(ct, "multipart/form-data")
}
