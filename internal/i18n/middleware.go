package i18n

import "net/http"

// Middleware puts a localizer into each request context. Locales named in
// Accept-Language are preferred over lang.
func Middleware(lang string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			prefs := []string{lang}
			if accept := r.Header.Get("Accept-Language"); accept != "" {
				prefs = []string{accept, lang}
			}
			next.ServeHTTP(w, r.WithContext(WithLocalizer(r.Context(), NewLocalizer(prefs...))))
		})
	}
}
