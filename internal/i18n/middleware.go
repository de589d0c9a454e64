package i18n

import "net/http"

// Middleware picks the response language from the lang query parameter or
// the Accept-Language header and stores its localizer in the request context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accept := r.Header.Get("Accept-Language")
		if q := r.URL.Query().Get("lang"); q != "" {
			accept = q
		}
		lang := Negotiate(accept)
		w.Header().Set("Content-Language", lang)
		next.ServeHTTP(w, r.WithContext(WithLanguage(r.Context(), lang)))
	})
}
