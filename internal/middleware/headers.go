package middleware

import "net/http"

var securityHeaders = [][2]string{
	{"Referrer-Policy", "strict-origin-when-cross-origin"},
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
	{"Permissions-Policy", "camera=(), microphone=(), geolocation=()"},
}

var noStoreHeaders = [][2]string{
	{"Cache-Control", "no-store, no-cache, must-revalidate, max-age=0"},
	{"Pragma", "no-cache"},
	{"Expires", "0"},
}

// SecureHeaders adds standard security headers, plus HSTS on TLS requests.
func SecureHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setAll(w.Header(), securityHeaders)
		if r.TLS != nil {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		next.ServeHTTP(w, r)
	})
}

// NoStore keeps browsers and proxies from caching API responses, which
// depend on the caller's role and on data that imports change.
func NoStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setAll(w.Header(), noStoreHeaders)
		next.ServeHTTP(w, r)
	})
}

func setAll(h http.Header, pairs [][2]string) {
	for _, p := range pairs {
		h.Set(p[0], p[1])
	}
}
