package api

import (
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/soaringjerry/awap/internal/utils"
)

// notFound serves the dashboard frontend for non-API paths. Priority:
// 1) static files when a static dir is configured
// 2) a reverse proxy to the dev server when its URL is configured
// Anything else, and every unknown /api path, gets a JSON 404.
func (s *Server) notFound() http.HandlerFunc {
	jsonNotFound := func(w http.ResponseWriter, r *http.Request) {
		writeErrorMsg(w, http.StatusNotFound, "Endpoint not found", "")
	}
	var frontend http.Handler
	if s.cfg.StaticDir != "" {
		frontend = http.FileServer(http.Dir(s.cfg.StaticDir))
	} else if s.cfg.DevFrontend != "" {
		if u, err := url.Parse(s.cfg.DevFrontend); err == nil {
			rp := httputil.NewSingleHostReverseProxy(u)
			rp.ModifyResponse = func(res *http.Response) error {
				res.Header.Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
				res.Header.Set("Pragma", "no-cache")
				res.Header.Set("Expires", "0")
				return nil
			}
			frontend = rp
		} else {
			utils.Warn("invalid dev frontend url", utils.String("url", s.cfg.DevFrontend), utils.ErrorField(err))
		}
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if frontend == nil || strings.HasPrefix(r.URL.Path, "/api/") {
			jsonNotFound(w, r)
			return
		}
		frontend.ServeHTTP(w, r)
	}
}
