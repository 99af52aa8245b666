// Package middleware holds the HTTP middleware shared by the API routes.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

var (
	corsMethods = strings.Join([]string{
		http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions,
	}, ", ")
	corsHeaders = strings.Join([]string{"Content-Type", "Authorization", "X-GitHub-Token"}, ", ")
	corsMaxAge  = strconv.Itoa(int((10 * time.Minute).Seconds()))
)

// corsPolicy is the parsed list of allowed origins. "*" admits any origin
// without credentials.
type corsPolicy struct {
	anyOrigin bool
	listed    map[string]struct{}
}

func newCORSPolicy(origins []string) corsPolicy {
	p := corsPolicy{listed: make(map[string]struct{}, len(origins))}
	for _, o := range origins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		switch o {
		case "":
		case "*":
			p.anyOrigin = true
		default:
			p.listed[o] = struct{}{}
		}
	}
	return p
}

// admit reports whether origin may call the API and whether the response
// may carry credentials.
func (p corsPolicy) admit(origin string) (allowed, credentials bool) {
	if origin == "" {
		return false, false
	}
	if _, ok := p.listed[origin]; ok {
		return true, true
	}
	return p.anyOrigin, false
}

// CORS sets the cross-origin headers for admitted origins and answers
// preflight requests itself.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	policy := newCORSPolicy(allowedOrigins)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Add("Vary", "Origin")

			origin := r.Header.Get("Origin")
			allowed, credentials := policy.admit(origin)
			if allowed {
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Methods", corsMethods)
				h.Set("Access-Control-Allow-Headers", corsHeaders)
				if credentials {
					h.Set("Access-Control-Allow-Credentials", "true")
				}
			}

			if r.Method == http.MethodOptions {
				if allowed {
					h.Set("Access-Control-Max-Age", corsMaxAge)
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
