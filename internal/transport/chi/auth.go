package chi

import (
	"net/http"
	"strings"
)

const bearerPrefix = "Bearer "

// publicPaths skip authentication.
var publicPaths = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

// BearerAuthMiddleware checks the Authorization header against apiKeys.
// With no keys configured it is a pass-through.
func BearerAuthMiddleware(apiKeys []string) func(http.Handler) http.Handler {
	keys := make(map[string]struct{}, len(apiKeys))
	for _, k := range apiKeys {
		if k != "" {
			keys[k] = struct{}{}
		}
	}

	return func(next http.Handler) http.Handler {
		if len(keys) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := publicPaths[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}
			msg, ok := authorize(r.Header.Get("Authorization"), keys)
			if !ok {
				w.Header().Set("WWW-Authenticate", `Bearer realm="oracle"`)
				writeError(w, http.StatusUnauthorized, CodeUnauthorized, msg)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func authorize(header string, keys map[string]struct{}) (string, bool) {
	switch {
	case header == "":
		return "missing authorization header", false
	case !strings.HasPrefix(header, bearerPrefix):
		return "authorization header must use Bearer scheme", false
	}
	if _, ok := keys[strings.TrimPrefix(header, bearerPrefix)]; !ok {
		return "invalid api key", false
	}
	return "", true
}
