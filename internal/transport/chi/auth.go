package chi

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// exemptPaths are routes that bypass authentication (health, metrics).
var exemptPaths = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

// TokenVerifier decides whether a bearer token is acceptable.
type TokenVerifier interface {
	Verify(token string) bool
}

// StaticKeys accepts a fixed set of API keys.
type StaticKeys struct {
	keys [][]byte
}

// NewStaticKeys builds a verifier from apiKeys, ignoring empty entries.
func NewStaticKeys(apiKeys []string) *StaticKeys {
	s := &StaticKeys{}
	for _, k := range apiKeys {
		if k != "" {
			s.keys = append(s.keys, []byte(k))
		}
	}
	return s
}

// Empty reports whether no keys are configured.
func (s *StaticKeys) Empty() bool { return len(s.keys) == 0 }

// Verify compares token against every key in constant time.
func (s *StaticKeys) Verify(token string) bool {
	t := []byte(token)
	ok := 0
	for _, k := range s.keys {
		ok |= subtle.ConstantTimeCompare(t, k)
	}
	return ok == 1
}

// BearerAuthMiddleware returns a middleware that validates Bearer tokens.
// A nil verifier disables authentication (pass-through).
func BearerAuthMiddleware(v TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if v == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := exemptPaths[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			auth := r.Header.Get("Authorization")
			if auth == "" {
				writeError(w, http.StatusUnauthorized, ErrorResponseCodeUnauthorized, "missing authorization header")
				return
			}

			const bearerPrefix = "Bearer "
			if !strings.HasPrefix(auth, bearerPrefix) {
				writeError(w, http.StatusUnauthorized,
					ErrorResponseCodeUnauthorized, "authorization header must use Bearer scheme")
				return
			}

			if !v.Verify(auth[len(bearerPrefix):]) {
				writeError(w, http.StatusUnauthorized, ErrorResponseCodeUnauthorized, "invalid api key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// APIKeyAuth is BearerAuthMiddleware over static keys; no keys disables auth.
func APIKeyAuth(apiKeys []string) func(http.Handler) http.Handler {
	keys := NewStaticKeys(apiKeys)
	if keys.Empty() {
		return BearerAuthMiddleware(nil)
	}
	return BearerAuthMiddleware(keys)
}
