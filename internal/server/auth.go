package server

import (
	"net/http"
	"strings"
)

// requireAdmin guards destructive endpoints. A request passes with either a
// bearer token holding the admin role, or an X-API-Key matching the
// configured bcrypt hash. With neither auth mechanism configured the
// endpoint is disabled outright.
func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jwtConfigured := s.jwtService != nil
		keyConfigured := s.adminKeys != nil && s.adminKeys.Enabled()
		if !jwtConfigured && !keyConfigured {
			s.errorResponse(w, http.StatusForbidden, "Admin endpoints are disabled")
			return
		}

		if jwtConfigured {
			if token, ok := bearerToken(r); ok {
				claims, err := s.jwtService.ValidateToken(token)
				if err == nil && claims.Role == "admin" {
					next(w, r)
					return
				}
				s.errorResponse(w, http.StatusUnauthorized, "Invalid admin token")
				return
			}
		}

		if keyConfigured {
			if key := r.Header.Get("X-API-Key"); key != "" {
				if err := s.adminKeys.Verify(key); err == nil {
					next(w, r)
					return
				}
				s.errorResponse(w, http.StatusUnauthorized, "Invalid API key")
				return
			}
		}

		s.errorResponse(w, http.StatusUnauthorized, "Admin credentials required")
	}
}

// bearerToken extracts the token from an Authorization: Bearer header.
func bearerToken(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return "", false
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return "", false
	}
	return strings.TrimSpace(auth[len(prefix):]), true
}
