package auth

import (
	"encoding/json"
	"net/http"
	"strings"
)

// IsStaff reports whether role may moderate any comment.
func IsStaff(role string) bool {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case "staff", "admin":
		return true
	}
	return false
}

// RequireStaff allows request only if RequireUser already injected a staff role into context.
func RequireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role, _ := RoleFromContext(r.Context())
		if !IsStaff(role) {
			writeAuthError(w, http.StatusForbidden, "Staff access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// writeAuthError answers in the FilmHive API error shape: {"error": "..."}.
func writeAuthError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
