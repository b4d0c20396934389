package middleware

import "strings"

// Browser pages the chain redirects to.
const (
	LoginPath        = "/login"
	TrialExpiredPath = "/trial-expired"
	AccessDeniedPath = "/access-denied"
	ErrorPath        = "/error"
)

// publicPaths are exempt from authentication and the trial check.
var publicPaths = map[string]bool{
	LoginPath:        true,
	"/logout":        true,
	"/favicon.ico":   true,
	"/health":        true,
	ErrorPath:        true,
	TrialExpiredPath: true,
	AccessDeniedPath: true,
	"/metrics":       true,
}

// publicPrefixes cover static assets, the token endpoints and the API docs.
var publicPrefixes = []string{
	"/static/",
	"/css/",
	"/js/",
	"/images/",
	"/api/auth/",
	"/swagger/",
}

// IsPublicPath reports whether path skips authentication.
func IsPublicPath(path string) bool {
	if publicPaths[path] {
		return true
	}
	for _, prefix := range publicPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// IsAPIPath reports whether path is served as JSON with bearer auth.
func IsAPIPath(path string) bool {
	return strings.HasPrefix(path, "/api/")
}
