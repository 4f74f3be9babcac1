package storefront

import (
	"net/http"

	"github.com/dukerupert/tapnet/internal/cookie"
)

// GetSessionIDFromCookie returns the cart session token, or "" when absent.
func GetSessionIDFromCookie(r *http.Request) string {
	return cookie.Get(r, cookie.SessionCookieName)
}

// SetSessionCookie stores the cart session token for 30 days.
func SetSessionCookie(w http.ResponseWriter, sessionID string, cookies *cookie.Config) {
	cookies.SetSession(w, cookie.SessionCookieName, sessionID, cookie.SessionMaxAge)
}
