// Package cookie writes the storefront's session and CSRF cookies with
// consistent scoping.
package cookie

import (
	"net/http"
	"time"
)

// Cookie names used by the storefront.
const (
	// SessionCookieName carries the anonymous cart session token.
	SessionCookieName = "tapnet_session"

	// CSRFCookieName carries the double-submit CSRF token.
	CSRFCookieName = "tapnet_csrf"
)

// SessionMaxAge keeps a cart cookie for 30 days.
const SessionMaxAge = 30 * 24 * 60 * 60

// Config holds cookie scoping shared by every cookie the service sets.
type Config struct {
	// Domain scopes cookies to a parent domain (e.g. "tapnet.in" to share
	// with www). Empty means a host-only cookie.
	Domain string

	// Secure should be true everywhere except local development.
	Secure bool
}

// NewConfig creates a new cookie configuration.
func NewConfig(domain string, secure bool) *Config {
	return &Config{Domain: domain, Secure: secure}
}

// SetSession sets an HttpOnly, SameSite=Lax cookie.
func (c *Config) SetSession(w http.ResponseWriter, name, value string, maxAge int) {
	http.SetCookie(w, c.build(name, value, maxAge, true))
}

// SetReadable sets a cookie page scripts can read, for the CSRF token the
// storefront echoes in a header.
func (c *Config) SetReadable(w http.ResponseWriter, name, value string, maxAge int) {
	http.SetCookie(w, c.build(name, value, maxAge, false))
}

// SetSessionWithExpiry sets an HttpOnly cookie that expires at a fixed time.
func (c *Config) SetSessionWithExpiry(w http.ResponseWriter, name, value string, expires time.Time) {
	ck := c.build(name, value, 0, true)
	ck.Expires = expires.UTC()
	http.SetCookie(w, ck)
}

// ClearSession removes a cookie. Domain and path must match the original.
func (c *Config) ClearSession(w http.ResponseWriter, name string) {
	ck := c.build(name, "", -1, true)
	ck.Expires = time.Unix(0, 0)
	http.SetCookie(w, ck)
}

func (c *Config) build(name, value string, maxAge int, httpOnly bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Domain:   c.Domain,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: httpOnly,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// Get returns the cookie value, or "" when it is absent.
func Get(r *http.Request, name string) string {
	ck, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return ck.Value
}
