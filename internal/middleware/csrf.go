package middleware

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/dukerupert/tapnet/internal/cookie"
)

const (
	// CSRFTokenLength is the length of the CSRF token in bytes
	CSRFTokenLength = 32

	// CSRFHeaderName carries the token the storefront read from the cookie.
	CSRFHeaderName = "X-CSRF-Token"

	// CSRFContextKey is the context key for the CSRF token
	CSRFContextKey contextKey = "csrf_token"
)

// CSRFConfig configures double-submit CSRF protection.
type CSRFConfig struct {
	Cookies *cookie.Config

	// CookieMaxAge in seconds. Default: 24 hours.
	CookieMaxAge int

	// SkipPaths are exempt prefixes; webhooks authenticate with signatures.
	SkipPaths []string
}

// DefaultCSRFConfig exempts the payment webhook.
func DefaultCSRFConfig(cookies *cookie.Config) CSRFConfig {
	return CSRFConfig{
		Cookies:      cookies,
		CookieMaxAge: 86400,
		SkipPaths:    []string{"/webhooks/"},
	}
}

// CSRF issues a readable token cookie on first contact and requires unsafe
// methods to echo it in X-CSRF-Token. The cart cookie is SameSite=Lax, which
// alone does not stop same-site subdomain posts.
func CSRF(cfg CSRFConfig) func(http.Handler) http.Handler {
	if cfg.Cookies == nil {
		panic("csrf: cookie config is required")
	}
	if cfg.CookieMaxAge == 0 {
		cfg.CookieMaxAge = 86400
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, skip := range cfg.SkipPaths {
				if matchesPathPrefix(r.URL.Path, skip) {
					next.ServeHTTP(w, r)
					return
				}
			}

			token := cookie.Get(r, cookie.CSRFCookieName)
			if token == "" {
				var err error
				token, err = generateCSRFToken()
				if err != nil {
					respondInternalError(w, r, err)
					return
				}
				cfg.Cookies.SetReadable(w, cookie.CSRFCookieName, token, cfg.CookieMaxAge)
			}

			r = r.WithContext(context.WithValue(r.Context(), CSRFContextKey, token))

			if isSafeMethod(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			if !validateCSRFToken(token, r.Header.Get(CSRFHeaderName)) {
				respondForbidden(w, r, "Missing or invalid CSRF token")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GetCSRFToken retrieves the CSRF token from the request context
func GetCSRFToken(ctx context.Context) string {
	if token, ok := ctx.Value(CSRFContextKey).(string); ok {
		return token
	}
	return ""
}

// generateCSRFToken fails closed when the system RNG fails.
func generateCSRFToken() (string, error) {
	b := make([]byte, CSRFTokenLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func validateCSRFToken(cookieToken, submittedToken string) bool {
	if cookieToken == "" || submittedToken == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(cookieToken), []byte(submittedToken)) == 1
}

func isSafeMethod(method string) bool {
	return method == http.MethodGet ||
		method == http.MethodHead ||
		method == http.MethodOptions
}

// matchesPathPrefix requires a path boundary so /webhooks/ does not match
// /webhooks-evil/.
func matchesPathPrefix(requestPath, skipPath string) bool {
	if !strings.HasPrefix(requestPath, skipPath) {
		return false
	}
	if strings.HasSuffix(skipPath, "/") || len(requestPath) == len(skipPath) {
		return true
	}
	return requestPath[len(skipPath)] == '/'
}
