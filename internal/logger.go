package internal

import (
	"io"
	"log/slog"
	"strings"
	"time"
)

// maskedKeys hold shopper contact details. Their values are masked in every
// log record so order and email logs stay free of PII.
var maskedKeys = map[string]bool{
	"to":    true,
	"email": true,
	"phone": true,
}

// NewLogger builds the process logger. Production logs are JSON with
// RFC3339Nano times; everything else uses the text handler. An unknown
// level falls back to info.
func NewLogger(w io.Writer, env string, level string) *slog.Logger {
	lvl := new(slog.LevelVar)
	if level != "" {
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			slog.Default().Warn("Invalid log level. Using default level: info", slog.String("value", level))
		}
	}

	prod := env == "prod"
	opts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if prod && a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.String(slog.TimeKey, a.Value.Time().Format(time.RFC3339Nano))
			}
			if maskedKeys[a.Key] && a.Value.Kind() == slog.KindString {
				return slog.String(a.Key, maskContact(a.Value.String()))
			}
			return a
		},
	}

	var h slog.Handler
	if prod {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h).With(slog.String("service", "tapnet"))
}

// maskContact keeps the first character and, for email addresses, the domain.
func maskContact(v string) string {
	local, domain, isEmail := strings.Cut(v, "@")
	if local == "" {
		return v
	}
	masked := local[:1] + "***"
	if isEmail {
		return masked + "@" + domain
	}
	return masked
}
