package internal

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_ProdIsJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "prod", "info")

	logger.Debug("hidden")
	logger.Info("cart updated", "items", 2)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "cart updated", entry["msg"])
	assert.Equal(t, "tapnet", entry["service"])
	assert.Equal(t, float64(2), entry["items"])
	assert.NotEmpty(t, entry["time"])
}

func TestNewLogger_Levels(t *testing.T) {
	tests := []struct {
		level     string
		wantDebug bool
		wantInfo  bool
	}{
		{level: "debug", wantDebug: true, wantInfo: true},
		{level: "info", wantInfo: true},
		{level: "warn"},
		{level: "ERROR"},
		{level: "", wantInfo: true},
		{level: "bogus", wantInfo: true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLogger(&buf, "dev", tt.level)

			logger.Debug("debug line")
			logger.Info("info line")

			assert.Equal(t, tt.wantDebug, bytes.Contains(buf.Bytes(), []byte("debug line")))
			assert.Equal(t, tt.wantInfo, bytes.Contains(buf.Bytes(), []byte("info line")))
		})
	}
}

func TestNewLogger_MasksContactDetails(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "prod", "info")

	logger.Info("email sent", "to", "asha@example.com", "phone", "9876543210", "order", "TN-20250615-ABC123")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "a***@example.com", entry["to"])
	assert.Equal(t, "9***", entry["phone"])
	assert.Equal(t, "TN-20250615-ABC123", entry["order"])
	assert.NotContains(t, buf.String(), "asha@")
}

func TestMaskContact(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "", want: ""},
		{in: "asha@example.com", want: "a***@example.com"},
		{in: "@example.com", want: "@example.com"},
		{in: "9876543210", want: "9***"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, maskContact(tt.in))
		})
	}
}
