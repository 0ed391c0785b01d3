package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestMaskEmail(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"jane@example.com", "j***@example.com"},
		{"a@b.co", "a***@b.co"},
		{"no-at-sign", "***"},
		{"@example.com", "***"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, MaskEmail(tt.in))
		})
	}
}

func TestLogger_RedactsSensitiveKeys(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	log := &Logger{SugaredLogger: zap.New(core).Sugar()}

	log.Info("sending", "email", "jane@example.com", "resend_api_key", "re_123", "order_id", "o-1")

	entries := logs.All()
	assert.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "j***@example.com", fields["email"])
	assert.Equal(t, "[REDACTED]", fields["resend_api_key"])
	assert.Equal(t, "o-1", fields["order_id"])
}
