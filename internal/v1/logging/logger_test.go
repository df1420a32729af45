package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitialize(t *testing.T) {
	err := Initialize(true)
	require.NoError(t, err)
	assert.NotNil(t, GetLogger())

	// Second call is a no-op thanks to sync.Once
	err = Initialize(false)
	require.NoError(t, err)
}

func TestGetLoggerFallback(t *testing.T) {
	// Should not panic even if Initialize was never called
	l := GetLogger()
	assert.NotNil(t, l)
}

func TestAppendContextFields(t *testing.T) {
	ctx := context.WithValue(context.Background(), CorrelationIDKey, "corr-1")
	ctx = context.WithValue(ctx, UserIDKey, "user-42")
	ctx = context.WithValue(ctx, SessionIDKey, "sess-7")
	ctx = context.WithValue(ctx, RoomIDKey, "3")

	fields := appendContextFields(ctx, nil)
	// correlation + user + session + room + service
	assert.Len(t, fields, 5)
}

func TestAppendContextFieldsNilContext(t *testing.T) {
	//nolint:staticcheck // exercising the nil guard on purpose
	fields := appendContextFields(nil, nil)
	assert.Empty(t, fields)
}

func TestRedactEmail(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		expected string
	}{
		{"normal email", "player@example.com", "***@example.com"},
		{"empty string", "", ""},
		{"no at sign", "not-an-email", "***"},
		{"leading at sign", "@example.com", "***"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, RedactEmail(tt.email))
		})
	}
}
