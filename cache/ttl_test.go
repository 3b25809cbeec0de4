package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTTLPresets(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected time.Duration
	}{
		{"short", "SHORT", TTLShort},
		{"medium", "MEDIUM", TTLMedium},
		{"long", "LONG", TTLLong},
		{"extended", "EXTENDED", TTLExtended},
		{"daily", "DAILY", TTLDaily},
		{"lowercase preset", "medium", TTLMedium},
		{"padded preset", "  LONG  ", TTLLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := ParseTTL(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, d)
		})
	}
}

func TestParseTTLHumanReadable(t *testing.T) {
	tests := []struct {
		input    string
		expected time.Duration
	}{
		{"5 minutes", 5 * time.Minute},
		{"1 minute", time.Minute},
		{"1 hour", time.Hour},
		{"12 hours", 12 * time.Hour},
		{"30 seconds", 30 * time.Second},
		{"2 days", 48 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			d, err := ParseTTL(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, d)
		})
	}
}

func TestParseTTLRejectsMalformedInput(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"soon",
		"five minutes",
		"5 fortnights",
		"-5 minutes",
		"0 minutes",
		"5 minutes ago",
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			_, err := ParseTTL(input)
			require.Error(t, err)

			var vErr *ValidationError
			assert.ErrorAs(t, err, &vErr)
		})
	}
}
