package cache

import (
	"strconv"
	"strings"
	"time"
)

// Standard TTL presets. Call sites pick from this closed vocabulary instead of
// passing raw durations, so cache lifetimes stay consistent across the app.
const (
	TTLShort    = 2 * time.Minute
	TTLMedium   = 5 * time.Minute
	TTLLong     = 15 * time.Minute
	TTLExtended = 1 * time.Hour
	TTLDaily    = 24 * time.Hour
)

// ttlPresets maps preset names (as they appear in configuration and on the
// admin API) to their durations.
var ttlPresets = map[string]time.Duration{
	"SHORT":    TTLShort,
	"MEDIUM":   TTLMedium,
	"LONG":     TTLLong,
	"EXTENDED": TTLExtended,
	"DAILY":    TTLDaily,
}

// ttlUnits maps the unit words accepted in "<n> <unit>" duration strings.
var ttlUnits = map[string]time.Duration{
	"second":  time.Second,
	"seconds": time.Second,
	"minute":  time.Minute,
	"minutes": time.Minute,
	"hour":    time.Hour,
	"hours":   time.Hour,
	"day":     24 * time.Hour,
	"days":    24 * time.Hour,
}

// ParseTTL converts a duration string to a time.Duration. It accepts preset
// names ("MEDIUM") and human-readable strings ("5 minutes", "1 hour").
// Unrecognized input fails with a ValidationError; there is no silent default.
func ParseTTL(s string) (time.Duration, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return 0, NewValidationError("ttl", "duration string is empty")
	}

	if d, ok := ttlPresets[strings.ToUpper(trimmed)]; ok {
		return d, nil
	}

	fields := strings.Fields(strings.ToLower(trimmed))
	if len(fields) != 2 {
		return 0, NewValidationError("ttl", "expected a preset name or \"<n> <unit>\", got "+strconv.Quote(s))
	}

	n, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil || n <= 0 {
		return 0, NewValidationError("ttl", "invalid duration amount "+strconv.Quote(fields[0]))
	}

	unit, ok := ttlUnits[fields[1]]
	if !ok {
		return 0, NewValidationError("ttl", "unknown duration unit "+strconv.Quote(fields[1]))
	}

	return time.Duration(n) * unit, nil
}
