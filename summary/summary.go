// Package summary aggregates decoded telemetry into counts and derived metrics.
package summary

import (
	"math"
	"sort"

	"github.com/vainnor/flightlog/types"
)

// AltitudeFields lists the altitude-bearing field names in order of
// preference. The first one a message carries is the one it contributes.
var AltitudeFields = []string{"alt", "relative_alt"}

// Summarize makes one pass over messages. The result depends only on the
// input sequence, so summarizing the same messages again gives an identical
// Summary.
func Summarize(messages []types.DecodedMessage) types.Summary {
	s := types.Summary{
		TotalMessages: len(messages),
		MessageTypes:  make(map[string]int),
	}

	var (
		altitudeSum   float64
		altitudeCount int
	)
	for _, msg := range messages {
		s.MessageTypes[msg.Type]++

		if alt, ok := Altitude(msg); ok {
			altitudeSum += alt
			altitudeCount++
		}
	}

	if altitudeCount > 0 {
		mean := altitudeSum / float64(altitudeCount)
		s.AverageAltitude = &mean
	}
	return s
}

// Altitude returns the message's altitude by field preference. Messages
// without an altitude field report false, as do non-numeric and non-finite
// values (unset float fields arrive as NaN).
func Altitude(msg types.DecodedMessage) (float64, bool) {
	for _, name := range AltitudeFields {
		v, ok := msg.Fields.Get(name)
		if !ok {
			continue
		}
		n, ok := v.Number()
		if !ok || math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

// WithSkipped attaches skip counters to a summary.
func WithSkipped(s types.Summary, skipped types.SkipCounts) types.Summary {
	s.Skipped = &skipped
	return s
}

// Types lists the distinct message types in messages, sorted.
func Types(messages []types.DecodedMessage) []string {
	seen := make(map[string]struct{})
	for _, msg := range messages {
		seen[msg.Type] = struct{}{}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Filter returns up to limit messages of the given type, in log order. An
// empty type matches everything; a limit of zero or less means no limit.
func Filter(messages []types.DecodedMessage, messageType string, limit int) []types.DecodedMessage {
	out := make([]types.DecodedMessage, 0)
	for _, msg := range messages {
		if messageType != "" && msg.Type != messageType {
			continue
		}
		out = append(out, msg)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
