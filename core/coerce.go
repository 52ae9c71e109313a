package core

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// asObject turns supported raw inputs into a field map.
// Returns false for anything that is not record-shaped.
func asObject(raw any) (map[string]any, bool) {
	switch v := raw.(type) {
	case map[string]any:
		if v == nil {
			return nil, false
		}
		return v, true
	case Block:
		return blockFields(&v), true
	case *Block:
		if v == nil {
			return nil, false
		}
		return blockFields(v), true
	case MetaSummary:
		return metaFields(&v), true
	case *MetaSummary:
		if v == nil {
			return nil, false
		}
		return metaFields(v), true
	}
	return nil, false
}

func blockFields(b *Block) map[string]any {
	fields := map[string]any{
		"id":           b.ID,
		"sessionUrl":   b.SessionURL,
		"startOrdinal": b.StartOrdinal,
		"messageCount": b.MessageCount,
		"content":      b.Content,
	}
	// A zero timestamp on a typed block means "not set".
	if b.Timestamp != 0 {
		fields["timestamp"] = b.Timestamp
	}
	return fields
}

func metaFields(m *MetaSummary) map[string]any {
	return map[string]any{
		"id":         m.ID,
		"sessionUrl": m.SessionURL,
		"chunkIds":   m.ChunkIDs,
		"chunkRange": []int{m.ChunkRange[0], m.ChunkRange[1]},
		"summary":    m.Summary,
		"timestamp":  m.Timestamp,
		"chunkCount": m.ChunkCount,
	}
}

// coerceString mirrors loose string conversion of scraped values.
func coerceString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case json.Number:
		return s.String()
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(s), 'f', -1, 32)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	case int32:
		return strconv.FormatInt(int64(s), 10)
	case uint:
		return strconv.FormatUint(uint64(s), 10)
	case uint64:
		return strconv.FormatUint(s, 10)
	case uint32:
		return strconv.FormatUint(uint64(s), 10)
	case bool:
		return strconv.FormatBool(s)
	}
	return ""
}

// coerceNumber converts a raw value to float64. Values that cannot be read
// as a number come back as NaN.
func coerceNumber(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case int32:
		return float64(n)
	case uint:
		return float64(n)
	case uint64:
		return float64(n)
	case uint32:
		return float64(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return math.NaN()
		}
		return f
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return math.NaN()
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	}
	return math.NaN()
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// intBound is 2^63. Truncating a float in [-intBound, intBound) cannot wrap.
const intBound = 1 << 63

// isIntegral reports whether f is finite and truncates to a value an int64 holds.
func isIntegral(f float64) bool {
	return isFinite(f) && f >= -intBound && f < intBound
}

// truncInt truncates f toward zero, saturating at the int64 bounds.
// NaN becomes 0.
func truncInt(f float64) int64 {
	switch {
	case math.IsNaN(f):
		return 0
	case f >= intBound:
		return math.MaxInt64
	case f < -intBound:
		return math.MinInt64
	}
	return int64(math.Trunc(f))
}

// stringEntries keeps only the string elements of a raw sequence.
// Returns nil when v is not a sequence at all.
func stringEntries(v any) []string {
	switch s := v.(type) {
	case []string:
		return append(make([]string, 0, len(s)), s...)
	case []any:
		out := make([]string, 0, len(s))
		for _, e := range s {
			if str, ok := e.(string); ok {
				out = append(out, str)
			}
		}
		return out
	}
	return nil
}

// numberEntries coerces each element of a raw sequence to a number.
func numberEntries(v any) []float64 {
	switch s := v.(type) {
	case []float64:
		return append(make([]float64, 0, len(s)), s...)
	case []int:
		out := make([]float64, len(s))
		for i, e := range s {
			out[i] = float64(e)
		}
		return out
	case [2]int:
		return []float64{float64(s[0]), float64(s[1])}
	case []any:
		out := make([]float64, len(s))
		for i, e := range s {
			out[i] = coerceNumber(e)
		}
		return out
	}
	return nil
}
