package store

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/DoyleJ11/hidden-role-client/internal/session"
)

// decodeRecord turns an untyped contract result into a typed record. Missing
// or unparseable numeric fields default to zero; only a nil result is an error.
func decodeRecord(id string, raw map[string]any) (session.Record, error) {
	if raw == nil {
		return session.Record{}, fmt.Errorf("%w: %s", ErrMalformedRecord, id)
	}

	r := session.Record{
		ID:          id,
		DisplayName: toString(raw["name"]),
		Description: toString(raw["description"]),
		Capacity:    int(clamp(toInt64(raw["publicValue1"]), 0, math.MaxInt32)),
		Creator:     toString(raw["creator"]),
		Verified:    toBool(raw["isVerified"]),
	}
	if ts := toInt64(raw["timestamp"]); ts > 0 {
		r.CreatedAt = time.Unix(ts, 0).UTC()
	}
	if r.Verified {
		r.RevealedValue = uint64(clamp(toInt64(raw["decryptedValue"]), 0, math.MaxInt64))
	}
	return r, nil
}

func clamp(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case nil:
		return 0
	case int:
		return int64(n)
	case int8:
		return int64(n)
	case int16:
		return int64(n)
	case int32:
		return int64(n)
	case int64:
		return n
	case uint:
		return saturate(uint64(n))
	case uint8:
		return int64(n)
	case uint16:
		return int64(n)
	case uint32:
		return int64(n)
	case uint64:
		return saturate(n)
	case float32:
		return floatToInt(float64(n))
	case float64:
		return floatToInt(n)
	case json.Number:
		return stringToInt(string(n))
	case string:
		return stringToInt(n)
	case *big.Int:
		if n == nil {
			return 0
		}
		return bigToInt(n)
	case big.Int:
		return bigToInt(&n)
	case bool:
		if n {
			return 1
		}
		return 0
	default:
		return 0
	}
}

func saturate(u uint64) int64 {
	if u > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(u)
}

func floatToInt(f float64) int64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	if f >= math.MaxInt64 {
		return math.MaxInt64
	}
	if f <= math.MinInt64 {
		return math.MinInt64
	}
	return int64(f)
}

func bigToInt(b *big.Int) int64 {
	if b.IsInt64() {
		return b.Int64()
	}
	if b.Sign() > 0 {
		return math.MaxInt64
	}
	return math.MinInt64
}

func stringToInt(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if b, ok := new(big.Int).SetString(s, 0); ok {
		return bigToInt(b)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return floatToInt(f)
	}
	return 0
}

func toBool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		ok, err := strconv.ParseBool(strings.TrimSpace(b))
		return err == nil && ok
	case nil:
		return false
	default:
		return toInt64(v) != 0
	}
}

func toString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case []byte:
		return string(s)
	case fmt.Stringer:
		return s.String()
	default:
		return fmt.Sprint(s)
	}
}
