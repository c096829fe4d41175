package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
)

// Context maps property names to observed or derived values.
// A key mapped to nil is explicitly missing, a key not present is absent.
// Both are resolved through the missing branch at evaluation time.
type Context map[string]any

// Clone returns a shallow copy of c. Values are primitives so a shallow copy
// is enough to keep the caller's map untouched.
func (c Context) Clone() Context {
	out := make(Context, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Lookup returns the value bound to name and whether it is present and non-nil.
func (c Context) Lookup(name string) (any, bool) {
	v, ok := c[name]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// Keys returns the context keys sorted lexically.
func (c Context) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// IsPrimitive reports whether v can be encoded as a plain JSON scalar.
// NaN and infinities are rejected because JSON cannot carry them.
func IsPrimitive(v any) bool {
	switch x := v.(type) {
	case nil, bool, string, json.Number,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return true
	case float32:
		return !math.IsNaN(float64(x)) && !math.IsInf(float64(x), 0)
	case float64:
		return !math.IsNaN(x) && !math.IsInf(x, 0)
	}
	return false
}

// ToFloat converts any Go numeric or json.Number to float64.
func ToFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint8:
		return float64(x), true
	case uint16:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case float32:
		return float64(x), true
	case float64:
		return x, true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	}
	return 0, false
}

// ValuesEqual compares two primitives. Numbers compare by value regardless of
// their Go type, strings are case-sensitive, and values of different kinds are
// never equal.
func ValuesEqual(a, b any) bool {
	fa, aNum := ToFloat(a)
	fb, bNum := ToFloat(b)
	if aNum || bNum {
		return aNum && bNum && fa == fb
	}
	switch x := a.(type) {
	case string:
		y, ok := b.(string)
		return ok && x == y
	case bool:
		y, ok := b.(bool)
		return ok && x == y
	case nil:
		return b == nil
	}
	return false
}

// DistributionKey renders a categorical value as a distribution key.
func DistributionKey(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case json.Number:
		return x.String()
	}
	if f, ok := ToFloat(v); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}
