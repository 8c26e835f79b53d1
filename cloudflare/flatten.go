package cloudflare

import (
	"errors"
	"math"
	"strconv"

	"github.com/tidwall/gjson"
)

// Flatten parses the JSON object totals and returns every scalar leaf keyed
// by its dotted path from the root, i.e. {"requests":{"all":1}} becomes
// {"requests.all": 1}. Array elements are keyed by their index. Null leaves
// and numbers out of the range of a float64 are omitted. If totals is not a
// JSON object, the returned error wraps [ErrSchema].
func Flatten(totals []byte) (Snapshot, error) {
	if !gjson.ValidBytes(totals) {
		return nil, &Error{Err: ErrSchema, Cause: errors.New("invalid JSON")}
	}
	r := gjson.ParseBytes(totals)
	if !r.IsObject() {
		return nil, &Error{Err: ErrSchema, Cause: errors.New("totals is not an object")}
	}
	return FlattenResult(r), nil
}

// FlattenResult is like [Flatten] but walks an already parsed result.
// A scalar result produces an empty snapshot.
func FlattenResult(r gjson.Result) Snapshot {
	s := make(Snapshot)
	if r.IsObject() || r.IsArray() {
		flatten(s, "", r)
	}
	return s
}

func flatten(s Snapshot, prefix string, r gjson.Result) {
	if r.IsArray() {
		i := 0
		r.ForEach(func(_, v gjson.Result) bool {
			visit(s, join(prefix, strconv.Itoa(i)), v)
			i++
			return true
		})
		return
	}
	r.ForEach(func(k, v gjson.Result) bool {
		visit(s, join(prefix, k.String()), v)
		return true
	})
}

func visit(s Snapshot, key string, v gjson.Result) {
	switch v.Type {
	case gjson.Null:
	case gjson.JSON:
		flatten(s, key, v)
	case gjson.Number:
		if math.IsInf(v.Num, 0) || math.IsNaN(v.Num) {
			return
		}
		s[key] = number(v)
	case gjson.True, gjson.False:
		s[key] = v.Bool()
	default:
		s[key] = v.String()
	}
}

func join(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

// number returns v as an int64 if it is integral and in range, otherwise as
// a float64.
func number(v gjson.Result) any {
	if i, err := strconv.ParseInt(v.Raw, 10, 64); err == nil {
		return i
	}
	f := v.Num
	if f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
		return int64(f)
	}
	return f
}
