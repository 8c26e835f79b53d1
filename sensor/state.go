package sensor

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strconv"

	"github.com/lone-faerie/cfstats/cloudflare"
	"github.com/lone-faerie/cfstats/internal/byteutil"
)

// State is the result of resolving a [Definition] against a snapshot.
// Value is nil whenever Available is false.
type State struct {
	Definition
	Value     any
	Available bool
}

// Resolve returns the state of each definition in defs. A key present in
// snap is available with its value, bandwidth values converted from bytes
// to unit. A key absent from snap is unavailable. A nil snap makes every
// state unavailable.
func Resolve(defs []Definition, snap cloudflare.Snapshot, unit byteutil.ByteSize) []State {
	states := make([]State, len(defs))
	for i := range defs {
		states[i].Definition = defs[i]
		v, ok := snap[defs[i].Key]
		if !ok {
			continue
		}
		if defs[i].Bandwidth {
			if f, ok := snap.Float(defs[i].Key); ok {
				v = unit.Convert(f)
			}
		}
		states[i].Value = v
		states[i].Available = true
	}
	return states
}

// Unavailable returns the states of defs, all unavailable.
func Unavailable(defs []Definition) []State {
	return Resolve(defs, nil, byteutil.Bytes)
}

func appendValue(b []byte, v any) []byte {
	switch v := v.(type) {
	case nil:
		return append(b, "null"...)
	case int64:
		return strconv.AppendInt(b, v, 10)
	case float64:
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return append(b, "null"...)
		}
		return byteutil.AppendFloat(b, v, -1)
	case bool:
		return strconv.AppendBool(b, v)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return append(b, "null"...)
	}
	return append(b, data...)
}

// AppendJSON appends the JSON object of states to b, keyed by definition key
// in the order of states. Unavailable states are encoded as null.
func AppendJSON(b []byte, states []State) []byte {
	b = append(b, '{')
	for i := range states {
		if i > 0 {
			b = append(b, ',')
		}
		b = strconv.AppendQuote(b, states[i].Key)
		b = append(b, ':')
		if states[i].Available {
			b = appendValue(b, states[i].Value)
		} else {
			b = append(b, "null"...)
		}
	}
	return append(b, '}')
}

// MarshalJSON implements [json.Marshaler].
func (s State) MarshalJSON() ([]byte, error) {
	b := []byte(`{"key":`)
	b = strconv.AppendQuote(b, s.Key)
	b = append(b, `,"name":`...)
	b = strconv.AppendQuote(b, s.Name)
	b = append(b, `,"state":`...)
	if s.Available {
		b = appendValue(b, s.Value)
	} else {
		b = append(b, `"unavailable"`...)
	}
	if s.Unit != "" {
		b = append(b, `,"unit":`...)
		b = strconv.AppendQuote(b, s.Unit)
	}
	return append(b, '}'), nil
}

// Publisher is implemented by hosts that expose sensor states as entities.
type Publisher interface {
	SetState(ctx context.Context, id string, value any, unit string) error
	SetUnavailable(ctx context.Context, id string) error
}

// ID returns the unique id of the sensor with the given key in zone.
func ID(zone, key string) string {
	d := Definition{Key: key}
	return "cloudflare_" + zone + "_" + d.Slug()
}

// Apply sets each of states on p. Every state is applied even if an earlier
// one fails, and the returned error joins all failures.
func Apply(ctx context.Context, p Publisher, zone string, states []State) error {
	var errs []error
	for i := range states {
		id := ID(zone, states[i].Key)
		var err error
		if states[i].Available {
			err = p.SetState(ctx, id, states[i].Value, states[i].Unit)
		} else {
			err = p.SetUnavailable(ctx, id)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
