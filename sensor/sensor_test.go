package sensor

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"slices"
	"testing"

	"github.com/lone-faerie/cfstats/cloudflare"
	"github.com/lone-faerie/cfstats/internal/byteutil"
)

func lookup(defs []Definition, key string) (Definition, bool) {
	i := slices.IndexFunc(defs, func(d Definition) bool { return d.Key == key })
	if i < 0 {
		return Definition{}, false
	}
	return defs[i], true
}

func TestCatalog(t *testing.T) {
	defs := Catalog(byteutil.GB)
	seen := make(map[string]bool, len(defs))
	for _, d := range defs {
		if seen[d.Key] {
			t.Errorf("%q: duplicate key", d.Key)
		}
		seen[d.Key] = true
		if d.Bandwidth && d.Unit != "GB" {
			t.Errorf("%q: wanted unit GB, got %q", d.Key, d.Unit)
		}
	}
	for _, key := range []string{"requests.all", "requests.cached", "threats.all", "uniques.all", "bandwidth.all"} {
		if !seen[key] {
			t.Errorf("%q: missing from catalog", key)
		}
	}
	if defs[0].Key != "requests.all" {
		t.Errorf("first key: wanted requests.all, got %q", defs[0].Key)
	}
	d, ok := lookup(defs, "bandwidth.ssl.encrypted")
	if !ok || d.Enabled {
		t.Errorf("bandwidth.ssl.encrypted: wanted disabled, got %v (%v)", d.Enabled, ok)
	}
	if _, ok := lookup(defs, "views_today"); ok {
		t.Error("views_today: wanted missing, got found")
	}
}

func TestCatalogUnknownUnit(t *testing.T) {
	d, _ := lookup(Catalog(byteutil.UnknownSize), "bandwidth.all")
	if d.Unit != "B" {
		t.Errorf("wanted B, got %q", d.Unit)
	}
}

func TestResolve(t *testing.T) {
	defs := Catalog(byteutil.MB)
	snap := cloudflare.Snapshot{
		"requests.all":     int64(1000),
		"requests.cached":  int64(400),
		"bandwidth.all":    int64(3 << 20),
		"bandwidth.cached": int64(1 << 19),
		"since":            "2024-05-01T00:00:00Z",
	}
	states := Resolve(defs, snap, byteutil.MB)
	if len(states) != len(defs) {
		t.Fatalf("wanted %d states, got %d", len(defs), len(states))
	}
	var tests = []struct {
		key   string
		value any
		avail bool
	}{
		{"requests.all", int64(1000), true},
		{"requests.cached", int64(400), true},
		{"requests.uncached", nil, false},
		{"requests.bot", nil, false},
		{"bandwidth.all", 3.0, true},
		{"bandwidth.cached", 0.5, true},
		{"threats.blocked", nil, false},
		{"since", "2024-05-01T00:00:00Z", true},
	}
	for _, tt := range tests {
		var got *State
		for i := range states {
			if states[i].Key == tt.key {
				got = &states[i]
			}
		}
		if got == nil {
			t.Errorf("%q: missing state", tt.key)
			continue
		}
		if got.Available != tt.avail || got.Value != tt.value {
			t.Errorf("%q: wanted %v (%v), got %v (%v)", tt.key, tt.value, tt.avail, got.Value, got.Available)
		}
	}
}

func TestUnavailable(t *testing.T) {
	for _, s := range Unavailable(Catalog(byteutil.MB)) {
		if s.Available || s.Value != nil {
			t.Errorf("%q: wanted unavailable, got %v", s.Key, s.Value)
		}
	}
}

func TestAppendJSON(t *testing.T) {
	defs := []Definition{
		{Key: "requests.all"},
		{Key: "bandwidth.all", Bandwidth: true},
		{Key: "requests.bot"},
		{Key: "since"},
	}
	snap := cloudflare.Snapshot{
		"requests.all":  int64(1000),
		"bandwidth.all": int64(1536),
		"since":         "2024-05-01T00:00:00Z",
	}
	got := string(AppendJSON(nil, Resolve(defs, snap, byteutil.KB)))
	want := `{"requests.all":1000,"bandwidth.all":1.5,"requests.bot":null,"since":"2024-05-01T00:00:00Z"}`
	if got != want {
		t.Errorf("wanted %s, got %s", want, got)
	}
	if !json.Valid([]byte(got)) {
		t.Errorf("invalid JSON %s", got)
	}

	got = string(AppendJSON(nil, Unavailable(defs)))
	want = `{"requests.all":null,"bandwidth.all":null,"requests.bot":null,"since":null}`
	if got != want {
		t.Errorf("wanted %s, got %s", want, got)
	}
}

func TestAppendJSONNonFinite(t *testing.T) {
	states := []State{
		{Definition: Definition{Key: "requests.all"}, Value: math.Inf(1), Available: true},
		{Definition: Definition{Key: "bandwidth.all"}, Value: math.NaN(), Available: true},
		{Definition: Definition{Key: "threats.all"}, Value: 0.25, Available: true},
	}
	got := AppendJSON(nil, states)
	want := `{"requests.all":null,"bandwidth.all":null,"threats.all":0.25}`
	if string(got) != want {
		t.Errorf("wanted %s, got %s", want, got)
	}
	if !json.Valid(got) {
		t.Errorf("invalid JSON %s", got)
	}

	b, err := json.Marshal(states[0])
	if err != nil {
		t.Fatal(err)
	}
	if want := `{"key":"requests.all","name":"","state":null}`; string(b) != want {
		t.Errorf("wanted %s, got %s", want, b)
	}
}

func TestStateMarshalJSON(t *testing.T) {
	var tests = []struct {
		state State
		want  string
	}{
		{
			State{Definition: Definition{Key: "requests.all", Name: "Requests (All)", Unit: "requests"}, Value: int64(5), Available: true},
			`{"key":"requests.all","name":"Requests (All)","state":5,"unit":"requests"}`,
		},
		{
			State{Definition: Definition{Key: "since", Name: "Reporting Window Start"}},
			`{"key":"since","name":"Reporting Window Start","state":"unavailable"}`,
		},
	}
	for _, tt := range tests {
		got, err := json.Marshal(tt.state)
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != tt.want {
			t.Errorf("%q: wanted %s, got %s", tt.state.Key, tt.want, got)
		}
	}
}

type recorder struct {
	set   map[string]any
	unset []string
	fail  string
}

func (r *recorder) SetState(_ context.Context, id string, value any, _ string) error {
	if id == r.fail {
		return errors.New("failed")
	}
	r.set[id] = value
	return nil
}

func (r *recorder) SetUnavailable(_ context.Context, id string) error {
	r.unset = append(r.unset, id)
	return nil
}

func TestApply(t *testing.T) {
	defs := []Definition{{Key: "requests.all"}, {Key: "requests.ssl.encrypted"}, {Key: "requests.bot"}}
	snap := cloudflare.Snapshot{"requests.all": int64(1), "requests.ssl.encrypted": int64(2)}
	r := &recorder{set: make(map[string]any), fail: "cloudflare_z_requests_all"}

	err := Apply(context.Background(), r, "z", Resolve(defs, snap, byteutil.Bytes))
	if err == nil {
		t.Error("wanted error, got nil")
	}
	if v := r.set["cloudflare_z_requests_ssl_encrypted"]; v != int64(2) {
		t.Errorf("requests.ssl.encrypted: wanted 2, got %v", v)
	}
	if len(r.unset) != 1 || r.unset[0] != "cloudflare_z_requests_bot" {
		t.Errorf("unavailable: wanted [cloudflare_z_requests_bot], got %v", r.unset)
	}
}
