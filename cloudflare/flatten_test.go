package cloudflare

import (
	"errors"
	"reflect"
	"testing"
)

func TestFlatten(t *testing.T) {
	var tests = []struct {
		name  string
		input string
		want  Snapshot
	}{
		{"Empty", `{}`, Snapshot{}},
		{
			"Nested",
			`{"requests":{"all":1000,"cached":400}}`,
			Snapshot{"requests.all": int64(1000), "requests.cached": int64(400)},
		},
		{
			"Deep",
			`{"requests":{"ssl":{"encrypted":9,"unencrypted":1}},"uniques":{"all":3}}`,
			Snapshot{
				"requests.ssl.encrypted":   int64(9),
				"requests.ssl.unencrypted": int64(1),
				"uniques.all":              int64(3),
			},
		},
		{
			"Scalars",
			`{"since":"2024-05-01T00:00:00Z","ratio":0.25,"big":1e3,"ok":true,"gone":null}`,
			Snapshot{
				"since": "2024-05-01T00:00:00Z",
				"ratio": 0.25,
				"big":   int64(1000),
				"ok":    true,
			},
		},
		{
			"Arrays",
			`{"a":[1,{"b":2},[3]],"e":[]}`,
			Snapshot{"a.0": int64(1), "a.1.b": int64(2), "a.2.0": int64(3)},
		},
		{"EmptyObjects", `{"threats":{"country":{},"type":{}}}`, Snapshot{}},
		{
			"OutOfRange",
			`{"requests":{"all":1e400,"cached":2,"bot":-1e400}}`,
			Snapshot{"requests.cached": int64(2)},
		},
	}
	for _, tt := range tests {
		got, err := Flatten([]byte(tt.input))
		if err != nil {
			t.Errorf("%s: Error %v", tt.name, err)
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("%s: wanted %v, got %v", tt.name, tt.want, got)
		}
	}
}

func TestFlattenNotObject(t *testing.T) {
	for _, input := range []string{``, `null`, `12`, `"x"`, `[1]`, `{"a":`} {
		_, err := Flatten([]byte(input))
		if !errors.Is(err, ErrSchema) {
			t.Errorf("%q: wanted %v, got %v", input, ErrSchema, err)
		}
	}
}

func TestFlattenDeterministic(t *testing.T) {
	const input = `{"b":{"y":2,"x":1},"a":[true,false]}`
	first, err := Flatten([]byte(input))
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		got, _ := Flatten([]byte(input))
		if !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d: wanted %v, got %v", i, first, got)
		}
	}
	want := []string{"a.0", "a.1", "b.x", "b.y"}
	if keys := first.Keys(); !reflect.DeepEqual(keys, want) {
		t.Errorf("Keys: wanted %v, got %v", want, keys)
	}
}

func TestSnapshotNumbers(t *testing.T) {
	s := Snapshot{"i": int64(3), "f": 2.5, "s": "x"}
	if v, ok := s.Int("i"); !ok || v != 3 {
		t.Errorf("Int(i): wanted 3, got %v (%v)", v, ok)
	}
	if v, ok := s.Int("f"); !ok || v != 2 {
		t.Errorf("Int(f): wanted 2, got %v (%v)", v, ok)
	}
	if v, ok := s.Float("i"); !ok || v != 3 {
		t.Errorf("Float(i): wanted 3, got %v (%v)", v, ok)
	}
	if _, ok := s.Float("s"); ok {
		t.Error("Float(s): wanted false, got true")
	}
	if _, ok := s.Int("missing"); ok {
		t.Error("Int(missing): wanted false, got true")
	}
}
