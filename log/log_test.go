package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
)

func TestWarnError(t *testing.T) {
	var buf bytes.Buffer
	SetJSONHandler(&buf)
	t.Cleanup(func() { SetTextHandler(&bytes.Buffer{}) })

	WarnError("Refresh failed", errors.New("rate limited"), "zone", "abc")

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("%s: %v", buf.Bytes(), err)
	}
	want := map[string]any{
		"level": "WARN",
		"msg":   "Refresh failed",
		"cause": "rate limited",
		"zone":  "abc",
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s: Wanted %v, got %v", k, v, got[k])
		}
	}
}

func TestSetLogLevel(t *testing.T) {
	var buf bytes.Buffer
	SetTextHandler(&buf)
	prev := LogLevel()
	t.Cleanup(func() {
		SetLogLevel(prev)
		SetTextHandler(&bytes.Buffer{})
	})

	SetLogLevel(LevelError)
	Warn("hidden")
	if buf.Len() != 0 {
		t.Errorf("Wanted no output, got %s", buf.Bytes())
	}
	Error("shown", nil)
	if !bytes.Contains(buf.Bytes(), []byte("shown")) {
		t.Errorf("Wanted output, got %s", buf.Bytes())
	}

	buf.Reset()
	SetLogLevel(LevelDisabled)
	Error("hidden", errors.New("boom"))
	if buf.Len() != 0 {
		t.Errorf("Wanted no output, got %s", buf.Bytes())
	}
}

func TestParseLevel(t *testing.T) {
	var tests = []struct {
		in   string
		want Level
		fail bool
	}{
		{"off", LevelDisabled, false},
		{"info", LevelInfo, false},
		{"WARN", LevelWarn, false},
		{"verbose", LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.fail {
			t.Errorf("%s: wanted error %v, got %v", tt.in, tt.fail, err)
		}
		if !tt.fail && got != tt.want {
			t.Errorf("%s: Wanted %s, got %s", tt.in, tt.want, got)
		}
	}
}
