package build

import (
	"runtime/debug"
	"testing"
)

func TestSemver(t *testing.T) {
	tests := []struct{ in, want string }{
		{"v1.2.3", "v1.2.3"},
		{"1.2", "1.2"},
		{"v0.4.1-0.20250101120000-abcdef123456", "v0.4.1"},
		{"(devel)", "(devel)"},
	}
	for _, tt := range tests {
		if got := semver(tt.in); got != tt.want {
			t.Errorf("semver(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestVCSTime(t *testing.T) {
	settings := []debug.BuildSetting{
		{Key: "vcs", Value: "git"},
		{Key: "vcs.time", Value: "2025-03-01T10:00:00Z"},
	}
	if got, want := vcsTime(settings), "2025-03-01T10:00:00+00:00"; got != want {
		t.Errorf("vcsTime() = %q, want %q", got, want)
	}
	if got := vcsTime(settings[:1]); got != "" {
		t.Errorf("vcsTime() = %q, want empty", got)
	}
}
