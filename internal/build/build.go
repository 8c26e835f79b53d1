// Package build provides variables that are set at build-time
// with the -X ldflag. If the values are not given at build-time,
// they will be determined from [debug.BuildInfo].
package build

import (
	"regexp"
	"runtime/debug"
	"sync"
)

var (
	pkg       string
	version   string
	buildTime string
)

var once sync.Once

var semverRe = regexp.MustCompile(`v?\d+(\.\d+){0,2}`)

// semver returns the first semantic version found in v, or v unchanged.
func semver(v string) string {
	loc := semverRe.FindStringIndex(v)
	if loc == nil {
		return v
	}
	return v[loc[0]:loc[1]]
}

// vcsTime returns the commit time recorded in settings with a numeric
// UTC offset, or "" if there is none.
func vcsTime(settings []debug.BuildSetting) string {
	for _, s := range settings {
		if s.Key != "vcs.time" || s.Value == "" {
			continue
		}
		if t := s.Value; t[len(t)-1] == 'Z' {
			return t[:len(t)-1] + "+00:00"
		}
		return s.Value
	}
	return ""
}

// Package returns the main package path of the cfstats binary.
func Package() string {
	once.Do(load)
	return pkg
}

// Version returns the version of the cfstats binary.
func Version() string {
	once.Do(load)
	return version
}

// BuildTime returns the time the cfstats binary was built, or the time
// of the commit it was built from.
func BuildTime() string {
	once.Do(load)
	return buildTime
}
