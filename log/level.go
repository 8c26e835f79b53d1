package log

import (
	"log/slog"
	"strconv"
	"strings"
)

// A Level is the importance or severity of a log event. It extends
// [slog.Level] with [LevelDisabled], which is more severe than any event.
type Level slog.Level

const (
	LevelDebug    = Level(slog.LevelDebug)
	LevelInfo     = Level(slog.LevelInfo)
	LevelWarn     = Level(slog.LevelWarn)
	LevelError    = Level(slog.LevelError)
	LevelDisabled = Level(1<<31 - 1)
)

// ParseLevel returns the level named by s, ignoring case. In addition to
// the names accepted by [slog.Level.UnmarshalText], "disable", "disabled",
// "off" and "false" name [LevelDisabled].
func ParseLevel(s string) (l Level, err error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "disable", "disabled", "off", "false":
		return LevelDisabled, nil
	}
	var sl slog.Level
	err = sl.UnmarshalText([]byte(s))
	return Level(sl), err
}

// String returns the name of the level, or "DISABLED" for [LevelDisabled].
//
//	LevelWarn.String() => "WARN"
//	(LevelInfo+2).String() => "INFO+2"
func (l Level) String() string {
	if l >= LevelDisabled {
		return "DISABLED"
	}

	return slog.Level(l).String()
}

// MarshalJSON implements [encoding/json.Marshaler]
// by quoting the output of [Level.String].
func (l Level) MarshalJSON() ([]byte, error) {
	return strconv.AppendQuote(nil, l.String()), nil
}

// UnmarshalJSON implements [encoding/json.Unmarshaler] using [ParseLevel].
func (l *Level) UnmarshalJSON(data []byte) error {
	s, err := strconv.Unquote(string(data))
	if err != nil {
		return err
	}

	return l.UnmarshalText([]byte(s))
}

// AppendText implements [encoding.TextAppender]
// by calling [Level.String].
func (l Level) AppendText(b []byte) ([]byte, error) {
	return append(b, l.String()...), nil
}

// MarshalText implements [encoding.TextMarshaler]
// by calling [Level.AppendText].
func (l Level) MarshalText() ([]byte, error) {
	return l.AppendText(nil)
}

// UnmarshalText implements [encoding.TextUnmarshaler] using [ParseLevel].
func (l *Level) UnmarshalText(data []byte) error {
	v, err := ParseLevel(string(data))
	if err != nil {
		return err
	}
	*l = v
	return nil
}

// Level implements [slog.Leveler].
func (l Level) Level() slog.Level { return slog.Level(l) }
