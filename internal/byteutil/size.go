package byteutil

import (
	"fmt"
	"strings"
)

// ByteSize is the power of two a byte count is shifted by to express it in
// a larger unit, i.e. KB is 10 since 1 KB = 1<<10 bytes.
type ByteSize int

const (
	Bytes ByteSize = 10 * iota
	KB
	MB
	GB
	TB
)

const UnknownSize ByteSize = -1

// ParseSize returns the ByteSize named by s. Both the decimal-looking names
// used by Home Assistant (KB, MB, ...) and the binary names (KiB, MiB, ...)
// are accepted and treated as powers of 1024. Case is ignored.
func ParseSize(s string) (ByteSize, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "b", "bytes":
		return Bytes, nil
	case "kb", "kib":
		return KB, nil
	case "mb", "mib":
		return MB, nil
	case "gb", "gib":
		return GB, nil
	case "tb", "tib":
		return TB, nil
	}
	return UnknownSize, fmt.Errorf("unknown byte size %q", s)
}

// Convert returns v bytes expressed in s, rounded to 2 decimal places.
// A size of [Bytes] or an unknown size returns v unchanged.
func (s ByteSize) Convert(v float64) float64 {
	if s <= Bytes {
		return v
	}
	return Round(v/float64(uint64(1)<<uint(s)), 2)
}

// String returns the unit of measurement Home Assistant expects for s.
func (s ByteSize) String() string {
	switch s {
	case Bytes:
		return "B"
	case KB:
		return "kB"
	case MB:
		return "MB"
	case GB:
		return "GB"
	case TB:
		return "TB"
	}
	return "Unknown"
}

// MarshalText implements [encoding.TextMarshaler].
func (s ByteSize) MarshalText() ([]byte, error) {
	if s < Bytes || s > TB || s%10 != 0 {
		return nil, fmt.Errorf("unknown byte size %d", s)
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements [encoding.TextUnmarshaler] using [ParseSize].
func (s *ByteSize) UnmarshalText(b []byte) (err error) {
	*s, err = ParseSize(string(b))
	return
}
