// Package secrets reads Docker and Kubernetes style secret files.
package secrets

import (
	"bytes"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

// Dir is the directory secrets are read from.
var Dir = "/run/secrets"

// Prefix is the the prefix of a string to indicate it should
// be substituted with the secret value. For example:
//
//	"!secret cf_token" -> /run/secrets/cf_token
const Prefix = "!secret "

// maxSize bounds the number of bytes read from a secret file.
const maxSize = 4096

// CutPrefix is equivalent to [strings.CutPrefix](s, [Prefix])
func CutPrefix(s string) (secret string, ok bool) {
	secret, ok = strings.CutPrefix(s, Prefix)
	return strings.TrimSpace(secret), ok
}

// Read returns the value of the secret file <Dir>/<secret> with surrounding
// whitespace trimmed.
func Read(secret string) (string, error) {
	buf := make([]byte, maxSize)
	fd, err := unix.Open(filepath.Join(Dir, filepath.Base(secret)), unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return "", err
	}
	defer unix.Close(fd)

	var n int
	for n < len(buf) {
		m, err := unix.Read(fd, buf[n:])
		if err != nil {
			return "", err
		}
		if m == 0 {
			break
		}
		n += m
	}
	return string(bytes.TrimSpace(buf[:n])), nil
}

// MustRead returns the value of the secret file <Dir>/<secret>.
// If there is an error reading the file then MustRead returns fallback.
func MustRead(secret, fallback string) string {
	s, err := Read(secret)
	if err != nil {
		return fallback
	}
	return s
}
