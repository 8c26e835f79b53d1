package byteutil

import (
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// MultiFileReader implements the [io.Reader] and [io.Closer] interfaces by
// reading the contents of multiple files. Directories are expanded to the
// YAML files they contain, in lexical order.
type MultiFileReader struct {
	names []string
	f     *os.File
	sep   []byte
}

// docSep separates the files read by a [MultiFileReader] so that each file
// is a separate YAML document.
var docSep = []byte("\n---\n")

// NewMultiFileReader returns a new [MultiFileReader] that reads from the given files.
func NewMultiFileReader(name ...string) *MultiFileReader {
	return &MultiFileReader{names: slices.Clone(name)}
}

func isYAML(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

func (r *MultiFileReader) openNext() error {
	if len(r.names) == 0 {
		return io.EOF
	}
	name := r.names[0]
	r.names = r.names[1:]

	fi, err := os.Stat(name)
	if err != nil {
		return err
	}
	if !fi.IsDir() {
		r.f, err = os.Open(name)
		return err
	}

	entries, err := os.ReadDir(name)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !isYAML(e.Name()) {
			continue
		}
		names = append(names, filepath.Join(name, e.Name()))
	}
	r.names = append(names, r.names...)
	return r.openNext()
}

// Read implements the [io.Reader] interface. Once the end of a file is read
// the next call to Read will open the next file. Consecutive files are
// separated by a YAML document marker so each file decodes as its own
// document. Any errors encountered while opening a file will be
// returned, and io.EOF is returned once all the files have reached EOF.
func (r *MultiFileReader) Read(p []byte) (n int, err error) {
	if len(p) == 0 {
		return 0, nil
	}
	if len(r.sep) > 0 {
		n = copy(p, r.sep)
		r.sep = r.sep[n:]
		return
	}
	if r.f == nil {
		if err = r.openNext(); err != nil {
			return
		}
	}
	n, err = r.f.Read(p)
	if err == io.EOF {
		r.f.Close()
		r.f = nil
		if len(r.names) > 0 {
			r.sep = docSep
			err = nil
		}
	}
	return
}

// Close implements the [io.Closer] interface. It closes the currently open file.
func (r *MultiFileReader) Close() (err error) {
	if r.f != nil {
		err = r.f.Close()
		r.f = nil
	}
	return
}
