package ingest

import (
	"bytes"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// sniffLen bounds how much of a file the detectors inspect. The files run to
// gigabytes; the first line is enough to settle the delimiter.
const sniffLen = 1024

// DetectDelimiter picks the field delimiter for a file by inspecting its
// first line. A semicolon anywhere on that line wins regardless of the
// declared format: the agency ships semicolon-separated files under a "CSV"
// label, and the catalog's format metadata has proven unreliable. Failing
// that, a declared tsv means tab, anything else means comma. Never errors:
// an unreadable file gets the format-based default.
func DetectDelimiter(path, declaredFormat string) rune {
	fallback := ','
	if strings.EqualFold(strings.TrimSpace(declaredFormat), "tsv") {
		fallback = '\t'
	}

	f, err := os.Open(path)
	if err != nil {
		return fallback
	}
	defer f.Close()

	buf := make([]byte, sniffLen)
	n, _ := f.Read(buf)
	if n == 0 {
		return fallback
	}

	line := buf[:n]
	if i := bytes.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	if bytes.IndexByte(line, ';') >= 0 {
		return ';'
	}
	return fallback
}

// newSourceReader wraps f with an ISO-8859-1 decoder when its leading bytes
// are not valid UTF-8. Files predating the agency's UTF-8 switch are Latin-1
// encoded; ä and ö in headers and names would otherwise come through mangled.
func newSourceReader(f *os.File) (io.Reader, error) {
	buf := make([]byte, sniffLen)
	n, err := f.Read(buf)
	if err != nil && err != io.EOF {
		return nil, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	if utf8.Valid(trimPartialRune(buf[:n])) {
		return f, nil
	}

	enc, err := htmlindex.Get("iso-8859-1")
	if err != nil {
		return nil, err
	}
	return transform.NewReader(f, enc.NewDecoder()), nil
}

// trimPartialRune drops an incomplete multi-byte sequence cut off at the
// sniff boundary, so it is not mistaken for invalid UTF-8.
func trimPartialRune(b []byte) []byte {
	for i := 0; i < utf8.UTFMax && len(b) > 0; i++ {
		r, size := utf8.DecodeLastRune(b)
		if r != utf8.RuneError || size != 1 {
			return b
		}
		b = b[:len(b)-1]
	}
	return b
}
