// Package bomio wraps readers and writers with UTF-8 byte-order-mark
// handling. The survey platform exports and expects BOM-prefixed UTF-8
// ("utf-8-sig"), so every file this tool reads may start with a BOM and
// every file it writes must.
package bomio

import (
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// NewReader returns a reader that strips a leading UTF-8 BOM, if present.
// Input without a BOM passes through unchanged.
func NewReader(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.UTF8BOM.NewDecoder())
}

// NewWriter returns a writer that prefixes the output with a UTF-8 BOM.
// Close must be called to flush the final bytes; it does not close the
// underlying writer.
func NewWriter(w io.Writer) io.WriteCloser {
	return transform.NewWriter(w, unicode.UTF8BOM.NewEncoder())
}
