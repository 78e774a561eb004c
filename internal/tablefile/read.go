// Package tablefile reads and writes tables as delimited text and
// spreadsheet files.
package tablefile

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/raine/loadsheet-bot/internal/table"
)

// ErrEmpty is returned for input without a header row.
var ErrEmpty = errors.New("file has no header row")

// Read decodes a CSV table from r. UTF-8 and UTF-16 input with a byte order
// mark and plain UTF-8 are read as is; anything else is decoded as
// Windows-1252, the usual encoding of spreadsheet exports.
func Read(name string, r io.Reader) (*table.Table, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}

	text, err := decode(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", name, err)
	}

	cr := csv.NewReader(strings.NewReader(text))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s header: %w", name, err)
	}

	t := table.New(name, header)
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", name, err)
		}
		if isBlankRecord(record) {
			continue
		}
		t.Append(record)
	}
	return t, nil
}

// ReadFile reads a CSV table from path. The table is named after the file.
func ReadFile(path string) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return Read(name, f)
}

func decode(raw []byte) (string, error) {
	switch {
	case bytes.HasPrefix(raw, []byte{0xEF, 0xBB, 0xBF}),
		bytes.HasPrefix(raw, []byte{0xFF, 0xFE}),
		bytes.HasPrefix(raw, []byte{0xFE, 0xFF}):
		// BOMOverride picks the encoding from the byte order mark and drops it
		return decodeWith(unicode.BOMOverride(encoding.Nop.NewDecoder()), raw)
	case utf8.Valid(raw):
		return string(raw), nil
	default:
		return decodeWith(charmap.Windows1252.NewDecoder(), raw)
	}
}

func decodeWith(t transform.Transformer, raw []byte) (string, error) {
	out, _, err := transform.Bytes(t, raw)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func isBlankRecord(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
