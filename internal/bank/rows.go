package bank

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"
)

var ErrNoHeader = errors.New("csv has no header row")

// Line is one data record and the file line it starts on (1-based, the
// header being line 1).
type Line struct {
	Number int
	Row    Row
}

// ReadRows streams the data rows of a CSV with a header line. Only the
// current row is held in memory. Quotes are parsed leniently, so a stray "
// inside a field is kept as text; the only errors left are a missing header
// and failures of the underlying reader, after which iteration stops.
// Rows shorter than the header get empty values for the missing columns.
func ReadRows(r io.Reader) iter.Seq2[Line, error] {
	return func(yield func(Line, error) bool) {
		cr := csv.NewReader(r)
		cr.FieldsPerRecord = -1
		cr.TrimLeadingSpace = true
		cr.LazyQuotes = true

		header, err := cr.Read()
		if err == io.EOF {
			yield(Line{}, ErrNoHeader)
			return
		}
		if err != nil {
			yield(Line{}, fmt.Errorf("reading csv header: %w", err))
			return
		}
		if len(header) > 0 {
			header[0] = strings.TrimPrefix(header[0], "\ufeff")
		}
		for i := range header {
			header[i] = strings.TrimSpace(header[i])
		}

		for {
			rec, err := cr.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(Line{}, fmt.Errorf("reading csv: %w", err))
				return
			}
			if isBlank(rec) {
				continue
			}
			row := make(Row, len(header))
			for i, h := range header {
				if i < len(rec) {
					row[h] = rec[i]
				} else {
					row[h] = ""
				}
			}
			num, _ := cr.FieldPos(0)
			if !yield(Line{Number: num, Row: row}, nil) {
				return
			}
		}
	}
}

func isBlank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
