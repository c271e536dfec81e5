package validation

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	dErrors "roster/pkg/domain-errors"
)

// ParseCSV splits a source file into rows. A UTF-8 or UTF-16 byte order mark is
// honoured and stripped. Each blank line is an empty row, including blank lines
// after the last record. Rows may have differing field counts; the schema
// checks decide what is valid.
func ParseCSV(data []byte) ([][]string, error) {
	text, err := io.ReadAll(transform.NewReader(bytes.NewReader(data), unicode.BOMOverride(unicode.UTF8.NewDecoder())))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeMalformedShape, "The file is not valid text: "+err.Error())
	}

	r := csv.NewReader(bytes.NewReader(text))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var rows [][]string
	next := 1 // first line not yet covered by a row
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeMalformedShape, "The file is not valid CSV: "+err.Error())
		}
		start, _ := r.FieldPos(0)
		for ; next < start; next++ {
			rows = append(rows, []string{})
		}
		lastLine, _ := r.FieldPos(len(row) - 1)
		next = lastLine + strings.Count(row[len(row)-1], "\n") + 1
		rows = append(rows, row)
	}
	for ; next <= lineCount(text); next++ {
		rows = append(rows, []string{})
	}
	return rows, nil
}

// lineCount counts physical lines. A final line terminator does not open a new line.
func lineCount(text []byte) int {
	n := bytes.Count(text, []byte{'\n'})
	if len(text) > 0 && text[len(text)-1] != '\n' {
		n++
	}
	return n
}
