// Package dataset reads the cardiology feature tables and writes their
// encrypted and decrypted exports.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// NumFeatures is the number of feature columns of a record.
const NumFeatures = 13

// HeartColumns are the names of the feature columns, in file order. Exports
// always carry this header.
var HeartColumns = [NumFeatures]string{
	"age", "sex", "cp", "trestbps", "chol", "fbs", "restecg",
	"thalach", "exang", "oldpeak", "slope", "ca", "thal",
}

// ErrMalformedRow is returned when a line of the input cannot be read as a record.
var ErrMalformedRow = errors.New("malformed row")

// missingTokens are the cell values read as a missing measurement.
var missingTokens = map[string]bool{
	"":     true,
	"?":    true,
	"NA":   true,
	"N/A":  true,
	"n/a":  true,
	"#N/A": true,
	"NaN":  true,
	"nan":  true,
	"null": true,
	"NULL": true,
	"None": true,
}

// Table is a feature table: one row per record, NumFeatures values per row.
type Table struct {
	// Header holds the names of the first NumFeatures columns of the input.
	Header []string
	Rows   [][]float64
	// Missing counts the cells that were filled with 0.
	Missing int
}

// ReadTable reads a CSV feature table with a header line. Only the first
// NumFeatures columns are kept, by position; later columns (such as a target
// label) are ignored. Missing cells, including the ones of a short row, are
// filled with 0. A header with fewer than NumFeatures columns or a non-numeric
// cell fails with ErrMalformedRow and the offending line.
func ReadTable(r io.Reader) (*Table, error) {

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("cannot ReadTable: line 1: empty input: %w", ErrMalformedRow)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot ReadTable: %v: %w", err, ErrMalformedRow)
	}
	if len(header) < NumFeatures {
		return nil, fmt.Errorf("cannot ReadTable: line 1: header has %d columns, expected at least %d: %w", len(header), NumFeatures, ErrMalformedRow)
	}

	table := &Table{Header: make([]string, NumFeatures)}
	for j := range table.Header {
		table.Header[j] = strings.TrimSpace(header[j])
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("cannot ReadTable: %v: %w", err, ErrMalformedRow)
		}

		line, _ := reader.FieldPos(0)

		row := make([]float64, NumFeatures)
		for j := range row {
			if j >= len(record) {
				table.Missing++
				continue
			}
			cell := strings.TrimSpace(record[j])
			if missingTokens[cell] {
				table.Missing++
				continue
			}
			if row[j], err = strconv.ParseFloat(cell, 64); err != nil {
				return nil, fmt.Errorf("cannot ReadTable: line %d: column %q: %q is not a number: %w", line, table.Header[j], cell, ErrMalformedRow)
			}
		}
		table.Rows = append(table.Rows, row)
	}

	return table, nil
}

// ReadTableFile reads the CSV feature table at path.
func ReadTableFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot ReadTableFile: %w", err)
	}
	defer f.Close()
	return ReadTable(f)
}

// WriteFeatures writes the HeartColumns header followed by one comma-separated
// line per row.
func WriteFeatures(w io.Writer, rows [][]uint64) error {
	if err := WriteTable(w, HeartColumns[:], rows); err != nil {
		return fmt.Errorf("cannot WriteFeatures: %w", err)
	}
	return nil
}

// WriteTable writes header followed by one comma-separated line per row. Every
// row must have one value per header column.
func WriteTable(w io.Writer, header []string, rows [][]uint64) error {

	writer := csv.NewWriter(w)
	if err := writer.Write(header); err != nil {
		return err
	}

	record := make([]string, len(header))
	for i, row := range rows {
		if len(row) != len(header) {
			return fmt.Errorf("row %d has %d values, expected %d: %w", i, len(row), len(header), ErrMalformedRow)
		}
		for j, v := range row {
			record[j] = strconv.FormatUint(v, 10)
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteFeaturesFile writes rows to path with WriteFeatures, replacing any
// existing file.
func WriteFeaturesFile(path string, rows [][]uint64) error {
	return WriteTableFile(path, HeartColumns[:], rows)
}

// WriteTableFile writes header and rows to path with WriteTable, replacing any
// existing file.
func WriteTableFile(path string, header []string, rows [][]uint64) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot WriteTableFile: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("cannot WriteTableFile: %w", cerr)
		}
	}()
	if err = WriteTable(f, header, rows); err != nil {
		return fmt.Errorf("cannot WriteTableFile: %w", err)
	}
	return nil
}
