package storage

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/pkg/errors"
)

// WriteCSV writes a header row and one line per table row. NaN is written
// as "NaN".
func WriteCSV(dst io.Writer, t *Table) error {
	w := csv.NewWriter(dst)
	if err := w.Write(t.Columns); err != nil {
		return errors.Wrap(err, "write header")
	}
	record := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		record = record[:0]
		for _, v := range row {
			record = append(record, strconv.FormatFloat(v, 'g', -1, 64))
		}
		if err := w.Write(record); err != nil {
			return errors.Wrap(err, "write row")
		}
	}
	w.Flush()
	return errors.Wrap(w.Error(), "flush csv")
}

// number encodes NaN and infinities as null.
type number float64

func (n number) MarshalJSON() ([]byte, error) {
	f := float64(n)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, f, 'g', -1, 64), nil
}

type ExportData struct {
	Run     *RunMetadata `json:"run,omitempty"`
	Columns []string     `json:"columns"`
	Units   []string     `json:"units"`
	Rows    [][]number   `json:"rows"`
}

// ExportJSON writes the run metadata and its table as one JSON document.
// Failed values appear as null.
func ExportJSON(dst io.Writer, meta *RunMetadata, t *Table) error {
	data := ExportData{
		Run:     meta,
		Columns: t.Columns,
		Units:   t.Units,
		Rows:    make([][]number, len(t.Rows)),
	}
	for i, row := range t.Rows {
		data.Rows[i] = make([]number, len(row))
		for j, v := range row {
			data.Rows[i][j] = number(v)
		}
	}
	enc := json.NewEncoder(dst)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(data), "encode json")
}

// ExportJSONFile is ExportJSON to a new file, or to stdout when path is "-".
func ExportJSONFile(path string, meta *RunMetadata, t *Table) error {
	if path == "-" {
		return ExportJSON(os.Stdout, meta, t)
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create export")
	}
	if err := ExportJSON(f, meta, t); err != nil {
		f.Close()
		return err
	}
	return errors.Wrap(f.Close(), "close export")
}

// ExportCSVFile is WriteCSV to a new file, or to stdout when path is "-".
func ExportCSVFile(path string, t *Table) error {
	if path == "-" {
		return WriteCSV(os.Stdout, t)
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create export")
	}
	if err := WriteCSV(f, t); err != nil {
		f.Close()
		return err
	}
	return errors.Wrap(f.Close(), "close export")
}
