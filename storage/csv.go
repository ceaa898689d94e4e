package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"web-scraper-app/models"
)

const utf8BOM = "\ufeff"

// ReadCSV loads a flat table: header row, comma separated, UTF-8.
// Empty cells load as Null, everything else as raw text.
func ReadCSV(path string) (*models.Table, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &models.MissingFileError{Path: path}
	}
	if err != nil {
		return nil, fmt.Errorf("csv: open %q: %w", path, err)
	}
	defer f.Close()

	t, err := DecodeCSV(f)
	if err != nil {
		return nil, fmt.Errorf("csv: read %q: %w", path, err)
	}
	return t, nil
}

// DecodeCSV parses a table from r.
func DecodeCSV(r io.Reader) (*models.Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return models.NewTable(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}

	t := models.NewTable(header...)
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", t.Len()+1, err)
		}

		rec := make(models.Record, len(header))
		for i, col := range header {
			if i < len(row) && row[i] != "" {
				rec[col] = models.Text(row[i])
			} else {
				rec[col] = models.Null()
			}
		}
		t.Records = append(t.Records, rec)
	}
	return t, nil
}

// EncodeCSV writes t to w with a header row, comma delimited.
func EncodeCSV(w io.Writer, t *models.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return fmt.Errorf("csv: write header: %w", err)
	}
	for _, r := range t.Records {
		if err := cw.Write(t.Row(r)); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSV replaces the file at path with t. The table is written to a
// temporary file in the same directory and renamed into place, so readers
// see either the old file or the new one. Intermediate directories are
// created automatically.
func WriteCSV(path string, t *models.Table) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("csv: create output dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("csv: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := EncodeCSV(tmp, t); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("csv: close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("csv: replace %q: %w", path, err)
	}
	return nil
}
