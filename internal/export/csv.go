// Package export writes datasets to CSV files, one file per dataset.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"harvest/internal/dataset"
	"harvest/internal/storage"
)

// sourceColumn is the provenance column appended after the dataset columns.
const sourceColumn = "Source Page"

// WriteCSV writes each dataset to <dir>/<name>.csv, creating dir as needed.
// The header row is the dataset's columns followed by the source-page
// column; missing values render as empty cells.
//
// Returns the written file paths in dataset order.
func WriteCSV(dir string, tables []*dataset.Dataset) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	var paths []string
	for _, t := range tables {
		path := filepath.Join(dir, storage.Ident(t.Name)+".csv")
		if err := writeOne(path, t); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeOne(path string, t *dataset.Dataset) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)

	header := append(append([]string(nil), t.Columns...), sourceColumn)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	row := make([]string, len(header))
	for _, rec := range t.Records {
		for i, col := range t.Columns {
			row[i] = rec.Fields[col].String()
		}
		row[len(row)-1] = strconv.Itoa(rec.Source)
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", path, err)
	}
	return f.Close()
}
