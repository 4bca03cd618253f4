package export

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"harvest/internal/dataset"
)

func TestWriteCSV(t *testing.T) {
	t.Parallel()

	d := dataset.NewDataset("Custom Extraction", []string{"Name", "Founded"})
	d.Add(dataset.Record{Source: 1, Fields: map[string]dataset.Value{
		"Name":    dataset.Some("Acme Corp"),
		"Founded": dataset.Some("2019"),
	}})
	d.Add(dataset.Record{Source: 2, Fields: map[string]dataset.Value{
		"Name":    dataset.Some("Beta Ltd"),
		"Founded": dataset.NoneBecause("no label"),
	}})

	dir := t.TempDir()
	paths, err := WriteCSV(dir, []*dataset.Dataset{d})
	if err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	if len(paths) != 1 {
		t.Fatalf("paths = %v", paths)
	}
	if got, want := paths[0], filepath.Join(dir, "custom_extraction.csv"); got != want {
		t.Fatalf("path = %q, want %q", got, want)
	}

	f, err := os.Open(paths[0])
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}

	want := [][]string{
		{"Name", "Founded", "Source Page"},
		{"Acme Corp", "2019", "1"},
		{"Beta Ltd", "", "2"},
	}
	if !reflect.DeepEqual(rows, want) {
		t.Fatalf("csv = %v, want %v", rows, want)
	}
}

func TestWriteCSV_EmptyDataset(t *testing.T) {
	t.Parallel()

	d := dataset.NewDataset("Emails", []string{"Email"})
	paths, err := WriteCSV(t.TempDir(), []*dataset.Dataset{d})
	if err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	f, err := os.Open(paths[0])
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected header only, got %v", rows)
	}
}
