package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadSeriesCSV(t *testing.T) {
	path := writeFile(t, "btc.csv", "time,price\n2024-01-01,42000.5\n1704153600,42500\n1704240000000, 43000\n")

	series, err := loadSeries(path)
	if err != nil {
		t.Fatalf("loadSeries() error = %v", err)
	}
	if len(series) != 3 {
		t.Fatalf("len = %d", len(series))
	}

	wantTimes := []time.Time{
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
	}
	for i, want := range wantTimes {
		if !series[i].Time.Equal(want) {
			t.Errorf("series[%d].Time = %v, want %v", i, series[i].Time, want)
		}
	}
	if series[2].Price != 43000 {
		t.Errorf("last price = %v", series[2].Price)
	}
}

func TestLoadSeriesJSON(t *testing.T) {
	path := writeFile(t, "eth.json", `[{"time":"2024-01-01T00:00:00Z","price":2300},{"time":"2024-01-02T00:00:00Z","price":2350.25}]`)

	series, err := loadSeries(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(series) != 2 || series.Last() != 2350.25 {
		t.Errorf("series = %+v", series)
	}
}

func TestLoadSeriesErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"bad row", "bad.csv", "time,price\n2024-01-01,1\nyesterday,2\n"},
		{"empty", "empty.csv", "time,price\n"},
		{"wrong columns", "cols.csv", "2024-01-01,1,2\n"},
		{"bad json", "bad.json", `{"time":1}`},
		{"extension", "prices.txt", "1,2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := loadSeries(writeFile(t, tt.file, tt.content)); err == nil {
				t.Error("expected an error")
			}
		})
	}

	if _, err := loadSeries(filepath.Join(t.TempDir(), "missing.csv")); err == nil {
		t.Error("missing file should fail")
	}
}
