package main

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Alias1177/NovaAnalyst/models"
)

// loadSeries reads a price series from a .json file (array of
// {"time","price"} objects) or a .csv file (time,price rows, header optional).
// CSV times may be RFC3339, unix seconds or unix milliseconds.
func loadSeries(path string) (models.PriceSeries, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		var series models.PriceSeries
		if err := json.NewDecoder(f).Decode(&series); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		return series, nil
	case ".csv":
		return readCSVSeries(f)
	default:
		return nil, fmt.Errorf("unsupported series file %q, want .json or .csv", path)
	}
}

func readCSVSeries(r io.Reader) (models.PriceSeries, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 2
	reader.TrimLeadingSpace = true

	var series models.PriceSeries
	for line := 1; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		price, perr := strconv.ParseFloat(record[1], 64)
		ts, terr := parseTime(record[0])
		if perr != nil || terr != nil {
			if line == 1 {
				continue // header
			}
			return nil, fmt.Errorf("line %d: invalid row %q", line, record)
		}
		series = append(series, models.PricePoint{Time: ts, Price: price})
	}

	if len(series) == 0 {
		return nil, errors.New("series file has no rows")
	}
	return series, nil
}

func parseTime(s string) (time.Time, error) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		// values past year 2286 in seconds are taken as milliseconds
		if n > 1e10 {
			return time.UnixMilli(n).UTC(), nil
		}
		return time.Unix(n, 0).UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	return time.Parse(time.DateOnly, s)
}
