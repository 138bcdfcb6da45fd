// Package exporter writes the reconciled dataset to CSV and Excel, both as
// files on disk and streamed into HTTP responses.
package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"popflow/pkg/contracts/domain"
)

// DatasetHeaders is the column order of every dataset export.
var DatasetHeaders = []string{
	"City", "Year", "Population", "ChangeAmount", "ChangeDirection",
	"GrowthRate", "RelativeGrowth", "FlowType", "CumulativeChange",
	"Source", "SourceURL",
}

// utf8BOM helps Excel recognize UTF-8 so Chinese city names render.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// WriteOptions configures CSV output.
type WriteOptions struct {
	// BOM prefixes the output with a UTF-8 byte order mark.
	BOM bool
}

// WriteCSV streams the dataset as CSV. Rows are written in dataset order;
// callers wanting stable files sort first.
func WriteCSV(w io.Writer, ds *domain.Dataset, opts WriteOptions) error {
	if opts.BOM {
		if _, err := w.Write(utf8BOM); err != nil {
			return fmt.Errorf("write BOM: %w", err)
		}
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(DatasetHeaders); err != nil {
		return fmt.Errorf("write headers: %w", err)
	}
	for i, row := range ds.Rows {
		if err := cw.Write(rowRecord(row)); err != nil {
			return fmt.Errorf("write record %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes the dataset to a CSV file with a BOM, creating parent
// directories as needed.
func WriteCSVFile(path string, ds *domain.Dataset, logger *slog.Logger) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	defer f.Close()

	if err := WriteCSV(f, ds, WriteOptions{BOM: true}); err != nil {
		return err
	}
	logger.Info("wrote dataset export",
		slog.String("path", path),
		slog.Int("rows", ds.Len()))
	return nil
}

func rowRecord(r domain.Row) []string {
	return []string{
		r.City,
		strconv.Itoa(r.Year),
		formatFloat(r.Population),
		formatFloat(r.ChangeAmount),
		string(r.Direction),
		formatFloat(r.GrowthRate),
		formatFloat(r.RelativeGrowth),
		string(r.FlowType),
		formatFloat(r.CumulativeChange),
		string(r.Source),
		r.SourceURL,
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
