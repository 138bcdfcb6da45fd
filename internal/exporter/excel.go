package exporter

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"popflow/internal/stats"
	"popflow/pkg/contracts/domain"
)

const (
	dataSheet    = "数据 Data"
	summarySheet = "统计 Statistics"
)

// WriteExcel streams the dataset as a two-sheet workbook: the full data
// table plus a summary statistics sheet.
func WriteExcel(w io.Writer, ds *domain.Dataset, summary stats.Summary) error {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(dataSheet)
	if err != nil {
		return fmt.Errorf("create data sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("drop default sheet: %w", err)
	}

	header := make([]interface{}, len(DatasetHeaders))
	for i, h := range DatasetHeaders {
		header[i] = h
	}
	if err := f.SetSheetRow(dataSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header row: %w", err)
	}
	for i, row := range ds.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []interface{}{
			row.City, row.Year, row.Population, row.ChangeAmount,
			string(row.Direction), row.GrowthRate, row.RelativeGrowth,
			string(row.FlowType), row.CumulativeChange,
			string(row.Source), row.SourceURL,
		}
		if err := f.SetSheetRow(dataSheet, cell, &values); err != nil {
			return fmt.Errorf("write data row %d: %w", i+2, err)
		}
	}

	if err := writeSummarySheet(f, summary); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSummarySheet(f *excelize.File, s stats.Summary) error {
	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("create summary sheet: %w", err)
	}

	rows := [][]interface{}{
		{"Metric", "Value"},
		{"Cities", s.Cities},
		{"Records", s.Records},
		{"First year", s.FirstYear},
		{"Latest year", s.LatestYear},
		{"Total population (latest year)", s.TotalPopulation},
		{"Mean change", s.MeanChange},
		{"Net change", s.NetChange},
		{"Inflow rows", s.InflowRows},
		{"Outflow rows", s.OutflowRows},
	}
	for _, g := range s.TopGainers {
		rows = append(rows, []interface{}{"Top gainer: " + g.City, g.Change})
	}
	for _, d := range s.TopDecliners {
		rows = append(rows, []interface{}{"Top decliner: " + d.City, d.Change})
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return fmt.Errorf("write summary row %d: %w", i+1, err)
		}
	}
	return nil
}
