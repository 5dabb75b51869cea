// Package report renders analysis results: a spreadsheet summary of
// the ride and an optional HTML profile chart.
package report

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/audax-data/ride.report/internal/stage"
)

const (
	summarySheet = "Summary"
	stagesSheet  = "Stages"
)

// WriteWorkbook renders the ride summary and per-stage breakdown as an
// xlsx workbook with two sheets.
func WriteWorkbook(w io.Writer, name string, sum stage.Summary, stages stage.List) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("renaming summary sheet: %w", err)
	}
	if _, err := f.NewSheet(stagesSheet); err != nil {
		return fmt.Errorf("creating stages sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}

	if err := writeSummarySheet(f, bold, name, sum); err != nil {
		return err
	}
	if err := writeStagesSheet(f, bold, sum, stages); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

type summaryRow struct {
	label string
	value any
}

func writeSummarySheet(f *excelize.File, headerStyle int, name string, sum stage.Summary) error {
	rows := []summaryRow{
		{"Ride", name},
		{"Start", sum.StartTime.Format(time.RFC3339)},
		{"End", sum.EndTime.Format(time.RFC3339)},
		{"Total time", formatDuration(sum.Duration)},
		{"Moving time", formatDuration(sum.MovingTime)},
		{"Control time", formatDuration(sum.ControlTime)},
		{"Moving %", fmt.Sprintf("%.1f", sum.MovingPercent())},
		{"Controls", sum.Controls},
		{"Distance (km)", round1(sum.DistanceKM())},
		{"Avg moving speed (km/h)", round1(sum.AverageMovingSpeedKMH)},
		{"Avg overall speed (km/h)", round1(sum.AverageOverallSpeedKMH)},
		{"Median speed (km/h)", round1(sum.MedianSpeedKMH)},
		{"95th pct speed (km/h)", round1(sum.P95SpeedKMH)},
		{"Ascent (m)", round1(sum.AscentMetres)},
		{"Descent (m)", round1(sum.DescentMetres)},
	}

	if sum.MaxSpeed != nil {
		rows = append(rows, summaryRow{"Max speed (km/h)", round1(sum.MaxSpeed.SpeedKMH)})
	}
	if sum.MinElevation != nil && sum.MaxElevation != nil {
		rows = append(rows,
			summaryRow{"Min elevation (m)", round1(sum.MinElevation.Ele)},
			summaryRow{"Max elevation (m)", round1(sum.MaxElevation.Ele)},
		)
	}

	for i, row := range rows {
		labelCell := fmt.Sprintf("A%d", i+1)
		if err := f.SetCellValue(summarySheet, labelCell, row.label); err != nil {
			return fmt.Errorf("writing summary row %d: %w", i+1, err)
		}
		if err := f.SetCellStyle(summarySheet, labelCell, labelCell, headerStyle); err != nil {
			return fmt.Errorf("styling summary row %d: %w", i+1, err)
		}
		if err := f.SetCellValue(summarySheet, fmt.Sprintf("B%d", i+1), row.value); err != nil {
			return fmt.Errorf("writing summary row %d: %w", i+1, err)
		}
	}

	return f.SetColWidth(summarySheet, "A", "A", 26)
}

var stageHeaders = []string{
	"#", "Type", "Location", "Start", "End", "Duration",
	"Distance (km)", "Running (km)", "Avg speed (km/h)",
	"Ascent (m)", "Descent (m)", "Max speed (km/h)",
}

func writeStagesSheet(f *excelize.File, headerStyle int, sum stage.Summary, stages stage.List) error {
	for col, h := range stageHeaders {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(stagesSheet, cell, h); err != nil {
			return fmt.Errorf("writing stage header %q: %w", h, err)
		}
		if err := f.SetCellStyle(stagesSheet, cell, cell, headerStyle); err != nil {
			return fmt.Errorf("styling stage header %q: %w", h, err)
		}
	}

	for i := range stages {
		s := &stages[i]
		values := []any{
			i + 1,
			s.Type.String(),
			s.Location,
			s.PrevTime.Format("15:04:05"),
			s.End.Time.Format("15:04:05"),
			formatDuration(s.Duration()),
			round1(s.DistanceKM()),
			round1(s.RunningDistanceKM()),
			round1(s.AverageSpeedKMH()),
			round1(s.AscentMetres()),
			round1(s.DescentMetres()),
		}
		if s.MaxSpeed != nil {
			values = append(values, round1(s.MaxSpeed.SpeedKMH))
		}

		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(stagesSheet, cell, v); err != nil {
				return fmt.Errorf("writing stage row %d: %w", i+1, err)
			}
		}
	}

	return f.SetColWidth(stagesSheet, "C", "C", 32)
}

// formatDuration renders h:mm:ss, hours unpadded.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%d:%02d:%02d", h, m, s)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
