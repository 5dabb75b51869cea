package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/audax-data/ride.report/internal/track"
)

// maxChartPoints bounds the rendered payload; longer rides are
// downsampled by stride.
const maxChartPoints = 4000

// WriteProfileChart renders an HTML elevation and speed profile over
// ride distance.
func WriteProfileChart(w io.Writer, name string, points []track.EnrichedPoint) error {
	if len(points) == 0 {
		return fmt.Errorf("no points to chart")
	}

	stride := 1
	if len(points) > maxChartPoints {
		stride = (len(points) + maxChartPoints - 1) / maxChartPoints
	}

	var (
		xAxis     []string
		elevation []opts.LineData
		speed     []opts.LineData
	)
	for i := 0; i < len(points); i += stride {
		p := &points[i]
		xAxis = append(xAxis, fmt.Sprintf("%.1f", p.RunningMetres/1000))
		elevation = append(elevation, opts.LineData{Value: p.Ele})
		speed = append(speed, opts.LineData{Value: round1(p.SpeedKMH)})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: name,
			Width:     "1200px",
			Height:    "600px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    name,
			Subtitle: fmt.Sprintf("%d points, stride %d", len(points), stride),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "km"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "m"}),
	)
	line.ExtendYAxis(opts.YAxis{Name: "km/h", Type: "value"})

	line.SetXAxis(xAxis).
		AddSeries("Elevation", elevation).
		AddSeries("Speed", speed, charts.WithLineChartOpts(opts.LineChart{YAxisIndex: 1}))

	if err := line.Render(w); err != nil {
		return fmt.Errorf("rendering profile chart: %w", err)
	}
	return nil
}
