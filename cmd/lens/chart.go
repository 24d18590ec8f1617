package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gonum.org/v1/plot/vg"

	"github.com/spektr-org/lens/config"
	"github.com/spektr-org/lens/engine"
	"github.com/spektr-org/lens/logger"
	"github.com/spektr-org/lens/render"
)

func newChartCmd(a *app) *cobra.Command {
	var (
		filters       filterFlags
		req           engine.ChartRequest
		columns       string
		out           string
		width, height float64
	)

	cmd := &cobra.Command{
		Use:   "chart",
		Short: "Build one chart over the filtered record set",
		Long: `Build a line, scatter, histogram, box, bar or heatmap chart. With --out the
chart is written as .png, .svg, .csv or .json by extension; otherwise the
chart data is printed in --format.`,
		Example: `  lens chart --type histogram --var temp --bins 20 --out temp.png
  lens chart --type bar --x state --measure total_price --agg sum --in gender=F --format csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := filters.parse()
			if err != nil {
				return err
			}
			req.Columns = splitList(columns)
			if req.Bins == 0 {
				req.Bins = a.cfg.HistogramBins
			}
			if err := config.Validate(req); err != nil {
				return err
			}

			frame, _, err := a.dataset(cmd.Context())
			if err != nil {
				return err
			}
			view, err := engine.ApplyFilters(frame, f)
			if err != nil {
				return err
			}
			chart, err := engine.BuildChart(view, req)
			if err != nil {
				return err
			}

			if out == "" {
				if a.cfg.Format == formatCSV || a.cfg.Format == formatText {
					return writeChartCSV(cmd.OutOrStdout(), chart)
				}
				return writeJSON(cmd.OutOrStdout(), chart, a.cfg.Format)
			}
			if err := writeChartFile(out, chart, vg.Length(width)*vg.Centimeter, vg.Length(height)*vg.Centimeter); err != nil {
				return err
			}
			logger.Infof("📊 lens: wrote %s chart to %s", chart.ChartType, out)
			return nil
		},
	}

	filters.register(cmd)
	flags := cmd.Flags()
	flags.StringVar(&req.Type, "type", "", "line, scatter, histogram, box, bar or heatmap")
	flags.StringVar(&req.X, "x", "", "x axis column (group column for box and bar)")
	flags.StringVar(&req.Y, "y", "", "y axis column (series split for bar)")
	flags.StringVar(&req.Variable, "var", "", "histogram variable")
	flags.StringVar(&columns, "columns", "", "comma separated columns (line series, heatmap)")
	flags.StringVar(&req.Measure, "measure", "", "bar chart measure")
	flags.StringVar(&req.Aggregation, "agg", "", "bar aggregation: sum, count, avg, min, max, distinct")
	flags.IntVar(&req.Bins, "bins", 0, "histogram bins (default from config)")
	flags.StringVar(&req.Title, "title", "", "chart title")
	flags.StringVarP(&out, "out", "o", "", "write to file: .png, .svg, .csv or .json")
	flags.Float64Var(&width, "width", 0, "image width in centimeters")
	flags.Float64Var(&height, "height", 0, "image height in centimeters")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

// writeChartFile writes chart to path in the format its extension names.
func writeChartFile(path string, chart *engine.ChartConfig, width, height vg.Length) error {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	switch ext {
	case render.FormatPNG, render.FormatSVG, formatCSV, formatJSON:
	default:
		return fmt.Errorf("unsupported output extension %q: want .png, .svg, .csv or .json", filepath.Ext(path))
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	switch ext {
	case formatCSV:
		err = writeChartCSV(file, chart)
	case formatJSON:
		err = writeJSON(file, chart, formatPretty)
	default:
		err = render.Render(file, chart, ext, width, height)
	}
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	return err
}
