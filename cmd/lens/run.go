package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spektr-org/lens/engine"
	"github.com/spektr-org/lens/schema"
)

// Views of a run result.
const (
	viewAll         = "all"
	viewSummary     = "summary"
	viewFiltered    = "filtered"
	viewCorrelation = "correlation"
	viewMonthly     = "monthly"
	viewRanking     = "ranking"
	viewGroups      = "groups"
	viewRFM         = "rfm"
)

var views = []string{viewAll, viewSummary, viewFiltered, viewCorrelation, viewMonthly, viewRanking, viewGroups, viewRFM}

func newRunCmd(a *app) *cobra.Command {
	var (
		filters filterFlags
		corr    string
		view    string
		limit   int
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Filter the record set and print its dashboard",
		Example: `  lens run --source data/bike.csv --range temp=0.2:0.6 --view summary
  lens run --source s3://dash/orders.parquet --dates order_date=2021-01-01:2021-06-30 --view rfm --format text`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := filters.parse()
			if err != nil {
				return err
			}
			frame, sch, err := a.dataset(cmd.Context())
			if err != nil {
				return err
			}

			req := engine.Request{Filters: f, Correlation: splitList(corr)}
			if view == viewFiltered || view == viewAll {
				req.RowLimit = limit
			}
			result, err := engine.Run(frame, sch.Layout, req, a.cfg.EngineOptions()...)
			if err != nil {
				return err
			}

			out, err := selectView(result, sch, view)
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), out, a.cfg.Format)
		},
	}

	filters.register(cmd)
	cmd.Flags().StringVar(&corr, "corr", "", "comma separated measures to correlate (rentals)")
	cmd.Flags().StringVar(&view, "view", viewAll, "what to print: "+strings.Join(views, ", "))
	cmd.Flags().IntVar(&limit, "limit", 20, "filtered rows to include")
	return cmd
}

// selectView picks the part of result a view prints.
func selectView(result *engine.Result, sch *schema.Schema, view string) (output, error) {
	summary := result.Summary
	if result.Growth != nil {
		summary += "\n" + result.Growth.Headline()
	}

	switch view {
	case viewAll:
		return output{Summary: summary, Value: result, Tables: allTables(result, sch)}, nil

	case viewSummary:
		var tables []*engine.TableData
		if len(result.Stats) > 0 {
			tables = append(tables, engine.BuildStatsTable(result.Stats))
		}
		return output{
			Summary: summary,
			Value: map[string]any{
				"profile": result.Profile,
				"summary": result.Summary,
				"total":   result.Total,
				"matched": result.Matched,
				"filters": result.Filters,
				"stats":   result.Stats,
				"growth":  result.Growth,
			},
			Tables: tables,
		}, nil

	case viewFiltered:
		t := result.Rows
		if t == nil {
			t = engine.BuildRowsTable("Filtered records", result.View, 0)
		}
		return output{Summary: summary, Value: t, Tables: []*engine.TableData{t}}, nil

	case viewCorrelation:
		if result.Correlation == nil {
			return output{}, fmt.Errorf("no correlation for the %s profile", result.Profile)
		}
		return output{
			Summary: summary,
			Value:   result.Correlation,
			Tables:  []*engine.TableData{engine.BuildMatrixTable(result.Correlation)},
		}, nil

	case viewMonthly:
		if result.Monthly == nil {
			return output{}, fmt.Errorf("no monthly resample for the %s profile", result.Profile)
		}
		return output{
			Summary: summary,
			Value:   map[string]any{"monthly": result.Monthly, "growth": result.Growth},
			Tables:  []*engine.TableData{engine.BuildMonthlyTable(result.Monthly)},
		}, nil

	case viewRanking:
		if result.Ranking == nil {
			return output{}, fmt.Errorf("no ranking for the %s profile", result.Profile)
		}
		return output{Summary: summary, Value: result.Ranking, Tables: rankingTables(result.Ranking)}, nil

	case viewGroups:
		if result.Groups == nil {
			return output{}, fmt.Errorf("no groups for the %s profile", result.Profile)
		}
		return output{Summary: summary, Value: result.Groups, Tables: groupTables(result.Groups, sch)}, nil

	case viewRFM:
		if result.RFM == nil {
			return output{}, fmt.Errorf("no RFM for the %s profile", result.Profile)
		}
		return output{Summary: summary, Value: result.RFM, Tables: rfmTables(result.RFM)}, nil

	default:
		return output{}, fmt.Errorf("unknown view %q: want one of %s", view, strings.Join(views, ", "))
	}
}

func allTables(result *engine.Result, sch *schema.Schema) []*engine.TableData {
	var tables []*engine.TableData
	if len(result.Stats) > 0 {
		tables = append(tables, engine.BuildStatsTable(result.Stats))
	}
	if result.Correlation != nil {
		tables = append(tables, engine.BuildMatrixTable(result.Correlation))
	}
	if result.Monthly != nil {
		tables = append(tables, engine.BuildMonthlyTable(result.Monthly))
	}
	if result.Ranking != nil {
		tables = append(tables, rankingTables(result.Ranking)...)
	}
	if result.Groups != nil {
		tables = append(tables, groupTables(result.Groups, sch)...)
	}
	if result.RFM != nil {
		tables = append(tables, rfmTables(result.RFM)...)
	}
	if result.Rows != nil {
		tables = append(tables, result.Rows)
	}
	return tables
}

func rankingTables(r *engine.Ranking) []*engine.TableData {
	return []*engine.TableData{
		engine.BuildGroupTable(fmt.Sprintf("Top %d %s", len(r.Top), engine.LabelForDimension(r.GroupBy)),
			r.GroupBy, engine.AggSum, r.Top),
		engine.BuildGroupTable(fmt.Sprintf("Bottom %d %s", len(r.Bottom), engine.LabelForDimension(r.GroupBy)),
			r.GroupBy, engine.AggSum, r.Bottom),
	}
}

// groupTables renders one table per breakdown, sorted by column. The
// category breakdown sums quantity; the others count distinct customers.
func groupTables(groups map[string][]engine.Group, sch *schema.Schema) []*engine.TableData {
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	category := sch.Column(engine.FieldCategory)
	tables := make([]*engine.TableData, 0, len(keys))
	for _, k := range keys {
		agg := engine.AggDistinct
		if k == category {
			agg = engine.AggSum
		}
		tables = append(tables, engine.BuildGroupTable("By "+engine.LabelForDimension(k), k, agg, groups[k]))
	}
	return tables
}

func rfmTables(r *engine.RFMRankings) []*engine.TableData {
	return []*engine.TableData{
		engine.BuildRFMTable("Most recent customers", r.Recency),
		engine.BuildRFMTable("Most frequent customers", r.Frequency),
		engine.BuildRFMTable("Highest spending customers", r.Monetary),
	}
}
