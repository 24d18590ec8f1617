package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spektr-org/lens/engine"
	"github.com/spektr-org/lens/schema"
)

func newDiscoverCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "discover",
		Short: "Classify the columns of a record set and detect its profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			loc, err := a.cfg.Location()
			if err != nil {
				return err
			}
			catalog, err := a.loader().Catalog(cmd.Context(), loc)
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), output{
				Summary: catalogSummary(catalog),
				Value:   catalog,
				Tables:  []*engine.TableData{catalogTable(catalog)},
			}, a.cfg.Format)
		},
	}
}

func catalogSummary(c *schema.Catalog) string {
	profile := c.Profile
	if profile == "" {
		profile = "no profile"
	}
	return fmt.Sprintf("%s: %s records, %d columns, %s", c.Name, engine.FormatInt(c.Rows), len(c.Columns), profile)
}

func catalogTable(c *schema.Catalog) *engine.TableData {
	t := &engine.TableData{
		Title: "Columns",
		Columns: []engine.TableColumn{
			{Key: "key", Label: "Column", Type: "text", Align: "left"},
			{Key: "kind", Label: "Kind", Type: "text", Align: "left"},
			{Key: "type", Label: "Type", Type: "text", Align: "left"},
			{Key: "role", Label: "Role", Type: "text", Align: "left"},
			{Key: "unique", Label: "Unique", Type: "number", Align: "right"},
			{Key: "nulls", Label: "Nulls", Type: "number", Align: "right"},
			{Key: "samples", Label: "Samples", Type: "text", Align: "left"},
		},
	}
	for _, col := range c.Columns {
		t.Rows = append(t.Rows, []string{
			col.Key,
			col.Kind.String(),
			col.Type.String(),
			col.Role,
			engine.FormatInt(col.UniqueCount),
			engine.FormatInt(col.NullCount),
			strings.Join(col.SampleValues, ", "),
		})
	}
	return t
}
