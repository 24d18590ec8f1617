package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spektr-org/lens/config"
	"github.com/spektr-org/lens/engine"
	"github.com/spektr-org/lens/logger"
	"github.com/spektr-org/lens/schema"
	"github.com/spektr-org/lens/source"
)

// app is the state shared by all subcommands once the root has loaded the
// configuration.
type app struct {
	v          *viper.Viper
	configFile string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.New()}

	root := &cobra.Command{
		Use:   "lens",
		Short: "Filter-aggregate dashboards over CSV and Parquet record sets",
		Long: `lens loads a rentals or orders record set, filters it and computes the
statistics, correlations, monthly resample, rankings and RFM lists a dashboard
shows. Sources are local paths or s3://bucket/key; .parquet files are read as
Parquet, everything else as CSV.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.String("source", "", "record set location: path or s3://bucket/key (default data/all_data.csv)")
	flags.StringVar(&a.configFile, "config", "", "optional YAML or JSON config file")
	flags.String("profile", "", "force a profile (rentals, orders) instead of detecting one")
	flags.String("format", "", "json, pretty, csv or text (default json)")
	flags.String("log-level", "", "debug, info, warn or error (default info)")
	flags.String("log-file", "", "also write logs to this rotating file")
	_ = a.v.BindPFlag("source", flags.Lookup("source"))
	_ = a.v.BindPFlag("profile", flags.Lookup("profile"))
	_ = a.v.BindPFlag("format", flags.Lookup("format"))
	_ = a.v.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = a.v.BindPFlag("log.file", flags.Lookup("log-file"))

	root.AddCommand(
		newDiscoverCmd(a),
		newRunCmd(a),
		newChartCmd(a),
		newServeCmd(a),
		newVersionCmd(),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	if cmd.Name() == "version" {
		return nil
	}
	cfg, err := config.Load(a.v, a.configFile)
	if err != nil {
		return err
	}
	a.cfg = cfg
	return logger.Init(logger.Options{Level: cfg.Log.Level, File: cfg.Log.File, JSON: cfg.Log.JSON})
}

// loader builds a source loader from the S3 settings.
func (a *app) loader() *source.Loader {
	return source.NewLoader(a.cfg.LoaderOptions()...)
}

// dataset loads the configured source and resolves its schema.
func (a *app) dataset(ctx context.Context) (*engine.Frame, *schema.Schema, error) {
	loc, err := a.cfg.Location()
	if err != nil {
		return nil, nil, err
	}
	frame, err := a.loader().Load(ctx, loc)
	if err != nil {
		return nil, nil, err
	}
	var sch *schema.Schema
	if a.cfg.Profile != "" {
		sch, err = schema.Resolve(a.cfg.Profile, frame)
	} else {
		sch, err = schema.Detect(frame)
	}
	if err != nil {
		return nil, nil, err
	}
	logger.Infof("📋 lens: %s profile, %d records", sch.Profile, frame.Len())
	return frame, sch, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "lens %s\n", version)
			return err
		},
	}
}
