package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/schema-audit/internal/audit"
	"github.com/sells-group/schema-audit/internal/model"
)

var (
	targetsFromRegistry bool
	targetsFile         string
	targetsConcurrency  int
)

// resolvedTarget is a target with its schema and primary file looked up.
type resolvedTarget struct {
	Target  model.Target
	Version string
	Title   string
	FileURL string
	Err     error
}

var targetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "List audit targets with their schema version and primary file",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cl := newClients(cfg)

		var (
			targets []model.Target
			err     error
		)
		if targetsFromRegistry {
			targets, err = audit.RegistryTargets(ctx, cl.Schemas)
		} else {
			path := targetsFile
			if path == "" {
				path = cfg.Audit.TargetsFile
			}
			targets, err = audit.LoadTargets(path)
		}
		if err != nil {
			return err
		}

		resolved := resolveAll(ctx, cl.Schemas, cl.DataGouv, targets, targetsConcurrency)
		return printTargets(cmd.OutOrStdout(), resolved)
	},
}

// resolveAll looks up every target with at most limit requests in flight.
// Lookup failures are kept on the row rather than aborting the listing.
func resolveAll(ctx context.Context, reg audit.SchemaRegistry, ds audit.DatasetSource, targets []model.Target, limit int) []resolvedTarget {
	out := make([]resolvedTarget, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(limit, 1))

	for i, t := range targets {
		g.Go(func() error {
			row := resolvedTarget{Target: t}
			schema, err := reg.Schema(gctx, t.Schema)
			if err != nil {
				row.Err = err
				out[i] = row
				return nil
			}
			row.Version = schema.LatestVersion
			meta, err := ds.Dataset(gctx, t.DatasetID)
			if err != nil {
				row.Err = err
				out[i] = row
				return nil
			}
			row.Title = meta.Title
			row.FileURL = meta.ResourceFor(t.Schema)
			out[i] = row
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func printTargets(w io.Writer, rows []resolvedTarget) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATASET\tSCHEMA\tVERSION\tFILE")
	for _, r := range rows {
		file := r.FileURL
		if r.Err != nil {
			file = "error: " + r.Err.Error()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Target.DatasetID, r.Target.Schema, r.Version, file)
	}
	return tw.Flush()
}

func init() {
	targetsCmd.Flags().BoolVar(&targetsFromRegistry, "from-registry", false, "list every consolidated schema from the registry")
	targetsCmd.Flags().StringVar(&targetsFile, "targets", "", "targets file (default from config)")
	targetsCmd.Flags().IntVar(&targetsConcurrency, "concurrency", 4, "maximum concurrent lookups")
	rootCmd.AddCommand(targetsCmd)
}
