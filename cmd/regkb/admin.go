package main

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/DjordjeVuckovic/regkb/internal/app"
	"github.com/DjordjeVuckovic/regkb/internal/storage/pg"
)

func reindexCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild embeddings and the external lexical index for every document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd, func(ctx context.Context, a *app.App) error {
				w := cmd.OutOrStdout()
				n, err := a.Search.ReindexAll(ctx, func(done, total int) {
					fmt.Fprintf(w, "\rIndexed %d/%d", done, total)
				})
				fmt.Fprintln(w)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "Reindexed %d documents\n", n)
				return nil
			})
		},
	}
}

func backupCmd(g *globalFlags) *cobra.Command {
	var noUpload bool

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Write a consistent snapshot of the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd, func(ctx context.Context, a *app.App) error {
				path, err := a.Store.Backup(ctx, a.Config.BackupsDir())
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				fmt.Fprintf(w, "Backup written to %s\n", path)

				if a.Uploader == nil || noUpload {
					return nil
				}
				keys, err := a.Uploader.UploadDir(ctx, path)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "Uploaded %d files to s3://%s\n", len(keys), a.Config.S3.Bucket)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&noUpload, "no-upload", false, "Skip the S3 copy even when a bucket is configured")
	return cmd
}

func statsCmd(g *globalFlags) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show collection statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd, func(ctx context.Context, a *app.App) error {
				st, err := a.Store.Stats(ctx)
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				if asJSON {
					return printJSON(w, st)
				}

				fmt.Fprintf(w, "Documents: %d (%d latest)\n", st.TotalDocuments, st.LatestVersions)
				fmt.Fprintf(w, "Import batches: %d\n", st.TotalImports)
				fmt.Fprintf(w, "Pending version reviews: %d\n", st.PendingReviews)
				printCounts(w, "By type", st.ByType)
				printCounts(w, "By jurisdiction", st.ByJurisdiction)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print statistics as JSON")
	return cmd
}

func printCounts(w io.Writer, title string, counts map[string]int64) {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Fprintf(w, "%s:\n", title)
	for _, k := range keys {
		fmt.Fprintf(w, "  %s: %d\n", k, counts[k])
	}
}

func migrateCmd(g *globalFlags) *cobra.Command {
	var down bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the PostgreSQL schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			if cfg.Storage.Type != "pg" {
				return fmt.Errorf("migrate requires pg storage, configured %q", cfg.Storage.Type)
			}

			pool, err := pg.NewConnectionPool(cmd.Context(), pg.PoolConfig{ConnStr: cfg.Storage.ConnStr})
			if err != nil {
				return err
			}
			defer pool.Close()

			direction := pg.MigrateUp
			if down {
				direction = pg.MigrateDown
			}
			version, err := pg.Migrate(pool, direction)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Schema at version %d\n", version)
			return nil
		},
	}
	cmd.Flags().BoolVar(&down, "down", false, "Roll back every migration")
	return cmd
}
