package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/DjordjeVuckovic/regkb/internal/app"
	"github.com/DjordjeVuckovic/regkb/internal/importer"
)

type metadataFlags struct {
	title        string
	docType      string
	jurisdiction string
	version      string
	sourceURL    string
	description  string
	downloadDate string
}

func (f *metadataFlags) bind(cmd *cobra.Command, single bool) {
	if single {
		cmd.Flags().StringVar(&f.title, "title", "", "Document title (defaults to the file name)")
		cmd.Flags().StringVar(&f.version, "version", "", "Document version label")
		cmd.Flags().StringVar(&f.sourceURL, "url", "", "Source URL")
		cmd.Flags().StringVar(&f.description, "description", "", "Short description")
		cmd.Flags().StringVar(&f.downloadDate, "download-date", "", "Download date (YYYY-MM-DD)")
	}
	cmd.Flags().StringVarP(&f.docType, "type", "t", "other", "Document type")
	cmd.Flags().StringVarP(&f.jurisdiction, "jurisdiction", "j", "Other", "Jurisdiction")
}

func (f *metadataFlags) validate(a *app.App) error {
	if err := a.Config.ValidateDocumentType(f.docType); err != nil {
		return err
	}
	return a.Config.ValidateJurisdiction(f.jurisdiction)
}

func (f *metadataFlags) metadata(a *app.App, path string) (*importer.Metadata, error) {
	m := a.MetadataFunc(f.docType, f.jurisdiction)(path)
	if f.title != "" {
		m.Title = f.title
	}
	m.Version = optional(f.version)
	m.SourceURL = optional(f.sourceURL)
	m.Description = optional(f.description)
	if f.downloadDate != "" {
		d, err := time.Parse(time.DateOnly, f.downloadDate)
		if err != nil {
			return nil, fmt.Errorf("invalid --download-date %q: %w", f.downloadDate, err)
		}
		m.DownloadDate = d
	}
	return &m, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func addCmd(g *globalFlags) *cobra.Command {
	f := &metadataFlags{}
	cmd := &cobra.Command{
		Use:   "add <file>",
		Short: "Import a single document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd, func(ctx context.Context, a *app.App) error {
				if err := f.validate(a); err != nil {
					return err
				}
				meta, err := f.metadata(a, args[0])
				if err != nil {
					return err
				}
				out, err := a.Importer.ImportFile(ctx, args[0], meta)
				if err != nil {
					return err
				}
				printOutcome(cmd.OutOrStdout(), args[0], out)
				return nil
			})
		},
	}
	f.bind(cmd, true)
	return cmd
}

func importCmd(g *globalFlags) *cobra.Command {
	f := &metadataFlags{}
	var patterns []string

	cmd := &cobra.Command{
		Use:   "import <dir>",
		Short: "Import every matching file under a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd, func(ctx context.Context, a *app.App) error {
				if err := f.validate(a); err != nil {
					return err
				}
				if len(patterns) == 0 {
					patterns = a.Config.Import.Patterns
				}
				res, err := a.Importer.ImportDirectory(ctx, args[0], patterns, a.MetadataFunc(f.docType, f.jurisdiction))
				if err != nil {
					return err
				}

				w := cmd.OutOrStdout()
				for _, out := range res.Outcomes {
					if r := out.LastVersionDiff; r != nil && r.AutoSuperseded {
						fmt.Fprintf(w, "Document %d supersedes %d (%s)\n", out.DocumentID, r.OldDocID, r.Identifier)
					}
				}
				for _, fe := range res.ErrorDetails {
					fmt.Fprintf(w, "Error: %s: %s\n", fe.File, fe.Error)
				}
				fmt.Fprintln(w, res.String())
				return nil
			})
		},
	}
	f.bind(cmd, false)
	cmd.Flags().StringSliceVarP(&patterns, "pattern", "p", nil, "Glob patterns relative to the directory (default: import.patterns)")
	return cmd
}

func watchCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Import files dropped into the pending inbox until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd, func(ctx context.Context, a *app.App) error {
				w := a.Watcher()
				out := cmd.OutOrStdout()
				w.OnImport = func(path string, o *importer.Outcome, err error) {
					if err != nil {
						fmt.Fprintf(out, "Failed: %s: %v\n", path, err)
						return
					}
					printOutcome(out, path, o)
				}
				fmt.Fprintf(out, "Watching %s (Ctrl+C to stop)\n", a.Config.PendingDir())
				return w.Run(ctx)
			})
		},
	}
}

func extractCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "extract <id>",
		Short: "Re-run text extraction for a stored document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return g.withApp(cmd, func(ctx context.Context, a *app.App) error {
				out, err := a.Importer.Reextract(ctx, id)
				if err != nil {
					return err
				}
				if !out.Extracted {
					return fmt.Errorf("extraction failed for document %d: %s", id, out.ExtractionError)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Extracted text for document %d\n", id)
				if out.LastContentWarning != nil {
					fmt.Fprintf(cmd.OutOrStdout(), "  Warning: %s\n", out.LastContentWarning.Message)
				}
				return nil
			})
		},
	}
}
