package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/DjordjeVuckovic/regkb/internal/app"
	"github.com/DjordjeVuckovic/regkb/internal/diff"
	"github.com/DjordjeVuckovic/regkb/internal/search"
)

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid document id %q", s)
	}
	return id, nil
}

func searchCmd(g *globalFlags) *cobra.Command {
	var (
		limit        int
		docType      string
		jurisdiction string
		all          bool
		excerpt      bool
		asJSON       bool
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search documents with hybrid semantic and full-text ranking",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd, func(ctx context.Context, a *app.App) error {
				q := search.Query{
					Text:           strings.Join(args, " "),
					Limit:          limit,
					LatestOnly:     a.Config.Search.LatestOnly && !all,
					IncludeExcerpt: excerpt,
				}
				if q.Limit <= 0 {
					q.Limit = a.Config.Search.DefaultLimit
				}
				if docType != "" {
					if err := a.Config.ValidateDocumentType(docType); err != nil {
						return err
					}
					q.DocumentType = a.Config.NormalizeDocumentType(docType)
				}
				if jurisdiction != "" {
					if err := a.Config.ValidateJurisdiction(jurisdiction); err != nil {
						return err
					}
					q.Jurisdiction = a.Config.NormalizeJurisdiction(jurisdiction)
				}

				results, err := a.Search.Search(ctx, q)
				if err != nil {
					return err
				}

				w := cmd.OutOrStdout()
				if asJSON {
					return printJSON(w, results)
				}
				if len(results) == 0 {
					fmt.Fprintln(w, "No results")
					return nil
				}
				for i, r := range results {
					latest := ""
					if !r.Document.IsLatest {
						latest = " [superseded]"
					}
					fmt.Fprintf(w, "%d. [%d] %s (%s, %s)%s score=%.4f via %s\n",
						i+1, r.Document.ID, r.Document.Title, r.Document.DocumentType, r.Document.Jurisdiction,
						latest, r.Score, r.Source)
					if r.Excerpt != "" {
						fmt.Fprintf(w, "   %s\n", r.Excerpt)
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of results (default: search.default_limit)")
	cmd.Flags().StringVarP(&docType, "type", "t", "", "Filter by document type")
	cmd.Flags().StringVarP(&jurisdiction, "jurisdiction", "j", "", "Filter by jurisdiction")
	cmd.Flags().BoolVar(&all, "all-versions", false, "Include superseded versions")
	cmd.Flags().BoolVarP(&excerpt, "excerpt", "e", false, "Show a matching excerpt")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print results as JSON")
	return cmd
}

func diffCmd(g *globalFlags) *cobra.Command {
	var (
		format       string
		contextLines int
		output       string
	)

	cmd := &cobra.Command{
		Use:   "diff <id1> <id2>",
		Short: "Compare the extracted text of two documents",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := parseID(args[0])
			if err != nil {
				return err
			}
			b, err := parseID(args[1])
			if err != nil {
				return err
			}

			switch format {
			case "unified", "html", "markdown", "csv", "json", "stats":
			default:
				return fmt.Errorf("invalid --format %q, expected one of [unified html markdown csv json stats]", format)
			}

			return g.withApp(cmd, func(ctx context.Context, ap *app.App) error {
				lines := contextLines
				if lines < 0 {
					lines = ap.Config.Versioning.ContextLines
				}
				report, err := ap.Resolver.Compare(ctx, a, b, diff.Options{Context: lines, IncludeHTML: format == "html"})
				if err != nil {
					return err
				}
				return writeReport(cmd, report, format, output)
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "unified", "Output format: unified, html, markdown, csv, json or stats")
	cmd.Flags().IntVarP(&contextLines, "context", "C", -1, "Context lines around changes (default: versioning.context_lines)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the report to a file instead of stdout")
	return cmd
}

func writeReport(cmd *cobra.Command, r *diff.Report, format, output string) error {
	var (
		body string
		err  error
	)
	now := time.Now()
	switch format {
	case "html":
		body = r.HTML
	case "markdown":
		body = r.Markdown(now)
	case "csv":
		body, err = r.CSV(now)
	case "stats":
		body = fmt.Sprintf("%s vs %s\n%s\n", r.DocATitle, r.DocBTitle, r.Stats.Summary())
	case "json":
		var sb strings.Builder
		err = printJSON(&sb, r)
		body = sb.String()
	default:
		body = r.Unified
		if body == "" {
			body = "No differences\n"
		}
	}
	if err != nil {
		return err
	}

	if output == "" {
		_, err = fmt.Fprint(cmd.OutOrStdout(), body)
		return err
	}
	if err := os.WriteFile(output, []byte(body), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", output, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s\n", output)
	return nil
}

func resolveCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <id>",
		Short: "Find and link the prior version of a stored document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return g.withApp(cmd, func(ctx context.Context, a *app.App) error {
				res, diag := a.Resolver.ResolveAndApply(ctx, id)
				if diag != nil {
					return diag
				}
				w := cmd.OutOrStdout()
				if res == nil {
					fmt.Fprintf(w, "No prior version found for document %d\n", id)
					return nil
				}
				switch {
				case res.AutoSuperseded:
					fmt.Fprintf(w, "Document %d supersedes %d (%s)\n", res.NewDocID, res.OldDocID, res.Identifier)
				case res.ReviewID != nil:
					fmt.Fprintf(w, "Review %d opened: %s\n", *res.ReviewID, res.Error)
				default:
					fmt.Fprintf(w, "Prior version %d not superseded: %s\n", res.OldDocID, res.Error)
				}
				if res.Stats != nil {
					fmt.Fprintln(w, res.Stats.Summary())
				}
				if res.DiffHTMLPath != "" {
					fmt.Fprintf(w, "Diff report: %s\n", res.DiffHTMLPath)
				}
				return nil
			})
		},
	}
}
