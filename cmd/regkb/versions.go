package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/DjordjeVuckovic/regkb/internal/app"
	"github.com/DjordjeVuckovic/regkb/internal/domain"
	"github.com/DjordjeVuckovic/regkb/internal/identifier"
)

func versionsCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "versions",
		Short: "Check document versions and resolve pending version reviews",
	}
	cmd.AddCommand(versionsCheckCmd(g), reviewCmd(g))
	return cmd
}

func versionsCheckCmd(g *globalFlags) *cobra.Command {
	var (
		status string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Compare latest documents against the known-versions catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			only := identifier.Status(status)
			switch only {
			case "", identifier.StatusCurrent, identifier.StatusOutdated, identifier.StatusUnknown:
			default:
				return fmt.Errorf("invalid --status %q", status)
			}

			return g.withApp(cmd, func(ctx context.Context, a *app.App) error {
				docs, err := a.Store.List(ctx, domain.ListFilter{LatestOnly: true})
				if err != nil {
					return err
				}
				all := a.Catalog.CheckAll(docs, "")
				shown := a.Catalog.CheckAll(docs, only)
				summary := identifier.Summarize(all)

				w := cmd.OutOrStdout()
				if asJSON {
					return printJSON(w, map[string]any{"summary": summary, "documents": shown})
				}

				tw := newTable(w)
				fmt.Fprintln(tw, "ID\tSTATUS\tIDENTIFIER\tCURRENT\tLATEST\tTITLE")
				for _, v := range shown {
					fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
						v.DocID, v.Status, v.Identifier, v.CurrentVersion, v.LatestVersion, truncate(v.Title, 60))
				}
				if err := tw.Flush(); err != nil {
					return err
				}

				fmt.Fprintf(w, "\nTotal: %d | Current: %d | Outdated: %d | Unknown: %d\n",
					summary.Total, summary.Current, summary.Outdated, summary.Unknown)
				jurisdictions := make([]string, 0, len(summary.ByJurisdiction))
				for j := range summary.ByJurisdiction {
					jurisdictions = append(jurisdictions, j)
				}
				sort.Strings(jurisdictions)
				for _, j := range jurisdictions {
					s := summary.ByJurisdiction[j]
					fmt.Fprintf(w, "  %s: %d total, %d outdated\n", j, s.Total, s.Outdated)
				}
				for _, v := range shown {
					if v.Status == identifier.StatusOutdated && v.UpdateURL != "" {
						fmt.Fprintf(w, "Update %s: %s\n", v.Identifier, v.UpdateURL)
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Only show current, outdated or unknown documents")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")
	return cmd
}

func reviewCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Manage version pairs that failed the similarity gate",
	}

	var status string
	list := &cobra.Command{
		Use:   "list",
		Short: "List version reviews",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd, func(ctx context.Context, a *app.App) error {
				reviews, err := a.Store.ListReviews(ctx, domain.ReviewStatus(status))
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				if len(reviews) == 0 {
					fmt.Fprintln(w, "No reviews")
					return nil
				}
				tw := newTable(w)
				fmt.Fprintln(tw, "ID\tSTATUS\tIDENTIFIER\tOLD\tNEW\tSIMILARITY\tTHRESHOLD")
				for _, r := range reviews {
					fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%.1f%%\t%.1f%%\n",
						r.ID, r.Status, r.Identifier, r.OldDocID, r.NewDocID, r.Similarity*100, r.Threshold*100)
				}
				return tw.Flush()
			})
		},
	}
	list.Flags().StringVar(&status, "status", string(domain.ReviewPending), "Filter by status (pending, confirmed, dismissed; empty for all)")

	confirm := &cobra.Command{
		Use:   "confirm <review-id>",
		Short: "Accept the pair and supersede the prior version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return g.withApp(cmd, func(ctx context.Context, a *app.App) error {
				r, err := a.Resolver.ConfirmReview(ctx, id)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Review %d confirmed: document %d supersedes %d\n", r.ID, r.NewDocID, r.OldDocID)
				return nil
			})
		},
	}

	dismiss := &cobra.Command{
		Use:   "dismiss <review-id>",
		Short: "Reject the pair and leave both documents untouched",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return g.withApp(cmd, func(ctx context.Context, a *app.App) error {
				r, err := a.Resolver.DismissReview(ctx, id)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Review %d dismissed\n", r.ID)
				return nil
			})
		},
	}

	cmd.AddCommand(list, confirm, dismiss)
	return cmd
}
