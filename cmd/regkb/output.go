package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/DjordjeVuckovic/regkb/internal/importer"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func printOutcome(w io.Writer, path string, out *importer.Outcome) {
	if out.Duplicate {
		fmt.Fprintf(w, "Duplicate: %s (already stored as document %d)\n", path, out.DocumentID)
		return
	}
	fmt.Fprintf(w, "Imported: %s as document %d\n", path, out.DocumentID)
	if out.ExtractionError != "" {
		fmt.Fprintf(w, "  Extraction failed: %s\n", out.ExtractionError)
	}
	if out.LastContentWarning != nil {
		fmt.Fprintf(w, "  Warning: %s\n", out.LastContentWarning.Message)
	}
	if r := out.LastVersionDiff; r != nil {
		switch {
		case r.AutoSuperseded:
			fmt.Fprintf(w, "  Supersedes document %d (%s)\n", r.OldDocID, r.Identifier)
		case r.Error != "":
			fmt.Fprintf(w, "  Prior version %d not superseded: %s\n", r.OldDocID, r.Error)
		}
		if r.Stats != nil {
			fmt.Fprintf(w, "  %s\n", r.Stats.Summary())
		}
		if r.DiffHTMLPath != "" {
			fmt.Fprintf(w, "  Diff report: %s\n", r.DiffHTMLPath)
		}
	}
}
