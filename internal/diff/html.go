package diff

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

type htmlRow struct {
	Kind      string
	LeftNo    int
	Left      string
	RightNo   int
	Right     string
	Separator bool
}

type htmlPage struct {
	FromLabel string
	ToLabel   string
	Rows      []htmlRow
	Identical bool
}

var pageTmpl = template.Must(template.New("diff").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<title>{{.FromLabel}} vs {{.ToLabel}}</title>
<style>
body { font-family: -apple-system, "Segoe UI", Roboto, sans-serif; margin: 1.5rem; }
table.diff { border-collapse: collapse; width: 100%; font-family: Menlo, Consolas, monospace; font-size: 0.85rem; }
table.diff th { background: #f0f0f0; padding: 0.4rem; text-align: left; }
table.diff td { padding: 0 0.4rem; vertical-align: top; white-space: pre-wrap; word-break: break-word; }
td.no { color: #999; text-align: right; width: 3rem; user-select: none; }
tr.add td.right { background: #e6ffed; }
tr.del td.left { background: #ffeef0; }
tr.chg td.left { background: #fff5b1; }
tr.chg td.right { background: #fff5b1; }
tr.sep td { background: #f6f8fa; color: #999; text-align: center; }
</style>
</head>
<body>
<table class="diff">
<thead><tr><th colspan="2">{{.FromLabel}}</th><th colspan="2">{{.ToLabel}}</th></tr></thead>
<tbody>
{{- if .Identical}}
<tr><td colspan="4">No differences found.</td></tr>
{{- end}}
{{- range .Rows}}
{{- if .Separator}}
<tr class="sep"><td colspan="4">&hellip;</td></tr>
{{- else}}
<tr class="{{.Kind}}"><td class="no">{{if .LeftNo}}{{.LeftNo}}{{end}}</td><td class="left">{{.Left}}</td><td class="no">{{if .RightNo}}{{.RightNo}}{{end}}</td><td class="right">{{.Right}}</td></tr>
{{- end}}
{{- end}}
</tbody>
</table>
</body>
</html>
`))

// HTML renders a standalone side-by-side page. Only hunks with context lines
// around them are shown, matching the unified renderer.
func HTML(a, b []string, fromLabel, toLabel string, context int) (string, error) {
	if context < 0 {
		context = DefaultContextLines
	}

	var groups [][]difflib.OpCode
	if len(a) > 0 || len(b) > 0 {
		groups = difflib.NewMatcher(a, b).GetGroupedOpCodes(context)
	}

	page := htmlPage{FromLabel: fromLabel, ToLabel: toLabel}
	for gi, group := range groups {
		if gi > 0 {
			page.Rows = append(page.Rows, htmlRow{Separator: true})
		}
		for _, op := range group {
			page.Rows = append(page.Rows, rowsFor(op, a, b)...)
		}
	}
	page.Identical = len(page.Rows) == 0 || allEqual(page.Rows)

	var buf bytes.Buffer
	if err := pageTmpl.Execute(&buf, page); err != nil {
		return "", fmt.Errorf("failed to render html diff: %w", err)
	}
	return buf.String(), nil
}

func rowsFor(op difflib.OpCode, a, b []string) []htmlRow {
	var rows []htmlRow
	switch op.Tag {
	case 'e':
		for k := 0; k < op.I2-op.I1 && op.I1+k < len(a) && op.J1+k < len(b); k++ {
			rows = append(rows, htmlRow{
				LeftNo: op.I1 + k + 1, Left: clean(a[op.I1+k]),
				RightNo: op.J1 + k + 1, Right: clean(b[op.J1+k]),
			})
		}
	case 'd':
		for i := op.I1; i < op.I2; i++ {
			rows = append(rows, htmlRow{Kind: "del", LeftNo: i + 1, Left: clean(a[i])})
		}
	case 'i':
		for j := op.J1; j < op.J2; j++ {
			rows = append(rows, htmlRow{Kind: "add", RightNo: j + 1, Right: clean(b[j])})
		}
	case 'r':
		n := max(op.I2-op.I1, op.J2-op.J1)
		for k := 0; k < n; k++ {
			row := htmlRow{Kind: "chg"}
			if i := op.I1 + k; i < op.I2 {
				row.LeftNo, row.Left = i+1, clean(a[i])
			}
			if j := op.J1 + k; j < op.J2 {
				row.RightNo, row.Right = j+1, clean(b[j])
			}
			rows = append(rows, row)
		}
	}
	return rows
}

func allEqual(rows []htmlRow) bool {
	for _, r := range rows {
		if r.Kind != "" || r.Separator {
			return false
		}
	}
	return true
}

func clean(line string) string {
	return strings.TrimRight(line, "\r\n")
}
