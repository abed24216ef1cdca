// Package markdown renders tabular answers as GitHub-flavored Markdown.
// Clean Architecture: Adapter shared by the analyst engine and the shells.
package markdown

import (
	"bytes"
	"math"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/0xcro3dile/storeinsights-go/internal/domain/scoring"
)

// Table renders header and rows as a pipe table. Cells are escaped so a
// literal "|" or newline cannot break the row.
func Table(header []string, rows [][]string) string {
	var buf bytes.Buffer

	table := tablewriter.NewWriter(&buf)
	table.SetHeader(escapeAll(header))
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetBorders(tablewriter.Border{Left: true, Top: false, Right: true, Bottom: false})
	table.SetCenterSeparator("|")
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	for _, row := range rows {
		table.Append(escapeAll(row))
	}
	table.Render()

	return strings.TrimRight(buf.String(), "\n")
}

// Ranking renders a composite score ranking, best first.
func Ranking(ranked []scoring.Ranked) string {
	rows := make([][]string, len(ranked))
	for i, r := range ranked {
		score := "n/a"
		if !math.IsNaN(r.Score) {
			score = strconv.FormatFloat(r.Score, 'f', 4, 64)
		}
		rows[i] = []string{strconv.Itoa(i + 1), r.Label, score}
	}
	return Table([]string{"Rank", "Restaurant", "Composite Score"}, rows)
}

func escapeAll(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		c = strings.ReplaceAll(c, "|", `\|`)
		out[i] = strings.ReplaceAll(c, "\n", " ")
	}
	return out
}
