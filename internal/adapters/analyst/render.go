package analyst

import (
	"fmt"

	"github.com/0xcro3dile/storeinsights-go/internal/adapters/markdown"
	"github.com/0xcro3dile/storeinsights-go/internal/adapters/tabledb"
)

// MarkdownTable renders a query result as a GitHub-flavored Markdown table.
func MarkdownTable(res *tabledb.Result) string {
	if res == nil || len(res.Columns) == 0 {
		return "_No columns._"
	}
	if len(res.Rows) == 0 {
		return "_No rows._"
	}

	out := markdown.Table(res.Columns, res.Rows)
	if res.Truncated {
		out += fmt.Sprintf("\n\n_Showing the first %d rows._", len(res.Rows))
	}
	return out
}
