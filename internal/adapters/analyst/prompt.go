package analyst

import (
	"fmt"
	"strings"

	"github.com/0xcro3dile/storeinsights-go/internal/adapters/tabledb"
)

const basePrompt = `You are a data analyst that evaluates restaurant performance data.
The data is a SQLite table named "data". Answer questions accurately and concisely.
Always:
- Perform calculations using the data, never from memory.
- Return final answers as clean, readable tables.
Do not ask clarifying questions. Make reasonable assumptions and answer directly.

Reply with one or two sentences of explanation followed by exactly one
SQLite query in a fenced block:

` + "```sql\nSELECT ...\n```" + `

Quote column names with double quotes. Only SELECT is available.
If the question cannot be answered from the data, say so without a query.`

const scoredGuidance = `If asked for overall performance or the best restaurant overall,
order by the "Composite Score" column descending. It already combines all metrics.`

const unscoredGuidance = `If asked for overall performance or the best restaurant overall,
combine multiple metrics into a composite score:
1) Min-max normalize each metric.
   - Higher is better: Net Sales, Avg Transaction Amount (Net Sales / Transaction Count), Beverage Count
   - Lower is better: Speed of Service Total Seconds, Discount Total Amount
   - Closer to 0 is better: Cash Over/Short (use abs, then invert)
2) Apply weights 0.30, 0.25, 0.15, 0.15, 0.10, 0.05 in that order.
3) Return the table sorted by Composite Score descending.`

// systemPrompt assembles the instructions, the table schema and a few sample rows.
func systemPrompt(schema string, sample *tabledb.Result, scored bool) string {
	var b strings.Builder
	b.WriteString(basePrompt)
	b.WriteString("\n\n")
	if scored {
		b.WriteString(scoredGuidance)
	} else {
		b.WriteString(unscoredGuidance)
	}
	b.WriteString("\n\nSchema:\n")
	b.WriteString(schema)
	if sample != nil && len(sample.Rows) > 0 {
		b.WriteString("\n\nSample rows:\n")
		b.WriteString(MarkdownTable(sample))
	}
	return b.String()
}

func questionPrompt(question string) string {
	return "Question: " + question
}

// retryPrompt feeds a failed query back to the model.
func retryPrompt(question, query string, err error) string {
	return fmt.Sprintf("Question: %s\n\nYour previous query failed.\n```sql\n%s\n```\nError: %v\n\nReply again with a corrected query.",
		question, query, err)
}
