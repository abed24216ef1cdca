package analyst

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xcro3dile/storeinsights-go/internal/adapters/tabledb"
	"github.com/0xcro3dile/storeinsights-go/internal/domain/entities"
	"github.com/0xcro3dile/storeinsights-go/internal/domain/scoring"
)

// scriptedLLM implements ports.LLMService, replying from a fixed script.
type scriptedLLM struct {
	mu      sync.Mutex
	replies []string
	err     error
	prompts []string
	system  string
}

func (s *scriptedLLM) Generate(ctx context.Context, system, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.system = system
	s.prompts = append(s.prompts, prompt)
	if s.err != nil {
		return "", s.err
	}
	if len(s.prompts) > len(s.replies) {
		return s.replies[len(s.replies)-1], nil
	}
	return s.replies[len(s.prompts)-1], nil
}

func stores() *entities.Dataset {
	ds := &entities.Dataset{Source: "stores.csv"}
	ds.SetColumn(entities.Column{Name: "Store", Kind: entities.KindText, Text: []string{"North", "South"}})
	ds.SetColumn(entities.NumericColumn(scoring.ColNetSales, []float64{1200, 900}))
	return ds
}

func newEngine(t *testing.T, llm *scriptedLLM, ds *entities.Dataset) *Engine {
	t.Helper()
	e, err := NewEngine(context.Background(), llm, ds, Options{MaxSteps: 3}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

func TestEngine_AnswersWithTable(t *testing.T) {
	llm := &scriptedLLM{replies: []string{
		"Total net sales across stores:\n```sql\nSELECT SUM(\"Net Sales\") AS \"Total\" FROM data\n```",
	}}
	e := newEngine(t, llm, stores())

	got, err := e.Answer(context.Background(), "total sales")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(got, "Total net sales across stores:\n\n| Total"), got)
	assert.Contains(t, got, "| 2100")
	assert.Contains(t, llm.system, `CREATE TABLE "data"`)
	assert.Contains(t, llm.system, "| North")
}

func TestEngine_RetriesAfterSQLError(t *testing.T) {
	llm := &scriptedLLM{replies: []string{
		"```sql\nSELECT SUM(\"Gross Sales\") FROM missing\n```",
		"```sql\nSELECT COUNT(*) AS n FROM data\n```",
	}}
	e := newEngine(t, llm, stores())

	got, err := e.Answer(context.Background(), "how many stores")
	require.NoError(t, err)

	lines := strings.Split(got, "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "| n"))
	assert.True(t, strings.HasPrefix(lines[2], "| 2"))
	require.Len(t, llm.prompts, 2)
	assert.Contains(t, llm.prompts[1], "Error:")
	assert.Contains(t, llm.prompts[1], "missing")
}

func TestEngine_StepLimit(t *testing.T) {
	llm := &scriptedLLM{replies: []string{"```sql\nDELETE FROM data\n```"}}
	e := newEngine(t, llm, stores())

	_, err := e.Answer(context.Background(), "wipe it")

	assert.True(t, errors.Is(err, ErrStepLimit))
	assert.Len(t, llm.prompts, 3)
}

func TestEngine_ProseOnly(t *testing.T) {
	llm := &scriptedLLM{replies: []string{"  The data has no weather information.  "}}
	e := newEngine(t, llm, stores())

	got, err := e.Answer(context.Background(), "was it raining")
	require.NoError(t, err)
	assert.Equal(t, "The data has no weather information.", got)
}

func TestEngine_EmptyReply(t *testing.T) {
	e := newEngine(t, &scriptedLLM{replies: []string{"   "}}, stores())

	_, err := e.Answer(context.Background(), "anything")
	assert.Error(t, err)
}

func TestEngine_LLMError(t *testing.T) {
	e := newEngine(t, &scriptedLLM{err: errors.New("connection refused")}, stores())

	_, err := e.Answer(context.Background(), "total sales")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.False(t, errors.Is(err, ErrStepLimit))
}

func TestEngine_NotReentrant(t *testing.T) {
	e := newEngine(t, &scriptedLLM{replies: []string{"ok"}}, stores())
	assert.False(t, e.Reentrant())
}

func TestEngine_ScoredPrompt(t *testing.T) {
	ds := stores()
	ds.SetColumn(entities.NumericColumn(scoring.ColComposite, []float64{0.3, 0}))
	llm := &scriptedLLM{replies: []string{"ok"}}
	e := newEngine(t, llm, ds)

	e.Answer(context.Background(), "best overall")
	assert.Contains(t, llm.system, `order by the "Composite Score" column`)
}

func TestExtractSQL(t *testing.T) {
	prose, query, ok := extractSQL("Here:\n```SQL\nSELECT 1;\n```\nDone.")

	assert.True(t, ok)
	assert.Equal(t, "SELECT 1;", query)
	assert.Equal(t, "Here:\n\nDone.", prose)

	_, _, ok = extractSQL("no query here")
	assert.False(t, ok)
}

func TestMarkdownTable(t *testing.T) {
	res := &tabledb.Result{
		Columns:   []string{"Store", "Note"},
		Rows:      [][]string{{"North", "a|b"}},
		Truncated: true,
	}

	got := MarkdownTable(res)
	lines := strings.Split(got, "\n")
	require.Len(t, lines, 5)
	assert.True(t, strings.HasPrefix(lines[0], "| Store"))
	assert.Contains(t, lines[2], `a\|b`)
	assert.Equal(t, "", lines[3])
	assert.Contains(t, got, "_Showing the first 1 rows._")

	assert.Equal(t, "_No rows._", MarkdownTable(&tabledb.Result{Columns: []string{"x"}}))
}

func TestFactory_IndependentEngines(t *testing.T) {
	f := NewFactory(&scriptedLLM{replies: []string{"ok"}}, Options{}, nil)

	a, err := f.NewEngine(context.Background(), stores())
	require.NoError(t, err)
	b, err := f.NewEngine(context.Background(), stores())
	require.NoError(t, err)

	assert.NotSame(t, a, b)
	a.(*Engine).Close()
	b.(*Engine).Close()
}
