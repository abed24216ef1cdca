package scoring

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xcro3dile/storeinsights-go/internal/domain/entities"
)

func dataset(t *testing.T, rows map[string][]float64, extra ...entities.Column) *entities.Dataset {
	t.Helper()
	ds := &entities.Dataset{Source: "test.csv"}
	for _, name := range MetricColumns {
		require.NoError(t, ds.SetColumn(entities.NumericColumn(name, rows[name])))
	}
	for _, c := range extra {
		require.NoError(t, ds.SetColumn(c))
	}
	return ds
}

func threeStores(t *testing.T) *entities.Dataset {
	return dataset(t, map[string][]float64{
		ColNetSales:         {1000, 2000, 3000},
		ColTransactionCount: {100, 100, 150},
		ColBeverageCount:    {50, 80, 20},
		ColServiceSeconds:   {300, 200, 400},
		ColDiscountAmount:   {10, 0, 30},
		ColCashOverShort:    {-5, 0, 10},
	}, entities.Column{Name: "Store", Kind: entities.KindText, Text: []string{"North", "South", "East"}})
}

func TestDefaultWeights_SumToOne(t *testing.T) {
	w := DefaultWeights()
	assert.InDelta(t, 1.0, w.Sum(), 1e-9)
	assert.NoError(t, w.Validate())
}

func TestWeights_ValidateRejectsBadSums(t *testing.T) {
	w := DefaultWeights()
	w.NetSales = 0.5
	assert.ErrorIs(t, w.Validate(), ErrInvalidWeights)

	w = DefaultWeights()
	w.NetSales, w.AvgTransaction = -0.1, 0.65
	assert.ErrorIs(t, w.Validate(), ErrInvalidWeights)
}

func TestMinMax_AllEqualIsZero(t *testing.T) {
	got := MinMax([]float64{7, 7, 7, 7})
	for i, v := range got {
		assert.Equal(t, 0.0, v, "row %d", i)
	}
}

func TestMinMax_RangeAndMissing(t *testing.T) {
	got := MinMax([]float64{10, math.NaN(), 20, 15})
	assert.Equal(t, 0.0, got[0])
	assert.True(t, math.IsNaN(got[1]))
	assert.Equal(t, 1.0, got[2])
	assert.InDelta(t, 0.5, got[3], 1e-12)
}

func TestMinMax_HugeRange(t *testing.T) {
	got := MinMax([]float64{-1.5e308, 0, 1.5e308})
	assert.Equal(t, []float64{0, 0.5, 1}, got)
}

func TestAvgTransaction_ZeroCountIsMissing(t *testing.T) {
	got := AvgTransaction([]float64{100, 200, 300}, []float64{4, 0, math.NaN()})
	assert.Equal(t, 25.0, got[0])
	for _, v := range got[1:] {
		assert.True(t, math.IsNaN(v))
		assert.False(t, math.IsInf(v, 0))
	}
}

func TestScore_ComputesExpectedComposite(t *testing.T) {
	out, err := Score(threeStores(t), DefaultWeights())
	require.NoError(t, err)

	col, ok := out.Column(ColComposite)
	require.True(t, ok)

	// avg: 10, 20, 20 -> 0, 1, 1
	// net: 0, .5, 1 | bev: .5, 1, 0 | sos inv: .5, 1, 0
	// disc inv: 2/3, 1, 0 | cash abs 5,0,10 -> .5,0,1 inv .5,1,0
	want := []float64{
		0.30*0 + 0.25*0 + 0.15*0.5 + 0.15*0.5 + 0.10*(2.0/3.0) + 0.05*0.5,
		0.30*0.5 + 0.25*1 + 0.15*1 + 0.15*1 + 0.10*1 + 0.05*1,
		0.30*1 + 0.25*1 + 0.15*0 + 0.15*0 + 0.10*0 + 0.05*0,
	}
	for i := range want {
		assert.InDelta(t, want[i], col.Num[i], 1e-12, "row %d", i)
		assert.GreaterOrEqual(t, col.Num[i], 0.0)
		assert.LessOrEqual(t, col.Num[i], 1.0)
	}
}

func TestScore_DoesNotMutateInput(t *testing.T) {
	in := threeStores(t)
	before := in.Clone()

	_, err := Score(in, DefaultWeights())
	require.NoError(t, err)

	assert.Equal(t, before, in)
	_, has := in.Column(ColComposite)
	assert.False(t, has)
}

func TestScore_Idempotent(t *testing.T) {
	in := threeStores(t)

	first, err := Score(in, DefaultWeights())
	require.NoError(t, err)
	second, err := Score(in, DefaultWeights())
	require.NoError(t, err)
	again, err := Score(first, DefaultWeights())
	require.NoError(t, err)

	a, _ := first.Column(ColComposite)
	b, _ := second.Column(ColComposite)
	c, _ := again.Column(ColComposite)
	assert.Equal(t, a.Num, b.Num)
	assert.Equal(t, a.Num, c.Num)
	assert.Len(t, again.Columns, len(first.Columns))
}

func TestScore_SingleRowIsDeterministic(t *testing.T) {
	ds := dataset(t, map[string][]float64{
		ColNetSales:         {500},
		ColTransactionCount: {25},
		ColBeverageCount:    {9},
		ColServiceSeconds:   {120},
		ColDiscountAmount:   {3},
		ColCashOverShort:    {-1},
	})

	out, err := Score(ds, DefaultWeights())
	require.NoError(t, err)

	col, _ := out.Column(ColComposite)
	// Every column is degenerate: higher-is-better terms are 0,
	// inverted terms are 1.
	assert.InDelta(t, 0.30, col.Num[0], 1e-12)
}

func TestScore_ConstantColumnsAmongVaried(t *testing.T) {
	rows := map[string][]float64{
		ColNetSales:         {100, 200, 300},
		ColTransactionCount: {10, 10, 10},
		ColBeverageCount:    {5, 5, 5},
		ColServiceSeconds:   {60, 60, 60},
		ColDiscountAmount:   {0, 10, 20},
		ColCashOverShort:    {0, 0, 0},
	}
	out, err := Score(dataset(t, rows), DefaultWeights())
	require.NoError(t, err)
	col, _ := out.Column(ColComposite)

	// Constant beverage adds 0 on every row; constant service and cash
	// add their full weight after inversion.
	want := []float64{
		0 + 0 + 0 + 0.15 + 0.10*1 + 0.05,
		0.30*0.5 + 0.25*0.5 + 0 + 0.15 + 0.10*0.5 + 0.05,
		0.30 + 0.25 + 0 + 0.15 + 0 + 0.05,
	}
	for i := range want {
		assert.InDelta(t, want[i], col.Num[i], 1e-12, "row %d", i)
	}

	// The constant's value does not matter
	rows[ColBeverageCount] = []float64{99, 99, 99}
	rows[ColServiceSeconds] = []float64{1, 1, 1}
	other, err := Score(dataset(t, rows), DefaultWeights())
	require.NoError(t, err)
	otherCol, _ := other.Column(ColComposite)
	assert.Equal(t, col.Num, otherCol.Num)
}

func TestScore_RowOrderIndependent(t *testing.T) {
	rows := map[string][]float64{
		ColNetSales:         {1000, 2000, 3000, 2500},
		ColTransactionCount: {100, 100, 150, 0},
		ColBeverageCount:    {50, 80, 20, 40},
		ColServiceSeconds:   {300, 200, 400, 250},
		ColDiscountAmount:   {10, 0, 30, 5},
		ColCashOverShort:    {-5, 0, 10, 3},
	}
	reversed := make(map[string][]float64, len(rows))
	for name, values := range rows {
		r := make([]float64, len(values))
		for i, v := range values {
			r[len(values)-1-i] = v
		}
		reversed[name] = r
	}

	forward, err := Score(dataset(t, rows), DefaultWeights())
	require.NoError(t, err)
	backward, err := Score(dataset(t, reversed), DefaultWeights())
	require.NoError(t, err)

	f, _ := forward.Column(ColComposite)
	b, _ := backward.Column(ColComposite)
	n := len(f.Num)
	for i := range f.Num {
		j := n - 1 - i
		if math.IsNaN(f.Num[i]) {
			assert.True(t, math.IsNaN(b.Num[j]), "row %d", i)
			continue
		}
		assert.InDelta(t, f.Num[i], b.Num[j], 1e-12, "row %d", i)
	}
}

func TestScore_ZeroTransactionCountPropagatesMissing(t *testing.T) {
	ds := dataset(t, map[string][]float64{
		ColNetSales:         {1000, 2000},
		ColTransactionCount: {0, 100},
		ColBeverageCount:    {5, 6},
		ColServiceSeconds:   {100, 200},
		ColDiscountAmount:   {1, 2},
		ColCashOverShort:    {0, 1},
	})

	out, err := Score(ds, DefaultWeights())
	require.NoError(t, err)

	avg, _ := out.Column(ColAvgTransaction)
	assert.True(t, math.IsNaN(avg.Num[0]))
	assert.Equal(t, 20.0, avg.Num[1])

	comp, _ := out.Column(ColComposite)
	assert.True(t, math.IsNaN(comp.Num[0]))
	assert.False(t, math.IsNaN(comp.Num[1]))
}

func TestScore_TextMetricCellsCoerceToMissing(t *testing.T) {
	ds := threeStores(t)
	require.NoError(t, ds.SetColumn(entities.Column{
		Name: ColBeverageCount,
		Kind: entities.KindText,
		Text: []string{"50", "n/a", "20"},
	}))

	out, err := Score(ds, DefaultWeights())
	require.NoError(t, err)

	comp, _ := out.Column(ColComposite)
	assert.False(t, math.IsNaN(comp.Num[0]))
	assert.True(t, math.IsNaN(comp.Num[1]))
}

func TestScore_MissingColumn(t *testing.T) {
	ds := &entities.Dataset{}
	require.NoError(t, ds.SetColumn(entities.NumericColumn(ColNetSales, []float64{1})))

	_, err := Score(ds, DefaultWeights())
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestRank_BestFirstMissingLast(t *testing.T) {
	ds := &entities.Dataset{}
	require.NoError(t, ds.SetColumn(entities.Column{Name: "Store", Kind: entities.KindText, Text: []string{"a", "b", "c", "d"}}))
	require.NoError(t, ds.SetColumn(entities.NumericColumn(ColComposite, []float64{0.2, math.NaN(), 0.9, 0.2})))

	got, err := Rank(ds, "Store", 0)
	require.NoError(t, err)

	labels := make([]string, len(got))
	for i, r := range got {
		labels[i] = r.Label
	}
	assert.Equal(t, []string{"c", "a", "d", "b"}, labels)

	top, err := Rank(ds, "", 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "row 3", top[0].Label)
}

func TestLabelColumn(t *testing.T) {
	ds := dataset(t, nil, entities.Column{Name: "Store", Kind: entities.KindText, Text: []string{}})
	assert.Equal(t, "Store", LabelColumn(ds))

	assert.Equal(t, "", LabelColumn(dataset(t, nil)))
}

func TestLeaderboard_ScoresWhenNeeded(t *testing.T) {
	store := entities.Column{Name: "Store", Kind: entities.KindText, Text: []string{"A", "B", "C"}}
	ds := threeStores(t)
	require.NoError(t, ds.SetColumn(store))

	ranked, err := Leaderboard(ds, DefaultWeights(), "", 0)
	require.NoError(t, err)
	require.Len(t, ranked, 3)

	scored, _ := Score(ds, DefaultWeights())
	want, _ := Rank(scored, "Store", 0)
	assert.Equal(t, want, ranked)
	_, mutated := ds.Column(ColComposite)
	assert.False(t, mutated)
}

func TestLeaderboard_UsesExistingScore(t *testing.T) {
	ds := dataset(t, nil)
	require.NoError(t, ds.SetColumn(entities.NumericColumn(ColComposite, []float64{})))

	ranked, err := Leaderboard(ds, Weights{}, "", 0)
	require.NoError(t, err)
	assert.Empty(t, ranked)
}
