package harvest

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sdmx-harvester/internal/common/logger"
	"sdmx-harvester/internal/sdmx"
)

type fakeSource struct {
	dataflows  []sdmx.Dataflow
	structures map[string]*sdmx.DataStructure
	failures   map[string]error
	listErr    error
	version    string
	loads      []string
}

func (f *fakeSource) ListDataflows(ctx context.Context) ([]sdmx.Dataflow, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.dataflows, nil
}

func (f *fakeSource) LoadStructure(ctx context.Context, df sdmx.Dataflow) (*sdmx.DataStructure, error) {
	f.loads = append(f.loads, df.ID)
	if err, ok := f.failures[df.ID]; ok {
		return nil, err
	}
	dsd, ok := f.structures[df.Structure.ID]
	if !ok {
		return nil, fmt.Errorf("structure %s not found", df.Structure.ID)
	}
	return dsd, nil
}

func (f *fakeSource) Version() string { return f.version }

func dataflow(id string) sdmx.Dataflow {
	return sdmx.Dataflow{
		ID:        id,
		Names:     sdmx.LocalizedTexts{{Locale: "en", Text: "Dataflow " + id}},
		Structure: sdmx.Reference{ID: "DSD_" + id},
	}
}

func structure(id string, dims ...sdmx.Dimension) *sdmx.DataStructure {
	return &sdmx.DataStructure{ID: id, Dimensions: dims}
}

// abcSource has three dataflows A, B and C whose structures expand to 2, 3
// and 1 combinations over GEO and UNIT.
func abcSource() *fakeSource {
	return &fakeSource{
		dataflows: []sdmx.Dataflow{dataflow("A"), dataflow("B"), dataflow("C")},
		structures: map[string]*sdmx.DataStructure{
			"DSD_A": structure("DSD_A",
				sdmx.Dimension{ID: "GEO", Codes: codes("DE", "FR")},
				sdmx.Dimension{ID: "TIME_PERIOD", Time: true},
			),
			"DSD_B": structure("DSD_B",
				sdmx.Dimension{ID: "UNIT", Codes: codes("EUR", "PC", "NR")},
			),
			"DSD_C": structure("DSD_C",
				sdmx.Dimension{ID: "GEO", Codes: codes("IT")},
				sdmx.Dimension{ID: "UNIT", Codes: codes("EUR")},
			),
		},
		version: "DATAFLOW_1",
	}
}

func collect(t *testing.T, it *Iterator) []string {
	t.Helper()
	var out []string
	for item, err := range it.All(context.Background()) {
		require.NoError(t, err)
		out = append(out, item.DataflowID+"?"+key(item.Combination))
	}
	return out
}

func TestIterator_YieldsAllDataflowsInOrder(t *testing.T) {
	src := abcSource()
	it := NewIterator(src, src.dataflows, NewResolver([]string{"GEO", "UNIT"}), logger.NewTestLogger(t))

	assert.Equal(t, []string{
		"A?GEO=DE",
		"A?GEO=FR",
		"B?UNIT=EUR",
		"B?UNIT=PC",
		"B?UNIT=NR",
		"C?GEO=IT&UNIT=EUR",
	}, collect(t, it))

	assert.Equal(t, Stats{DataflowsExpanded: 3, Items: 6}, it.Stats())
	assert.Equal(t, stateExhausted, it.state)
	assert.NoError(t, it.Err())
}

func TestIterator_SkipsDataflowsThatFailToLoad(t *testing.T) {
	src := abcSource()
	src.failures = map[string]error{"B": errors.New("connection reset")}

	var skipped []string
	it := NewIterator(src, src.dataflows, NewResolver([]string{"GEO", "UNIT"}), logger.NewTestLogger(t))
	it.OnSkip(func(df sdmx.Dataflow, err error) {
		skipped = append(skipped, df.ID)
	})

	assert.Equal(t, []string{
		"A?GEO=DE",
		"A?GEO=FR",
		"C?GEO=IT&UNIT=EUR",
	}, collect(t, it))
	assert.Equal(t, []string{"B"}, skipped)
	assert.Equal(t, 1, it.Stats().DataflowsSkipped)
	assert.NoError(t, it.Err())
}

func TestIterator_ManyConsecutiveFailures(t *testing.T) {
	src := &fakeSource{structures: map[string]*sdmx.DataStructure{}}
	for i := 0; i < 10000; i++ {
		src.dataflows = append(src.dataflows, dataflow(fmt.Sprintf("broken%d", i)))
	}
	src.dataflows = append(src.dataflows, dataflow("ok"))
	src.structures["DSD_ok"] = structure("DSD_ok", sdmx.Dimension{ID: "GEO", Codes: codes("DE")})

	it := NewIterator(src, src.dataflows, NewResolver([]string{"GEO"}), logger.NewNoOpLogger())

	assert.Equal(t, []string{"ok?GEO=DE"}, collect(t, it))
	assert.Equal(t, 10000, it.Stats().DataflowsSkipped)
}

func TestIterator_NilStructureIsSkipped(t *testing.T) {
	src := abcSource()
	src.structures["DSD_A"] = nil

	it := NewIterator(src, src.dataflows[:1], NewResolver([]string{"GEO"}), logger.NewTestLogger(t))
	assert.False(t, it.HasNext(context.Background()))
	assert.Equal(t, 1, it.Stats().DataflowsSkipped)
}

func TestIterator_DataflowWithoutAllowedDimensionsYieldsOneItem(t *testing.T) {
	src := abcSource()
	it := NewIterator(src, src.dataflows[:1], NewResolver([]string{"NA_ITEM"}), logger.NewTestLogger(t))

	item, err := it.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "A", item.DataflowID)
	assert.Empty(t, item.Combination)
	assert.Equal(t, "DSD_A", item.Structure.ID)

	_, err = it.Next(context.Background())
	assert.True(t, errors.Is(err, ErrExhausted))
}

func TestIterator_HasNextIsIdempotent(t *testing.T) {
	src := abcSource()
	it := NewIterator(src, src.dataflows, NewResolver([]string{"GEO", "UNIT"}), logger.NewTestLogger(t))
	ctx := context.Background()

	assert.Equal(t, stateNeedsDataflow, it.state)
	for i := 0; i < 5; i++ {
		require.True(t, it.HasNext(ctx))
	}
	assert.Equal(t, []string{"A"}, src.loads)
	assert.Equal(t, stateHasCombinations, it.state)

	item, err := it.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "GEO=DE", key(item.Combination))

	item, err = it.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "GEO=FR", key(item.Combination))

	require.True(t, it.HasNext(ctx))
	require.True(t, it.HasNext(ctx))
	assert.Equal(t, []string{"A", "B"}, src.loads)
}

func TestIterator_ExhaustedStaysExhausted(t *testing.T) {
	src := abcSource()
	it := NewIterator(src, nil, NewResolver([]string{"GEO"}), logger.NewTestLogger(t))
	ctx := context.Background()

	assert.False(t, it.HasNext(ctx))
	assert.False(t, it.HasNext(ctx))
	_, err := it.Next(ctx)
	assert.True(t, errors.Is(err, ErrExhausted))
	assert.Equal(t, "EXHAUSTED", it.state.String())
}

func TestIterator_InvariantViolationIsFatal(t *testing.T) {
	dims := make([]sdmx.Dimension, 64)
	allowed := make([]string, 64)
	for i := range dims {
		allowed[i] = fmt.Sprintf("D%d", i)
		dims[i] = sdmx.Dimension{ID: allowed[i], Codes: codes("0", "1")}
	}

	src := abcSource()
	src.dataflows = []sdmx.Dataflow{dataflow("A"), dataflow("HUGE"), dataflow("C")}
	src.structures["DSD_HUGE"] = structure("DSD_HUGE", dims...)

	it := NewIterator(src, src.dataflows, NewResolver(append(allowed, "GEO", "UNIT")), logger.NewTestLogger(t))
	ctx := context.Background()

	var got []string
	var fatal error
	for item, err := range it.All(ctx) {
		if err != nil {
			fatal = err
			break
		}
		got = append(got, item.DataflowID)
	}

	assert.Equal(t, []string{"A", "A"}, got)
	require.Error(t, fatal)
	assert.True(t, errors.Is(fatal, ErrInvariantViolation))
	assert.Contains(t, fatal.Error(), "HUGE")

	// Nothing more comes out once the iterator failed, not even C.
	assert.False(t, it.HasNext(ctx))
	_, err := it.Next(ctx)
	assert.True(t, errors.Is(err, ErrInvariantViolation))
	assert.Equal(t, []string{"A", "HUGE"}, src.loads)
}

func TestIterator_CancelledContextStopsIteration(t *testing.T) {
	src := abcSource()
	it := NewIterator(src, src.dataflows, NewResolver([]string{"GEO"}), logger.NewTestLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.False(t, it.HasNext(ctx))
	assert.True(t, errors.Is(it.Err(), context.Canceled))
	assert.Empty(t, src.loads)
}
