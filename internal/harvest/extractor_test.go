package harvest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sdmx-harvester/internal/common/logger"
	"sdmx-harvester/internal/sdmx"
)

func TestResolver_AllowListFiltering(t *testing.T) {
	dsd := structure("DSD_x",
		sdmx.Dimension{ID: "GEO", Codes: codes("DE", "FR")},
		sdmx.Dimension{ID: "TIME", Codes: codes("2019", "2020")},
		sdmx.Dimension{ID: "SECRET", Codes: codes("S1", "S2")},
	)

	got := NewResolver([]string{"GEO", "TIME"}).Resolve(dsd)
	assert.Equal(t, []string{"GEO", "TIME"}, got.IDs())
}

func TestResolver_StructureOrderAndDrops(t *testing.T) {
	dsd := structure("DSD_x",
		sdmx.Dimension{ID: "UNIT", Codes: codes("EUR")},
		sdmx.Dimension{ID: "NA_ITEM"},
		sdmx.Dimension{ID: "GEO", Codes: codes("DE")},
		sdmx.Dimension{ID: "GEO", Codes: codes("FR")},
	)

	// Allow-list order does not matter, structure order does.
	r := NewResolver([]string{"GEO", "NA_ITEM", "UNIT", "PARTNER"})
	got := r.Resolve(dsd)

	require.Equal(t, []string{"UNIT", "GEO"}, got.IDs())
	assert.Equal(t, "DE", got[1].Codes[0].ID)

	assert.Len(t, r.Codes(dsd, "UNIT"), 1)
	assert.Nil(t, r.Codes(dsd, "PARTNER"))
	assert.Empty(t, r.Codes(dsd, "NA_ITEM"))
}

func TestResolver_FirstDuplicateWins(t *testing.T) {
	dsd := structure("DSD_x",
		sdmx.Dimension{ID: "GEO"},
		sdmx.Dimension{ID: "GEO", Codes: codes("DE", "FR")},
		sdmx.Dimension{ID: "UNIT", Codes: codes("EUR")},
	)

	got := NewResolver([]string{"GEO", "UNIT"}).Resolve(dsd)
	assert.Equal(t, []string{"UNIT"}, got.IDs())
}

func TestResolver_EmptyAllowList(t *testing.T) {
	dsd := structure("DSD_x", sdmx.Dimension{ID: "GEO", Codes: codes("DE")})
	assert.Empty(t, NewResolver(nil).Resolve(dsd))
}

func TestExtractor_InitAndIterate(t *testing.T) {
	src := abcSource()
	pattern, err := CompilePattern("DSD_[AC]")
	require.NoError(t, err)

	ex := NewExtractor(src, Options{
		AllowedDimensions: []string{"GEO", "UNIT"},
		DataflowPattern:   pattern,
	}, logger.NewTestLogger(t))

	_, err = ex.Iterator()
	assert.True(t, errors.Is(err, ErrNotInitialized))
	assert.Empty(t, ex.Version())

	require.NoError(t, ex.Init(context.Background()))
	assert.Equal(t, "DATAFLOW_1", ex.Version())
	assert.Equal(t, SizeUnknown, ex.Size())
	assert.Equal(t, 3, ex.Listed())
	assert.Equal(t, 2, ex.Selected())

	// Init only lists; structures are loaded lazily.
	assert.Empty(t, src.loads)

	it, err := ex.Iterator()
	require.NoError(t, err)
	assert.Equal(t, []string{"A?GEO=DE", "A?GEO=FR", "C?GEO=IT&UNIT=EUR"}, collect(t, it))

	// B never reached LoadStructure.
	assert.Equal(t, []string{"A", "C"}, src.loads)
	assert.Equal(t, SizeUnknown, ex.Size())
}

func TestExtractor_SkipHook(t *testing.T) {
	src := abcSource()
	src.failures = map[string]error{"A": errors.New("boom")}

	var skipped []string
	ex := NewExtractor(src, Options{
		AllowedDimensions: []string{"GEO"},
		OnSkip: func(df sdmx.Dataflow, err error) {
			skipped = append(skipped, df.ID)
		},
	}, logger.NewTestLogger(t))
	require.NoError(t, ex.Init(context.Background()))

	it, err := ex.Iterator()
	require.NoError(t, err)
	collect(t, it)
	assert.Equal(t, []string{"A"}, skipped)
}

func TestExtractor_InitFailure(t *testing.T) {
	src := abcSource()
	src.listErr = errors.New("registry down")

	ex := NewExtractor(src, Options{}, logger.NewTestLogger(t))
	require.Error(t, ex.Init(context.Background()))

	_, err := ex.Iterator()
	assert.True(t, errors.Is(err, ErrNotInitialized))
}

func TestExtractor_Selects(t *testing.T) {
	pattern, err := CompilePattern("DSD_.*")
	require.NoError(t, err)
	ex := NewExtractor(abcSource(), Options{DataflowPattern: pattern}, logger.NewNoOpLogger())

	tests := []struct {
		name string
		df   sdmx.Dataflow
		want bool
	}{
		{"structure id matches", sdmx.Dataflow{ID: "nama_10_gdp", Structure: sdmx.Reference{ID: "DSD_nama_10_gdp"}}, true},
		{"dataflow id matches", sdmx.Dataflow{ID: "DSD_direct"}, true},
		{"neither matches", sdmx.Dataflow{ID: "nama_10_gdp", Structure: sdmx.Reference{ID: "nama_dsd"}}, false},
		{"pattern is anchored", sdmx.Dataflow{ID: "X_DSD_y", Structure: sdmx.Reference{ID: "X_DSD_y"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ex.Selects(tt.df))
		})
	}
}

func TestCompilePattern_Invalid(t *testing.T) {
	_, err := CompilePattern("DSD_(")
	assert.Error(t, err)
}
