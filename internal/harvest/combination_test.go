package harvest

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sdmx-harvester/internal/sdmx"
)

func codes(ids ...string) []sdmx.Code {
	out := make([]sdmx.Code, len(ids))
	for i, id := range ids {
		out[i] = sdmx.Code{ID: id}
	}
	return out
}

func numberedCodes(prefix string, n int) []sdmx.Code {
	out := make([]sdmx.Code, n)
	for i := range out {
		out[i] = sdmx.Code{ID: fmt.Sprintf("%s%d", prefix, i)}
	}
	return out
}

func drain(t *testing.T, dims DimensionCodes) []Combination {
	t.Helper()
	combos, err := Expand(dims)
	require.NoError(t, err)
	var out []Combination
	for comb := range combos.All() {
		out = append(out, comb)
	}
	assert.Zero(t, combos.Remaining())
	return out
}

func key(c Combination) string {
	parts := make([]string, len(c))
	for i, s := range c {
		parts[i] = s.Dimension + "=" + s.Code.ID
	}
	return strings.Join(parts, "&")
}

func TestExpand_ArticleNoun(t *testing.T) {
	got := drain(t, DimensionCodes{
		{ID: "article", Codes: codes("a", "the")},
		{ID: "noun", Codes: codes("cop", "god")},
	})

	keys := make([]string, len(got))
	for i, c := range got {
		keys[i] = key(c)
	}
	assert.Equal(t, []string{
		"article=a&noun=cop",
		"article=a&noun=god",
		"article=the&noun=cop",
		"article=the&noun=god",
	}, keys)
}

func TestExpand_CartesianCompleteness(t *testing.T) {
	tests := []struct {
		name  string
		sizes []int
	}{
		{"single dimension", []int{7}},
		{"two dimensions", []int{3, 4}},
		{"three dimensions", []int{2, 3, 5}},
		{"with singleton", []int{4, 1, 3}},
		{"all singletons", []int{1, 1, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dims := make(DimensionCodes, len(tt.sizes))
			want := int64(1)
			for i, n := range tt.sizes {
				id := fmt.Sprintf("D%d", i)
				dims[i] = DimensionEntry{ID: id, Codes: numberedCodes(id+"_", n)}
				want *= int64(n)
			}

			combos, err := Expand(dims)
			require.NoError(t, err)
			assert.Equal(t, want, combos.Total())

			seen := make(map[string]struct{})
			for comb := range combos.All() {
				require.Len(t, comb, len(dims))
				for i, sel := range comb {
					assert.Equal(t, dims[i].ID, sel.Dimension)
					assert.Contains(t, dims[i].Codes, sel.Code)
				}
				k := key(comb)
				_, dup := seen[k]
				require.False(t, dup, "duplicate combination %s", k)
				seen[k] = struct{}{}
			}
			assert.Len(t, seen, int(want))
		})
	}
}

func TestExpand_EmptyInputYieldsOneEmptyCombination(t *testing.T) {
	got := drain(t, DimensionCodes{})
	require.Len(t, got, 1)
	assert.Empty(t, got[0])
	assert.Empty(t, got[0].Map())

	got = drain(t, nil)
	require.Len(t, got, 1)
}

func TestExpand_SingletonDimensionIsNeutral(t *testing.T) {
	base := DimensionCodes{
		{ID: "GEO", Codes: codes("DE", "FR", "IT")},
		{ID: "UNIT", Codes: codes("EUR", "PC")},
	}
	withSingleton := append(DimensionCodes{{ID: "FREQ", Codes: codes("A")}}, base...)

	a := drain(t, base)
	b := drain(t, withSingleton)
	require.Len(t, b, len(a))

	for i := range a {
		code, ok := b[i].Get("FREQ")
		require.True(t, ok)
		assert.Equal(t, "A", code.ID)
		assert.Equal(t, key(a[i]), key(b[i][1:]))
	}
}

func TestExpand_OrderIsDeterministic(t *testing.T) {
	dims := DimensionCodes{
		{ID: "GEO", Codes: codes("DE", "FR")},
		{ID: "NA_ITEM", Codes: codes("B1GQ", "P3", "P5G")},
		{ID: "UNIT", Codes: codes("CP_MEUR", "PC_GDP")},
	}
	assert.Equal(t, drain(t, dims), drain(t, dims))
}

func TestExpand_InvariantViolations(t *testing.T) {
	many := make(DimensionCodes, 64)
	for i := range many {
		many[i] = DimensionEntry{ID: fmt.Sprintf("D%d", i), Codes: codes("0", "1")}
	}

	tests := []struct {
		name      string
		dims      DimensionCodes
		dimension string
	}{
		{
			name:      "dimension without codes",
			dims:      DimensionCodes{{ID: "GEO", Codes: codes("DE")}, {ID: "UNIT"}},
			dimension: "UNIT",
		},
		{
			name:      "repeated dimension",
			dims:      DimensionCodes{{ID: "GEO", Codes: codes("DE")}, {ID: "GEO", Codes: codes("FR")}},
			dimension: "GEO",
		},
		{
			name:      "product overflows int64",
			dims:      many,
			dimension: "D62",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			combos, err := Expand(tt.dims)
			require.Error(t, err)
			assert.Nil(t, combos)
			assert.True(t, errors.Is(err, ErrInvariantViolation))

			var invErr *InvariantError
			require.True(t, errors.As(err, &invErr))
			assert.Equal(t, tt.dimension, invErr.Dimension)
		})
	}
}

func TestCombinations_FreshCursorPerExpand(t *testing.T) {
	dims := DimensionCodes{{ID: "GEO", Codes: codes("DE", "FR")}}

	first, err := Expand(dims)
	require.NoError(t, err)
	_, ok := first.Next()
	require.True(t, ok)

	second, err := Expand(dims)
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.Remaining())
	assert.Equal(t, int64(1), first.Remaining())
}

func TestCombinations_IndependentResults(t *testing.T) {
	combos, err := Expand(DimensionCodes{{ID: "GEO", Codes: codes("DE", "FR")}})
	require.NoError(t, err)

	a, _ := combos.Next()
	a[0].Code.ID = "XX"
	b, _ := combos.Next()
	assert.Equal(t, "FR", b[0].Code.ID)

	_, ok := combos.Next()
	assert.False(t, ok)
}

func TestCombination_Accessors(t *testing.T) {
	c := Combination{
		{Dimension: "GEO", Code: sdmx.Code{ID: "DE"}},
		{Dimension: "UNIT", Code: sdmx.Code{ID: "EUR"}},
	}
	assert.Equal(t, map[string]string{"GEO": "DE", "UNIT": "EUR"}, c.Map())

	_, ok := c.Get("FREQ")
	assert.False(t, ok)
}
