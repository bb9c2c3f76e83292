// internal/harvest/combination.go
package harvest

import (
	"iter"
	"math"

	"sdmx-harvester/internal/sdmx"
)

// DimensionEntry is one key of a dimension-codes map.
type DimensionEntry struct {
	ID    string
	Codes []sdmx.Code
}

// DimensionCodes is an ordered dimension-codes map. Its order fixes the
// enumeration order of Expand.
type DimensionCodes []DimensionEntry

// IDs returns the dimension ids in order.
func (d DimensionCodes) IDs() []string {
	ids := make([]string, len(d))
	for i, e := range d {
		ids[i] = e.ID
	}
	return ids
}

// Selection is the code chosen for one dimension.
type Selection struct {
	Dimension string    `json:"dimension"`
	Code      sdmx.Code `json:"code"`
}

// Combination assigns one code to every dimension of a DimensionCodes, in
// the same order. Each Combination is freshly allocated and never shared.
type Combination []Selection

// Get returns the code selected for dimension.
func (c Combination) Get(dimension string) (sdmx.Code, bool) {
	for _, s := range c {
		if s.Dimension == dimension {
			return s.Code, true
		}
	}
	return sdmx.Code{}, false
}

// Map returns dimension id to code id.
func (c Combination) Map() map[string]string {
	m := make(map[string]string, len(c))
	for _, s := range c {
		m[s.Dimension] = s.Code.ID
	}
	return m
}

// Combinations is a lazy cursor over the Cartesian product of a
// DimensionCodes in odometer order: the last dimension varies fastest.
// It holds one index per dimension and is not restartable.
type Combinations struct {
	dims    []DimensionEntry
	idx     []int
	total   int64
	emitted int64
}

// Expand validates dims and returns a cursor over all of its combinations.
// An empty dims yields exactly one empty combination. A dimension without
// codes, a repeated dimension id or a product beyond int64 returns an
// InvariantError.
func Expand(dims DimensionCodes) (*Combinations, error) {
	seen := make(map[string]struct{}, len(dims))
	total := int64(1)

	for _, d := range dims {
		if _, dup := seen[d.ID]; dup {
			return nil, &InvariantError{Dimension: d.ID, Reason: "dimension appears more than once"}
		}
		seen[d.ID] = struct{}{}

		n := int64(len(d.Codes))
		if n == 0 {
			return nil, &InvariantError{Dimension: d.ID, Reason: "dimension has no codes"}
		}
		if total > math.MaxInt64/n {
			return nil, &InvariantError{Dimension: d.ID, Reason: "combination count overflows int64"}
		}
		total *= n
	}

	return &Combinations{
		dims:  append([]DimensionEntry(nil), dims...),
		idx:   make([]int, len(dims)),
		total: total,
	}, nil
}

// Total is the number of combinations the cursor produces overall.
func (c *Combinations) Total() int64 { return c.total }

// Remaining is the number of combinations not yet returned by Next.
func (c *Combinations) Remaining() int64 { return c.total - c.emitted }

// Next returns the next combination, or false once all were produced.
func (c *Combinations) Next() (Combination, bool) {
	if c.emitted >= c.total {
		return nil, false
	}

	comb := make(Combination, len(c.dims))
	for i, d := range c.dims {
		comb[i] = Selection{Dimension: d.ID, Code: d.Codes[c.idx[i]]}
	}
	c.emitted++

	for i := len(c.idx) - 1; i >= 0; i-- {
		c.idx[i]++
		if c.idx[i] < len(c.dims[i].Codes) {
			break
		}
		c.idx[i] = 0
	}

	return comb, true
}

// All drains the cursor as a range-over-func sequence.
func (c *Combinations) All() iter.Seq[Combination] {
	return func(yield func(Combination) bool) {
		for {
			comb, ok := c.Next()
			if !ok || !yield(comb) {
				return
			}
		}
	}
}
