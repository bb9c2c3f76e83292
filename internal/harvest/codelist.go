// internal/harvest/codelist.go
package harvest

import "sdmx-harvester/internal/sdmx"

// Resolver builds the dimension-codes map of a data structure from an
// allow-list of dimension ids.
type Resolver struct {
	allowed map[string]struct{}
}

func NewResolver(allowed []string) *Resolver {
	r := &Resolver{allowed: make(map[string]struct{}, len(allowed))}
	for _, id := range allowed {
		r.allowed[id] = struct{}{}
	}
	return r
}

// Allowed reports whether dimension id is on the allow-list.
func (r *Resolver) Allowed(id string) bool {
	_, ok := r.allowed[id]
	return ok
}

// Codes returns the ordered codes of dimensionID in dsd. Unknown dimensions
// and unresolved code lists yield nil.
func (r *Resolver) Codes(dsd *sdmx.DataStructure, dimensionID string) []sdmx.Code {
	dim, ok := dsd.Dimension(dimensionID)
	if !ok {
		return nil
	}
	return dim.Codes
}

// Resolve keeps, in structure order, every allowed dimension that has at
// least one code. Dimensions without codes are dropped silently. When an id
// repeats, only its first occurrence counts.
func (r *Resolver) Resolve(dsd *sdmx.DataStructure) DimensionCodes {
	out := make(DimensionCodes, 0, len(r.allowed))
	seen := make(map[string]struct{}, len(r.allowed))

	for _, dim := range dsd.Dimensions {
		if !r.Allowed(dim.ID) {
			continue
		}
		if _, dup := seen[dim.ID]; dup {
			continue
		}
		seen[dim.ID] = struct{}{}
		if len(dim.Codes) == 0 {
			continue
		}
		out = append(out, DimensionEntry{ID: dim.ID, Codes: dim.Codes})
	}
	return out
}
