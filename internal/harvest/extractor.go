// internal/harvest/extractor.go
package harvest

import (
	"context"
	"fmt"
	"regexp"

	"sdmx-harvester/internal/common/logger"
	"sdmx-harvester/internal/sdmx"
)

// SizeUnknown is reported by Extractor.Size. Skipped dataflows are only
// discovered while iterating, so the item count is never known up front.
const SizeUnknown = -1

type Options struct {
	// AllowedDimensions are the dimension ids eligible for expansion.
	AllowedDimensions []string
	// DataflowPattern keeps dataflows whose id or structure id matches.
	// Nil keeps every dataflow.
	DataflowPattern *regexp.Regexp
	// OnSkip observes dataflows skipped during iteration.
	OnSkip SkipFunc
}

// CompilePattern compiles expr so that it has to match a whole identifier.
func CompilePattern(expr string) (*regexp.Regexp, error) {
	re, err := regexp.Compile(`^(?:` + expr + `)$`)
	if err != nil {
		return nil, fmt.Errorf("compile dataflow pattern %q: %w", expr, err)
	}
	return re, nil
}

// Extractor lists the catalogue once and hands out iterators over it.
type Extractor struct {
	source   DataflowSource
	opts     Options
	resolver *Resolver
	base     logger.Logger
	logger   logger.Logger

	dataflows   []sdmx.Dataflow
	listed      int
	version     string
	initialized bool
}

func NewExtractor(source DataflowSource, opts Options, log logger.Logger) *Extractor {
	return &Extractor{
		source:   source,
		opts:     opts,
		resolver: NewResolver(opts.AllowedDimensions),
		base:     log,
		logger:   log.WithFields(map[string]interface{}{"component": "extractor"}),
	}
}

// Init lists the catalogue, records its version and drops dataflows that
// do not match the selection pattern. No structure is loaded here.
func (e *Extractor) Init(ctx context.Context) error {
	all, err := e.source.ListDataflows(ctx)
	if err != nil {
		return err
	}

	selected := make([]sdmx.Dataflow, 0, len(all))
	for _, df := range all {
		if e.Selects(df) {
			selected = append(selected, df)
		}
	}

	e.dataflows = selected
	e.listed = len(all)
	if v, ok := e.source.(Versioned); ok {
		e.version = v.Version()
	}
	e.initialized = true

	e.logger.Info("Extractor initialized", map[string]interface{}{
		"version":  e.version,
		"listed":   len(all),
		"selected": len(selected),
	})
	return nil
}

// Selects reports whether df passes the selection pattern.
func (e *Extractor) Selects(df sdmx.Dataflow) bool {
	if e.opts.DataflowPattern == nil {
		return true
	}
	return e.opts.DataflowPattern.MatchString(df.ID) ||
		(df.Structure.ID != "" && e.opts.DataflowPattern.MatchString(df.Structure.ID))
}

// Version is the fingerprint of the listed catalogue, empty before Init.
func (e *Extractor) Version() string { return e.version }

// Size always returns SizeUnknown.
func (e *Extractor) Size() int { return SizeUnknown }

// Listed is the catalogue size before filtering.
func (e *Extractor) Listed() int { return e.listed }

// Selected is the number of dataflows that will be loaded.
func (e *Extractor) Selected() int { return len(e.dataflows) }

// Iterator returns a fresh iterator over the selected dataflows.
func (e *Extractor) Iterator() (*Iterator, error) {
	if !e.initialized {
		return nil, ErrNotInitialized
	}
	it := NewIterator(e.source, e.dataflows, e.resolver, e.base)
	it.OnSkip(e.opts.OnSkip)
	return it, nil
}
