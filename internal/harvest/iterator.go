// internal/harvest/iterator.go
package harvest

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"sdmx-harvester/internal/common/logger"
	"sdmx-harvester/internal/sdmx"
)

// DataflowSource abstracts the registry.
type DataflowSource interface {
	ListDataflows(ctx context.Context) ([]sdmx.Dataflow, error)
	LoadStructure(ctx context.Context, df sdmx.Dataflow) (*sdmx.DataStructure, error)
}

// Versioned is implemented by sources that expose a fingerprint of the
// catalogue they listed.
type Versioned interface {
	Version() string
}

// Item is one unit handed to the record builder.
type Item struct {
	DataflowID  string
	Names       sdmx.LocalizedTexts
	Structure   *sdmx.DataStructure
	Combination Combination
}

// Stats is the side channel of an iteration.
type Stats struct {
	DataflowsExpanded int   `json:"dataflowsExpanded"`
	DataflowsSkipped  int   `json:"dataflowsSkipped"`
	Items             int64 `json:"items"`
}

type state int

const (
	stateNeedsDataflow state = iota
	stateHasCombinations
	stateExhausted
)

func (s state) String() string {
	switch s {
	case stateNeedsDataflow:
		return "NEEDS_DATAFLOW"
	case stateHasCombinations:
		return "HAS_COMBINATIONS"
	default:
		return "EXHAUSTED"
	}
}

// SkipFunc observes a dataflow dropped because its structure failed to load.
type SkipFunc func(df sdmx.Dataflow, err error)

// Iterator pulls one Item at a time: an outer cursor over dataflows and an
// inner cursor over the combinations of the dataflow being expanded.
// Dataflows whose structure cannot be loaded are skipped. An invariant
// violation stops the iterator for good and is returned by Next and Err.
// An Iterator is not safe for concurrent use.
type Iterator struct {
	source   DataflowSource
	resolver *Resolver
	logger   logger.Logger
	onSkip   SkipFunc

	dataflows []sdmx.Dataflow
	pos       int

	state     state
	dataflow  sdmx.Dataflow
	structure *sdmx.DataStructure
	combos    *Combinations

	peeked *Item
	err    error
	stats  Stats
}

func NewIterator(source DataflowSource, dataflows []sdmx.Dataflow, resolver *Resolver, log logger.Logger) *Iterator {
	return &Iterator{
		source:    source,
		resolver:  resolver,
		logger:    log.WithFields(map[string]interface{}{"component": "extraction-iterator"}),
		dataflows: dataflows,
		state:     stateNeedsDataflow,
	}
}

// OnSkip registers fn to be called for every skipped dataflow.
func (it *Iterator) OnSkip(fn SkipFunc) {
	it.onSkip = fn
}

// HasNext reports whether Next will return an item. Repeated calls without
// a Next in between do not advance the iterator.
func (it *Iterator) HasNext(ctx context.Context) bool {
	if it.peeked != nil {
		return true
	}
	item, ok := it.advance(ctx)
	if !ok {
		return false
	}
	it.peeked = &item
	return true
}

// Next returns the next item. At the end it returns ErrExhausted, or the
// fatal error that stopped the iterator.
func (it *Iterator) Next(ctx context.Context) (Item, error) {
	if !it.HasNext(ctx) {
		if it.err != nil {
			return Item{}, it.err
		}
		return Item{}, ErrExhausted
	}
	item := *it.peeked
	it.peeked = nil
	it.stats.Items++
	return item, nil
}

// Err returns the error that stopped the iterator, if any.
func (it *Iterator) Err() error { return it.err }

// Stats returns the counters accumulated so far.
func (it *Iterator) Stats() Stats { return it.stats }

// All ranges over the remaining items. A fatal error is yielded last with a
// zero Item.
func (it *Iterator) All(ctx context.Context) iter.Seq2[Item, error] {
	return func(yield func(Item, error) bool) {
		for {
			item, err := it.Next(ctx)
			if errors.Is(err, ErrExhausted) {
				return
			}
			if err != nil {
				yield(Item{}, err)
				return
			}
			if !yield(item, nil) {
				return
			}
		}
	}
}

func (it *Iterator) advance(ctx context.Context) (Item, bool) {
	for {
		switch it.state {
		case stateHasCombinations:
			if comb, ok := it.combos.Next(); ok {
				return Item{
					DataflowID:  it.dataflow.ID,
					Names:       it.dataflow.Names,
					Structure:   it.structure,
					Combination: comb,
				}, true
			}
			it.dataflow, it.structure, it.combos = sdmx.Dataflow{}, nil, nil
			it.state = stateNeedsDataflow

		case stateNeedsDataflow:
			if it.pos >= len(it.dataflows) {
				it.state = stateExhausted
				return Item{}, false
			}
			if err := ctx.Err(); err != nil {
				it.fail(err)
				return Item{}, false
			}

			df := it.dataflows[it.pos]
			it.pos++

			dsd, err := it.source.LoadStructure(ctx, df)
			if err == nil && dsd == nil {
				err = ErrNilStructure
			}
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					it.fail(ctxErr)
					return Item{}, false
				}
				it.skip(df, err)
				continue
			}

			combos, err := Expand(it.resolver.Resolve(dsd))
			if err != nil {
				it.fail(fmt.Errorf("dataflow %s: %w", df.ID, err))
				return Item{}, false
			}

			it.dataflow, it.structure, it.combos = df, dsd, combos
			it.state = stateHasCombinations
			it.stats.DataflowsExpanded++
			it.logger.Debug("Dataflow expanded", map[string]interface{}{
				"dataflowId":   df.ID,
				"structureId":  dsd.ID,
				"dimensions":   DimensionCodes(combos.dims).IDs(),
				"combinations": combos.Total(),
			})

		default:
			return Item{}, false
		}
	}
}

func (it *Iterator) skip(df sdmx.Dataflow, err error) {
	it.stats.DataflowsSkipped++
	it.logger.Warn("Skipping dataflow", map[string]interface{}{
		"dataflowId":  df.ID,
		"structureId": df.Structure.ID,
		"error":       err.Error(),
	})
	if it.onSkip != nil {
		it.onSkip(df, err)
	}
}

func (it *Iterator) fail(err error) {
	it.err = err
	it.state = stateExhausted
	it.dataflow, it.structure, it.combos = sdmx.Dataflow{}, nil, nil
	it.logger.Error("Extraction aborted", map[string]interface{}{
		"error": err.Error(),
	})
}
