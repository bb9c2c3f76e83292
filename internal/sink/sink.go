// Package sink stores harvested records.
package sink

import (
	"context"

	"github.com/google/uuid"

	"sdmx-harvester/internal/record"
)

// Sink persists batches of records. Writing a record whose identifier is
// already stored replaces it.
type Sink interface {
	Name() string
	Write(ctx context.Context, docs []*record.Document) error
	Close() error
}

// DocumentID derives a stable storage key from a record identifier.
func DocumentID(identifier string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(identifier)).String()
}
