// internal/sdmx/source.go
package sdmx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	commonerrors "sdmx-harvester/internal/common/errors"
	"sdmx-harvester/internal/common/logger"
)

var ErrMissingStructureRef = errors.New("DATAFLOW_WITHOUT_STRUCTURE")

// Fetcher retrieves a registry document. The *Client of
// internal/common/http satisfies it.
type Fetcher interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

type RegistryConfig struct {
	// CatalogueURL returns the structural definition exchange message
	// listing all dataflows.
	CatalogueURL string
	// StructureURLFormat is formatted with the escaped structure id and must
	// return the data structure together with its code lists and concepts.
	StructureURLFormat string
}

// RegistrySource reads dataflows and data structures from an SDMX REST registry.
type RegistrySource struct {
	cfg     RegistryConfig
	fetcher Fetcher
	logger  logger.Logger

	mu     sync.RWMutex
	header Header
}

func NewRegistrySource(cfg RegistryConfig, fetcher Fetcher, log logger.Logger) *RegistrySource {
	return &RegistrySource{
		cfg:     cfg,
		fetcher: fetcher,
		logger:  log.WithFields(map[string]interface{}{"component": "registry-source"}),
	}
}

// ListDataflows fetches the catalogue and remembers its header for Version.
func (s *RegistrySource) ListDataflows(ctx context.Context) ([]Dataflow, error) {
	body, err := s.fetcher.Get(ctx, s.cfg.CatalogueURL)
	if err != nil {
		return nil, commonerrors.NewRegistryUnavailableError(s.cfg.CatalogueURL, err)
	}

	cat, err := DecodeCatalogue(bytes.NewReader(body))
	if err != nil {
		return nil, commonerrors.NewCatalogueParseFailedError(err)
	}

	s.mu.Lock()
	s.header = cat.Header
	s.mu.Unlock()

	s.logger.Info("Catalogue loaded", map[string]interface{}{
		"url":       s.cfg.CatalogueURL,
		"headerId":  cat.Header.ID,
		"prepared":  cat.Header.Prepared,
		"dataflows": len(cat.Dataflows),
	})
	return cat.Dataflows, nil
}

// Version returns the fingerprint of the last catalogue fetched by ListDataflows.
func (s *RegistrySource) Version() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.header.Fingerprint()
}

// LoadStructure fetches and resolves the data structure of df.
func (s *RegistrySource) LoadStructure(ctx context.Context, df Dataflow) (*DataStructure, error) {
	if df.Structure.IsZero() {
		return nil, fmt.Errorf("dataflow %s: %w", df.ID, ErrMissingStructureRef)
	}

	structureURL := s.StructureURL(df.Structure)
	body, err := s.fetcher.Get(ctx, structureURL)
	if err != nil {
		return nil, fmt.Errorf("fetch structure %s: %w", df.Structure.ID, err)
	}

	dsd, err := DecodeStructure(bytes.NewReader(body), df.Structure.ID)
	if err != nil {
		return nil, fmt.Errorf("decode structure %s: %w", df.Structure.ID, err)
	}

	s.logger.Debug("Structure loaded", map[string]interface{}{
		"dataflowId":  df.ID,
		"structureId": dsd.ID,
		"dimensions":  len(dsd.Dimensions),
	})
	return dsd, nil
}

// StructureURL builds the structure query for ref.
func (s *RegistrySource) StructureURL(ref Reference) string {
	if strings.Contains(s.cfg.StructureURLFormat, "%s") {
		return fmt.Sprintf(s.cfg.StructureURLFormat, url.PathEscape(ref.ID))
	}
	return strings.TrimRight(s.cfg.StructureURLFormat, "/") + "/" + url.PathEscape(ref.ID)
}
