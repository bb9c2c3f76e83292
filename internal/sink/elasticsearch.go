package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"sdmx-harvester/internal/common/database"
	commonerrors "sdmx-harvester/internal/common/errors"
	"sdmx-harvester/internal/common/logger"
	"sdmx-harvester/internal/record"
)

const indexMapping = `{
  "mappings": {
    "properties": {
      "identifier": {"properties": {"value": {"type": "keyword"}, "identifierType": {"type": "keyword"}}},
      "titles": {"properties": {"value": {"type": "text"}}},
      "descriptions": {"properties": {"value": {"type": "text"}, "descriptionType": {"type": "keyword"}}},
      "publisher": {"type": "keyword"},
      "publicationYear": {"type": "integer"},
      "geoLocations": {"properties": {"geoLocationPlace": {"type": "keyword"}}},
      "provenance": {
        "properties": {
          "source": {"type": "keyword"},
          "dataflowId": {"type": "keyword"},
          "structureId": {"type": "keyword"},
          "dimensions": {"type": "flattened"}
        }
      }
    }
  }
}`

// ElasticsearchSink indexes records with the bulk API.
type ElasticsearchSink struct {
	client *database.ElasticsearchClient
	index  string
	logger logger.Logger
}

func NewElasticsearchSink(client *database.ElasticsearchClient, index string, log logger.Logger) *ElasticsearchSink {
	return &ElasticsearchSink{
		client: client,
		index:  index,
		logger: log.WithFields(map[string]interface{}{"sink": "elasticsearch", "index": index}),
	}
}

func (s *ElasticsearchSink) Name() string { return "elasticsearch" }

// EnsureIndex creates the target index with the record mapping.
func (s *ElasticsearchSink) EnsureIndex(ctx context.Context) error {
	if err := s.client.EnsureIndex(ctx, s.index, indexMapping); err != nil {
		return commonerrors.NewSinkWriteFailedError(s.Name(), err)
	}
	return nil
}

type bulkResponse struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		ID     string `json:"_id"`
		Status int    `json:"status"`
		Error  *struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error,omitempty"`
	} `json:"items"`
}

func (s *ElasticsearchSink) Write(ctx context.Context, docs []*record.Document) error {
	if len(docs) == 0 {
		return nil
	}

	var body bytes.Buffer
	enc := json.NewEncoder(&body)
	for _, doc := range docs {
		meta := map[string]interface{}{
			"index": map[string]interface{}{"_index": s.index, "_id": DocumentID(doc.Identifier.Value)},
		}
		if err := enc.Encode(meta); err != nil {
			return commonerrors.NewSinkWriteFailedError(s.Name(), err)
		}
		if err := enc.Encode(doc); err != nil {
			return commonerrors.NewSinkWriteFailedError(s.Name(), err)
		}
	}

	es := s.client.Client
	res, err := es.Bulk(
		&body,
		es.Bulk.WithContext(ctx),
		es.Bulk.WithIndex(s.index),
	)
	if err != nil {
		return commonerrors.NewSinkWriteFailedError(s.Name(), err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return commonerrors.NewSinkWriteFailedError(s.Name(), fmt.Errorf("bulk request: %s", res.Status()))
	}

	var br bulkResponse
	if err := json.NewDecoder(res.Body).Decode(&br); err != nil {
		return commonerrors.NewSinkWriteFailedError(s.Name(), fmt.Errorf("decode bulk response: %w", err))
	}

	if br.Errors {
		failed := 0
		var first string
		for _, item := range br.Items {
			for _, op := range item {
				if op.Error == nil {
					continue
				}
				failed++
				if first == "" {
					first = fmt.Sprintf("%s: %s", op.Error.Type, op.Error.Reason)
				}
			}
		}
		return commonerrors.NewSinkWriteFailedError(s.Name(),
			fmt.Errorf("%d of %d documents rejected, first: %s", failed, len(docs), first))
	}

	s.logger.Debug("bulk indexed", map[string]interface{}{"documents": len(docs)})
	return nil
}

// Close is a no-op; the client is owned by the caller.
func (s *ElasticsearchSink) Close() error { return nil }
