package sink

import (
	"context"
	"fmt"

	"sdmx-harvester/internal/common/config"
	"sdmx-harvester/internal/common/database"
	"sdmx-harvester/internal/common/logger"
)

// New opens the sink selected by cfg.Sink.Kind and prepares its storage.
// The returned cleanup releases the backend connection.
func New(ctx context.Context, cfg *config.Config, log logger.Logger) (Sink, func(), error) {
	switch cfg.Sink.Kind {
	case config.SinkElasticsearch:
		client, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return nil, nil, err
		}
		if err := client.Ping(ctx); err != nil {
			return nil, nil, err
		}
		s := NewElasticsearchSink(client, cfg.Sink.Index, log)
		if err := s.EnsureIndex(ctx); err != nil {
			return nil, nil, err
		}
		return s, func() {}, nil

	case config.SinkPostgres:
		db, err := database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return nil, nil, err
		}
		if err := db.Ping(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("postgres ping failed: %w", err)
		}
		s := NewPostgresSink(db, cfg.Sink.Table, log)
		if err := s.EnsureTable(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return s, func() { db.Close() }, nil

	case config.SinkJSONLines:
		s, err := OpenJSONLSink(cfg.Sink.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown sink kind %q", cfg.Sink.Kind)
	}
}
