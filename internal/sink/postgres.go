package sink

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"sdmx-harvester/internal/common/database"
	commonerrors "sdmx-harvester/internal/common/errors"
	"sdmx-harvester/internal/common/logger"
	"sdmx-harvester/internal/record"
)

// PostgresSink upserts records into a JSONB table keyed by identifier.
type PostgresSink struct {
	db     *database.PostgresClient
	table  string
	logger logger.Logger
}

// NewPostgresSink expects table to be a validated SQL identifier.
func NewPostgresSink(db *database.PostgresClient, table string, log logger.Logger) *PostgresSink {
	return &PostgresSink{
		db:     db,
		table:  table,
		logger: log.WithFields(map[string]interface{}{"sink": "postgres", "table": table}),
	}
}

func (s *PostgresSink) Name() string { return "postgres" }

// EnsureTable creates the record table if it does not exist.
func (s *PostgresSink) EnsureTable(ctx context.Context) error {
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id UUID PRIMARY KEY,
		identifier TEXT NOT NULL UNIQUE,
		dataflow_id TEXT NOT NULL,
		structure_id TEXT NOT NULL,
		document JSONB NOT NULL,
		harvested_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`, s.table)

	if _, err := s.db.Exec(ctx, query); err != nil {
		return commonerrors.NewSinkWriteFailedError(s.Name(), fmt.Errorf("create table: %w", err))
	}
	return nil
}

func (s *PostgresSink) upsertQuery() string {
	return fmt.Sprintf(`INSERT INTO %s (id, identifier, dataflow_id, structure_id, document, harvested_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (id) DO UPDATE SET
			document = EXCLUDED.document,
			harvested_at = EXCLUDED.harvested_at`, s.table)
}

func (s *PostgresSink) Write(ctx context.Context, docs []*record.Document) error {
	if len(docs) == 0 {
		return nil
	}

	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, s.upsertQuery())
		if err != nil {
			return fmt.Errorf("prepare upsert: %w", err)
		}
		defer stmt.Close()

		for _, doc := range docs {
			payload, err := json.Marshal(doc)
			if err != nil {
				return fmt.Errorf("encode %s: %w", doc.Identifier.Value, err)
			}
			if _, err := stmt.ExecContext(ctx,
				DocumentID(doc.Identifier.Value),
				doc.Identifier.Value,
				doc.Provenance.DataflowID,
				doc.Provenance.StructureID,
				payload,
			); err != nil {
				return fmt.Errorf("upsert %s: %w", doc.Identifier.Value, err)
			}
		}
		return nil
	})
	if err != nil {
		return commonerrors.NewSinkWriteFailedError(s.Name(), err)
	}

	s.logger.Debug("batch upserted", map[string]interface{}{"documents": len(docs)})
	return nil
}

// Close is a no-op; the connection pool is owned by the caller.
func (s *PostgresSink) Close() error { return nil }
