package sink

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	commonerrors "sdmx-harvester/internal/common/errors"
	"sdmx-harvester/internal/record"
)

// JSONLSink writes one JSON document per line.
type JSONLSink struct {
	w      *bufio.Writer
	enc    *json.Encoder
	closer io.Closer
}

// NewJSONLSink writes to w. w is not closed by Close.
func NewJSONLSink(w io.Writer) *JSONLSink {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	return &JSONLSink{w: bw, enc: enc}
}

// OpenJSONLSink appends to the file at path, or writes to stdout when path
// is empty or "-".
func OpenJSONLSink(path string) (*JSONLSink, error) {
	if path == "" || path == "-" {
		return NewJSONLSink(os.Stdout), nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	s := NewJSONLSink(f)
	s.closer = f
	return s, nil
}

func (s *JSONLSink) Name() string { return "jsonl" }

func (s *JSONLSink) Write(ctx context.Context, docs []*record.Document) error {
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.enc.Encode(doc); err != nil {
			return commonerrors.NewSinkWriteFailedError(s.Name(), err)
		}
	}
	if err := s.w.Flush(); err != nil {
		return commonerrors.NewSinkWriteFailedError(s.Name(), err)
	}
	return nil
}

func (s *JSONLSink) Close() error {
	if err := s.w.Flush(); err != nil {
		return err
	}
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}
