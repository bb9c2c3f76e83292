package state

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"

	commonerrors "sdmx-harvester/internal/common/errors"
	"sdmx-harvester/internal/common/logger"
)

// RedisStore keeps one JSON value per source under prefix+source.
type RedisStore struct {
	client redis.Cmdable
	prefix string
	logger logger.Logger
}

func NewRedisStore(client redis.Cmdable, prefix string, log logger.Logger) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: prefix,
		logger: log.WithFields(map[string]interface{}{"component": "state"}),
	}
}

func (s *RedisStore) key(source string) string {
	return s.prefix + source
}

func (s *RedisStore) Load(ctx context.Context, source string) (*RunState, error) {
	raw, err := s.client.Get(ctx, s.key(source)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, commonerrors.NewStateStoreFailedError("load", err)
	}

	var st RunState
	if err := json.Unmarshal(raw, &st); err != nil {
		// A corrupt entry only costs one unconditional harvest.
		s.logger.Warn("discarding unreadable state", map[string]interface{}{
			"source": source,
			"error":  err.Error(),
		})
		return nil, nil
	}
	return &st, nil
}

func (s *RedisStore) Save(ctx context.Context, st *RunState) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return commonerrors.NewStateStoreFailedError("save", err)
	}
	if err := s.client.Set(ctx, s.key(st.Source), raw, 0).Err(); err != nil {
		return commonerrors.NewStateStoreFailedError("save", err)
	}
	return nil
}
