package pipeline

import (
	"context"
	"fmt"

	"sdmx-harvester/internal/common/aws"
	"sdmx-harvester/internal/common/config"
	"sdmx-harvester/internal/common/database"
	commonhttp "sdmx-harvester/internal/common/http"
	"sdmx-harvester/internal/common/logger"
	"sdmx-harvester/internal/common/validation"
	"sdmx-harvester/internal/harvest"
	"sdmx-harvester/internal/notify"
	"sdmx-harvester/internal/record"
	"sdmx-harvester/internal/sdmx"
	"sdmx-harvester/internal/sink"
	"sdmx-harvester/internal/state"
)

// FromConfig assembles a Runner and its backends from cfg. The returned
// cleanup closes every connection that was opened.
func FromConfig(ctx context.Context, cfg *config.Config, observer RunObserver, log logger.Logger) (*Runner, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*Runner, func(), error) {
		cleanup()
		return nil, nil, err
	}

	pattern, err := harvest.CompilePattern(cfg.Harvest.DataflowPattern)
	if err != nil {
		return fail(err)
	}

	fetcher := commonhttp.NewClientWithConfig(commonhttp.ClientConfig{
		Timeout:   config.GetDuration(cfg.Registry.Timeout),
		UserAgent: cfg.Registry.UserAgent,
		Retry: commonhttp.RetryConfig{
			MaxRetries: cfg.Registry.MaxRetries,
			BaseDelay:  config.GetDuration(cfg.Registry.BaseDelay),
			MaxDelay:   config.GetDuration(cfg.Registry.MaxDelay),
		},
	})
	source := sdmx.NewRegistrySource(sdmx.RegistryConfig{
		CatalogueURL:       cfg.Harvest.SDEMURL,
		StructureURLFormat: cfg.Harvest.StructureURLFormat,
	}, fetcher, log)

	validator, err := validation.NewRecordValidator()
	if err != nil {
		return fail(err)
	}

	out, closeSink, err := sink.New(ctx, cfg, log)
	if err != nil {
		return fail(err)
	}
	closers = append(closers, closeSink, func() {
		if err := out.Close(); err != nil {
			log.Warn("failed to close sink", map[string]interface{}{"error": err.Error()})
		}
	})

	deps := Dependencies{
		Source: source,
		Builder: record.NewBuilder(record.Config{
			SourceName:   cfg.Harvest.SourceName,
			RestBaseURL:  cfg.Harvest.RestBaseURL,
			GeoDimension: cfg.Harvest.GeoDimension,
			Publisher:    cfg.Metadata.Publisher,
			Language:     cfg.Metadata.Language,
			Formats:      cfg.Metadata.Formats,
			RightsName:   cfg.Metadata.RightsName,
			RightsURI:    cfg.Metadata.RightsURI,
			LogoURL:      cfg.Metadata.LogoURL,
		}),
		Validator: validator,
		Sink:      out,
		Observer:  observer,
		Notifier:  notify.NewLogNotifier(log),
	}

	if cfg.State.Enabled {
		rdb, err := database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, func() { rdb.Close() })
		if err := rdb.Ping(ctx); err != nil {
			return fail(err)
		}
		deps.Store = state.NewRedisStore(rdb.Client, cfg.State.KeyPrefix, log)
	}

	if cfg.Notifications.SNS.Enabled {
		snsClient, err := aws.NewSNSClient(ctx, cfg.Notifications.SNS.Region)
		if err != nil {
			return fail(fmt.Errorf("failed to create sns client: %w", err))
		}
		deps.Notifier = notify.NewSNSNotifier(snsClient, cfg.Notifications.SNS.TopicARN, log)
	}

	runner := NewRunner(Config{
		Source:            cfg.Harvest.SourceName,
		BatchSize:         cfg.Harvest.BatchSize,
		AllowedDimensions: cfg.Harvest.AllowedDimensions,
		DataflowPattern:   pattern,
	}, deps, log)

	return runner, cleanup, nil
}
