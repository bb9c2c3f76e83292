// cmd/harvester/main.go
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"sdmx-harvester/internal/common/config"
	"sdmx-harvester/internal/common/logger"
	"sdmx-harvester/internal/pipeline"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "path to config.yaml")
	force := flag.Bool("force", false, "harvest even if the catalogue is unchanged")
	dryRun := flag.Bool("dry-run", false, "build and validate records without writing them")
	flag.Parse()

	bootLog := logger.New("info", "console")

	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadFromFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		bootLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner, cleanup, err := pipeline.FromConfig(ctx, cfg, nil, log)
	if err != nil {
		zapLog.Fatal("failed to initialize harvest", zap.Error(err))
	}

	report, runErr := runner.Run(ctx, pipeline.RunOptions{Force: *force, DryRun: *dryRun})
	cleanup()

	enc := json.NewEncoder(os.Stderr)
	enc.SetIndent("", "  ")
	_ = enc.Encode(report)

	if runErr != nil {
		zapLog.Sync()
		os.Exit(1)
	}
}
