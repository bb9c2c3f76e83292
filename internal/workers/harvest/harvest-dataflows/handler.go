// internal/workers/harvest/harvest-dataflows/handler.go
package harvestdataflows

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	commonerrors "sdmx-harvester/internal/common/errors"
	"sdmx-harvester/internal/common/logger"
	"sdmx-harvester/internal/common/metrics"
	"sdmx-harvester/internal/common/validation"
	"sdmx-harvester/internal/pipeline"
)

const (
	TaskType = "harvest-dataflows"
)

var (
	ErrInvalidInput = errors.New("INVALID_INPUT")
)

// Harvester runs one harvest.
type Harvester interface {
	Run(ctx context.Context, opts pipeline.RunOptions) (*pipeline.Report, error)
}

type Handler struct {
	config       *Config
	harvester    Harvester
	validator    *validation.SchemaValidator
	errorHandler *commonerrors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, harvester Harvester, log logger.Logger) (*Handler, error) {
	validator, err := validation.NewHarvestInputValidator()
	if err != nil {
		return nil, err
	}
	scoped := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		harvester:    harvester,
		validator:    validator,
		errorHandler: commonerrors.NewErrorHandler(scoped),
		logger:       scoped,
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.handle(ctx, job.Variables)
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	if err != nil {
		code := string(commonerrors.ErrCodeInternal)
		if stdErr, ok := commonerrors.AsStandardError(err); ok {
			code = string(stdErr.Code)
		}
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, code).Inc()
		h.errorHandler.HandleJobError(context.Background(), client, job, err)
		return
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	h.completeJob(context.Background(), client, job, output)
}

func (h *Handler) handle(ctx context.Context, variables string) (*Output, error) {
	input, err := h.parseInput(variables)
	if err != nil {
		return nil, err
	}
	return h.Execute(ctx, input)
}

// parseInput validates the raw job variables before decoding them.
func (h *Handler) parseInput(variables string) (*Input, error) {
	var raw map[string]interface{}
	if strings.TrimSpace(variables) != "" {
		if err := json.Unmarshal([]byte(variables), &raw); err != nil {
			return nil, commonerrors.NewConfigInvalidError(fmt.Sprintf("%v: parse variables: %v", ErrInvalidInput, err))
		}
	}
	if raw == nil {
		raw = map[string]interface{}{}
	}

	result, err := h.validator.Validate(raw)
	if err != nil {
		return nil, err
	}
	if !result.Valid {
		return nil, commonerrors.NewConfigInvalidError(fmt.Sprintf("%v: %s", ErrInvalidInput, strings.Join(result.Messages(), "; ")))
	}

	var input Input
	if len(raw) > 0 {
		if err := json.Unmarshal([]byte(variables), &input); err != nil {
			return nil, commonerrors.NewConfigInvalidError(fmt.Sprintf("%v: %v", ErrInvalidInput, err))
		}
	}
	return &input, nil
}

// Execute runs the harvest for an already decoded input.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		input = &Input{}
	}

	report, err := h.harvester.Run(ctx, pipeline.RunOptions{Force: input.Force, DryRun: input.DryRun})
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, commonerrors.NewTimeoutError("harvest", err)
		}
		if _, ok := commonerrors.AsStandardError(err); ok {
			return nil, err
		}
		return nil, commonerrors.NewExternalServiceError("harvest", err)
	}

	return &Output{
		HarvestStatus: report.Status,
		HarvestReport: report,
	}, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}

	h.logger.Info("job completed", map[string]interface{}{
		"jobKey":         job.Key,
		"harvestStatus":  output.HarvestStatus,
		"recordsEmitted": output.HarvestReport.RecordsEmitted,
	})
}
