package harvestdataflows

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"sdmx-harvester/internal/common/config"
	commonerrors "sdmx-harvester/internal/common/errors"
	"sdmx-harvester/internal/common/logger"
	"sdmx-harvester/internal/pipeline"
)

type MockHarvester struct {
	mock.Mock
}

func (m *MockHarvester) Run(ctx context.Context, opts pipeline.RunOptions) (*pipeline.Report, error) {
	args := m.Called(ctx, opts)
	rep, _ := args.Get(0).(*pipeline.Report)
	return rep, args.Error(1)
}

func createTestConfig() *Config {
	return &Config{Timeout: 5 * time.Second, MaxRetries: 3}
}

func createTestLogger(t *testing.T) logger.Logger {
	return logger.NewZapAdapter(zaptest.NewLogger(t))
}

func newTestHandler(t *testing.T, h Harvester) *Handler {
	t.Helper()
	handler, err := NewHandler(createTestConfig(), h, createTestLogger(t))
	require.NoError(t, err)
	return handler
}

func TestHandler_Execute_Success(t *testing.T) {
	harvester := new(MockHarvester)
	report := &pipeline.Report{RunID: "run-1", Source: "eurostat", Status: pipeline.StatusCompleted, RecordsEmitted: 6}
	harvester.On("Run", mock.Anything, pipeline.RunOptions{Force: true}).Return(report, nil)

	h := newTestHandler(t, harvester)
	out, err := h.Execute(context.Background(), &Input{Force: true})

	require.NoError(t, err)
	assert.Equal(t, pipeline.StatusCompleted, out.HarvestStatus)
	assert.Same(t, report, out.HarvestReport)
	harvester.AssertExpectations(t)
}

func TestHandler_Execute_NilInput(t *testing.T) {
	harvester := new(MockHarvester)
	harvester.On("Run", mock.Anything, pipeline.RunOptions{}).
		Return(&pipeline.Report{Status: pipeline.StatusUnchanged}, nil)

	h := newTestHandler(t, harvester)
	out, err := h.Execute(context.Background(), nil)

	require.NoError(t, err)
	assert.Equal(t, pipeline.StatusUnchanged, out.HarvestStatus)
}

func TestHandler_Execute_Errors(t *testing.T) {
	tests := []struct {
		name     string
		runErr   error
		wantCode commonerrors.ErrorCode
	}{
		{
			name:     "standard error passes through",
			runErr:   commonerrors.NewNoRecordsError("eurostat"),
			wantCode: commonerrors.ErrCodeNoRecords,
		},
		{
			name:     "plain error becomes external service error",
			runErr:   errors.New("boom"),
			wantCode: commonerrors.ErrCodeExternalService,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			harvester := new(MockHarvester)
			harvester.On("Run", mock.Anything, mock.Anything).
				Return(&pipeline.Report{Status: pipeline.StatusFailed}, tt.runErr)

			h := newTestHandler(t, harvester)
			_, err := h.Execute(context.Background(), &Input{})

			stdErr, ok := commonerrors.AsStandardError(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantCode, stdErr.Code)
		})
	}
}

func TestHandler_Execute_Timeout(t *testing.T) {
	harvester := new(MockHarvester)
	harvester.On("Run", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(nil, context.DeadlineExceeded)

	h := newTestHandler(t, harvester)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := h.Execute(ctx, &Input{})
	stdErr, ok := commonerrors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, commonerrors.ErrCodeTimeout, stdErr.Code)
}

func TestHandler_ParseInput(t *testing.T) {
	h := newTestHandler(t, new(MockHarvester))

	tests := []struct {
		name      string
		variables string
		want      *Input
		wantErr   bool
	}{
		{name: "empty variables", variables: "", want: &Input{}},
		{name: "empty object", variables: "{}", want: &Input{}},
		{name: "flags", variables: `{"force":true,"dryRun":true,"other":"ignored"}`, want: &Input{Force: true, DryRun: true}},
		{name: "wrong type", variables: `{"force":"yes"}`, wantErr: true},
		{name: "not json", variables: `force=true`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := h.parseInput(tt.variables)
			if tt.wantErr {
				stdErr, ok := commonerrors.AsStandardError(err)
				require.True(t, ok)
				assert.Equal(t, commonerrors.ErrCodeConfigInvalid, stdErr.Code)
				assert.Contains(t, stdErr.Details, "INVALID_INPUT")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConfigFrom(t *testing.T) {
	tests := []struct {
		name string
		in   config.WorkerConfig
		want Config
	}{
		{
			name: "milliseconds become a duration",
			in:   config.WorkerConfig{Timeout: 90000, MaxRetries: 5},
			want: Config{Timeout: 90 * time.Second, MaxRetries: 5},
		},
		{
			name: "defaults for an unconfigured worker",
			in:   config.GetWorkerConfig(&config.Config{}, TaskType),
			want: Config{Timeout: time.Hour, MaxRetries: 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, *ConfigFrom(tt.in))
		})
	}
}
