package observability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"sdmx-harvester/internal/common/logger"
)

func TestObservability_RecordRun(t *testing.T) {
	o := New("sdmx-harvester-test", logger.NewTestLogger(t))
	defer o.Shutdown()

	assert.NotPanics(t, func() {
		o.RecordRun(context.Background(), "eurostat", "completed", 1500*time.Millisecond, 12)
	})
}

func TestObservability_ZeroValue(t *testing.T) {
	var o Observability
	assert.NotPanics(t, func() {
		o.RecordRun(context.Background(), "eurostat", "failed", time.Second, 0)
		o.Shutdown()
	})
}
