// cmd/worker-manager/main_test.go
package main

import (
	"testing"

	"mentormatch-workers/internal/common/metrics"
	"mentormatch-workers/internal/common/observability"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestInstrumented_RecordsJobMetrics(t *testing.T) {
	obs := observability.New("worker-manager-test")
	defer obs.Shutdown()

	taskType := "instrumented-test"
	durationsBefore := testutil.CollectAndCount(metrics.WorkerJobDuration)

	calls := 0
	wrapped := instrumented(obs, taskType, func(client worker.JobClient, job entities.Job) {
		calls++
		assert.Equal(t, float64(1), testutil.ToFloat64(metrics.WorkerJobsActive.WithLabelValues(taskType)))
	})
	wrapped(nil, entities.Job{})

	assert.Equal(t, 1, calls)
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.WorkerJobsActive.WithLabelValues(taskType)))
	assert.Greater(t, testutil.CollectAndCount(metrics.WorkerJobDuration), durationsBefore)
}
