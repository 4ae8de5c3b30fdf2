package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserversAfterInit(t *testing.T) {
	Init()
	Init() // idempotent

	ObserveTask(TaskFetch, "ok", 250*time.Millisecond)
	ObserveTask(TaskFetch, "ok", time.Second)
	ObserveTask(TaskExtract, "exhausted", time.Second)
	ObserveRecord("inserted")
	ObserveRecord("duplicate")
	ObserveRecord("duplicate")
	ObserveWave()
	SetHandlesInUse(3)
	SetFrontierSize(12)

	assert.Equal(t, float64(2), testutil.ToFloat64(crawlerTasksTotal.WithLabelValues(TaskFetch, "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(crawlerTasksTotal.WithLabelValues(TaskExtract, "exhausted")))
	assert.Equal(t, float64(1), testutil.ToFloat64(crawlerRecordsTotal.WithLabelValues("inserted")))
	assert.Equal(t, float64(2), testutil.ToFloat64(crawlerRecordsTotal.WithLabelValues("duplicate")))
	assert.Equal(t, float64(1), testutil.ToFloat64(crawlerWavesTotal))
	assert.Equal(t, float64(3), testutil.ToFloat64(crawlerHandlesInUse))
	assert.Equal(t, float64(12), testutil.ToFloat64(crawlerFrontierSize))
}
