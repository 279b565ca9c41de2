package prometheus

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollector_RecordRefresh(t *testing.T) {
	collector := NewCollector(prometheus.NewRegistry())

	collector.RecordRefresh(100*time.Millisecond, nil)
	collector.RecordRefresh(200*time.Millisecond, errors.New("upstream unavailable"))

	assert.Equal(t, float64(2), testutil.ToFloat64(collector.refreshCycles))
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.refreshErrors))
	assert.Equal(t, 1, testutil.CollectAndCount(collector.refreshDuration))
}

func TestCollector_RecordPublished(t *testing.T) {
	collector := NewCollector(prometheus.NewRegistry())

	at := time.Unix(1700000000, 0)
	collector.RecordPublished(128, 16, at)

	assert.Equal(t, float64(128), testutil.ToFloat64(collector.graphBytes))
	assert.Equal(t, float64(16), testutil.ToFloat64(collector.metadataBytes))
	assert.Equal(t, float64(1700000000), testutil.ToFloat64(collector.lastSuccess))
}

func TestCollector_Requests(t *testing.T) {
	collector := NewCollector(prometheus.NewRegistry())

	collector.IncIncomingRequests()
	collector.IncIncomingRequests()
	collector.IncResponseErrors()

	assert.Equal(t, float64(2), testutil.ToFloat64(collector.incomingRequests))
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.responseErrors))
}

func TestCollector_PluginDuration(t *testing.T) {
	collector := NewCollector(prometheus.NewRegistry())

	assert.Equal(t, 0, testutil.CollectAndCount(collector.pluginDuration))

	collector.InitPlugin("fetch")
	collector.InitPlugin("validate")
	assert.Equal(t, 2, testutil.CollectAndCount(collector.pluginDuration))

	collector.ObservePluginDuration("fetch", 5*time.Millisecond)
	assert.Equal(t, 2, testutil.CollectAndCount(collector.pluginDuration))
}

func TestNewCollector_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCollector(reg)

	assert.Panics(t, func() { NewCollector(reg) })
}
