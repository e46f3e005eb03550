package metrics_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/advstorage/pkg/configs"
	"github.com/yeisme/advstorage/pkg/metrics"
)

// TestInitMetricsRegistersDomainCollectors 测试领域指标随 InitMetrics 注册.
func TestInitMetricsRegistersDomainCollectors(t *testing.T) {
	require.NoError(t, metrics.InitMetrics(configs.MetricsConfig{
		Enabled:       true,
		CustomMetrics: []string{"advst_test_events_total"},
		Labels:        map[string]string{"service": "advstorage-test"},
	}))

	// 重复初始化不会重复注册
	require.NoError(t, metrics.InitMetrics(configs.MetricsConfig{Enabled: true}))

	metrics.ObjectsCreated.Inc()
	metrics.ObjectsRemoved.WithLabelValues("immediate").Inc()
	metrics.Custom("advst_test_events_total").WithLabelValues("unit").Inc()

	families, err := metrics.GetRegistry().Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true

		if f.GetName() == "advst_objects_created_total" {
			require.NotEmpty(t, f.GetMetric())
			require.NotEmpty(t, f.GetMetric()[0].GetLabel())
			assert.Equal(t, "advstorage-test", f.GetMetric()[0].GetLabel()[0].GetValue())
		}
	}

	assert.True(t, names["advst_objects_created_total"])
	assert.True(t, names["advst_objects_removed_total"])
	assert.True(t, names["advst_test_events_total"])
	assert.Nil(t, metrics.Custom("missing"))
}
